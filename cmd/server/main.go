package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stic_os/backend/internal/ai"
	"github.com/stic_os/backend/internal/config"
	"github.com/stic_os/backend/internal/db"
	httpapi "github.com/stic_os/backend/internal/http"
	"github.com/stic_os/backend/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "stic-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var assistant ai.Assistant
	if cfg.AssistantBaseURL == "" {
		assistant = ai.MockAssistant{ModelVersion: "mock-v1"}
		logger.Info().Msg("using mock assistant")
	} else {
		assistant = &ai.OpenAICompatAssistant{
			BaseURL:   cfg.AssistantBaseURL,
			Model:     cfg.AssistantModel,
			APIKey:    cfg.AssistantAPIKey,
			MaxTokens: cfg.AssistantMaxTokens,
		}
	}

	sched := &scheduler.Scheduler{
		Store:       store,
		Clock:       scheduler.SystemClock{},
		Logger:      logger,
		RuleTimeout: cfg.RuleTimeout,
	}

	if cfg.SchedulerEnabled {
		// One evaluation pass per process start, after a short delay so the
		// pool is warm. Operators re-trigger via POST /api/scheduler/run.
		go func() {
			time.Sleep(cfg.SchedulerDelay)
			runScheduler(ctx, store, sched, logger)
		}()
	}

	router := httpapi.Router(cfg, store, assistant, sched, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

func runScheduler(ctx context.Context, store *db.Store, sched *scheduler.Scheduler, logger zerolog.Logger) {
	runID, err := store.CreateRun(ctx, "RUNNING")
	if err != nil {
		logger.Error().Err(err).Msg("failed to create scheduler run")
		return
	}

	summary, err := sched.Run(ctx)
	status := "SUCCESS"
	if err != nil {
		status = "FAILED"
		logger.Error().Err(err).Msg("startup scheduler run failed")
	}
	b, _ := json.Marshal(summary)
	if finishErr := store.FinishRun(ctx, runID, status, b); finishErr != nil {
		logger.Error().Err(finishErr).Msg("failed to finish scheduler run")
	}
	logger.Info().Int("created", summary.Created).Int("rules", summary.RulesEvaluated).Msg("startup scheduler run complete")
}
