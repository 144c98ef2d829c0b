package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/stic_os/backend/internal/ai"
	"github.com/stic_os/backend/internal/config"
	"github.com/stic_os/backend/internal/db"
	"github.com/stic_os/backend/internal/http/handlers"
	"github.com/stic_os/backend/internal/http/middleware"
	"github.com/stic_os/backend/internal/scheduler"

	_ "github.com/stic_os/backend/docs"
)

func Router(cfg config.Config, store *db.Store, assistant ai.Assistant, sched *scheduler.Scheduler, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id", "X-Operator"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:         store,
		Assistant:     assistant,
		Scheduler:     sched,
		Validator:     validator.New(),
		Logger:        logger,
		AdminKey:      cfg.AdminKey,
		SLATargetDays: cfg.SLATargetDays,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/orders", h.OrdersList)
		api.GET("/orders/:id", h.OrderDetails)
		api.GET("/stats", h.Stats)
		api.GET("/stats/trends", h.Trends)
		api.GET("/rules", h.RulesList)
		api.GET("/runs/latest", h.RunsLatest)
		api.GET("/movements", h.MovementsList)
		api.GET("/activity", h.ActivityList)
		api.GET("/backup/export", h.BackupExport)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/orders", h.OrderCreate)
		admin.POST("/orders/:id/status", h.OrderUpdateStatus)
		admin.POST("/rules", h.RuleCreate)
		admin.PUT("/rules/:id", h.RuleUpdate)
		admin.DELETE("/rules/:id", h.RuleDelete)
		admin.POST("/scheduler/run", h.SchedulerRun)
		admin.POST("/movements", h.MovementCreate)
		admin.POST("/backup/restore", h.BackupRestore)
		admin.POST("/report", h.Report)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
