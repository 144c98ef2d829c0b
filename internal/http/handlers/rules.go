package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stic_os/backend/internal/models"
)

func (h *Handler) RulesList(c *gin.Context) {
	items, err := h.Store.ListRules(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list rules", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type RuleRequest struct {
	Active      bool   `json:"active"`
	DaysOfWeek  []int  `json:"days_of_week" validate:"required,min=1,dive,gte=0,lte=6"`
	StartTime   string `json:"start_time" validate:"required"`
	ServiceType string `json:"service_type" validate:"required"`
	Description string `json:"description" validate:"required"`
	Unit        string `json:"unit" validate:"required"`
	Priority    string `json:"priority"`
}

// @Summary Create a recurrence rule
// @Tags rules
// @Accept json
// @Produce json
// @Success 201 {object} models.RecurrenceRule
// @Failure 400 {object} map[string]any
// @Router /api/rules [post]
func (h *Handler) RuleCreate(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	now := time.Now().UTC()
	rule := models.RecurrenceRule{
		ID:          "RULE-" + uuid.NewString(),
		Active:      req.Active,
		DaysOfWeek:  req.DaysOfWeek,
		StartTime:   req.StartTime,
		ServiceType: req.ServiceType,
		Description: req.Description,
		Unit:        req.Unit,
		Priority:    req.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Store.CreateRule(c.Request.Context(), rule); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create rule", err.Error())
		return
	}
	h.logActivity(c, "rule_created", rule.ID, rule.ServiceType)
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) RuleUpdate(c *gin.Context) {
	id := c.Param("id")
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	rule := models.RecurrenceRule{
		ID:          id,
		Active:      req.Active,
		DaysOfWeek:  req.DaysOfWeek,
		StartTime:   req.StartTime,
		ServiceType: req.ServiceType,
		Description: req.Description,
		Unit:        req.Unit,
		Priority:    req.Priority,
	}
	if err := h.Store.UpdateRule(c.Request.Context(), rule); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Rule not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update rule", err.Error())
		return
	}
	h.logActivity(c, "rule_updated", id, rule.ServiceType)
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "updated"})
}

func (h *Handler) RuleDelete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Store.DeleteRule(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Rule not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to delete rule", err.Error())
		return
	}
	h.logActivity(c, "rule_deleted", id, "")
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "deleted"})
}

// @Summary Evaluate recurrence rules now
// @Tags scheduler
// @Produce json
// @Success 200 {object} scheduler.RunSummary
// @Router /api/scheduler/run [post]
func (h *Handler) SchedulerRun(c *gin.Context) {
	runID, err := h.Store.CreateRun(c.Request.Context(), "RUNNING")
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	summary, err := h.Scheduler.Run(c.Request.Context())
	status := "SUCCESS"
	if err != nil {
		status = "FAILED"
	}
	b, _ := json.Marshal(summary)
	if finishErr := h.Store.FinishRun(c.Request.Context(), runID, status, b); finishErr != nil {
		h.Logger.Error().Err(finishErr).Msg("failed to finish run")
	}

	if err != nil {
		h.Logger.Error().Err(err).Msg("scheduler run failed")
		writeError(c, http.StatusInternalServerError, "SCHEDULER_ERROR", "Scheduler run failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}
