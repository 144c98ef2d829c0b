package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/stic_os/backend/internal/ai"
	"github.com/stic_os/backend/internal/db"
	"github.com/stic_os/backend/internal/models"
	"github.com/stic_os/backend/internal/scheduler"
)

type Handler struct {
	Store         *db.Store
	Assistant     ai.Assistant
	Scheduler     *scheduler.Scheduler
	Validator     *validator.Validate
	Logger        zerolog.Logger
	AdminKey      string
	SLATargetDays int
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List service orders
// @Tags orders
// @Produce json
// @Param status query string false "Status filter"
// @Param unit query string false "Unit filter"
// @Param q query string false "Free-text search"
// @Success 200 {object} map[string]any
// @Router /api/orders [get]
func (h *Handler) OrdersList(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	unit := strings.TrimSpace(c.Query("unit"))
	q := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Store.ListOrders(c.Request.Context(), status, unit, q, limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list orders", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) OrderDetails(c *gin.Context) {
	id := c.Param("id")
	order, err := h.Store.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get order", err.Error())
		return
	}

	movements, err := h.Store.ListMovements(c.Request.Context(), id)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list movements", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "movements": movements})
}

type CreateOrderRequest struct {
	ServiceType   string `json:"service_type" validate:"required"`
	EquipmentType string `json:"equipment_type"`
	Description   string `json:"description" validate:"required"`
	Unit          string `json:"unit" validate:"required"`
	Requester     string `json:"requester"`
	Responsible   string `json:"responsible"`
	Priority      string `json:"priority"`
}

// @Summary Create a service order
// @Tags orders
// @Accept json
// @Produce json
// @Success 201 {object} models.ServiceOrder
// @Failure 400 {object} map[string]any
// @Router /api/orders [post]
func (h *Handler) OrderCreate(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	now := time.Now().UTC()
	order := models.ServiceOrder{
		ID:            "OS-" + uuid.NewString(),
		Status:        string(models.StatusOpen),
		ServiceType:   req.ServiceType,
		EquipmentType: req.EquipmentType,
		Description:   req.Description,
		Unit:          req.Unit,
		Requester:     req.Requester,
		Responsible:   req.Responsible,
		Priority:      req.Priority,
		OpenedAt:      &now,
		CreatedDate:   scheduler.DateString(now),
		CreatedAt:     now,
	}

	if err := h.Store.CreateOrder(c.Request.Context(), order); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create order", err.Error())
		return
	}
	h.logActivity(c, "order_created", order.ID, req.Description)
	c.JSON(http.StatusCreated, order)
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// @Summary Update order status
// @Tags orders
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/orders/{id}/status [post]
func (h *Handler) OrderUpdateStatus(c *gin.Context) {
	id := c.Param("id")
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	status := models.NormalizeStatus(req.Status)
	if status == models.StatusUnknown {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status label", req.Status)
		return
	}

	var finalizedAt *time.Time
	if status == models.StatusFinalized {
		now := time.Now().UTC()
		finalizedAt = &now
	}

	if err := h.Store.UpdateOrderStatus(c.Request.Context(), id, string(status), finalizedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update status", err.Error())
		return
	}
	h.logActivity(c, "status_changed", id, string(status))
	c.JSON(http.StatusOK, gin.H{"id": id, "status": status})
}

type MovementRequest struct {
	OrderID      string `json:"order_id" validate:"required"`
	Direction    string `json:"direction" validate:"required,oneof=CHECK_IN CHECK_OUT"`
	Material     string `json:"material" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	Receiver     string `json:"receiver" validate:"required"`
	SignatureRef string `json:"signature_ref"`
}

// @Summary Register a material check-in/check-out
// @Tags movements
// @Accept json
// @Produce json
// @Success 201 {object} models.MaterialMovement
// @Failure 400 {object} map[string]any
// @Router /api/movements [post]
func (h *Handler) MovementCreate(c *gin.Context) {
	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	if _, err := h.Store.GetOrder(c.Request.Context(), req.OrderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load order", err.Error())
		return
	}

	movement := models.MaterialMovement{
		ID:           "MOV-" + uuid.NewString(),
		OrderID:      req.OrderID,
		Direction:    req.Direction,
		Material:     req.Material,
		Quantity:     req.Quantity,
		Receiver:     req.Receiver,
		SignatureRef: req.SignatureRef,
		MovedAt:      time.Now().UTC(),
	}
	if err := h.Store.InsertMovement(c.Request.Context(), movement); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to register movement", err.Error())
		return
	}
	h.logActivity(c, "material_movement", req.OrderID, req.Direction+" "+req.Material)
	c.JSON(http.StatusCreated, movement)
}

func (h *Handler) MovementsList(c *gin.Context) {
	items, err := h.Store.ListMovements(c.Request.Context(), strings.TrimSpace(c.Query("order_id")))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list movements", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) ActivityList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	items, err := h.Store.ListActivity(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list activity", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Latest scheduler run
// @Tags runs
// @Produce json
// @Success 200 {object} models.Run
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	result, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// logActivity appends to the audit trail; failures are logged, never
// surfaced, so a broken log cannot fail the primary operation.
func (h *Handler) logActivity(c *gin.Context, action, subject, detail string) {
	actor := strings.TrimSpace(c.GetHeader("X-Operator"))
	if actor == "" {
		actor = "system"
	}
	entry := models.ActivityEntry{
		ID:        "ACT-" + uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Subject:   subject,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.InsertActivity(c.Request.Context(), entry); err != nil {
		h.Logger.Error().Err(err).Str("action", action).Msg("failed to write activity entry")
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
