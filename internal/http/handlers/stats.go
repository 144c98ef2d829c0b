package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stic_os/backend/internal/ai"
	"github.com/stic_os/backend/internal/models"
	"github.com/stic_os/backend/internal/stats"
)

// @Summary Aggregate snapshot over all service orders
// @Tags stats
// @Produce json
// @Param sla_target query int false "SLA target in days"
// @Success 200 {object} stats.Snapshot
// @Router /api/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	slaTarget := h.slaTarget(c)
	orders, err := h.Store.GetOrdersForAggregation(c.Request.Context(), nil, nil)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load orders", err.Error())
		return
	}
	c.JSON(http.StatusOK, stats.Aggregate(orders, slaTarget))
}

// @Summary Trend comparison against the immediately preceding period
// @Tags stats
// @Produce json
// @Param from query string true "Period start (YYYY-MM-DD)"
// @Param to query string true "Period end, exclusive (YYYY-MM-DD)"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/stats/trends [get]
func (h *Handler) Trends(c *gin.Context) {
	from, ok1 := models.ParseFlexibleTime(c.Query("from"))
	to, ok2 := models.ParseFlexibleTime(c.Query("to"))
	if !ok1 || !ok2 || !to.After(from) {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "from/to must be valid dates with to after from", nil)
		return
	}
	slaTarget := h.slaTarget(c)

	current, err := h.Store.GetOrdersForAggregation(c.Request.Context(), &from, &to)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load current period", err.Error())
		return
	}
	// The previous period has the same length and ends where this one starts.
	prevFrom := from.Add(-to.Sub(from))
	previous, err := h.Store.GetOrdersForAggregation(c.Request.Context(), &prevFrom, &from)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load previous period", err.Error())
		return
	}

	currentSnap := stats.Aggregate(current, slaTarget)
	var prevSnap *stats.Snapshot
	if len(previous) > 0 {
		s := stats.Aggregate(previous, slaTarget)
		prevSnap = &s
	}
	trend := stats.CompareTrend(currentSnap, prevSnap)

	c.JSON(http.StatusOK, gin.H{
		"current":  currentSnap,
		"previous": prevSnap,
		"trend":    trend,
	})
}

type ReportRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// @Summary AI-assisted management report
// @Tags report
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/report [post]
func (h *Handler) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}

	var fromPtr, toPtr *time.Time
	period := "completo"
	if from, ok := models.ParseFlexibleTime(req.From); ok {
		fromPtr = &from
		period = req.From
	}
	if to, ok := models.ParseFlexibleTime(req.To); ok {
		toPtr = &to
		period = fmt.Sprintf("%s a %s", req.From, req.To)
	}

	orders, err := h.Store.GetOrdersForAggregation(c.Request.Context(), fromPtr, toPtr)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load orders", err.Error())
		return
	}
	snap := stats.Aggregate(orders, h.SLATargetDays)

	var trend *stats.Trend
	if fromPtr != nil && toPtr != nil {
		prevFrom := fromPtr.Add(-toPtr.Sub(*fromPtr))
		previous, err := h.Store.GetOrdersForAggregation(c.Request.Context(), &prevFrom, fromPtr)
		if err == nil && len(previous) > 0 {
			prevSnap := stats.Aggregate(previous, h.SLATargetDays)
			trend = stats.CompareTrend(snap, &prevSnap)
		}
	}

	prompt := ai.BuildReportPrompt(period, snap, trend)
	answer, err := h.Assistant.Ask(c.Request.Context(), prompt, nil)
	if err != nil {
		status := http.StatusBadGateway
		var rateErr ai.RateLimitError
		if errors.As(err, &rateErr) {
			status = http.StatusTooManyRequests
		}
		h.Logger.Error().Err(err).Msg("assistant report failed")
		writeError(c, status, "ASSISTANT_ERROR", "Report generation failed", err.Error())
		return
	}

	h.logActivity(c, "report_generated", period, "")
	c.JSON(http.StatusOK, gin.H{"period": period, "snapshot": snap, "report": answer})
}

func (h *Handler) slaTarget(c *gin.Context) int {
	raw := strings.TrimSpace(c.Query("sla_target"))
	if raw == "" {
		return h.SLATargetDays
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return h.SLATargetDays
	}
	return v
}
