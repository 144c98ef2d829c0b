package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/stic_os/backend/internal/models"
)

type RestoreSummary struct {
	Parsed   int      `json:"parsed"`
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors"`
}

var exportHeader = []string{"id", "status", "service_type", "equipment_type", "description", "unit", "requester", "responsible", "priority", "opened_at", "finalized_at", "rule_id", "created_date", "created_at"}

// @Summary Export all service orders as CSV
// @Tags backup
// @Produce text/csv
// @Success 200 {string} string
// @Router /api/backup/export [get]
func (h *Handler) BackupExport(c *gin.Context) {
	orders, err := h.Store.GetOrdersForAggregation(c.Request.Context(), nil, nil)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load orders", err.Error())
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=service_orders_%s.csv", time.Now().UTC().Format("2006-01-02")))

	if err := writeOrdersCSV(c.Writer, orders); err != nil {
		// The response is already streaming; all we can do is record that
		// the client got a truncated file.
		h.Logger.Error().Err(err).Msg("backup export interrupted")
	}
}

func writeOrdersCSV(out io.Writer, orders []models.ServiceOrder) error {
	w := csv.NewWriter(out)
	_ = w.Write(exportHeader)
	for _, o := range orders {
		if w.Error() != nil {
			break
		}
		_ = w.Write([]string{
			o.ID,
			o.Status,
			o.ServiceType,
			o.EquipmentType,
			o.Description,
			o.Unit,
			o.Requester,
			o.Responsible,
			o.Priority,
			formatTime(o.OpenedAt),
			formatTime(o.FinalizedAt),
			o.RuleID,
			o.CreatedDate,
			o.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	return w.Error()
}

// @Summary Restore service orders from a CSV backup
// @Description Replaces the service_orders table with the uploaded file's rows
// @Tags backup
// @Accept multipart/form-data
// @Produce json
// @Param orders formData file true "orders.csv"
// @Success 200 {object} RestoreSummary
// @Failure 400 {object} map[string]any
// @Router /api/backup/restore [post]
func (h *Handler) BackupRestore(c *gin.Context) {
	ordersFile, err := c.FormFile("orders")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "orders file required", nil)
		return
	}
	if !validateExt(ordersFile.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file must be .csv", nil)
		return
	}

	orders, errs := parseOrdersCSV(ordersFile)
	summary := RestoreSummary{Parsed: len(orders), Errors: errs}
	if len(errs) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", errs)
		return
	}

	ctx := c.Request.Context()
	err = h.Store.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `TRUNCATE service_orders`)
		return err
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reset table", err.Error())
		return
	}

	inserted, err := h.Store.InsertOrders(ctx, orders)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert orders", err.Error())
		return
	}
	summary.Inserted = int(inserted)
	if summary.Errors == nil {
		summary.Errors = []string{}
	}

	h.logActivity(c, "backup_restored", ordersFile.Filename, fmt.Sprintf("%d orders", summary.Inserted))
	c.JSON(http.StatusOK, summary)
}

// parseOrdersCSV accepts both our own export header and the legacy column
// names the old system's spreadsheets used. Unparseable timestamps are
// treated as absent, not as row errors.
func parseOrdersCSV(file *multipart.FileHeader) ([]models.ServiceOrder, []string) {
	f, err := file.Open()
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, []string{"failed to read header"}
	}
	index := headerIndex(headers)
	var errors []string
	var out []models.ServiceOrder

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}

		id := getFieldAny(rec, index, "id", "os", "numero", "número", "numero os", "número da os")
		status := getFieldAny(rec, index, "status", "situação", "situacao", "estado")
		serviceType := getFieldAny(rec, index, "service_type", "tipo de serviço", "tipo de servico", "serviço", "servico", "tipo")
		equipmentType := getFieldAny(rec, index, "equipment_type", "equipamento", "tipo de equipamento")
		description := getFieldAny(rec, index, "description", "descrição", "descricao", "defeito")
		unit := getFieldAny(rec, index, "unit", "unidade", "setor", "lotação", "lotacao")
		requester := getFieldAny(rec, index, "requester", "solicitante", "requisitante")
		responsible := getFieldAny(rec, index, "responsible", "responsável", "responsavel", "técnico", "tecnico", "atribuído a", "atribuido a")
		priority := getFieldAny(rec, index, "priority", "prioridade")
		openedAtStr := getFieldAny(rec, index, "opened_at", "abertura", "data de abertura", "aberta em")
		finalizedAtStr := getFieldAny(rec, index, "finalized_at", "finalização", "finalizacao", "data de finalização", "data de finalizacao", "finalizada em")
		ruleID := getFieldAny(rec, index, "rule_id", "recorrência", "recorrencia")
		createdAtStr := getFieldAny(rec, index, "created_at", "criada em")

		if id == "" {
			id = fmt.Sprintf("OS-%04d", len(out)+1)
		}
		if unit == "" {
			unit = "Unspecified"
		}

		var openedAt, finalizedAt *time.Time
		if t, ok := models.ParseFlexibleTime(openedAtStr); ok {
			openedAt = &t
		}
		if t, ok := models.ParseFlexibleTime(finalizedAtStr); ok {
			finalizedAt = &t
		}
		createdAt, ok := models.ParseFlexibleTime(createdAtStr)
		if !ok {
			if openedAt != nil {
				createdAt = *openedAt
			} else {
				createdAt = time.Now().UTC()
			}
		}

		o := models.ServiceOrder{
			ID:            id,
			Status:        status,
			ServiceType:   serviceType,
			EquipmentType: equipmentType,
			Description:   description,
			Unit:          unit,
			Requester:     requester,
			Responsible:   responsible,
			Priority:      priority,
			OpenedAt:      openedAt,
			FinalizedAt:   finalizedAt,
			RuleID:        ruleID,
			CreatedDate:   createdAt.Format("2006-01-02"),
			CreatedAt:     createdAt,
		}
		out = append(out, o)
	}
	return out, errors
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\uFEFF", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
