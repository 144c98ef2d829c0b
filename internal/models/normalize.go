package models

import (
	"strconv"
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusOpen          OrderStatus = "OPEN"
	StatusInProgress    OrderStatus = "IN_PROGRESS"
	StatusAwaitingParts OrderStatus = "AWAITING_PARTS"
	StatusSentOut       OrderStatus = "SENT_OUT"
	StatusFinalized     OrderStatus = "FINALIZED"
	StatusUnknown       OrderStatus = "UNKNOWN"
)

// NormalizeStatus maps the free-text status labels found in OS records onto the
// fixed status set. Matching is case-insensitive and tolerant of the Portuguese
// variants the unit's operators actually type.
func NormalizeStatus(value string) OrderStatus {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "open", "aberta", "aberto", "em aberto", "nova", "novo":
		return StatusOpen
	case "in progress", "in-progress", "em andamento", "andamento", "em atendimento", "em execução", "em execucao":
		return StatusInProgress
	case "awaiting parts", "awaiting-parts", "aguardando peças", "aguardando pecas", "aguardando peça", "aguardando peca", "aguardando material":
		return StatusAwaitingParts
	case "sent out", "sent-out", "enviada", "enviado", "enviada para manutenção", "enviada para manutencao", "externa":
		return StatusSentOut
	case "finalized", "finalizada", "finalizado", "concluída", "concluida", "concluído", "concluido", "fechada", "fechado", "resolvida", "resolvido":
		return StatusFinalized
	default:
		return StatusUnknown
	}
}

var flexibleLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// ParseFlexibleTime normalizes the timestamp representations that reach the
// data-model boundary: RFC3339 strings, date-only strings, the store's
// "YYYY-MM-DD HH:MM:SS" form, dd/mm/yyyy operator input, and epoch
// milliseconds. Unparseable values return (zero, false) and are treated as
// absence by callers, never as an error.
func ParseFlexibleTime(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range flexibleLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	// Epoch millis only: small integers are more likely mangled input.
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 1e12 {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// FirstNonEmpty resolves the ordered fallback chains the legacy records rely
// on (e.g. responsible probed from several alternate field names).
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
