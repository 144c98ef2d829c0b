package models

import (
	"testing"
	"time"
)

func TestNormalizeStatusSynonyms(t *testing.T) {
	cases := map[string]OrderStatus{
		"Aberta":             StatusOpen,
		"EM ABERTO":          StatusOpen,
		"em andamento":       StatusInProgress,
		"Em Atendimento":     StatusInProgress,
		"Aguardando Peças":   StatusAwaitingParts,
		"aguardando pecas":   StatusAwaitingParts,
		"Enviada":            StatusSentOut,
		"Finalizada":         StatusFinalized,
		"CONCLUÍDA":          StatusFinalized,
		"concluida":          StatusFinalized,
		"Fechada":            StatusFinalized,
		"  finalizada  ":     StatusFinalized,
		"algo completamente": StatusUnknown,
		"":                   StatusUnknown,
	}
	for input, want := range cases {
		if got := NormalizeStatus(input); got != want {
			t.Fatalf("NormalizeStatus(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestParseFlexibleTime(t *testing.T) {
	cases := []struct {
		input string
		want  time.Time
	}{
		{"2025-03-01T08:30:00Z", time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)},
		{"2025-03-01 08:30:00", time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)},
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"01/03/2025", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"1740818400000", time.UnixMilli(1740818400000).UTC()},
	}
	for _, c := range cases {
		got, ok := ParseFlexibleTime(c.input)
		if !ok {
			t.Fatalf("ParseFlexibleTime(%q) reported not parseable", c.input)
		}
		if !got.Equal(c.want) {
			t.Fatalf("ParseFlexibleTime(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestParseFlexibleTimeMalformedIsAbsence(t *testing.T) {
	for _, input := range []string{"", "   ", "not-a-date", "32/13/2025", "12345"} {
		if _, ok := ParseFlexibleTime(input); ok {
			t.Fatalf("ParseFlexibleTime(%q) should not parse", input)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "técnico A", "técnico B"); got != "técnico A" {
		t.Fatalf("expected first non-empty value, got %q", got)
	}
	if got := FirstNonEmpty("", "  "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
