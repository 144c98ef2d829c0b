package ai

import (
	"fmt"
	"strings"

	"github.com/stic_os/backend/internal/stats"
)

// BuildReportPrompt renders one snapshot (and optionally its trend against
// the prior period) into the stable human-readable summary the assistant is
// asked to turn into a management report.
func BuildReportPrompt(period string, snap stats.Snapshot, trend *stats.Trend) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Gere um relatório gerencial das ordens de serviço da STIC para o período %s.\n\n", period)
	fmt.Fprintf(&b, "Totais: %d ordens, %d abertas, %d em andamento, %d aguardando peças, %d enviadas, %d finalizadas.\n",
		snap.Total, snap.Open, snap.InProgress, snap.AwaitingParts, snap.SentOut, snap.Finalized)
	fmt.Fprintf(&b, "Taxa de conclusão: %.1f%%. Tempo médio de resolução: %.1f dias.\n",
		snap.CompletionRate, snap.AverageResolutionDays)
	fmt.Fprintf(&b, "SLA (%d dias): %d dentro, %d fora, %.1f%% de cumprimento.\n",
		snap.SLA.TargetDays, snap.SLA.Within, snap.SLA.Breached, snap.SLA.PercentWithin)

	if top := snap.TopServiceTypes(5); len(top) > 0 {
		b.WriteString("Tipos de serviço mais frequentes:\n")
		for _, g := range top {
			fmt.Fprintf(&b, "- %s: %d (%d finalizadas)\n", g.Name, g.Count, g.Finalized)
		}
	}
	if len(snap.ByUnit) > 0 {
		b.WriteString("Por unidade:\n")
		for _, g := range snap.ByUnit {
			fmt.Fprintf(&b, "- %s: %d (%d finalizadas)\n", g.Name, g.Count, g.Finalized)
		}
	}

	if trend != nil {
		b.WriteString("\nComparação com o período anterior:\n")
		writeMetricLine(&b, "Total de ordens", trend.Total)
		writeMetricLine(&b, "Tempo médio de resolução", trend.AverageResolutionDays)
		writeMetricLine(&b, "Taxa de conclusão", trend.CompletionRate)
	}

	b.WriteString("\nDestaque riscos de SLA e recomendações práticas para a equipe.")
	return b.String()
}

func writeMetricLine(b *strings.Builder, label string, m stats.MetricTrend) {
	verdict := "piora"
	if m.Improved {
		verdict = "melhora"
	}
	if m.Direction == "flat" {
		verdict = "estável"
	}
	fmt.Fprintf(b, "- %s: %.1f (antes %.1f, %+.1f%%, %s)\n", label, m.Current, m.Previous, m.PercentChange, verdict)
}
