package ai

import (
	"context"
	"fmt"

	"github.com/stic_os/backend/internal/utils"
)

// MockAssistant returns deterministic canned answers, keyed off the prompt
// hash so the same prompt always yields the same text. Used when no assistant
// endpoint is configured.
type MockAssistant struct {
	ModelVersion string
}

var mockClosings = []string{
	"Recomenda-se priorizar as ordens próximas do limite de SLA.",
	"Recomenda-se revisar a distribuição de carga entre as unidades.",
	"Recomenda-se acompanhar as ordens aguardando peças com fornecedores.",
}

func (m MockAssistant) Ask(ctx context.Context, prompt string, history []ChatMessage) (string, error) {
	h := utils.HashStringToUint64(prompt)
	closing := mockClosings[h%uint64(len(mockClosings))]
	return fmt.Sprintf("[%s] Relatório gerado a partir dos dados agregados informados.\n\n%s", m.ModelVersion, closing), nil
}
