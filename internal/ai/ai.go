package ai

import "context"

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assistant produces free-text answers for the report endpoint. The caller is
// responsible for building the prompt from an aggregate snapshot.
type Assistant interface {
	Ask(ctx context.Context, prompt string, history []ChatMessage) (string, error)
}
