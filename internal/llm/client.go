package llm

import (
	"context"
)

// LLMClient is the minimal generation surface the adjudicator and the
// relationship inferencer need from a judge backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbedderClient produces fixed-length vectors for similarity scoring.
// A nil EmbedderClient means the embedding signal is unavailable and the
// scorer runs degraded.
type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
