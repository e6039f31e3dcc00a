package llm

import (
	"context"
)

// CompletionClient is the minimal surface the response generator needs
// from an upstream provider: one system instruction plus one user turn
// in, free text out. Every provider is treated as unreliable; call sites
// own their fallback.
type CompletionClient interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
