// Package engine defines the Content Engine contract (Generate, Judge, Refine)
// and an LLM-backed implementation of it.
package engine

import (
	"context"

	"github.com/dyluth/quill/pkg/content"
)

// Engine produces, evaluates and revises content for one channel.
// Implementations must be safe to drive from a single goroutine; callers never
// share an Engine between channels.
type Engine interface {
	// Generate produces a first draft from the topic's documents.
	Generate(ctx context.Context, topic string, docs content.Documents) (content.Content, Usage, error)
	// Judge scores the content.
	Judge(ctx context.Context, c content.Content) (content.Verdict, Usage, error)
	// Refine revises the content using the verdict's feedback.
	Refine(ctx context.Context, c content.Content, v content.Verdict) (content.Content, Usage, error)
	// Model names the backend model for result metadata.
	Model() string
}

// Usage is what one successful engine call cost.
type Usage struct {
	Tokens int
	Calls  int
}

// Factory builds an Engine for a channel seeded with few-shot examples.
type Factory func(ch content.Channel, examples []content.Example) (Engine, error)

// EstimateTokens approximates token usage as one token per four bytes of
// serialised output.
func EstimateTokens(payload []byte) int {
	return len(payload) / 4
}
