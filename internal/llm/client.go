// Package llm is the boundary between quill and the hosted language models.
// Every backend implements Client; Retrying wraps any Client with the retry
// policy so callers see a single error once retries are exhausted.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dyluth/quill/internal/config"
	"github.com/dyluth/quill/pkg/content"
)

// Operation names the Content Engine call a request belongs to.
type Operation string

const (
	OpGenerate Operation = "generate"
	OpJudge    Operation = "judge"
	OpRefine   Operation = "refine"
)

// Request is one completion call.
type Request struct {
	Operation   Operation
	Channel     content.Channel
	System      string
	User        string
	JSON        bool    // Ask the backend for a JSON object response
	Schema      *Schema // Enforced response shape when the backend supports it
	Temperature float64
	MaxTokens   int
}

// Client completes a prompt and returns the raw model text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// New builds the configured backend wrapped in the retry policy.
func New(ctx context.Context, cfg *config.APIConfig) (Client, error) {
	var base Client
	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		base = NewOpenAIClient(apiKey, cfg.Model, cfg.BaseURL)
	case config.ProviderVertex:
		project := cfg.Project
		if project == "" {
			project = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		vc, err := NewVertexClient(ctx, project, cfg.Region, cfg.Model)
		if err != nil {
			return nil, err
		}
		base = vc
	case config.ProviderMock:
		base = NewMockClient()
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}

	return NewRetrying(base, RetryPolicy{
		MaxRetries: *cfg.MaxRetries,
		BaseDelay:  cfg.RetryDelay,
		Timeout:    cfg.Timeout,
	}), nil
}
