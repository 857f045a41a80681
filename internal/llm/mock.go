package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dyluth/quill/pkg/content"
)

// MockClient is a deterministic offline backend used by --dry-run and tests.
// Each channel's first verdict fails with score 6; every later verdict passes
// with score 8, so a default run exercises exactly one refinement.
type MockClient struct {
	mu     sync.Mutex
	judged map[content.Channel]int
}

// NewMockClient creates a mock backend.
func NewMockClient() *MockClient {
	return &MockClient{judged: make(map[content.Channel]int)}
}

func (m *MockClient) Model() string { return "mock" }

func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var out interface{}
	switch req.Operation {
	case OpGenerate, OpRefine:
		out = mockContent(req.Channel, req.Operation == OpRefine)
	case OpJudge:
		m.mu.Lock()
		m.judged[req.Channel]++
		n := m.judged[req.Channel]
		m.mu.Unlock()
		out = mockVerdict(n)
	default:
		return "", fmt.Errorf("mock: unsupported operation %q", req.Operation)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func mockContent(ch content.Channel, refined bool) content.Content {
	suffix := ""
	if refined {
		suffix = " (revised)"
	}
	switch ch {
	case content.ChannelLinkedIn:
		return &content.LinkedInPost{
			Content:  "We just shipped something our customers asked for." + suffix,
			Hashtags: []string{"ProductLaunch", "Engineering", "CustomerFirst"},
		}
	case content.ChannelNewsletter:
		return &content.NewsletterEmail{
			SubjectLine: "What's new this month" + suffix,
			Body:        "Hi there,\n\nHere is what the team shipped this month.\n\nThanks for reading.",
		}
	default:
		return &content.BlogPost{
			Title:   "How we built it" + suffix,
			Content: "## The problem\n\nCustomers told us.\n\n## The fix\n\nWe listened.",
		}
	}
}

func mockVerdict(n int) content.Verdict {
	if n <= 1 {
		return content.Verdict{
			Score:  6,
			Passes: false,
			Feedback: content.Feedback{
				Strengths:   []string{"Clear structure"},
				Weaknesses:  []string{"Generic opening"},
				Suggestions: []string{"Lead with a concrete customer outcome"},
			},
			RedFlags: []string{},
		}
	}
	return content.Verdict{
		Score:  8,
		Passes: true,
		Feedback: content.Feedback{
			Strengths:   []string{"Concrete outcome up front"},
			Weaknesses:  []string{},
			Suggestions: []string{},
		},
		RedFlags: []string{},
	}
}
