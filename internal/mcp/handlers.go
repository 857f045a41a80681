package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dyluth/quill/internal/orchestrator"
	"github.com/dyluth/quill/internal/resolver"
	"github.com/dyluth/quill/pkg/content"
	"github.com/mark3labs/mcp-go/mcp"
)

// TopicLister lists topic folders.
type TopicLister interface {
	ListTopics() ([]string, error)
}

// Runner executes one workflow run.
type Runner interface {
	Run(ctx context.Context, topic string, channels []content.Channel) (*orchestrator.WorkflowRunState, error)
}

// ChannelSelector turns the tool arguments into a channel list.
type ChannelSelector func(requested string, all bool) ([]content.Channel, error)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	topics   TopicLister
	runner   Runner
	channels ChannelSelector
}

// NewHandlers creates the tool handlers.
func NewHandlers(topics TopicLister, runner Runner, channels ChannelSelector) *Handlers {
	return &Handlers{topics: topics, runner: runner, channels: channels}
}

type topicEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// ListTopics handles the list_topics tool
func (h *Handlers) ListTopics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topics, err := h.topics.ListTopics()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list topics: %v", err)), nil
	}

	entries := make([]topicEntry, len(topics))
	for i, t := range topics {
		entries[i] = topicEntry{Index: i + 1, Name: t}
	}

	return jsonResult(map[string]interface{}{
		"topics": entries,
		"count":  len(entries),
	})
}

type channelOutcome struct {
	Channel    content.Channel       `json:"channel"`
	State      content.TerminalState `json:"state"`
	Score      int                   `json:"score"`
	Passed     bool                  `json:"passed"`
	Iterations int                   `json:"iterations"`
	Content    content.Content       `json:"content,omitempty"`
	Feedback   content.Feedback      `json:"feedback"`
	Errors     []string              `json:"errors,omitempty"`
}

type runOutcome struct {
	RunID     string            `json:"run_id"`
	ThreadID  string            `json:"thread_id"`
	Topic     string            `json:"topic"`
	Status    content.RunStatus `json:"status"`
	Succeeded bool              `json:"succeeded"`
	Summary   *content.Summary  `json:"summary,omitempty"`
	Channels  []channelOutcome  `json:"channels"`
	Errors    []string          `json:"errors,omitempty"`
}

// GenerateContent handles the generate_content tool
func (h *Handlers) GenerateContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError("topic argument is required and must be a string"), nil
	}

	topics, err := h.topics.ListTopics()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list topics: %v", err)), nil
	}
	topic, err := resolver.ResolveTopic(topics, selector)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	channels, err := h.channels(request.GetString("channel", ""), request.GetBool("all_channels", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log.Printf("[MCP] generate_content topic=%s channels=%v", topic, channels)

	state, err := h.runner.Run(ctx, topic, channels)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}

	return jsonResult(newRunOutcome(state.Snapshot()))
}

func newRunOutcome(record *content.RunRecord) runOutcome {
	out := runOutcome{
		RunID:     record.ID,
		ThreadID:  record.ThreadID,
		Topic:     record.TopicName,
		Status:    record.Status,
		Succeeded: record.Succeeded(),
		Summary:   record.Summary,
		Channels:  make([]channelOutcome, 0, len(record.Results)),
	}
	for _, e := range record.Errors {
		out.Errors = append(out.Errors, fmt.Sprintf("[%s] %s", e.Stage, e.Message))
	}
	for _, r := range record.OrderedResults() {
		co := channelOutcome{
			Channel:    r.Channel,
			State:      r.State,
			Score:      r.FinalScore,
			Passed:     r.Passed,
			Iterations: r.Iterations,
			Content:    r.Content,
			Feedback:   r.FinalFeedback,
		}
		for _, e := range r.Errors {
			co.Errors = append(co.Errors, fmt.Sprintf("[%s] %s", e.Stage, e.Message))
		}
		out.Channels = append(out.Channels, co)
	}
	return out
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
