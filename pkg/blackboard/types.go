package blackboard

import (
	"fmt"
	"time"

	"github.com/dyluth/quill/pkg/content"
	"github.com/google/uuid"
)

// Run is the blackboard view of one workflow run. Channel results are stored
// under their own keys and fetched separately.
type Run struct {
	ID            string                `json:"id"`        // UUID
	ThreadID      string                `json:"thread_id"` // <topic>_<timestamp> label
	Topic         string                `json:"topic"`
	Status        content.RunStatus     `json:"status"`
	Phase         content.RunPhase      `json:"phase"`
	Channels      []content.Channel     `json:"channels"`
	Summary       *content.Summary      `json:"summary,omitempty"`
	Errors        []content.ErrorRecord `json:"errors"`
	StartedAtMs   int64                 `json:"started_at_ms"`
	CompletedAtMs int64                 `json:"completed_at_ms"`
}

// RunFromRecord builds the stored view of a run record.
func RunFromRecord(r *content.RunRecord) *Run {
	run := &Run{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		Topic:       r.TopicName,
		Status:      r.Status,
		Phase:       r.Phase,
		Channels:    append([]content.Channel{}, r.Channels...),
		Errors:      append([]content.ErrorRecord{}, r.Errors...),
		StartedAtMs: r.StartedAt.UnixMilli(),
	}
	if r.Summary != nil {
		s := *r.Summary
		run.Summary = &s
	}
	if !r.CompletedAt.IsZero() {
		run.CompletedAtMs = r.CompletedAt.UnixMilli()
	}
	return run
}

// StartedAt returns the start time.
func (r *Run) StartedAt() time.Time { return time.UnixMilli(r.StartedAtMs).UTC() }

// ChannelEvent is published when a channel reaches a terminal state.
type ChannelEvent struct {
	RunID       string                `json:"run_id"`
	Topic       string                `json:"topic"`
	Channel     content.Channel       `json:"channel"`
	State       content.TerminalState `json:"state"`
	Score       int                   `json:"score"`
	Passed      bool                  `json:"passed"`
	Iterations  int                   `json:"iterations"`
	Errors      int                   `json:"errors"`
	TimestampMs int64                 `json:"timestamp_ms"`
}

// NewChannelEvent summarises r for publication.
func NewChannelEvent(runID string, r *content.ChannelResult) *ChannelEvent {
	ts := r.CompletedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChannelEvent{
		RunID:       runID,
		Topic:       r.Topic,
		Channel:     r.Channel,
		State:       r.State,
		Score:       r.FinalScore,
		Passed:      r.Passed,
		Iterations:  r.Iterations,
		Errors:      len(r.Errors),
		TimestampMs: ts.UnixMilli(),
	}
}

// RunEvent is published when a run has been persisted.
type RunEvent struct {
	RunID       string            `json:"run_id"`
	ThreadID    string            `json:"thread_id"`
	Topic       string            `json:"topic"`
	Status      content.RunStatus `json:"status"`
	Summary     *content.Summary  `json:"summary,omitempty"`
	Errors      int               `json:"errors"`
	TimestampMs int64             `json:"timestamp_ms"`
}

// Validate checks if the Run has valid field values.
func (r *Run) Validate() error {
	if !isValidUUID(r.ID) {
		return fmt.Errorf("invalid run ID: not a valid UUID")
	}
	if r.Topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if err := validateStatus(r.Status); err != nil {
		return err
	}
	if len(r.Channels) == 0 {
		return fmt.Errorf("run must have at least one channel")
	}
	for i, ch := range r.Channels {
		if !ch.Valid() {
			return fmt.Errorf("invalid channel at index %d: %q", i, ch)
		}
	}
	if r.StartedAtMs <= 0 {
		return fmt.Errorf("started_at_ms must be set")
	}
	return nil
}

func validateStatus(s content.RunStatus) error {
	switch s {
	case content.RunRunning, content.RunCompleted, content.RunFailed:
		return nil
	default:
		return fmt.Errorf("unknown run status: %q", s)
	}
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
