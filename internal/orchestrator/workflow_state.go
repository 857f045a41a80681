package orchestrator

import (
	"sync"
	"time"

	"github.com/dyluth/quill/pkg/content"
	"github.com/google/uuid"
)

// WorkflowRunState tracks one run across all its channels. The channel result
// map is the only field written while workers are live; it is guarded by mu
// and only ever updated by per-key merge, so arrival order does not matter.
type WorkflowRunState struct {
	mu sync.Mutex

	id          string
	threadID    string
	topicName   string
	topic       *content.Topic
	channels    []content.Channel
	results     map[content.Channel]*content.ChannelResult
	summary     *content.Summary
	status      content.RunStatus
	phase       content.RunPhase
	errors      []content.ErrorRecord
	startedAt   time.Time
	completedAt time.Time
}

// NewWorkflowRunState creates a running state for topic with the requested channels.
func NewWorkflowRunState(topicName string, channels []content.Channel) *WorkflowRunState {
	now := time.Now().UTC()
	return &WorkflowRunState{
		id:        uuid.New().String(),
		threadID:  content.NewThreadID(topicName, now),
		topicName: topicName,
		channels:  append([]content.Channel(nil), channels...),
		results:   make(map[content.Channel]*content.ChannelResult),
		status:    content.RunRunning,
		phase:     content.PhaseParsing,
		startedAt: now,
	}
}

// MergeChannelResult stores r under its channel. Merging is per key: results
// for different channels commute, and re-merging the same channel replaces it.
func (w *WorkflowRunState) MergeChannelResult(r *content.ChannelResult) {
	if r == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results[r.Channel] = r.Clone()
}

// ID returns the run's UUID.
func (w *WorkflowRunState) ID() string { return w.id }

// ThreadID returns the run's <topic>_<timestamp> label.
func (w *WorkflowRunState) ThreadID() string { return w.threadID }

// TopicName returns the requested topic.
func (w *WorkflowRunState) TopicName() string { return w.topicName }

// Channels returns the channels the run was asked for.
func (w *WorkflowRunState) Channels() []content.Channel {
	return append([]content.Channel(nil), w.channels...)
}

// Result returns a copy of one channel's result.
func (w *WorkflowRunState) Result(ch content.Channel) (*content.ChannelResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.results[ch]
	return r.Clone(), ok
}

// Results returns copies of every merged result in channel order.
func (w *WorkflowRunState) Results() []*content.ChannelResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resultsLocked()
}

func (w *WorkflowRunState) resultsLocked() []*content.ChannelResult {
	out := make([]*content.ChannelResult, 0, len(w.results))
	for _, r := range w.results {
		out = append(out, r.Clone())
	}
	content.SortResults(out)
	return out
}

// Status returns the run status.
func (w *WorkflowRunState) Status() content.RunStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Phase returns the run phase.
func (w *WorkflowRunState) Phase() content.RunPhase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Summary returns the aggregate, or nil before aggregation succeeded.
func (w *WorkflowRunState) Summary() *content.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.summary == nil {
		return nil
	}
	s := *w.summary
	return &s
}

// Errors returns the run-level error log in order of occurrence.
func (w *WorkflowRunState) Errors() []content.ErrorRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]content.ErrorRecord(nil), w.errors...)
}

func (w *WorkflowRunState) setTopic(t *content.Topic) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.topic = t
}

func (w *WorkflowRunState) setPhase(p content.RunPhase) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.phase = p
}

func (w *WorkflowRunState) appendError(rec content.ErrorRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errors = append(w.errors, rec)
}

func (w *WorkflowRunState) complete(summary *content.Summary) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.summary = summary
	w.status = content.RunCompleted
}

func (w *WorkflowRunState) fail(rec content.ErrorRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errors = append(w.errors, rec)
	w.status = content.RunFailed
	w.phase = content.PhaseError
}

func (w *WorkflowRunState) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.phase != content.PhaseError {
		w.phase = content.PhaseCompleted
	}
	w.completedAt = time.Now().UTC()
}

// Snapshot returns an immutable copy for persistence and reporting.
func (w *WorkflowRunState) Snapshot() *content.RunRecord {
	w.mu.Lock()
	defer w.mu.Unlock()

	results := make(map[content.Channel]*content.ChannelResult, len(w.results))
	for ch, r := range w.results {
		results[ch] = r.Clone()
	}

	var summary *content.Summary
	if w.summary != nil {
		s := *w.summary
		summary = &s
	}

	return &content.RunRecord{
		ID:          w.id,
		ThreadID:    w.threadID,
		Topic:       w.topic,
		TopicName:   w.topicName,
		Channels:    append([]content.Channel(nil), w.channels...),
		Results:     results,
		Summary:     summary,
		Status:      w.status,
		Phase:       w.phase,
		Errors:      append([]content.ErrorRecord(nil), w.errors...),
		StartedAt:   w.startedAt,
		CompletedAt: w.completedAt,
	}
}
