package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/quill/internal/config"
	"github.com/dyluth/quill/internal/engine"
	"github.com/dyluth/quill/pkg/content"
)

// TopicLoader reads a topic's documents.
type TopicLoader interface {
	Load(topic string) (*content.Topic, error)
}

// ExampleLoader supplies few-shot examples per channel.
type ExampleLoader interface {
	Examples(ch content.Channel) ([]content.Example, error)
}

// Sink persists a finished run.
type Sink interface {
	Save(ctx context.Context, run *content.RunRecord) error
}

// Observer is notified as a run progresses. Calls come from the collector
// goroutine and must not block for long.
type Observer interface {
	ChannelFinished(ctx context.Context, runID string, r *content.ChannelResult)
	RunFinished(ctx context.Context, run *content.RunRecord)
}

// Orchestrator runs one topic across several channels in parallel.
type Orchestrator struct {
	loader        TopicLoader
	examples      ExampleLoader
	factory       engine.Factory
	sink          Sink
	observer      Observer
	enabled       []content.Channel
	maxIterations int
	pricing       Pricing
	instanceName  string
	aggregate     func([]*content.ChannelResult, Pricing) (*content.Summary, error)
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithExamples sets the few-shot example source.
func WithExamples(l ExampleLoader) Option { return func(o *Orchestrator) { o.examples = l } }

// WithSink sets where finished runs are persisted.
func WithSink(s Sink) Option { return func(o *Orchestrator) { o.sink = s } }

// WithObserver sets the progress observer.
func WithObserver(obs Observer) Option { return func(o *Orchestrator) { o.observer = obs } }

// WithInstanceName labels structured log events.
func WithInstanceName(name string) Option { return func(o *Orchestrator) { o.instanceName = name } }

// NewOrchestrator creates an orchestrator. cfg must already be validated.
func NewOrchestrator(loader TopicLoader, factory engine.Factory, cfg *config.QuillConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		loader:        loader,
		factory:       factory,
		enabled:       append([]content.Channel(nil), cfg.Channels.Enabled...),
		maxIterations: *cfg.Workflow.MaxRefinementIterations,
		pricing: Pricing{
			InputPerMillion:  cfg.Pricing.InputPerMillion,
			OutputPerMillion: cfg.Pricing.OutputPerMillion,
		},
		instanceName: "default",
		aggregate:    Aggregate,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run loads the topic, drives every requested channel to a terminal state,
// aggregates and persists. Document store failures and bad channel lists
// abort before any channel starts; everything later is recorded on the
// returned state instead of being returned as an error.
func (o *Orchestrator) Run(ctx context.Context, topicName string, channels []content.Channel) (*WorkflowRunState, error) {
	channels, err := o.resolveChannels(channels)
	if err != nil {
		return nil, err
	}

	state := NewWorkflowRunState(topicName, channels)
	log.Printf("[Orchestrator] Starting run %s (%s) for topic '%s' on channels %v",
		state.ThreadID(), state.ID(), topicName, channels)

	topic, err := o.loader.Load(topicName)
	if err != nil {
		var dsErr *content.DocumentStoreError
		if !errors.As(err, &dsErr) {
			err = &content.DocumentStoreError{Topic: topicName, Err: err}
		}
		o.logEvent("run_aborted", map[string]interface{}{
			"run_id": state.ID(),
			"topic":  topicName,
			"error":  err.Error(),
		})
		return nil, err
	}
	state.setTopic(topic)

	o.logEvent("run_started", map[string]interface{}{
		"run_id":    state.ID(),
		"thread_id": state.ThreadID(),
		"topic":     topicName,
		"channels":  channels,
		"documents": len(topic.Documents),
	})

	state.setPhase(content.PhaseGenerating)
	o.runChannels(ctx, state, topic, channels)

	state.setPhase(content.PhaseAggregating)
	summary, err := o.aggregate(state.Results(), o.pricing)
	if err != nil {
		log.Printf("[Orchestrator] Aggregation failed for run %s: %v", state.ThreadID(), err)
		state.fail(content.NewErrorRecord(content.StageAggregate, "", err))
	} else {
		state.complete(summary)
	}

	// Results of a cancelled run are still written out.
	persistCtx := context.WithoutCancel(ctx)

	if o.sink != nil {
		if state.Phase() != content.PhaseError {
			state.setPhase(content.PhaseSaving)
		}
		// The persisted record describes the run as it will finish.
		snapshot := state.Snapshot()
		snapshot.CompletedAt = time.Now().UTC()
		if snapshot.Phase != content.PhaseError {
			snapshot.Phase = content.PhaseCompleted
		}
		if err := o.sink.Save(persistCtx, snapshot); err != nil {
			log.Printf("[Orchestrator] Persisting run %s failed: %v", state.ThreadID(), err)
			state.appendError(content.NewErrorRecord(content.StagePersist, "", err))
		}
	}

	state.finish()
	record := state.Snapshot()

	fields := map[string]interface{}{
		"run_id":      record.ID,
		"status":      string(record.Status),
		"errors":      len(record.Errors),
		"duration_ms": record.CompletedAt.Sub(record.StartedAt).Milliseconds(),
	}
	if record.Summary != nil {
		fields["average_score"] = record.Summary.AverageScore
		fields["pass_rate"] = record.Summary.PassRate
		fields["total_tokens"] = record.Summary.TotalTokens
		fields["estimated_cost_usd"] = record.Summary.EstimatedCost
	}
	o.logEvent("run_completed", fields)

	if o.observer != nil {
		o.observer.RunFinished(persistCtx, record)
	}

	return state, nil
}

// resolveChannels de-duplicates the request, keeping first-seen order, and
// checks every channel is enabled.
func (o *Orchestrator) resolveChannels(requested []content.Channel) ([]content.Channel, error) {
	if len(requested) == 0 {
		return nil, fmt.Errorf("no channels requested")
	}

	enabled := make(map[content.Channel]bool, len(o.enabled))
	for _, ch := range o.enabled {
		enabled[ch] = true
	}

	seen := make(map[content.Channel]bool, len(requested))
	out := make([]content.Channel, 0, len(requested))
	for _, ch := range requested {
		if seen[ch] {
			continue
		}
		if !ch.Valid() {
			return nil, fmt.Errorf("unknown channel '%s'", ch)
		}
		if !enabled[ch] {
			return nil, fmt.Errorf("channel '%s' is not enabled", ch)
		}
		seen[ch] = true
		out = append(out, ch)
	}
	return out, nil
}

// logEvent logs a structured event in JSON format.
func (o *Orchestrator) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "orchestrator"
	data["event_type"] = eventType
	data["instance"] = o.instanceName

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Orchestrator] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
