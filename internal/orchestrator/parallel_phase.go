package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/dyluth/quill/pkg/content"
	"golang.org/x/sync/errgroup"
)

// runChannels fans out one controller per channel and fans their results back
// in. Workers share nothing but read-only inputs; each sends exactly one
// result and the calling goroutine is the single collector that merges them.
// It returns only after every channel has reported.
func (o *Orchestrator) runChannels(ctx context.Context, state *WorkflowRunState, topic *content.Topic, channels []content.Channel) {
	startTime := time.Now()
	results := make(chan *content.ChannelResult, len(channels))

	// A plain Group: one channel failing must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(len(channels))

	for _, ch := range channels {
		input := ChannelInput{
			Topic:     topic.Name,
			Documents: topic.Documents.Clone(),
			Examples:  o.examplesFor(ch),
		}
		controller := NewChannelController(ch, o.factory, o.maxIterations)

		g.Go(func() error {
			results <- controller.Run(ctx, input)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	reported := 0
	for r := range results {
		state.MergeChannelResult(r)
		reported++

		o.logEvent("channel_completed", map[string]interface{}{
			"run_id":      state.ID(),
			"channel":     string(r.Channel),
			"state":       string(r.State),
			"score":       r.FinalScore,
			"passed":      r.Passed,
			"iterations":  r.Iterations,
			"tokens":      r.Metrics.TokensUsed,
			"api_calls":   r.Metrics.APICalls,
			"errors":      len(r.Errors),
			"duration_ms": r.Metrics.GenerationTime.Milliseconds(),
		})

		if o.observer != nil {
			o.observer.ChannelFinished(ctx, state.ID(), r.Clone())
		}
	}

	log.Printf("[Orchestrator] All %d/%d channel(s) reported for run %s (duration: %v)",
		reported, len(channels), state.ThreadID(), time.Since(startTime).Round(time.Millisecond))
}

// examplesFor loads few-shot examples; a failure only costs the examples.
func (o *Orchestrator) examplesFor(ch content.Channel) []content.Example {
	if o.examples == nil {
		return nil
	}
	examples, err := o.examples.Examples(ch)
	if err != nil {
		log.Printf("[Orchestrator] Warning: failed to load %s examples: %v", ch, err)
		return nil
	}
	return examples
}
