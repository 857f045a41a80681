package persist

import (
	"context"
	"log"

	"github.com/dyluth/quill/pkg/blackboard"
	"github.com/dyluth/quill/pkg/content"
)

// RedisSink stores runs on the blackboard. It also acts as a run observer,
// writing each channel result as soon as it arrives so `quill watch` sees
// progress before the run finishes.
type RedisSink struct {
	client *blackboard.Client
}

// NewRedisSink wraps an open blackboard client.
func NewRedisSink(client *blackboard.Client) *RedisSink {
	return &RedisSink{client: client}
}

// Save implements orchestrator.Sink.
func (s *RedisSink) Save(ctx context.Context, run *content.RunRecord) error {
	return s.client.SaveRun(ctx, run)
}

// ChannelFinished implements orchestrator.Observer. Failures are logged; the
// final Save rewrites the same key.
func (s *RedisSink) ChannelFinished(ctx context.Context, runID string, r *content.ChannelResult) {
	if err := s.client.SaveChannelResult(ctx, runID, r); err != nil {
		log.Printf("[Persist] Warning: failed to publish %s result for run %s: %v", r.Channel, runID, err)
	}
}

// RunFinished implements orchestrator.Observer. The run event itself is
// published by Save.
func (s *RedisSink) RunFinished(_ context.Context, run *content.RunRecord) {
	log.Printf("[Persist] Run %s finished with status %s", run.ThreadID, run.Status)
}
