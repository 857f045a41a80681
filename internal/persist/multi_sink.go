package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/quill/pkg/content"
)

// Sink is the persistence contract shared with the orchestrator.
type Sink interface {
	Save(ctx context.Context, run *content.RunRecord) error
}

// MultiSink saves to every sink in order. A failing sink does not stop the
// others; all failures are joined.
type MultiSink []Sink

// Save implements orchestrator.Sink.
func (m MultiSink) Save(ctx context.Context, run *content.RunRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, run); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
