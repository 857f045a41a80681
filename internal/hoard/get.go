package hoard

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dyluth/quill/pkg/blackboard"
	"github.com/dyluth/quill/pkg/content"
	"github.com/google/uuid"
)

// RunDetail is a run together with its stored channel results.
type RunDetail struct {
	*blackboard.Run
	Results []*content.ChannelResult `json:"results"`
}

// GetRun retrieves a run and its channel results by ID and writes them as
// pretty-printed JSON to w.
func GetRun(ctx context.Context, bbClient *blackboard.Client, runID string, w io.Writer) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("invalid run ID format: must be a valid UUID")
	}

	run, err := bbClient.GetRun(ctx, runID)
	if err != nil {
		if blackboard.IsNotFound(err) {
			return &RunNotFoundError{RunID: runID}
		}
		return fmt.Errorf("failed to fetch run: %w", err)
	}

	results, err := bbClient.GetChannelResults(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to fetch channel results: %w", err)
	}

	if err := FormatSingleJSON(w, &RunDetail{Run: run, Results: results}); err != nil {
		return fmt.Errorf("failed to format run: %w", err)
	}
	return nil
}

// RunNotFoundError is returned when a run ID is not on the blackboard.
type RunNotFoundError struct {
	RunID string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run with ID '%s' not found", e.RunID)
}

// IsNotFound returns true if the error is a RunNotFoundError.
func IsNotFound(err error) bool {
	var target *RunNotFoundError
	return errors.As(err, &target)
}
