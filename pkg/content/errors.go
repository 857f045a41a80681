package content

import (
	"errors"
	"fmt"
)

// Sentinels matched by StageError via errors.Is.
var (
	ErrGeneration = errors.New("generation failed")
	ErrJudge      = errors.New("judge failed")
	ErrRefine     = errors.New("refine failed")
)

// StageError is a failure of one Content Engine call after retries were exhausted.
type StageError struct {
	Stage   Stage
	Channel Channel
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Channel, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Is maps the stage to its sentinel.
func (e *StageError) Is(target error) bool {
	switch target {
	case ErrGeneration:
		return e.Stage == StageGenerate
	case ErrJudge:
		return e.Stage == StageJudge
	case ErrRefine:
		return e.Stage == StageRefine
	}
	return false
}

// ValidationError reports content that does not match its channel schema.
type ValidationError struct {
	Channel Channel
	Field   string
	Reason  string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s content", e.Channel)
	if e.Field != "" {
		msg += fmt.Sprintf(" field '%s'", e.Field)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DocumentStoreError means a topic's documents could not be loaded. It is
// fatal to the run and raised before any channel starts.
type DocumentStoreError struct {
	Topic string
	Err   error
}

func (e *DocumentStoreError) Error() string {
	return fmt.Sprintf("document store: topic '%s': %v", e.Topic, e.Err)
}

func (e *DocumentStoreError) Unwrap() error { return e.Err }

// AggregationError means the run summary could not be computed.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return "aggregation failed: " + e.Reason
}

// IsDocumentStoreError reports whether err wraps a DocumentStoreError.
func IsDocumentStoreError(err error) bool {
	var target *DocumentStoreError
	return errors.As(err, &target)
}

// IsAggregationError reports whether err wraps an AggregationError.
func IsAggregationError(err error) bool {
	var target *AggregationError
	return errors.As(err, &target)
}
