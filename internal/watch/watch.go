package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/quill/pkg/blackboard"
)

// OutputFormat specifies how streamed events are written.
type OutputFormat string

const (
	// OutputFormatDefault prints human-readable lines with timestamps and emojis
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON prints line-delimited JSON
	OutputFormatJSON OutputFormat = "json"
)

// StreamOptions narrows what StreamActivity prints.
type StreamOptions struct {
	// Topic limits output to one topic folder, empty = all.
	Topic string
	// ExitOnRunEvent stops the stream after the first matching run event.
	ExitOnRunEvent bool
}

// StreamActivity subscribes to channel and run events of the client's
// instance and writes them to w until ctx is cancelled. Cancellation is a
// normal exit and returns nil.
func StreamActivity(ctx context.Context, client *blackboard.Client, format OutputFormat, opts StreamOptions, w io.Writer) error {
	formatter, err := newFormatter(format, w)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	channelSub, err := client.SubscribeChannelEvents(ctx)
	if err != nil {
		return err
	}
	defer channelSub.Close()

	runSub, err := client.SubscribeRunEvents(ctx)
	if err != nil {
		return err
	}
	defer runSub.Close()

	channelEvents, channelErrs := channelSub.Events(), channelSub.Errors()
	runEvents, runErrs := runSub.Events(), runSub.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-channelEvents:
			if !ok {
				return nil
			}
			if opts.Topic != "" && event.Topic != opts.Topic {
				continue
			}
			if err := formatter.FormatChannel(event); err != nil {
				return fmt.Errorf("failed to write channel event: %w", err)
			}

		case event, ok := <-runEvents:
			if !ok {
				return nil
			}
			if opts.Topic != "" && event.Topic != opts.Topic {
				continue
			}
			if err := formatter.FormatRun(event); err != nil {
				return fmt.Errorf("failed to write run event: %w", err)
			}
			if opts.ExitOnRunEvent {
				return nil
			}

		case err, ok := <-channelErrs:
			if !ok {
				channelErrs = nil
				continue
			}
			_ = formatter.FormatError(err)

		case err, ok := <-runErrs:
			if !ok {
				runErrs = nil
				continue
			}
			_ = formatter.FormatError(err)
		}
	}
}

// ErrRunNotFound is returned by PollForRun when the timeout passes first.
var ErrRunNotFound = errors.New("run not found")

// PollForRun polls every 200ms until the run is on the blackboard or the
// timeout passes.
func PollForRun(ctx context.Context, client *blackboard.Client, runID string, timeout time.Duration) (*blackboard.Run, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("%w: timeout waiting for run %s after %v", ErrRunNotFound, runID, timeout)

		case <-ticker.C:
			run, err := client.GetRun(ctx, runID)
			if err != nil {
				if blackboard.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("failed to query for run: %w", err)
			}
			return run, nil
		}
	}
}
