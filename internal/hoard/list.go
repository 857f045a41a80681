package hoard

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dyluth/quill/internal/filter"
	"github.com/dyluth/quill/pkg/blackboard"
)

// OutputFormat specifies how to format the run list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table with one row per run
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete runs as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	case "":
		return OutputFormatDefault, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (use 'default' or 'jsonl')", s)
	}
}

// ListRuns writes every stored run of the instance to w, oldest first.
// The time bounds of criteria are pushed down to the run index; the rest are
// applied to each fetched run. Unreadable runs are skipped with a warning to
// stderr.
func ListRuns(ctx context.Context, bbClient *blackboard.Client, format OutputFormat, criteria *filter.Criteria, w io.Writer) error {
	if criteria == nil {
		criteria = &filter.Criteria{}
	}

	ids, err := bbClient.ListRunIDs(ctx, criteria.SinceTimestampMs, criteria.UntilTimestampMs)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*blackboard.Run, 0, len(ids))
	for _, id := range ids {
		run, err := bbClient.GetRun(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Skipping unreadable run: id=%s (error: %v)\n", id, err)
			continue
		}
		if !criteria.Matches(run) {
			continue
		}
		runs = append(runs, run)
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, runs, bbClient.InstanceName())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, runs); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
