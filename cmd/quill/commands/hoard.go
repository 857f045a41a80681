package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dyluth/quill/internal/filter"
	"github.com/dyluth/quill/internal/hoard"
	"github.com/dyluth/quill/internal/printer"
	"github.com/dyluth/quill/internal/resolver"
	"github.com/dyluth/quill/internal/timespec"
	"github.com/dyluth/quill/pkg/content"
	"github.com/spf13/cobra"
)

var (
	hoardRedisURL     string
	hoardInstanceName string
	hoardOutputFormat string
	hoardSince        string
	hoardUntil        string
	hoardTopic        string
	hoardChannel      string
	hoardStatus       string
)

var hoardCmd = &cobra.Command{
	Use:   "hoard [RUN_ID]",
	Short: "Inspect stored runs with filtering",
	Long: `Inspect runs saved to the Redis blackboard in list or get mode.

List Mode (no RUN_ID):
  Displays runs matching filters as a table or JSONL stream.

Get Mode (with RUN_ID):
  Displays the run and every channel result as pretty-printed JSON.
  Supports short IDs (e.g., "3f2a9c" instead of full UUID).

Output Formats (list mode only):
  default - Human-readable table with ID, Topic, Status, Passed and Age
  jsonl   - Line-delimited JSON, one run per line

Time Filters (list mode only):
  --since  - Show runs started after this time
  --until  - Show runs started before this time

Content Filters (list mode only):
  --topic    - Filter by topic folder (glob pattern: "*roadmap*")
  --channel  - Only runs that targeted this channel
  --status   - Filter by run status: running, completed or failed

Examples:
  # List all runs
  quill hoard

  # Blog runs from the last day
  quill hoard --channel=blog --since=1d

  # Stream as JSONL for jq
  quill hoard --output=jsonl | jq '.summary.pass_rate'

  # Full detail of one run by short ID
  quill hoard 3f2a9c`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHoard,
}

func init() {
	hoardCmd.Flags().StringVar(&hoardRedisURL, "redis-url", "", "Redis URL (defaults to output.redis.url in quill.yml)")
	hoardCmd.Flags().StringVarP(&hoardInstanceName, "name", "n", "", "Blackboard instance name (defaults to output.redis.instance)")
	hoardCmd.Flags().StringVarP(&hoardOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")

	// Time-based filters
	hoardCmd.Flags().StringVar(&hoardSince, "since", "", "Show runs after time (duration, Nd or RFC3339)")
	hoardCmd.Flags().StringVar(&hoardUntil, "until", "", "Show runs before time (duration, Nd or RFC3339)")

	// Content-based filters
	hoardCmd.Flags().StringVar(&hoardTopic, "topic", "", "Filter by topic (glob pattern)")
	hoardCmd.Flags().StringVar(&hoardChannel, "channel", "", "Filter by channel (exact match)")
	hoardCmd.Flags().StringVar(&hoardStatus, "status", "", "Filter by run status (exact match)")

	rootCmd.AddCommand(hoardCmd)
}

func runHoard(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Determine mode based on arguments
	isGetMode := len(args) > 0

	var outputFormat hoard.OutputFormat
	var criteria *filter.Criteria
	if !isGetMode {
		var err error
		outputFormat, err = hoard.ParseOutputFormat(hoardOutputFormat)
		if err != nil {
			return printer.Error(
				"invalid output format",
				fmt.Sprintf("Unknown format: %s", hoardOutputFormat),
				[]string{"Valid formats: default, jsonl"},
			)
		}
		criteria, err = buildHoardCriteria()
		if err != nil {
			return err
		}
	}

	bbClient, err := connectBlackboard(ctx, configPath, hoardRedisURL, hoardInstanceName)
	if err != nil {
		return err
	}
	defer bbClient.Close()

	if !isGetMode {
		if err := hoard.ListRuns(ctx, bbClient, outputFormat, criteria, os.Stdout); err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		return nil
	}

	shortID := args[0]
	fullID, err := resolver.ResolveRunID(ctx, bbClient, shortID)
	if err != nil {
		if resolver.IsNotFoundError(err) {
			return printer.Error(
				fmt.Sprintf("run with ID '%s' not found", shortID),
				"The specified run does not exist on the blackboard.",
				[]string{
					"List all runs:\n  quill hoard",
					fmt.Sprintf("Check the instance:\n  quill hoard --name %s", bbClient.InstanceName()),
				},
			)
		}
		var ambigErr *resolver.AmbiguousError
		if errors.As(err, &ambigErr) {
			fmt.Fprintln(os.Stderr, resolver.FormatAmbiguousError(ambigErr))
			return fmt.Errorf("ambiguous short ID")
		}
		return printer.Error("invalid run ID", err.Error(), []string{"Use at least 6 characters of the run ID"})
	}

	if err := hoard.GetRun(ctx, bbClient, fullID, os.Stdout); err != nil {
		if hoard.IsNotFound(err) {
			return printer.Error(
				fmt.Sprintf("run with ID '%s' not found", fullID),
				"The run was resolved but could not be fetched.",
				[]string{"This might indicate a race condition. Try again."},
			)
		}
		return fmt.Errorf("failed to get run: %w", err)
	}
	return nil
}

func buildHoardCriteria() (*filter.Criteria, error) {
	sinceMS, untilMS, err := timespec.ParseRange(hoardSince, hoardUntil)
	if err != nil {
		return nil, printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use duration format like '1h30m', days like '7d' or RFC3339 like '2025-10-29T13:00:00Z'"},
		)
	}

	criteria := &filter.Criteria{
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
		TopicGlob:        hoardTopic,
	}

	if hoardChannel != "" {
		ch, err := content.ParseChannel(hoardChannel)
		if err != nil {
			return nil, printer.Error("invalid channel filter", err.Error(), []string{"Valid channels: linkedin, newsletter, blog"})
		}
		criteria.Channel = ch
	}

	if hoardStatus != "" {
		status := content.RunStatus(hoardStatus)
		switch status {
		case content.RunRunning, content.RunCompleted, content.RunFailed:
			criteria.Status = status
		default:
			return nil, printer.Error(
				"invalid status filter",
				fmt.Sprintf("Unknown status: %s", hoardStatus),
				[]string{"Valid statuses: running, completed, failed"},
			)
		}
	}

	return criteria, nil
}
