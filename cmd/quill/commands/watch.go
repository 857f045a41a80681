package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/quill/internal/hoard"
	"github.com/dyluth/quill/internal/printer"
	"github.com/dyluth/quill/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchRedisURL     string
	watchInstanceName string
	watchOutputFormat string
	watchTopic        string
	watchExitOnRun    bool
	watchRunID        string
	watchTimeout      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor real-time generation activity",
	Long: `Monitor channel results and run completions as they are published.

Streams an event each time a channel reaches its terminal state and each
time a run finishes. Requires output.redis in quill.yml for the runs being
watched.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch all activity
  quill watch

  # Wait for the next run of one topic, then exit
  quill watch --topic csv_export --exit-on-run

  # Wait until a known run has been saved and print it
  quill watch --run 0b9f1c8e-0d55-4b8e-9b7e-5d3f0f4c1a2b --timeout 2m

  # Export events as JSON
  quill watch --output=json > events.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRedisURL, "redis-url", "", "Redis URL (defaults to output.redis.url in quill.yml)")
	watchCmd.Flags().StringVarP(&watchInstanceName, "name", "n", "", "Blackboard instance name (defaults to output.redis.instance)")
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringVar(&watchTopic, "topic", "", "Only show events for this topic")
	watchCmd.Flags().BoolVar(&watchExitOnRun, "exit-on-run", false, "Exit after the first run completes")
	watchCmd.Flags().StringVar(&watchRunID, "run", "", "Wait for this run ID to be saved, print it and exit")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 5*time.Minute, "How long --run waits")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Validate output format
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	bbClient, err := connectBlackboard(ctx, configPath, watchRedisURL, watchInstanceName)
	if err != nil {
		return err
	}
	defer bbClient.Close()

	if watchRunID != "" {
		printer.Info("Waiting for run %s (timeout %v)...\n", watchRunID, watchTimeout)
		run, err := watch.PollForRun(ctx, bbClient, watchRunID, watchTimeout)
		if err != nil {
			if errors.Is(err, watch.ErrRunNotFound) {
				return printer.Error(
					"run not found",
					err.Error(),
					[]string{"Check the run ID printed by 'quill forage'", "Increase the wait:\n  quill watch --run <id> --timeout 10m"},
				)
			}
			return fmt.Errorf("failed to wait for run: %w", err)
		}
		return hoard.GetRun(ctx, bbClient, run.ID, os.Stdout)
	}

	if outputFormat == watch.OutputFormatDefault {
		printer.Info("Watching instance '%s' (Ctrl+C to stop)...\n", bbClient.InstanceName())
	}

	opts := watch.StreamOptions{Topic: watchTopic, ExitOnRunEvent: watchExitOnRun}
	if err := watch.StreamActivity(ctx, bbClient, outputFormat, opts, os.Stdout); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
