package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/quill/internal/printer"
	"github.com/dyluth/quill/internal/resolver"
	"github.com/spf13/cobra"
)

var (
	forageTopic       string
	forageAllTopics   bool
	forageAllChannels bool
	forageDryRun      bool
	forageHTML        bool
)

var forageCmd = &cobra.Command{
	Use:   "forage [CHANNEL]",
	Short: "Generate content for a topic on one or more channels",
	Long: `Generate marketing content from the documents in a topic folder.

Each requested channel runs its own generate → judge → refine loop in
parallel. Results are written to the output directory (and to Redis or
Cloud Storage when configured in quill.yml).

Channels:
  linkedin    - LinkedIn post
  newsletter  - Newsletter email
  blog        - Blog post

Topic Selection:
  --topic selects by 1-based index, exact name or unique name fragment.
  Without --topic the first topic (alphabetically) is used.

Examples:
  # Default channel for the first topic
  quill forage

  # Every enabled channel for topic 2
  quill forage --all-channels --topic 2

  # Blog posts for every topic, with HTML output
  quill forage blog --all-topics --html

  # Exercise the whole pipeline without calling an LLM
  quill forage --all-channels --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runForage,
}

func init() {
	forageCmd.Flags().StringVarP(&forageTopic, "topic", "t", "", "Topic to process (index, name or name fragment)")
	forageCmd.Flags().BoolVar(&forageAllTopics, "all-topics", false, "Process every topic folder")
	forageCmd.Flags().BoolVarP(&forageAllChannels, "all-channels", "a", false, "Generate for every enabled channel")
	forageCmd.Flags().BoolVar(&forageDryRun, "dry-run", false, "Use the deterministic mock provider instead of a real LLM")
	forageCmd.Flags().BoolVar(&forageHTML, "html", false, "Also render HTML next to the Markdown output")
	rootCmd.AddCommand(forageCmd)
}

func runForage(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requested := ""
	if len(args) > 0 {
		requested = args[0]
	}

	ws, err := openWorkspace(ctx, workspaceOptions{
		configPath: configPath,
		dryRun:     forageDryRun,
		html:       forageHTML,
	})
	if err != nil {
		return err
	}
	defer ws.Close()

	channels, err := ws.cfg.SelectChannels(requested, forageAllChannels)
	if err != nil {
		return printer.Error(
			"invalid channel",
			err.Error(),
			[]string{"Valid channels: linkedin, newsletter, blog", "Enable channels under channels.enabled in quill.yml"},
		)
	}

	topics, err := ws.listTopics()
	if err != nil {
		return err
	}
	printer.Topics(topics)

	selected, err := resolver.SelectTopics(topics, forageTopic, forageAllTopics || ws.cfg.Workflow.ProcessAllTopics)
	if err != nil {
		return topicSelectionError(err, ws.cfg.Workflow.SourceDir)
	}

	if forageDryRun {
		printer.Warning("Dry run: using the mock provider, no LLM calls will be made\n")
	}

	succeeded, failed := 0, 0
	for _, topic := range selected {
		printer.Step("Processing topic '%s' on %d channel(s)...\n", topic, len(channels))

		state, err := ws.orchestrator.Run(ctx, topic, channels)
		if err != nil {
			printer.Warning("Topic '%s' could not be processed: %v\n", topic, err)
			failed++
			continue
		}

		record := state.Snapshot()
		printer.RunResults(record)
		if record.Succeeded() {
			succeeded++
		} else {
			failed++
		}

		if ctx.Err() != nil {
			printer.Warning("Interrupted, skipping remaining topics\n")
			break
		}
	}

	if len(selected) > 1 {
		printer.FinalSummary(succeeded, failed)
	}
	printer.Info("Output written to %s/\n", ws.cfg.Workflow.OutputDir)

	if failed > 0 {
		return printer.Error(
			fmt.Sprintf("%d of %d topic(s) did not complete cleanly", failed, len(selected)),
			"Some channels failed or the run could not be saved.",
			[]string{
				fmt.Sprintf("Check the log for details:\n  %s", ws.cfg.Logging.File),
				"Inspect stored runs:\n  quill hoard",
			},
		)
	}
	return nil
}

// topicSelectionError maps resolver failures to CLI guidance.
func topicSelectionError(err error, sourceDir string) error {
	var ambErr *resolver.AmbiguousError
	if errors.As(err, &ambErr) {
		return printer.Error(
			"ambiguous topic",
			resolver.FormatAmbiguousError(ambErr),
			[]string{"Use the topic index or a longer fragment:\n  quill topics"},
		)
	}
	if resolver.IsNotFoundError(err) {
		return printer.Error(
			"topic not found",
			err.Error(),
			[]string{
				"List available topics:\n  quill topics",
				fmt.Sprintf("Add documents under %s/<topic>/", sourceDir),
			},
		)
	}
	return err
}
