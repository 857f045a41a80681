package commands

import (
	"github.com/dyluth/quill/internal/config"
	"github.com/dyluth/quill/internal/docstore"
	"github.com/dyluth/quill/internal/printer"
	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the topic folders available for generation",
	Long: `List topic folders under the configured source directory.

The index shown can be passed to 'quill forage --topic'.`,
	Args: cobra.NoArgs,
	RunE: runTopics,
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}

	topics, err := docstore.New(cfg.Workflow.SourceDir).ListTopics()
	if err != nil {
		return printer.Error(
			"failed to list topics",
			err.Error(),
			[]string{"Create a workspace with sample documents:\n  quill init"},
		)
	}

	printer.Topics(topics)
	return nil
}
