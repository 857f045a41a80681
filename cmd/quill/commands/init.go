package commands

import (
	"fmt"

	"github.com/dyluth/quill/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new quill workspace",
	Long: `Initialize a new quill workspace in the current directory.

Creates:
  • quill.yml - Workspace configuration file
  • .env.example - API key template
  • source/csv_export/ - A sample topic with two source documents
  • examples/<channel>/ - One few-shot example per channel

Use --force to reinitialize an existing workspace (WARNING: destroys existing configuration, sources and examples).`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	// Note: Cannot use -f shorthand because it conflicts with global --config flag
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (removes existing quill.yml, source/ and examples/)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check for existing files (unless --force)
	if !forceInit {
		if err := scaffold.CheckExisting("."); err != nil {
			return err
		}
	}

	files, err := scaffold.Initialize(".", forceInit)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(files)
	return nil
}
