package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/dyluth/quill/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "quill - multi-channel marketing content with an LLM quality loop",
	Long: `quill turns a folder of source documents (meeting transcripts, roadmap
summaries, tickets, customer feedback) into LinkedIn posts, newsletter emails
and blog posts.

Every channel runs its own generate → judge → refine loop against an LLM in
parallel, and only content the judge scores at or above the quality threshold
is marked as passed.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadDotEnv(".env")
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", config.DefaultConfigFile, "Path to quill.yml")
}

// loadDotEnv loads API keys from path. A missing file is fine; variables
// already in the environment win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Printf("[CLI] Loaded environment from %s", path)
	return nil
}
