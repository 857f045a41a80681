package commands

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/quill/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpDryRun bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing quill to LLM agents",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

Tools:
  list_topics       - List topic folders with their indexes
  generate_content  - Run the quality loop for one topic

Configure in your MCP client, running from the workspace directory.`,
	Example: `  # Start MCP server (typically launched by the MCP client)
  quill mcp

  # claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "quill": {
  #       "command": "quill",
  #       "args": ["--config", "/path/to/workspace/quill.yml", "mcp"]
  #     }
  #   }
  # }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpDryRun, "dry-run", false, "Use the deterministic mock provider instead of a real LLM")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := openWorkspace(ctx, workspaceOptions{configPath: configPath, dryRun: mcpDryRun})
	if err != nil {
		return err
	}
	defer ws.Close()

	server := mcpserver.NewMCPServer("quill", version)
	mcp.RegisterTools(server, mcp.NewHandlers(ws.store, ws.orchestrator, ws.cfg.SelectChannels))

	log.Println("[MCP] Server starting on stdio...")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		log.Println("[MCP] Shutdown signal received")
		return nil
	case err := <-serverErr:
		if err != nil {
			log.Printf("[MCP] Server stopped: %v", err)
		}
		return err
	}
}
