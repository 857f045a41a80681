// Package mcp exposes the content workflow as Model Context Protocol tools so
// an LLM agent can list topics and trigger runs over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers every quill tool with the server.
func RegisterTools(server *mcpserver.MCPServer, h *Handlers) {
	server.AddTool(mcp.Tool{
		Name:        "list_topics",
		Description: "List the topic folders available under the source directory, with their 1-based index.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.ListTopics)

	server.AddTool(mcp.Tool{
		Name:        "generate_content",
		Description: "Run the generate, judge and refine workflow for one topic and return the final content and scores per channel.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"topic": map[string]interface{}{
					"type":        "string",
					"description": "Topic folder name, 1-based index, or a unique case-insensitive substring",
				},
				"channel": map[string]interface{}{
					"type":        "string",
					"description": "One of linkedin, newsletter, blog (default: the configured default channel)",
				},
				"all_channels": map[string]interface{}{
					"type":        "boolean",
					"description": "Generate every enabled channel",
					"default":     false,
				},
			},
			Required: []string{"topic"},
		},
	}, h.GenerateContent)
}
