package main

import (
	"fmt"

	"github.com/panbanda/clasp/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP (Model Context Protocol) server for LLM tool integration",
	Long: `Starts an MCP server over stdio transport that exposes the class pattern
analysis as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "clasp": {
        "command": "clasp",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_class_patterns  Rank repeated class combinations across files
  - analyze_class_source    Same analysis for one in-memory template`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcpserver.NewServer(version, loadConfig())
		return server.Run(cmd.Context())
	},
}

var mcpManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the MCP server manifest (server.json)",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	mcpCmd.AddCommand(mcpManifestCmd)
	rootCmd.AddCommand(mcpCmd)
}
