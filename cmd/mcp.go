package cmd

import (
	"github.com/spf13/cobra"

	"github.com/YalmanchiliTejas/Product-manager/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client drive full analysis sessions. Configure in
Claude Code with:

  {
    "mcpServers": {
      "pma": { "command": "pma", "args": ["mcp"] }
    }
  }

Available tools: pma_create_session, pma_ask, pma_confirm,
pma_review_document, pma_get_tasks, pma_get_document, pma_get_tickets,
pma_end_session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(nil)
		if err != nil {
			return err
		}
		srv := mcp.NewServer(a.sessions, a.orch)
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
