package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run a standalone MCP server on stdin/stdout",
	Long: `Run the report tools as a Model Context Protocol server over stdio, for
AI clients that launch the binary themselves. Logs go to stderr.

Destructive tools wait for a human answer. On SQL backends the request is
stored and answered through a running "reports serve" at
/api/v1/approvals; set mcp.auto_approve to skip the question.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the protocol.
	a, _, log, err := openApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	return a.ServeMCP(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
