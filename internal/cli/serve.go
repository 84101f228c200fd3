package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing report sessions.

Endpoints:
  GET  /health                          Health check
  *    /api/v1/reports/...              Report, section, block, history and version commands
  GET  /api/v1/approvals                Destructive MCP actions waiting for an answer
  POST /api/v1/approvals/{id}/approve   Approve one
  POST /api/v1/approvals/{id}/reject    Reject one
  *    /mcp                             MCP over streamable HTTP (mcp.http)

The server also watches for reports changed by other processes and takes
scheduled versions when versions.snapshot_schedule is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "address to listen on (overrides http.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, cfg, log, err := openApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	return a.Serve(ctx)
}
