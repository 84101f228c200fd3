package app

import (
	"context"
	"io"
)

// ServeMCP runs a standalone MCP server on in/out with no HTTP surface, as
// launched by an AI client. It serves until ctx is cancelled or in closes.
func (a *App) ServeMCP(ctx context.Context, in io.Reader, out io.Writer) error {
	srv := a.newMCPServer(ctx, true)
	return srv.ServeStdio(ctx, in, out)
}
