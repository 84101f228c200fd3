// Package cli implements the reports command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reports/internal/app"
	"reports/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "reports",
	Short: "Author structured reports",
	Long: `reports stores structured reports made of nested sections and typed
blocks, with undo history, autosave and versions. The serve command exposes
them over HTTP, the mcp command over the Model Context Protocol.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml, toml or json); REPORTS_* variables override it")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openApp loads configuration and opens the application. Logs go to logOut.
func openApp(ctx context.Context, logOut io.Writer) (*app.App, *config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	log, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, log, err
	}
	return a, cfg, log, nil
}

// closeApp saves open sessions and closes storage, logging any failure.
func closeApp(a *app.App, log zerolog.Logger) {
	if err := a.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("shutdown")
		fmt.Fprintln(os.Stderr, "shutdown:", err)
	}
}
