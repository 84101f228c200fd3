// Package app wires configuration, storage and services into the processes
// the CLI runs: the HTTP server and the standalone MCP server.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"reports/internal/api"
	"reports/internal/config"
	"reports/internal/domain"
	"reports/internal/export"
	mcpserver "reports/internal/mcp"
	"reports/internal/plugins"
	"reports/internal/service"
	"reports/internal/storage"
	"reports/internal/storage/mongostore"
)

// App owns the storage connection and the report service built on it.
type App struct {
	cfg      *config.Config
	log      zerolog.Logger
	emitter  service.EventEmitter
	exporter *export.Exporter

	db    *storage.DB      // SQL backends
	mongo *mongostore.Store // document backend

	reports   *service.ReportService
	approvals domain.ApprovalStore // nil on the document backend
}

// New opens the configured backend and builds the services.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		cfg:      cfg,
		log:      log,
		emitter:  service.LogEmitter{Log: log},
		exporter: export.New(),
	}

	store, prefs, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	registry := service.NewPluginRegistry()
	registry.Register(plugins.NewChartPalettePlugin(cfg.Blocks.ChartPalette, log))

	a.reports = service.NewReportService(store, service.ReportServiceConfig{
		Prefs:   prefs,
		Plugins: registry,
		Emitter: a.emitter,
		Log:     log,
		Session: service.SessionOptions{
			HistoryLimit:    cfg.History.Depth,
			AutosaveEnabled: cfg.Autosave.Enabled,
			AutosaveDelay:   cfg.Autosave.Delay,
			RetainVersions:  cfg.Versions.Retain,
		},
	})
	return a, nil
}

func (a *App) openStore(ctx context.Context) (domain.ReportStore, *service.EditorPrefsService, error) {
	sc := a.cfg.Storage
	if sc.Driver == config.DriverMongo {
		st, err := mongostore.Open(ctx, mongostore.Config{
			URI:      sc.DSN,
			Host:     sc.Host,
			Port:     sc.Port,
			User:     sc.User,
			Password: sc.Password,
			Database: sc.Database,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo store: %w", err)
		}
		a.mongo = st
		a.log.Info().Str("driver", sc.Driver).Msg("storage opened")
		// Editor preferences fall back to defaults without a settings table.
		return st, nil, nil
	}

	db, err := storage.Open(ctx, storage.Config{
		Driver:   storage.Dialect(sc.Driver),
		DSN:      sc.DSN,
		Path:     sc.Path,
		Host:     sc.Host,
		Port:     sc.Port,
		User:     sc.User,
		Password: sc.Password,
		Database: sc.Database,
		SSLMode:  sc.SSLMode,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.approvals = storage.NewApprovalStore(db)
	a.log.Info().Str("driver", sc.Driver).Str("path", db.Path()).Msg("storage opened")
	return storage.NewReportStore(db), service.NewEditorPrefsService(storage.NewSettingsStore(db)), nil
}

// Reports returns the report service.
func (a *App) Reports() *service.ReportService { return a.reports }

// Exporter returns the shared exporter.
func (a *App) Exporter() *export.Exporter { return a.exporter }

// Close closes every open session, saving dirty ones, then the backend.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.reports.CloseAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close mongo: %w", err))
		}
	}
	return errors.Join(errs...)
}

// newMCPServer builds the MCP server. A standalone server has no UI, so
// its approvals go through the store for the serve process to answer.
func (a *App) newMCPServer(ctx context.Context, standalone bool) *mcpserver.Server {
	opts := []mcpserver.ApprovalOption{
		mcpserver.WithApprovalTimeout(a.cfg.MCP.ApprovalTimeout),
		mcpserver.WithAutoApprove(a.cfg.MCP.AutoApprove),
	}
	if a.approvals != nil {
		opts = append(opts, mcpserver.WithApprovalStore(a.approvals))
		if standalone {
			opts = append(opts, mcpserver.WithRemoteRequests())
		}
	} else if standalone && !a.cfg.MCP.AutoApprove {
		a.log.Warn().Msg("no approval store on this backend; destructive MCP tools will time out unless mcp.auto_approve is set")
	}
	return mcpserver.New(ctx, mcpserver.Deps{
		Emitter:  a.emitter,
		Reports:  a.reports,
		Exporter: a.exporter,
		Log:      a.log.With().Str("component", "mcp").Logger(),
		Approval: opts,
	})
}

// Serve runs the HTTP API together with the background watcher and
// version scheduler until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	dbPath := ""
	if a.db != nil && a.db.Dialect() == storage.DialectSQLite {
		dbPath = a.db.Path()
	}
	watcher := service.NewReportWatcher(a.reports, dbPath, 0, a.log)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	scheduler := service.NewVersionScheduler(a.reports, a.cfg.Versions.SnapshotSchedule, a.log)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	mcpSrv := a.newMCPServer(ctx, false)
	deps := api.Dependencies{
		Reports:   a.reports,
		Exporter:  a.exporter,
		Approvals: mcpSrv.Approvals(),
	}
	if a.cfg.MCP.HTTP {
		deps.MCP = mcpSrv.HTTPHandler()
	}

	web := api.NewWebAPI(a.log, api.Config{
		Addr:            a.cfg.HTTP.Addr,
		ShutdownTimeout: a.cfg.HTTP.ShutdownTimeout,
		Dependencies:    deps,
	})
	return web.Start(ctx)
}
