// Package api exposes report sessions over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	reportsmw "reports/internal/api/middleware"
	"reports/internal/export"
	"reports/internal/service"
)

type Dependencies struct {
	Reports  *service.ReportService
	Exporter *export.Exporter
	// Approvals answers destructive MCP tool calls. Optional.
	Approvals Approvals
	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

type WebAPI struct {
	router   *chi.Mux
	logger   *zerolog.Logger
	server   *http.Server
	shutdown time.Duration
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	router := ConfigureRouter(logger, config.Dependencies)
	shutdown := config.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}
	return &WebAPI{
		router:   router,
		logger:   &logger,
		shutdown: shutdown,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ConfigureRouter builds the route tree.
func ConfigureRouter(logger zerolog.Logger, deps Dependencies) *chi.Mux {
	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.New()
	}
	h := &handler{reports: deps.Reports, exporter: exporter}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(reportsmw.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MCP != nil {
		router.Handle("/mcp", deps.MCP)
	}

	router.Route("/api/v1", func(r chi.Router) {
		if deps.Approvals != nil {
			a := &approvalHandler{approvals: deps.Approvals}
			r.Get("/approvals", a.list)
			r.Post("/approvals/{id}/approve", a.approve)
			r.Post("/approvals/{id}/reject", a.reject)
		}

		r.Get("/block-types", h.listBlockTypes)
		r.Get("/reports", h.listReports)
		r.Post("/reports", h.createReport)
		r.Post("/reports/import", h.importReport)

		r.Route("/reports/{report}", func(r chi.Router) {
			r.Get("/", h.getReport)
			r.Patch("/", h.renameReport)
			r.Delete("/", h.deleteReport)
			r.Post("/close", h.closeReport)
			r.Post("/save", h.saveReport)
			r.Post("/undo", h.undo)
			r.Post("/redo", h.redo)
			r.Get("/history", h.history)
			r.Get("/export", h.exportReport)

			r.Get("/versions", h.listVersions)
			r.Post("/versions", h.createVersion)
			r.Post("/versions/{version}/restore", h.restoreVersion)

			r.Post("/sections", h.addSection)
			r.Post("/sections/reorder", h.reorderSections)
			r.Route("/sections/{section}", func(r chi.Router) {
				r.Patch("/", h.updateSection)
				r.Delete("/", h.deleteSection)
				r.Post("/duplicate", h.duplicateSection)
				r.Post("/lock", h.toggleLock)
				r.Post("/collapse", h.toggleCollapse)

				r.Post("/blocks", h.addBlock)
				r.Route("/blocks/{block}", func(r chi.Router) {
					r.Patch("/", h.updateBlock)
					r.Put("/", h.replaceBlock)
					r.Delete("/", h.deleteBlock)
					r.Post("/duplicate", h.duplicateBlock)
					r.Post("/move", h.moveBlock)
				})
			})

			r.Get("/editor", h.getEditor)
			r.Put("/editor/selection", h.selectTarget)
			r.Put("/editor/editing", h.startEditing)
			r.Delete("/editor/editing", h.stopEditing)
			r.Put("/editor/view-mode", h.setViewMode)
			r.Put("/editor/zoom", h.setZoom)
		})
	})
	return router
}

// Handler returns the configured router.
func (w *WebAPI) Handler() http.Handler { return w.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdown)
		defer cancel()

		err := w.server.Shutdown(shutdownCtx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}
		return err
	}
}
