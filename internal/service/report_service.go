package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"reports/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Report Service: catalogue of reports and their open sessions
// ─────────────────────────────────────────────────────────────

// ReportService creates, lists and deletes reports and hands out one
// EditorSession per opened report.
type ReportService struct {
	store   domain.ReportStore
	prefs   *EditorPrefsService
	plugins *PluginRegistry
	emitter EventEmitter
	clock   clockwork.Clock
	log     zerolog.Logger
	opts    SessionOptions
	guard   saveGuard

	mu       sync.Mutex
	sessions map[string]*EditorSession
}

// ReportServiceConfig carries the optional collaborators of a ReportService.
type ReportServiceConfig struct {
	Prefs   *EditorPrefsService
	Plugins *PluginRegistry
	Emitter EventEmitter
	Clock   clockwork.Clock
	Log     zerolog.Logger
	Session SessionOptions
}

func NewReportService(store domain.ReportStore, cfg ReportServiceConfig) *ReportService {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = LogEmitter{Log: cfg.Log}
	}
	if cfg.Plugins == nil {
		cfg.Plugins = NewPluginRegistry()
	}
	return &ReportService{
		store:    store,
		prefs:    cfg.Prefs,
		plugins:  cfg.Plugins,
		emitter:  cfg.Emitter,
		clock:    cfg.Clock,
		log:      cfg.Log,
		opts:     cfg.Session.withDefaults(),
		sessions: make(map[string]*EditorSession),
	}
}

func (s *ReportService) Plugins() *PluginRegistry { return s.plugins }

// ── Catalogue ──────────────────────────────────────────────

func (s *ReportService) List(ctx context.Context) ([]domain.ReportSummary, error) {
	list, err := s.store.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return list, nil
}

// Create stores a new, empty report.
func (s *ReportService) Create(ctx context.Context, title string) (*domain.Report, error) {
	if title == "" {
		title = "Untitled report"
	}
	now := s.clock.Now().UTC()
	r := &domain.Report{
		ID:        uuid.New().String(),
		Title:     title,
		Tree:      domain.ContentTree{Sections: []domain.Section{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveReport(ctx, r); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.log.Info().Str("report", r.ID).Str("title", title).Msg("report created")
	return r, nil
}

// CreateFromTree stores a new report with an existing tree, as an import does.
func (s *ReportService) CreateFromTree(ctx context.Context, title string, tree domain.ContentTree) (*domain.Report, error) {
	r, err := s.Create(ctx, title)
	if err != nil {
		return nil, err
	}
	r.Tree = tree.Clone()
	if err := s.store.SaveReport(ctx, r); err != nil {
		return nil, fmt.Errorf("store imported tree: %w", err)
	}
	return r, nil
}

// Rename changes a report's title, in the open session if there is one.
func (s *ReportService) Rename(ctx context.Context, id, title string) error {
	if sess, ok := s.Session(id); ok {
		if err := sess.SetTitle(ctx, title); err != nil {
			return err
		}
		return sess.Save(ctx)
	}
	r, err := s.store.LoadReport(ctx, id)
	if err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	r.Title = title
	r.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.SaveReport(ctx, r); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// Delete drops an open session without saving and removes the report
// together with its versions.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, open := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if open {
		sess.discard()
		_ = s.guard.Wait(ctx, id)
	}
	if err := s.store.DeleteReport(ctx, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	s.emitter.Emit(ctx, EventReportDeleted, map[string]string{"reportId": id})
	return nil
}

// ── Sessions ───────────────────────────────────────────────

// Open returns the session for id, loading the report on first use.
func (s *ReportService) Open(ctx context.Context, id string) (*EditorSession, error) {
	if sess, ok := s.Session(id); ok {
		return sess, nil
	}
	r, err := s.store.LoadReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}

	sess := NewEditorSession(r, SessionDeps{
		Store:   s.store,
		Plugins: s.plugins,
		Emitter: s.emitter,
		Clock:   s.clock,
		Log:     s.log,
		guard:   &s.guard,
	}, s.opts)
	sess.applyPrefs(s.prefs.Load(ctx, id))

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	s.sessions[id] = sess
	s.log.Debug().Str("report", id).Msg("session opened")
	return sess, nil
}

// Session returns the already opened session for id.
func (s *ReportService) Session(id string) (*EditorSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Sessions returns the open sessions ordered by report id.
func (s *ReportService) Sessions() []*EditorSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*EditorSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].reportID < out[j].reportID })
	return out
}

// Close flushes and closes the session of id and stores its editor
// preferences. Closing a report that is not open is a no-op. If the flush
// fails the session stays open so its unsaved edits are kept.
func (s *ReportService) Close(ctx context.Context, id string) error {
	sess, ok := s.Session(id)
	if !ok {
		return nil
	}
	if s.prefs != nil {
		if err := s.prefs.Save(ctx, id, sess.prefs()); err != nil {
			s.log.Warn().Err(err).Str("report", id).Msg("save editor prefs")
		}
	}
	if err := sess.Close(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.sessions[id] == sess {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	return nil
}

// CloseAll closes every open session, as on shutdown.
func (s *ReportService) CloseAll(ctx context.Context) error {
	var errs []error
	for _, sess := range s.Sessions() {
		if err := s.Close(ctx, sess.ReportID()); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", sess.ReportID(), err))
		}
	}
	s.guard.WaitAll(ctx)
	return errors.Join(errs...)
}
