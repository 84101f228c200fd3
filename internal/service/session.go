package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"reports/internal/domain"
	"reports/internal/history"
)

// ─────────────────────────────────────────────────────────────
// EditorSession: one opened report
// ─────────────────────────────────────────────────────────────

var ErrSessionClosed = errors.New("editor session is closed")

// SessionOptions tunes history depth, autosave and version retention.
type SessionOptions struct {
	HistoryLimit    int
	AutosaveEnabled bool
	AutosaveDelay   time.Duration
	RetainVersions  int
}

const (
	DefaultAutosaveDelay  = 30 * time.Second
	DefaultRetainVersions = 50
)

func (o SessionOptions) withDefaults() SessionOptions {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = history.DefaultLimit
	}
	if o.AutosaveDelay <= 0 {
		o.AutosaveDelay = DefaultAutosaveDelay
	}
	if o.RetainVersions <= 0 {
		o.RetainVersions = DefaultRetainVersions
	}
	return o
}

// SessionState is the read contract handed to renderers.
type SessionState struct {
	ReportID    string             `json:"reportId"`
	Title       string             `json:"title"`
	Tree        domain.ContentTree `json:"tree"`
	Editor      domain.EditorState `json:"editor"`
	Dirty       bool               `json:"dirty"`
	LastSavedAt *time.Time         `json:"lastSavedAt,omitempty"`
	CanUndo     bool               `json:"canUndo"`
	CanRedo     bool               `json:"canRedo"`
	UndoLabel   string             `json:"undoLabel,omitempty"`
	RedoLabel   string             `json:"redoLabel,omitempty"`
}

// EditorSession owns the content tree of one opened report. It is the only
// writer of that tree: every change goes through a content function, is
// recorded in history, marks the session dirty and re-arms autosave.
// Readers get clones. All methods are safe for concurrent use.
type EditorSession struct {
	mu sync.Mutex

	reportID  string
	title     string
	createdAt time.Time

	tree        domain.ContentTree
	editor      domain.EditorState
	history     *history.Manager
	dirty       bool
	revision    uint64
	lastSavedAt *time.Time
	closed      bool

	autosaveGen   uint64
	autosaveTimer clockwork.Timer

	// revision of the tree captured by the latest version
	versionRevision uint64

	store   domain.ReportStore
	plugins *PluginRegistry
	emitter EventEmitter
	guard   *saveGuard
	clock   clockwork.Clock
	log     zerolog.Logger
	opts    SessionOptions
}

// SessionDeps bundles the collaborators of a session.
type SessionDeps struct {
	Store   domain.ReportStore
	Plugins *PluginRegistry
	Emitter EventEmitter
	Clock   clockwork.Clock
	Log     zerolog.Logger

	guard *saveGuard
}

// NewEditorSession opens a session over an already loaded report.
func NewEditorSession(r *domain.Report, deps SessionDeps, opts SessionOptions) *EditorSession {
	opts = opts.withDefaults()
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Emitter == nil {
		deps.Emitter = LogEmitter{Log: deps.Log}
	}
	if deps.guard == nil {
		deps.guard = &saveGuard{}
	}
	s := &EditorSession{
		reportID:    r.ID,
		title:       r.Title,
		createdAt:   r.CreatedAt,
		tree:        r.Tree.Clone(),
		editor:      domain.DefaultEditorState(),
		history:     history.New(opts.HistoryLimit),
		lastSavedAt: r.LastSavedAt,
		store:       deps.Store,
		plugins:     deps.Plugins,
		emitter:     deps.Emitter,
		guard:       deps.guard,
		clock:       deps.Clock,
		log:         deps.Log.With().Str("report", r.ID).Logger(),
		opts:        opts,
	}
	return s
}

func (s *EditorSession) ReportID() string { return s.reportID }

func (s *EditorSession) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Tree returns a copy of the current tree.
func (s *EditorSession) Tree() domain.ContentTree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Clone()
}

// State returns the full read contract in one consistent snapshot.
func (s *EditorSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		ReportID:    s.reportID,
		Title:       s.title,
		Tree:        s.tree.Clone(),
		Editor:      s.editor,
		Dirty:       s.dirty,
		LastSavedAt: s.lastSavedAt,
		CanUndo:     s.history.CanUndo(),
		CanRedo:     s.history.CanRedo(),
		UndoLabel:   s.history.NextUndo(),
		RedoLabel:   s.history.NextRedo(),
	}
}

// LastSavedAt returns when this session last wrote the report.
func (s *EditorSession) LastSavedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSavedAt
}

func (s *EditorSession) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// History returns the labels of the undoable actions, newest first.
func (s *EditorSession) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Labels()
}

// SetTitle renames the report. The title is not part of the tree, so the
// change is saved but not undoable.
func (s *EditorSession) SetTitle(ctx context.Context, title string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.title = title
	s.markDirtyLocked()
	ev := s.changeEventLocked("rename report")
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventReportChanged, ev)
	return nil
}

// mutate runs fn against the current tree. On success the old tree is
// recorded under label and fn's result becomes current.
func (s *EditorSession) mutate(ctx context.Context, label string, fn func(domain.ContentTree) (domain.ContentTree, error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	next, err := fn(s.tree)
	if err != nil {
		s.mu.Unlock()
		s.log.Debug().Err(err).Str("action", label).Msg("mutation rejected")
		return err
	}
	s.history.Record(label, s.tree)
	s.replaceTreeLocked(next)
	ev := s.changeEventLocked(label)
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventReportChanged, ev)
	return nil
}

// replaceTreeLocked installs next, drops selection that no longer resolves
// and arms autosave. Callers hold s.mu.
func (s *EditorSession) replaceTreeLocked(next domain.ContentTree) {
	s.tree = next
	s.reconcileSelectionLocked()
	s.markDirtyLocked()
}

func (s *EditorSession) markDirtyLocked() {
	s.dirty = true
	s.revision++
	s.armAutosaveLocked()
}

func (s *EditorSession) changeEventLocked(action string) ChangeEvent {
	return ChangeEvent{
		ReportID: s.reportID,
		Action:   action,
		CanUndo:  s.history.CanUndo(),
		CanRedo:  s.history.CanRedo(),
	}
}

// Undo restores the tree from before the last action. It reports false
// when there is nothing to undo.
func (s *EditorSession) Undo(ctx context.Context) (bool, error) {
	return s.travel(ctx, "undo", s.history.Undo)
}

// Redo replays the last undone action.
func (s *EditorSession) Redo(ctx context.Context) (bool, error) {
	return s.travel(ctx, "redo", s.history.Redo)
}

func (s *EditorSession) travel(ctx context.Context, action string, step func(domain.ContentTree) (domain.ContentTree, bool)) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}
	next, ok := step(s.tree)
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	s.replaceTreeLocked(next)
	ev := s.changeEventLocked(action)
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventReportChanged, ev)
	return true, nil
}
