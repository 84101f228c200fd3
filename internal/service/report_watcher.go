package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"reports/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Report Watcher: detects writes made by other processes
// ─────────────────────────────────────────────────────────────
//
// A second process (the stdio MCP server, another editor) may save a report
// that is open here. The watcher notices and emits report:external-change;
// the open session keeps its own tree. With a database file it reacts to
// file events, otherwise it polls.

// ExternalChangeEvent accompanies report:external-change.
type ExternalChangeEvent struct {
	ReportID string    `json:"reportId"`
	SavedAt  time.Time `json:"savedAt,omitempty"`
	Deleted  bool      `json:"deleted,omitempty"`
}

type ReportWatcher struct {
	reports  *ReportService
	emitter  EventEmitter
	log      zerolog.Logger
	clock    clockwork.Clock
	path     string
	interval time.Duration

	mu      sync.Mutex
	seen    map[string]time.Time
	pending clockwork.Timer
	stopCh  chan struct{}
	wg      sync.WaitGroup
	watcher *fsnotify.Watcher
}

// NewReportWatcher watches dbPath when it is set and polls every interval
// otherwise.
func NewReportWatcher(reports *ReportService, dbPath string, interval time.Duration, log zerolog.Logger) *ReportWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ReportWatcher{
		reports:  reports,
		emitter:  reports.emitter,
		log:      log.With().Str("component", "watcher").Logger(),
		clock:    reports.clock,
		path:     dbPath,
		interval: interval,
		seen:     make(map[string]time.Time),
	}
}

// Start begins watching. It returns once the watch is set up.
func (w *ReportWatcher) Start(ctx context.Context) error {
	w.stopCh = make(chan struct{})
	if w.path == "" {
		w.wg.Add(1)
		go w.pollLoop(ctx)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.watcher = watcher
	w.wg.Add(1)
	go w.eventLoop(ctx)
	w.log.Debug().Str("path", w.path).Msg("watching database file")
	return nil
}

// Stop terminates the loop and waits for it to exit.
func (w *ReportWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	w.stopCh = nil
}

func (w *ReportWatcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			w.Check(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *ReportWatcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	base := filepath.Base(w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// sqlite writes land in the -wal and -journal siblings too
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			w.schedule(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// schedule coalesces a burst of file events into one Check.
func (w *ReportWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = w.clock.AfterFunc(250*time.Millisecond, func() { w.Check(ctx) })
}

// Check compares every open session with the stored report and emits
// report:external-change for reports saved elsewhere since this session
// last saved. Sessions in the middle of their own save are skipped.
func (w *ReportWatcher) Check(ctx context.Context) {
	for _, sess := range w.reports.Sessions() {
		id := sess.ReportID()
		if !w.reports.guard.TryLock(id) {
			continue
		}
		ev, changed := w.compare(ctx, sess)
		w.reports.guard.Unlock(id)
		if changed {
			w.log.Info().Str("report", id).Bool("deleted", ev.Deleted).Msg("external change")
			w.emitter.Emit(ctx, EventExternalChange, ev)
		}
	}
}

func (w *ReportWatcher) compare(ctx context.Context, sess *EditorSession) (ExternalChangeEvent, bool) {
	id := sess.ReportID()
	stored, err := w.reports.store.LoadReport(ctx, id)
	if errors.Is(err, domain.ErrReportNotFound) {
		return ExternalChangeEvent{ReportID: id, Deleted: true}, w.markSeen(id, time.Time{})
	}
	if err != nil {
		w.log.Warn().Err(err).Str("report", id).Msg("load report")
		return ExternalChangeEvent{}, false
	}
	if stored.LastSavedAt == nil {
		return ExternalChangeEvent{}, false
	}
	local := sess.LastSavedAt()
	if local != nil && !stored.LastSavedAt.After(*local) {
		return ExternalChangeEvent{}, false
	}
	return ExternalChangeEvent{ReportID: id, SavedAt: *stored.LastSavedAt}, w.markSeen(id, *stored.LastSavedAt)
}

// markSeen records at and reports whether it differs from the last
// reported change, so one external save is announced once.
func (w *ReportWatcher) markSeen(id string, at time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, ok := w.seen[id]
	if ok && prev.Equal(at) {
		return false
	}
	w.seen[id] = at
	return true
}
