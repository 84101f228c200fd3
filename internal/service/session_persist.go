package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reports/internal/domain"
)

// ── Save & versions ────────────────────────────────────────

// Save writes the current tree as the live copy and appends an unlabeled
// version. On failure the tree and dirty flag are left as they were.
func (s *EditorSession) Save(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.persist(ctx, "", false)
	return err
}

// SaveVersion saves and tags the resulting version with label.
func (s *EditorSession) SaveVersion(ctx context.Context, label string) (*domain.Version, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: version label is required", ErrInvalidInput)
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.persist(ctx, label, false)
}

func (s *EditorSession) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// persist runs one save under the per-report guard. With onlyIfDirty a
// session that became clean while waiting for the guard is not saved again.
func (s *EditorSession) persist(ctx context.Context, label string, onlyIfDirty bool) (*domain.Version, error) {
	if err := s.guard.Acquire(ctx, s.reportID); err != nil {
		return nil, fmt.Errorf("wait for running save: %w", err)
	}
	defer s.guard.Unlock(s.reportID)

	s.mu.Lock()
	if onlyIfDirty && !s.dirty {
		s.mu.Unlock()
		return nil, nil
	}
	s.cancelAutosaveLocked()
	snapshot := s.tree.Clone()
	rev := s.revision
	report := &domain.Report{ID: s.reportID, Title: s.title, CreatedAt: s.createdAt}
	s.mu.Unlock()

	now := s.clock.Now().UTC()
	report.Tree = snapshot
	report.UpdatedAt = now
	report.LastSavedAt = &now

	if err := s.store.SaveReport(ctx, report); err != nil {
		return nil, s.saveFailed(ctx, fmt.Errorf("save report: %w", err))
	}
	v := &domain.Version{
		ID:        uuid.New().String(),
		ReportID:  s.reportID,
		Label:     label,
		Tree:      snapshot,
		CreatedAt: now,
	}
	if err := s.store.AppendVersion(ctx, v); err != nil {
		return nil, s.saveFailed(ctx, fmt.Errorf("append version: %w", err))
	}
	if err := s.store.PruneVersions(ctx, s.reportID, s.opts.RetainVersions); err != nil {
		s.log.Warn().Err(err).Msg("prune versions")
	}

	s.mu.Lock()
	s.lastSavedAt = &now
	if s.revision == rev {
		s.dirty = false
	}
	if label != "" {
		s.versionRevision = rev
	}
	s.mu.Unlock()

	s.log.Debug().Str("version", v.ID).Str("label", label).Msg("report saved")
	s.emitter.Emit(ctx, EventReportSaved, SaveEvent{ReportID: s.reportID, VersionID: v.ID, SavedAt: now})
	if label != "" {
		s.emitter.Emit(ctx, EventVersionCreated, SaveEvent{ReportID: s.reportID, VersionID: v.ID, Label: label, SavedAt: now})
	}
	return v, nil
}

func (s *EditorSession) saveFailed(ctx context.Context, err error) error {
	s.log.Error().Err(err).Msg("save failed")
	s.emitter.Emit(ctx, EventReportSaveFailed, SaveEvent{
		ReportID: s.reportID,
		SavedAt:  s.clock.Now().UTC(),
		Error:    err.Error(),
	})
	return err
}

// ChangedSinceVersion reports whether the tree moved on since the last
// labelled version.
func (s *EditorSession) ChangedSinceVersion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision != s.versionRevision
}

// ListVersions returns the report's versions, oldest first.
func (s *EditorSession) ListVersions(ctx context.Context) ([]domain.Version, error) {
	versions, err := s.store.ListVersions(ctx, s.reportID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// RestoreVersion makes the version's tree current. The restore is an
// undoable action and the version log is left untouched.
func (s *EditorSession) RestoreVersion(ctx context.Context, versionID string) error {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}
	if v.ReportID != s.reportID {
		return fmt.Errorf("get version %s: %w", versionID, domain.ErrVersionNotFound)
	}
	label := "restore version"
	if v.Label != "" {
		label += " " + v.Label
	}
	return s.mutate(ctx, label, func(domain.ContentTree) (domain.ContentTree, error) {
		return v.Tree.Clone(), nil
	})
}

// ── Autosave ───────────────────────────────────────────────

// armAutosaveLocked replaces any pending autosave with a new one. The
// generation counter lets a timer that already fired notice it was
// superseded. Callers hold s.mu.
func (s *EditorSession) armAutosaveLocked() {
	if !s.opts.AutosaveEnabled || s.closed {
		return
	}
	s.cancelAutosaveLocked()
	gen := s.autosaveGen
	s.autosaveTimer = s.clock.AfterFunc(s.opts.AutosaveDelay, func() {
		s.autosave(gen)
	})
}

func (s *EditorSession) cancelAutosaveLocked() {
	s.autosaveGen++
	if s.autosaveTimer != nil {
		s.autosaveTimer.Stop()
		s.autosaveTimer = nil
	}
}

// AutosavePending reports whether an autosave is scheduled.
func (s *EditorSession) AutosavePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autosaveTimer != nil
}

func (s *EditorSession) autosave(gen uint64) {
	s.mu.Lock()
	if gen != s.autosaveGen || s.closed || !s.dirty {
		s.mu.Unlock()
		return
	}
	s.autosaveTimer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.persist(ctx, "", true); err != nil {
		s.log.Warn().Err(err).Msg("autosave failed")
	}
}

// ── Lifecycle ──────────────────────────────────────────────

// Close flushes unsaved changes, waits for running saves and stops
// autosave. After Close every command fails with ErrSessionClosed. When the
// flush fails the session stays open with its tree and dirty flag intact,
// and autosave is armed again.
func (s *EditorSession) Close(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil
		}
		s.cancelAutosaveLocked()
		if !s.dirty {
			s.closed = true
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()

		if _, err := s.persist(ctx, "", true); err != nil {
			s.mu.Lock()
			s.armAutosaveLocked()
			s.mu.Unlock()
			return err
		}
	}
	return s.guard.Wait(ctx, s.reportID)
}

// discard closes the session without saving.
func (s *EditorSession) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelAutosaveLocked()
}
