package service

import (
	"context"
	"errors"
	"fmt"

	"reports/internal/content"
	"reports/internal/domain"
)

// ErrInvalidInput marks arguments that are neither a missing id nor a
// content constraint, such as an unknown view mode.
var ErrInvalidInput = errors.New("invalid input")

// Editor returns the selection and view state.
func (s *EditorSession) Editor() domain.EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// Select focuses a section, a block, or nothing when both ids are empty.
// When only blockID is given the owning section is selected with it.
func (s *EditorSession) Select(ctx context.Context, sectionID, blockID string) error {
	return s.updateEditor(ctx, func(e *domain.EditorState, tree domain.ContentTree) error {
		if blockID != "" {
			owner, _, ok := content.FindBlock(tree, blockID)
			if !ok {
				return &domain.NotFoundError{Kind: "block", ID: blockID}
			}
			if sectionID != "" && sectionID != owner {
				return &domain.NotFoundError{Kind: "block", ID: blockID}
			}
			sectionID = owner
		} else if sectionID != "" {
			if _, ok := content.FindSection(tree, sectionID); !ok {
				return &domain.NotFoundError{Kind: "section", ID: sectionID}
			}
		}
		e.SelectedSectionID = sectionID
		e.SelectedBlockID = blockID
		if e.EditingBlockID != blockID {
			e.EditingBlockID = ""
		}
		return nil
	})
}

// StartEditing puts blockID into text editing. Blocks of locked sections
// cannot be edited.
func (s *EditorSession) StartEditing(ctx context.Context, blockID string) error {
	return s.updateEditor(ctx, func(e *domain.EditorState, tree domain.ContentTree) error {
		owner, _, ok := content.FindBlock(tree, blockID)
		if !ok {
			return &domain.NotFoundError{Kind: "block", ID: blockID}
		}
		if sec, _ := content.FindSection(tree, owner); sec.IsLocked {
			return &domain.LockedError{SectionID: owner}
		}
		e.SelectedSectionID = owner
		e.SelectedBlockID = blockID
		e.EditingBlockID = blockID
		return nil
	})
}

func (s *EditorSession) StopEditing(ctx context.Context) error {
	return s.updateEditor(ctx, func(e *domain.EditorState, _ domain.ContentTree) error {
		e.EditingBlockID = ""
		return nil
	})
}

func (s *EditorSession) SetViewMode(ctx context.Context, mode domain.ViewMode) error {
	return s.updateEditor(ctx, func(e *domain.EditorState, _ domain.ContentTree) error {
		if !mode.Valid() {
			return fmt.Errorf("%w: unknown view mode %q", ErrInvalidInput, mode)
		}
		e.ViewMode = mode
		if mode != domain.ViewEdit {
			e.EditingBlockID = ""
		}
		return nil
	})
}

// SetZoom sets the zoom level in percent.
func (s *EditorSession) SetZoom(ctx context.Context, zoom int) error {
	return s.updateEditor(ctx, func(e *domain.EditorState, _ domain.ContentTree) error {
		if zoom < domain.MinZoom || zoom > domain.MaxZoom {
			return &domain.BoundsError{What: "zoom", Value: zoom, Min: domain.MinZoom, Max: domain.MaxZoom}
		}
		e.Zoom = zoom
		return nil
	})
}

// applyPrefs restores persisted view preferences without emitting.
func (s *EditorSession) applyPrefs(p domain.EditorPrefs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor.ViewMode = p.ViewMode
	s.editor.Zoom = p.Zoom
}

func (s *EditorSession) prefs() domain.EditorPrefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.EditorPrefs{ViewMode: s.editor.ViewMode, Zoom: s.editor.Zoom}
}

// updateEditor applies fn to a copy of the editor state and keeps the copy
// only when fn succeeds. Editor changes never touch the tree or history.
func (s *EditorSession) updateEditor(ctx context.Context, fn func(*domain.EditorState, domain.ContentTree) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	e := s.editor
	if err := fn(&e, s.tree); err != nil {
		s.mu.Unlock()
		return err
	}
	s.editor = e
	ev := SelectionEvent{ReportID: s.reportID, Editor: e}
	s.mu.Unlock()

	s.emitter.Emit(ctx, EventSelectionChanged, ev)
	return nil
}

// reconcileSelectionLocked clears selection that points at ids the new
// tree no longer contains. Callers hold s.mu.
func (s *EditorSession) reconcileSelectionLocked() {
	e := &s.editor
	if e.SelectedBlockID != "" {
		if owner, _, ok := content.FindBlock(s.tree, e.SelectedBlockID); ok {
			e.SelectedSectionID = owner
		} else {
			e.SelectedBlockID = ""
		}
	}
	if e.EditingBlockID != "" {
		if _, _, ok := content.FindBlock(s.tree, e.EditingBlockID); !ok {
			e.EditingBlockID = ""
		}
	}
	if e.SelectedSectionID != "" {
		if _, ok := content.FindSection(s.tree, e.SelectedSectionID); !ok {
			e.SelectedSectionID = ""
		}
	}
}
