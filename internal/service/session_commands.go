package service

import (
	"context"
	"fmt"

	"reports/internal/content"
	"reports/internal/domain"
)

// ── Sections ───────────────────────────────────────────────

func (s *EditorSession) AddSection(ctx context.Context, spec content.SectionSpec, parentID string) (string, error) {
	var id string
	err := s.mutate(ctx, "add section", func(t domain.ContentTree) (domain.ContentTree, error) {
		next, newID, err := content.AddSection(t, spec, parentID)
		id = newID
		return next, err
	})
	return id, err
}

func (s *EditorSession) UpdateSection(ctx context.Context, id string, patch content.SectionPatch) error {
	return s.mutate(ctx, "update section", func(t domain.ContentTree) (domain.ContentTree, error) {
		return content.UpdateSection(t, id, patch)
	})
}

func (s *EditorSession) DeleteSection(ctx context.Context, id string) error {
	var removed []domain.Block
	err := s.mutate(ctx, "delete section", func(t domain.ContentTree) (domain.ContentTree, error) {
		if sec, ok := content.FindSection(t, id); ok {
			removed = collectBlocks(sec)
		}
		return content.DeleteSection(t, id)
	})
	if err != nil {
		return err
	}
	for _, b := range removed {
		s.notifyDeleted(ctx, b)
	}
	return nil
}

func collectBlocks(sec domain.Section) []domain.Block {
	out := append([]domain.Block(nil), sec.Blocks...)
	for _, c := range sec.Children {
		out = append(out, collectBlocks(c)...)
	}
	return out
}

func (s *EditorSession) DuplicateSection(ctx context.Context, id string) (string, error) {
	var dupID string
	err := s.mutate(ctx, "duplicate section", func(t domain.ContentTree) (domain.ContentTree, error) {
		next, newID, err := content.DuplicateSection(t, id)
		dupID = newID
		return next, err
	})
	return dupID, err
}

func (s *EditorSession) ReorderSections(ctx context.Context, movedID, targetID string) error {
	return s.mutate(ctx, "reorder sections", func(t domain.ContentTree) (domain.ContentTree, error) {
		return content.ReorderSections(t, movedID, targetID)
	})
}

func (s *EditorSession) ToggleLock(ctx context.Context, id string) error {
	return s.mutate(ctx, "toggle lock", func(t domain.ContentTree) (domain.ContentTree, error) {
		return content.ToggleLock(t, id)
	})
}

func (s *EditorSession) ToggleCollapse(ctx context.Context, id string) error {
	return s.mutate(ctx, "toggle collapse", func(t domain.ContentTree) (domain.ContentTree, error) {
		return content.ToggleCollapse(t, id)
	})
}

// ImportSections appends sections built elsewhere, e.g. from markdown.
func (s *EditorSession) ImportSections(ctx context.Context, sections []domain.Section) error {
	return s.mutate(ctx, fmt.Sprintf("import %d sections", len(sections)), func(t domain.ContentTree) (domain.ContentTree, error) {
		return content.AppendSections(t, sections)
	})
}

// ── Blocks ─────────────────────────────────────────────────

// AddBlock inserts a default block, seeded by the block type's plugin when
// one is registered.
func (s *EditorSession) AddBlock(ctx context.Context, sectionID string, t domain.BlockType, index *int, opts domain.BlockOptions) (string, error) {
	b, err := content.NewBlock(t, opts)
	if err != nil {
		return "", err
	}
	b, err = s.plugins.Seed(ctx, s.reportID, sectionID, b)
	if err != nil {
		return "", err
	}
	if err := s.InsertBlock(ctx, sectionID, b, index); err != nil {
		return "", err
	}
	return b.ID, nil
}

// InsertBlock inserts a block built by the caller.
func (s *EditorSession) InsertBlock(ctx context.Context, sectionID string, b domain.Block, index *int) error {
	return s.mutate(ctx, "add "+string(b.Type), func(t domain.ContentTree) (domain.ContentTree, error) {
		return content.InsertBlock(t, sectionID, b, index)
	})
}

func (s *EditorSession) UpdateBlock(ctx context.Context, sectionID, blockID string, patch content.BlockPatch) error {
	return s.mutate(ctx, "edit block", func(t domain.ContentTree) (domain.ContentTree, error) {
		return content.UpdateBlock(t, sectionID, blockID, patch)
	})
}

// ReplacePayload swaps a block's payload, as a data refresh does.
func (s *EditorSession) ReplacePayload(ctx context.Context, sectionID, blockID string, p domain.Payload) error {
	return s.mutate(ctx, "refresh block", func(t domain.ContentTree) (domain.ContentTree, error) {
		return content.ReplacePayload(t, sectionID, blockID, p)
	})
}

func (s *EditorSession) DeleteBlock(ctx context.Context, sectionID, blockID string) error {
	var removed domain.Block
	err := s.mutate(ctx, "delete block", func(t domain.ContentTree) (domain.ContentTree, error) {
		if _, b, ok := content.FindBlock(t, blockID); ok {
			removed = b
		}
		return content.DeleteBlock(t, sectionID, blockID)
	})
	if err != nil {
		return err
	}
	s.notifyDeleted(ctx, removed)
	return nil
}

func (s *EditorSession) DuplicateBlock(ctx context.Context, sectionID, blockID string) (string, error) {
	var dupID string
	err := s.mutate(ctx, "duplicate block", func(t domain.ContentTree) (domain.ContentTree, error) {
		next, newID, err := content.DuplicateBlock(t, sectionID, blockID)
		dupID = newID
		return next, err
	})
	return dupID, err
}

func (s *EditorSession) MoveBlock(ctx context.Context, fromSectionID, blockID, toSectionID string, toIndex int) error {
	return s.mutate(ctx, "move block", func(t domain.ContentTree) (domain.ContentTree, error) {
		return content.MoveBlock(t, fromSectionID, blockID, toSectionID, toIndex)
	})
}

// notifyDeleted tells the block's plugin about the removal. Plugin failures
// are logged; the deletion itself already happened.
func (s *EditorSession) notifyDeleted(ctx context.Context, b domain.Block) {
	if b.ID == "" {
		return
	}
	if err := s.plugins.OnDelete(ctx, s.reportID, b); err != nil {
		s.log.Warn().Err(err).Str("block", b.ID).Msg("plugin delete hook failed")
	}
}
