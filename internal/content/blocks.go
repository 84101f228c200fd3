package content

import (
	"reports/internal/domain"
)

// BlockPatch maps payload field names (as they appear in JSON) to new values.
type BlockPatch map[string]any

// editableSection locates id and rejects it when locked.
func editableSection(t *domain.ContentTree, id string) (*domain.Section, error) {
	ref, err := mustLocate(t, id)
	if err != nil {
		return nil, err
	}
	s := ref.section()
	if s.IsLocked {
		return nil, &domain.LockedError{SectionID: id}
	}
	return s, nil
}

func findBlock(s *domain.Section, blockID string) (int, error) {
	i := blockIndex(s, blockID)
	if i < 0 {
		return -1, &domain.NotFoundError{Kind: "block", ID: blockID}
	}
	return i, nil
}

// NewBlock builds a default block of type t stamped with NewID and Now.
func NewBlock(t domain.BlockType, opts domain.BlockOptions) (domain.Block, error) {
	b, err := domain.NewDefaultBlock(t, opts)
	if err != nil {
		return domain.Block{}, err
	}
	b.ID = NewID()
	now := Now()
	b.CreatedAt, b.UpdatedAt = now, now
	return b, nil
}

// AddBlock inserts a default block of type t. index nil means append;
// any other value is clamped to the block list.
func AddBlock(tree domain.ContentTree, sectionID string, t domain.BlockType, index *int, opts domain.BlockOptions) (domain.ContentTree, string, error) {
	b, err := NewBlock(t, opts)
	if err != nil {
		return tree, "", err
	}
	next, err := InsertBlock(tree, sectionID, b, index)
	if err != nil {
		return tree, "", err
	}
	return next, b.ID, nil
}

// InsertBlock inserts a caller-built block. The block must be valid and its
// id must not already be used in the tree.
func InsertBlock(tree domain.ContentTree, sectionID string, b domain.Block, index *int) (domain.ContentTree, error) {
	if err := b.Validate(); err != nil {
		return tree, err
	}
	if b.ID == "" {
		return tree, &domain.TypeMismatchError{BlockType: b.Type, Field: "id", Reason: "empty block id"}
	}
	if _, _, ok := FindBlock(tree, b.ID); ok {
		return tree, &domain.TypeMismatchError{BlockType: b.Type, Field: "id", Reason: "duplicate block id " + b.ID}
	}

	next := tree.Clone()
	s, err := editableSection(&next, sectionID)
	if err != nil {
		return tree, err
	}
	at := len(s.Blocks)
	if index != nil {
		at = clamp(*index, 0, len(s.Blocks))
	}
	s.Blocks = insertAt(s.Blocks, at, b.Clone())
	return next, nil
}

// UpdateBlock merges patch into the block's payload. Keys outside the
// variant's field set fail with a TypeMismatchError.
func UpdateBlock(tree domain.ContentTree, sectionID, blockID string, patch BlockPatch) (domain.ContentTree, error) {
	next := tree.Clone()
	s, err := editableSection(&next, sectionID)
	if err != nil {
		return tree, err
	}
	i, err := findBlock(s, blockID)
	if err != nil {
		return tree, err
	}
	payload, err := domain.ApplyPayloadPatch(s.Blocks[i].Payload, patch)
	if err != nil {
		return tree, err
	}
	s.Blocks[i].Payload = payload
	s.Blocks[i].UpdatedAt = Now()
	markEdited(s)
	return next, nil
}

// ReplacePayload swaps the whole payload, as a data source refresh does.
// The payload must belong to the block's type.
func ReplacePayload(tree domain.ContentTree, sectionID, blockID string, p domain.Payload) (domain.ContentTree, error) {
	next := tree.Clone()
	s, err := editableSection(&next, sectionID)
	if err != nil {
		return tree, err
	}
	i, err := findBlock(s, blockID)
	if err != nil {
		return tree, err
	}
	b := s.Blocks[i]
	b.Payload = p
	if err := b.Validate(); err != nil {
		return tree, err
	}
	b.UpdatedAt = Now()
	s.Blocks[i] = b.Clone()
	markEdited(s)
	return next, nil
}

func DeleteBlock(tree domain.ContentTree, sectionID, blockID string) (domain.ContentTree, error) {
	next := tree.Clone()
	s, err := editableSection(&next, sectionID)
	if err != nil {
		return tree, err
	}
	i, err := findBlock(s, blockID)
	if err != nil {
		return tree, err
	}
	s.Blocks = removeAt(s.Blocks, i)
	return next, nil
}

// DuplicateBlock copies the block under a new id right after the source.
func DuplicateBlock(tree domain.ContentTree, sectionID, blockID string) (domain.ContentTree, string, error) {
	next := tree.Clone()
	s, err := editableSection(&next, sectionID)
	if err != nil {
		return tree, "", err
	}
	i, err := findBlock(s, blockID)
	if err != nil {
		return tree, "", err
	}
	dup := s.Blocks[i].Clone()
	dup.ID = NewID()
	now := Now()
	dup.CreatedAt, dup.UpdatedAt = now, now
	s.Blocks = insertAt(s.Blocks, i+1, dup)
	return next, dup.ID, nil
}

// MoveBlock removes the block from its section and inserts it into the
// target section at toIndex, clamped to [0, len]. The result depends only
// on the final position, so repeating a move changes nothing.
func MoveBlock(tree domain.ContentTree, fromSectionID, blockID, toSectionID string, toIndex int) (domain.ContentTree, error) {
	next := tree.Clone()
	from, err := editableSection(&next, fromSectionID)
	if err != nil {
		return tree, err
	}
	to, err := editableSection(&next, toSectionID)
	if err != nil {
		return tree, err
	}
	i, err := findBlock(from, blockID)
	if err != nil {
		return tree, err
	}
	b := from.Blocks[i]
	from.Blocks = removeAt(from.Blocks, i)
	to.Blocks = insertAt(to.Blocks, clamp(toIndex, 0, len(to.Blocks)), b)
	return next, nil
}
