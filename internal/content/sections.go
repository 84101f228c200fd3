package content

import (
	"time"

	"reports/internal/domain"
)

// SectionSpec describes a section to create. Zero values take defaults:
// level one below the parent (1 at the root) and status manual.
type SectionSpec struct {
	Title    string                  `json:"title"`
	Level    int                     `json:"level,omitempty"`
	Status   domain.SectionStatus    `json:"status,omitempty"`
	Icon     string                  `json:"icon,omitempty"`
	IsLocked bool                    `json:"isLocked,omitempty"`
	Metadata *domain.SectionMetadata `json:"metadata,omitempty"`
}

// SectionPatch lists the fields to change; nil fields are left alone.
type SectionPatch struct {
	Title       *string                 `json:"title,omitempty"`
	Level       *int                    `json:"level,omitempty"`
	Status      *domain.SectionStatus   `json:"status,omitempty"`
	Icon        *string                 `json:"icon,omitempty"`
	IsLocked    *bool                   `json:"isLocked,omitempty"`
	IsCollapsed *bool                   `json:"isCollapsed,omitempty"`
	Metadata    *domain.SectionMetadata `json:"metadata,omitempty"`
}

// lockExempt reports whether the patch only touches the lock and collapse
// flags, which stay editable on a locked section.
func (p SectionPatch) lockExempt() bool {
	return p.Title == nil && p.Level == nil && p.Status == nil && p.Icon == nil && p.Metadata == nil
}

func checkLevel(level int) error {
	if level < domain.MinLevel || level > domain.MaxLevel {
		return &domain.BoundsError{What: "section level", Value: level, Min: domain.MinLevel, Max: domain.MaxLevel}
	}
	return nil
}

func checkStatus(s domain.SectionStatus) error {
	if !s.Valid() {
		return &domain.TypeMismatchError{Field: "status", Reason: "unknown section status " + string(s)}
	}
	return nil
}

// AddSection appends a new section to the roots, or to parentID's children
// when parentID is not empty.
func AddSection(tree domain.ContentTree, spec SectionSpec, parentID string) (domain.ContentTree, string, error) {
	next := tree.Clone()
	siblings := &next.Sections
	level := spec.Level

	if parentID != "" {
		ref, err := mustLocate(&next, parentID)
		if err != nil {
			return tree, "", err
		}
		parent := ref.section()
		if parent.IsLocked {
			return tree, "", &domain.LockedError{SectionID: parentID}
		}
		if level == 0 {
			level = min(parent.Level+1, domain.MaxLevel)
		}
		siblings = &parent.Children
	}
	if level == 0 {
		level = domain.MinLevel
	}
	if err := checkLevel(level); err != nil {
		return tree, "", err
	}
	status := spec.Status
	if status == "" {
		status = domain.StatusManual
	}
	if err := checkStatus(status); err != nil {
		return tree, "", err
	}

	now := Now()
	s := domain.Section{
		ID:        NewID(),
		Title:     spec.Title,
		Level:     level,
		Status:    status,
		IsLocked:  spec.IsLocked,
		Icon:      spec.Icon,
		Blocks:    []domain.Block{},
		Children:  []domain.Section{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if spec.Metadata != nil {
		s.Metadata = &domain.SectionMetadata{
			IsComplete:  spec.Metadata.IsComplete,
			HasComments: spec.Metadata.HasComments,
		}
		if spec.Metadata.AIConfidence != nil {
			c := *spec.Metadata.AIConfidence
			s.Metadata.AIConfidence = &c
		}
	}
	*siblings = append(*siblings, s)
	return next, s.ID, nil
}

// UpdateSection merges patch into the section. A locked section only
// accepts patches that touch nothing but the lock and collapse flags. Such
// a patch is still recorded in history.
func UpdateSection(tree domain.ContentTree, id string, patch SectionPatch) (domain.ContentTree, error) {
	next := tree.Clone()
	ref, err := mustLocate(&next, id)
	if err != nil {
		return tree, err
	}
	s := ref.section()
	if s.IsLocked && !patch.lockExempt() {
		return tree, &domain.LockedError{SectionID: id}
	}
	if patch.Level != nil {
		if err := checkLevel(*patch.Level); err != nil {
			return tree, err
		}
		s.Level = *patch.Level
	}
	if patch.Status != nil {
		if err := checkStatus(*patch.Status); err != nil {
			return tree, err
		}
		s.Status = *patch.Status
	}
	if patch.Title != nil {
		s.Title = *patch.Title
	}
	if patch.Icon != nil {
		s.Icon = *patch.Icon
	}
	if patch.Metadata != nil {
		m := *patch.Metadata
		if m.AIConfidence != nil {
			c := *m.AIConfidence
			m.AIConfidence = &c
		}
		s.Metadata = &m
	}
	if patch.IsLocked != nil {
		s.IsLocked = *patch.IsLocked
	}
	if patch.IsCollapsed != nil {
		s.IsCollapsed = *patch.IsCollapsed
	}
	if (patch.Title != nil || patch.Icon != nil || patch.Level != nil) && patch.Status == nil {
		markEdited(s)
	}
	s.UpdatedAt = Now()
	return next, nil
}

// DeleteSection removes the section and its whole subtree. It fails when the
// section, one of its descendants or its parent is locked.
func DeleteSection(tree domain.ContentTree, id string) (domain.ContentTree, error) {
	next := tree.Clone()
	ref, err := mustLocate(&next, id)
	if err != nil {
		return tree, err
	}
	if err := checkSubtreeUnlocked(*ref.section()); err != nil {
		return tree, err
	}
	if ref.parent != nil && ref.parent.IsLocked {
		return tree, &domain.LockedError{SectionID: ref.parent.ID}
	}
	*ref.siblings = removeAt(*ref.siblings, ref.index)
	return next, nil
}

func checkSubtreeUnlocked(s domain.Section) error {
	if s.IsLocked {
		return &domain.LockedError{SectionID: s.ID}
	}
	for _, c := range s.Children {
		if err := checkSubtreeUnlocked(c); err != nil {
			return err
		}
	}
	return nil
}

// DuplicateSection deep-copies the section with fresh ids for it, its
// blocks and all descendants, and inserts the copy right after the source.
func DuplicateSection(tree domain.ContentTree, id string) (domain.ContentTree, string, error) {
	next := tree.Clone()
	ref, err := mustLocate(&next, id)
	if err != nil {
		return tree, "", err
	}
	if ref.parent != nil && ref.parent.IsLocked {
		return tree, "", &domain.LockedError{SectionID: ref.parent.ID}
	}
	dup := reidentify(ref.section().Clone(), Now())
	*ref.siblings = insertAt(*ref.siblings, ref.index+1, dup)
	return next, dup.ID, nil
}

func reidentify(s domain.Section, now time.Time) domain.Section {
	s.ID = NewID()
	s.CreatedAt = now
	s.UpdatedAt = now
	for i := range s.Blocks {
		s.Blocks[i].ID = NewID()
		s.Blocks[i].CreatedAt = now
		s.Blocks[i].UpdatedAt = now
	}
	for i := range s.Children {
		s.Children[i] = reidentify(s.Children[i], now)
	}
	return s
}

// ReorderSections moves movedID to targetID's position in their shared
// sibling list. Sections after the vacated slot shift up, so the moved
// section ends at the target's original index.
func ReorderSections(tree domain.ContentTree, movedID, targetID string) (domain.ContentTree, error) {
	next := tree.Clone()
	moved, err := mustLocate(&next, movedID)
	if err != nil {
		return tree, err
	}
	target, err := mustLocate(&next, targetID)
	if err != nil {
		return tree, err
	}
	if movedID == targetID {
		return tree, nil
	}
	if moved.siblings != target.siblings {
		return tree, &domain.NotFoundError{Kind: "sibling section", ID: targetID}
	}
	if moved.section().IsLocked {
		return tree, &domain.LockedError{SectionID: movedID}
	}
	if moved.parent != nil && moved.parent.IsLocked {
		return tree, &domain.LockedError{SectionID: moved.parent.ID}
	}
	s := *moved.section()
	list := removeAt(*moved.siblings, moved.index)
	*moved.siblings = insertAt(list, target.index, s)
	return next, nil
}

// ToggleLock flips IsLocked. It is allowed on locked sections.
func ToggleLock(tree domain.ContentTree, id string) (domain.ContentTree, error) {
	next := tree.Clone()
	ref, err := mustLocate(&next, id)
	if err != nil {
		return tree, err
	}
	s := ref.section()
	s.IsLocked = !s.IsLocked
	s.UpdatedAt = Now()
	return next, nil
}

// ToggleCollapse flips IsCollapsed. Collapse state is presentation only, so
// it also works on a locked section and leaves its content untouched.
func ToggleCollapse(tree domain.ContentTree, id string) (domain.ContentTree, error) {
	next := tree.Clone()
	ref, err := mustLocate(&next, id)
	if err != nil {
		return tree, err
	}
	s := ref.section()
	s.IsCollapsed = !s.IsCollapsed
	return next, nil
}

// AppendSections adds already built sections after the existing roots, as
// an import does. The combined tree must pass Validate.
func AppendSections(tree domain.ContentTree, sections []domain.Section) (domain.ContentTree, error) {
	next := tree.Clone()
	for _, s := range sections {
		next.Sections = append(next.Sections, s.Clone())
	}
	if err := Validate(next); err != nil {
		return tree, err
	}
	return next, nil
}
