// Package content holds the operations that change a ContentTree. Every
// function takes a tree by value and returns a new one; the input is never
// modified. On failure the input tree is returned unchanged together with
// one of the typed errors from the domain package.
package content

import (
	"time"

	"github.com/google/uuid"

	"reports/internal/domain"
)

// Now and NewID are swapped out by tests that need deterministic output.
var (
	Now   = func() time.Time { return time.Now().UTC() }
	NewID = func() string { return uuid.New().String() }
)

// sectionRef addresses a section inside a tree the caller owns.
type sectionRef struct {
	siblings *[]domain.Section
	index    int
	parent   *domain.Section // nil for roots
	depth    int
}

func (r sectionRef) section() *domain.Section {
	return &(*r.siblings)[r.index]
}

func locate(t *domain.ContentTree, id string) (sectionRef, bool) {
	return locateIn(&t.Sections, nil, id, 0)
}

func locateIn(list *[]domain.Section, parent *domain.Section, id string, depth int) (sectionRef, bool) {
	for i := range *list {
		s := &(*list)[i]
		if s.ID == id {
			return sectionRef{siblings: list, index: i, parent: parent, depth: depth}, true
		}
		if ref, ok := locateIn(&s.Children, s, id, depth+1); ok {
			return ref, true
		}
	}
	return sectionRef{}, false
}

// mustLocate finds id or returns a NotFoundError.
func mustLocate(t *domain.ContentTree, id string) (sectionRef, error) {
	ref, ok := locate(t, id)
	if !ok {
		return sectionRef{}, &domain.NotFoundError{Kind: "section", ID: id}
	}
	return ref, nil
}

func blockIndex(s *domain.Section, blockID string) int {
	for i := range s.Blocks {
		if s.Blocks[i].ID == blockID {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func insertAt[T any](list []T, index int, v T) []T {
	list = append(list, v)
	copy(list[index+1:], list[index:])
	list[index] = v
	return list
}

func removeAt[T any](list []T, index int) []T {
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...)
}

// markEdited records that a generated section's content was changed by hand.
func markEdited(s *domain.Section) {
	if s.Status == domain.StatusGenerated {
		s.Status = domain.StatusEdited
	}
}
