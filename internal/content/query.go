package content

import "reports/internal/domain"

// FindSection returns a copy of the section with the given id.
func FindSection(tree domain.ContentTree, id string) (domain.Section, bool) {
	ref, ok := locate(&tree, id)
	if !ok {
		return domain.Section{}, false
	}
	return ref.section().Clone(), true
}

// FindBlock returns a copy of the block and the id of the section owning it.
func FindBlock(tree domain.ContentTree, blockID string) (string, domain.Block, bool) {
	var (
		sectionID string
		found     domain.Block
		ok        bool
	)
	tree.Walk(func(s *domain.Section, _ int) bool {
		if i := blockIndex(s, blockID); i >= 0 {
			sectionID, found, ok = s.ID, s.Blocks[i].Clone(), true
			return false
		}
		return true
	})
	return sectionID, found, ok
}

// SectionPath returns the ids from the root down to id, inclusive.
func SectionPath(tree domain.ContentTree, id string) []string {
	var path []string
	var walk func(list []domain.Section) bool
	walk = func(list []domain.Section) bool {
		for _, s := range list {
			path = append(path, s.ID)
			if s.ID == id || walk(s.Children) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}
	if !walk(tree.Sections) {
		return nil
	}
	return path
}

// Walk visits every section in document order without exposing the tree
// for modification.
func Walk(tree domain.ContentTree, fn func(s domain.Section, depth int) bool) {
	tree.Walk(func(s *domain.Section, depth int) bool {
		return fn(*s, depth)
	})
}

// CountBlocks returns the number of blocks in the whole tree.
func CountBlocks(tree domain.ContentTree) int {
	n := 0
	tree.Walk(func(s *domain.Section, _ int) bool {
		n += len(s.Blocks)
		return true
	})
	return n
}

// CountSections returns the number of sections at every depth.
func CountSections(tree domain.ContentTree) int {
	n := 0
	tree.Walk(func(*domain.Section, int) bool {
		n++
		return true
	})
	return n
}
