package domain

// ContentTree is the whole document: the ordered root sections. It is the
// unit that gets versioned and persisted.
type ContentTree struct {
	Sections []Section `json:"sections"`
}

// Clone returns a deep copy of the tree.
func (t ContentTree) Clone() ContentTree {
	if t.Sections == nil {
		return ContentTree{}
	}
	out := ContentTree{Sections: make([]Section, len(t.Sections))}
	for i, s := range t.Sections {
		out.Sections[i] = s.Clone()
	}
	return out
}

// WalkFunc is called for every section in document order. depth is 0 for
// roots. Returning false stops the walk.
type WalkFunc func(s *Section, depth int) bool

// Walk visits every section depth first, parents before children. The
// callback receives a pointer into t, so Walk is only safe on a tree the
// caller owns.
func (t *ContentTree) Walk(fn WalkFunc) {
	walkSections(t.Sections, 0, fn)
}

func walkSections(list []Section, depth int, fn WalkFunc) bool {
	for i := range list {
		if !fn(&list[i], depth) {
			return false
		}
		if !walkSections(list[i].Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the tree has no sections.
func (t ContentTree) IsEmpty() bool { return len(t.Sections) == 0 }
