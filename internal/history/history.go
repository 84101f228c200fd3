// Package history keeps bounded undo/redo stacks of whole-tree snapshots.
// A Manager is not safe for concurrent use; the editor session serialises
// access to it.
package history

import (
	"time"

	"reports/internal/domain"
)

const DefaultLimit = 100

// Entry is the tree as it was before a labelled action.
type Entry struct {
	Label      string             `json:"label"`
	Tree       domain.ContentTree `json:"-"`
	RecordedAt time.Time          `json:"recordedAt"`
}

type Manager struct {
	limit  int
	past   []Entry // most recent last
	future []Entry // next redo last
	now    func() time.Time
}

// New returns a Manager keeping at most limit undo steps. A limit of zero
// or less selects DefaultLimit.
func New(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit, now: time.Now}
}

// Record pushes the pre-mutation tree and discards the redo stack. The
// oldest step is dropped once the limit is reached.
func (m *Manager) Record(label string, before domain.ContentTree) {
	m.past = append(m.past, Entry{Label: label, Tree: before.Clone(), RecordedAt: m.now()})
	if over := len(m.past) - m.limit; over > 0 {
		m.past = append([]Entry(nil), m.past[over:]...)
	}
	m.future = nil
}

// Undo returns the tree before the last recorded action and moves current
// onto the redo stack. With nothing to undo it returns current and false.
func (m *Manager) Undo(current domain.ContentTree) (domain.ContentTree, bool) {
	if len(m.past) == 0 {
		return current, false
	}
	top := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.future = append(m.future, Entry{Label: top.Label, Tree: current.Clone(), RecordedAt: m.now()})
	return top.Tree.Clone(), true
}

// Redo is the mirror of Undo.
func (m *Manager) Redo(current domain.ContentTree) (domain.ContentTree, bool) {
	if len(m.future) == 0 {
		return current, false
	}
	top := m.future[len(m.future)-1]
	m.future = m.future[:len(m.future)-1]
	m.past = append(m.past, Entry{Label: top.Label, Tree: current.Clone(), RecordedAt: m.now()})
	if over := len(m.past) - m.limit; over > 0 {
		m.past = append([]Entry(nil), m.past[over:]...)
	}
	return top.Tree.Clone(), true
}

func (m *Manager) CanUndo() bool { return len(m.past) > 0 }
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (m *Manager) Depth() (past, future int) {
	return len(m.past), len(m.future)
}

// Labels returns the undoable action labels, newest first.
func (m *Manager) Labels() []string {
	out := make([]string, 0, len(m.past))
	for i := len(m.past) - 1; i >= 0; i-- {
		out = append(out, m.past[i].Label)
	}
	return out
}

// NextUndo and NextRedo name the action the next call would revert or replay.
func (m *Manager) NextUndo() string {
	if len(m.past) == 0 {
		return ""
	}
	return m.past[len(m.past)-1].Label
}

func (m *Manager) NextRedo() string {
	if len(m.future) == 0 {
		return ""
	}
	return m.future[len(m.future)-1].Label
}

func (m *Manager) Limit() int { return m.limit }

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.past = nil
	m.future = nil
}
