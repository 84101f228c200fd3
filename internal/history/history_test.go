package history_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/content"
	"reports/internal/domain"
	"reports/internal/history"
)

func TestUndoRedo_InverseLaw(t *testing.T) {
	h := history.New(10)
	t0, id, err := content.AddSection(domain.ContentTree{}, content.SectionSpec{Title: "Intro"}, "")
	require.NoError(t, err)

	t1, _, err := content.AddBlock(t0, id, domain.BlockTypeKPI, nil, domain.BlockOptions{})
	require.NoError(t, err)
	h.Record("add block", t0)

	undone, ok := h.Undo(t1)
	require.True(t, ok)
	assert.Equal(t, t0, undone)

	redone, ok := h.Redo(undone)
	require.True(t, ok)
	assert.Equal(t, t1, redone)
}

func TestUndo_EmptyIsNoop(t *testing.T) {
	h := history.New(0)
	tree := domain.ContentTree{Sections: []domain.Section{{ID: "s1", Title: "x", Level: 1}}}

	got, ok := h.Undo(tree)
	assert.False(t, ok)
	assert.Equal(t, tree, got)

	got, ok = h.Redo(tree)
	assert.False(t, ok)
	assert.Equal(t, tree, got)
	assert.Equal(t, history.DefaultLimit, h.Limit())
}

func TestRecord_ClearsFuture(t *testing.T) {
	h := history.New(5)
	a := domain.ContentTree{}
	b := domain.ContentTree{Sections: []domain.Section{{ID: "b", Level: 1}}}
	c := domain.ContentTree{Sections: []domain.Section{{ID: "c", Level: 1}}}

	h.Record("first", a)
	_, ok := h.Undo(b)
	require.True(t, ok)
	require.True(t, h.CanRedo())

	h.Record("second", a)
	assert.False(t, h.CanRedo())
	got, ok := h.Redo(c)
	assert.False(t, ok)
	assert.Equal(t, c, got)
}

func TestBoundedHistory(t *testing.T) {
	const limit = 5
	h := history.New(limit)
	tree := domain.ContentTree{}
	for i := 0; i < limit+3; i++ {
		next, _, err := content.AddSection(tree, content.SectionSpec{Title: fmt.Sprintf("s%d", i)}, "")
		require.NoError(t, err)
		h.Record(fmt.Sprintf("add s%d", i), tree)
		tree = next
	}

	past, future := h.Depth()
	assert.Equal(t, limit, past)
	assert.Zero(t, future)

	undos := 0
	for {
		var ok bool
		tree, ok = h.Undo(tree)
		if !ok {
			break
		}
		undos++
	}
	assert.Equal(t, limit, undos)
	assert.Len(t, tree.Sections, 3, "the three oldest steps fell off the stack")
}

func TestLabels_NewestFirst(t *testing.T) {
	h := history.New(3)
	for _, l := range []string{"a", "b", "c", "d"} {
		h.Record(l, domain.ContentTree{})
	}
	assert.Equal(t, []string{"d", "c", "b"}, h.Labels())
	assert.Equal(t, "d", h.NextUndo())

	h.Undo(domain.ContentTree{})
	assert.Equal(t, "d", h.NextRedo())
	assert.Equal(t, "c", h.NextUndo())

	h.Clear()
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
	assert.Empty(t, h.Labels())
}

func TestRecord_SnapshotIsIsolated(t *testing.T) {
	h := history.New(3)
	tree := domain.ContentTree{Sections: []domain.Section{{ID: "s1", Title: "before", Level: 1}}}
	h.Record("rename", tree)
	tree.Sections[0].Title = "mutated in place"

	got, ok := h.Undo(domain.ContentTree{})
	require.True(t, ok)
	assert.Equal(t, "before", got.Sections[0].Title)
}
