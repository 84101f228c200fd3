package content_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reports/internal/content"
	"reports/internal/domain"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// deterministic makes ids and timestamps predictable for the test.
func deterministic(t *testing.T) {
	t.Helper()
	prevNow, prevID := content.Now, content.NewID
	seq := 0
	content.Now = func() time.Time { return fixedNow }
	content.NewID = func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	t.Cleanup(func() {
		content.Now, content.NewID = prevNow, prevID
	})
}

func addSection(t *testing.T, tree domain.ContentTree, title, parentID string) (domain.ContentTree, string) {
	t.Helper()
	next, id, err := content.AddSection(tree, content.SectionSpec{Title: title}, parentID)
	require.NoError(t, err)
	return next, id
}

func addBlock(t *testing.T, tree domain.ContentTree, sectionID string, bt domain.BlockType) (domain.ContentTree, string) {
	t.Helper()
	next, id, err := content.AddBlock(tree, sectionID, bt, nil, domain.BlockOptions{})
	require.NoError(t, err)
	return next, id
}

func section(t *testing.T, tree domain.ContentTree, id string) domain.Section {
	t.Helper()
	s, ok := content.FindSection(tree, id)
	require.True(t, ok, "section %s not found", id)
	return s
}

func blockIDs(s domain.Section) []string {
	ids := make([]string, len(s.Blocks))
	for i, b := range s.Blocks {
		ids[i] = b.ID
	}
	return ids
}

func ptr[T any](v T) *T { return &v }
