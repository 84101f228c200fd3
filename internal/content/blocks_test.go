package content_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/content"
	"reports/internal/domain"
)

// Empty tree, one section, one paragraph with empty content.
func TestScenario_IntroWithParagraph(t *testing.T) {
	deterministic(t)
	tree, id := addSection(t, domain.ContentTree{}, "Intro", "")
	require.Len(t, tree.Sections, 1)
	assert.Equal(t, "Intro", tree.Sections[0].Title)
	assert.Empty(t, tree.Sections[0].Blocks)

	tree, blockID := addBlock(t, tree, id, domain.BlockTypeParagraph)
	s := section(t, tree, id)
	require.Len(t, s.Blocks, 1)
	assert.Equal(t, blockID, s.Blocks[0].ID)
	assert.Equal(t, domain.BlockTypeParagraph, s.Blocks[0].Type)
	assert.Equal(t, "", s.Blocks[0].Payload.(domain.ParagraphPayload).Content)
}

func TestScenario_AddThenDeleteRestoresTree(t *testing.T) {
	deterministic(t)
	tree, id := addSection(t, domain.ContentTree{}, "Intro", "")

	withHeading, blockID, err := content.AddBlock(tree, id, domain.BlockTypeHeading, nil, domain.BlockOptions{HeadingLevel: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, section(t, withHeading, id).Blocks[0].Payload.(domain.HeadingPayload).Level)

	back, err := content.DeleteBlock(withHeading, id, blockID)
	require.NoError(t, err)
	assert.Equal(t, tree, back)
}

// A and B hold one block each; moving A's block to B at 0 puts it first.
func TestScenario_MoveAcrossSections(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, b := addSection(t, tree, "B", "")
	tree, block1 := addBlock(t, tree, a, domain.BlockTypeParagraph)
	tree, block2 := addBlock(t, tree, b, domain.BlockTypeQuote)

	tree, err := content.MoveBlock(tree, a, block1, b, 0)
	require.NoError(t, err)
	assert.Empty(t, section(t, tree, a).Blocks)
	assert.Equal(t, []string{block1, block2}, blockIDs(section(t, tree, b)))
}

func TestScenario_KPIRejectsTableField(t *testing.T) {
	deterministic(t)
	tree, id := addSection(t, domain.ContentTree{}, "Metrics", "")
	tree, kpi := addBlock(t, tree, id, domain.BlockTypeKPI)

	got, err := content.UpdateBlock(tree, id, kpi, content.BlockPatch{"rows": [][]string{{"1"}}})
	var mismatch *domain.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "rows", mismatch.Field)
	assert.Equal(t, tree, got)
}

func TestMoveBlock_Idempotent(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, b := addSection(t, tree, "B", "")
	tree, x := addBlock(t, tree, a, domain.BlockTypeParagraph)
	tree, _ = addBlock(t, tree, a, domain.BlockTypeParagraph)
	tree, _ = addBlock(t, tree, b, domain.BlockTypeParagraph)
	tree, _ = addBlock(t, tree, b, domain.BlockTypeParagraph)

	cases := []struct {
		name  string
		to    string
		index int
	}{
		{"same section", a, 1},
		{"other section middle", b, 1},
		{"clamped high", b, 99},
		{"clamped low", b, -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			once, err := content.MoveBlock(tree, a, x, tc.to, tc.index)
			require.NoError(t, err)
			twice, err := content.MoveBlock(once, tc.to, x, tc.to, tc.index)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestMoveBlock_ClampsIndex(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, b := addSection(t, tree, "B", "")
	tree, x := addBlock(t, tree, a, domain.BlockTypeParagraph)
	tree, y := addBlock(t, tree, b, domain.BlockTypeParagraph)

	moved, err := content.MoveBlock(tree, a, x, b, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{y, x}, blockIDs(section(t, moved, b)))
}

func TestMoveBlock_NotFound(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, x := addBlock(t, tree, a, domain.BlockTypeParagraph)

	_, err := content.MoveBlock(tree, a, x, "nowhere", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = content.MoveBlock(tree, a, "ghost", a, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddBlock_IndexClamped(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, first := addBlock(t, tree, a, domain.BlockTypeParagraph)

	tree, head, err := content.AddBlock(tree, a, domain.BlockTypeDivider, ptr(-3), domain.BlockOptions{})
	require.NoError(t, err)
	tree, tail, err := content.AddBlock(tree, a, domain.BlockTypePageBreak, ptr(100), domain.BlockOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{head, first, tail}, blockIDs(section(t, tree, a)))
}

func TestUpdateBlock_Paragraph(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, p := addBlock(t, tree, a, domain.BlockTypeParagraph)

	tree, err := content.UpdateBlock(tree, a, p, content.BlockPatch{
		"content": "Revenue grew 12%",
		"format":  map[string]any{"bold": true, "align": "center"},
	})
	require.NoError(t, err)
	got := section(t, tree, a).Blocks[0].Payload.(domain.ParagraphPayload)
	assert.Equal(t, "Revenue grew 12%", got.Content)
	require.NotNil(t, got.Format)
	assert.True(t, got.Format.Bold)
	assert.Equal(t, domain.AlignCenter, got.Format.Align)
}

func TestUpdateBlock_GeneratedSectionBecomesEdited(t *testing.T) {
	deterministic(t)
	tree, a, err := content.AddSection(domain.ContentTree{}, content.SectionSpec{Title: "AI", Status: domain.StatusGenerated}, "")
	require.NoError(t, err)
	tree, p := addBlock(t, tree, a, domain.BlockTypeParagraph)
	assert.Equal(t, domain.StatusGenerated, section(t, tree, a).Status)

	tree, err = content.UpdateBlock(tree, a, p, content.BlockPatch{"content": "tweaked"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEdited, section(t, tree, a).Status)
}

func TestReplacePayload(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, c := addBlock(t, tree, a, domain.BlockTypeChart)

	fresh := domain.ChartPayload{
		ChartType: domain.ChartLine,
		Title:     "Budget vs actual",
		Data: domain.ChartData{
			Labels: []string{"Jan", "Feb"},
			Series: []domain.ChartSeries{{Name: "Actual", Values: []float64{10, 12}}},
		},
	}
	tree, err := content.ReplacePayload(tree, a, c, fresh)
	require.NoError(t, err)
	assert.Equal(t, fresh, section(t, tree, a).Blocks[0].Payload)

	got, err := content.ReplacePayload(tree, a, c, domain.QuotePayload{Content: "no"})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
	assert.Equal(t, tree, got)
}

func TestReplacePayload_RejectsNonFiniteValues(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, k := addBlock(t, tree, a, domain.BlockTypeKPI)

	got, err := content.ReplacePayload(tree, a, k, domain.KPIPayload{Format: domain.KPIFormatNumber, Value: math.NaN()})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
	assert.Equal(t, tree, got)

	// The tree stays encodable, so it can still be saved.
	_, err = json.Marshal(got)
	assert.NoError(t, err)
}

func TestDuplicateBlock_InsertedAfterSource(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, x := addBlock(t, tree, a, domain.BlockTypeTable)
	tree, y := addBlock(t, tree, a, domain.BlockTypeParagraph)

	tree, dup, err := content.DuplicateBlock(tree, a, x)
	require.NoError(t, err)
	s := section(t, tree, a)
	assert.Equal(t, []string{x, dup, y}, blockIDs(s))
	assert.Equal(t, s.Blocks[0].Payload, s.Blocks[1].Payload)
}

func TestInsertBlock_RejectsDuplicateID(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, x := addBlock(t, tree, a, domain.BlockTypeParagraph)
	_, b, ok := content.FindBlock(tree, x)
	require.True(t, ok)

	_, err := content.InsertBlock(tree, a, b, nil)
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

// Every block mutation on a locked section fails and leaves the tree as it was.
func TestLockEnforcement(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, b := addSection(t, tree, "B", "")
	tree, x := addBlock(t, tree, a, domain.BlockTypeParagraph)
	tree, y := addBlock(t, tree, b, domain.BlockTypeParagraph)
	tree, err := content.ToggleLock(tree, a)
	require.NoError(t, err)

	ops := map[string]func() (domain.ContentTree, error){
		"add block": func() (domain.ContentTree, error) {
			got, _, err := content.AddBlock(tree, a, domain.BlockTypeQuote, nil, domain.BlockOptions{})
			return got, err
		},
		"update block": func() (domain.ContentTree, error) {
			return content.UpdateBlock(tree, a, x, content.BlockPatch{"content": "x"})
		},
		"replace payload": func() (domain.ContentTree, error) {
			return content.ReplacePayload(tree, a, x, domain.ParagraphPayload{Content: "x"})
		},
		"delete block": func() (domain.ContentTree, error) {
			return content.DeleteBlock(tree, a, x)
		},
		"duplicate block": func() (domain.ContentTree, error) {
			got, _, err := content.DuplicateBlock(tree, a, x)
			return got, err
		},
		"move out": func() (domain.ContentTree, error) {
			return content.MoveBlock(tree, a, x, b, 0)
		},
		"move in": func() (domain.ContentTree, error) {
			return content.MoveBlock(tree, b, y, a, 0)
		},
		"update section": func() (domain.ContentTree, error) {
			return content.UpdateSection(tree, a, content.SectionPatch{Title: ptr("t")})
		},
		"delete section": func() (domain.ContentTree, error) {
			return content.DeleteSection(tree, a)
		},
		"reorder": func() (domain.ContentTree, error) {
			return content.ReorderSections(tree, a, b)
		},
		"add child": func() (domain.ContentTree, error) {
			got, _, err := content.AddSection(tree, content.SectionSpec{Title: "c"}, a)
			return got, err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			got, err := op()
			var locked *domain.LockedError
			require.True(t, errors.As(err, &locked), "got %v", err)
			assert.Equal(t, a, locked.SectionID)
			assert.Equal(t, tree, got)
		})
	}
}

func TestValidate_DetectsDuplicateIDs(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, _ = addBlock(t, tree, a, domain.BlockTypeParagraph)
	require.NoError(t, content.Validate(tree))

	broken := tree.Clone()
	broken.Sections = append(broken.Sections, broken.Sections[0].Clone())
	assert.Error(t, content.Validate(broken))
}

func TestMutationsLeaveInputUntouched(t *testing.T) {
	deterministic(t)
	tree, a := addSection(t, domain.ContentTree{}, "A", "")
	tree, x := addBlock(t, tree, a, domain.BlockTypeList)
	snapshot := tree.Clone()

	_, err := content.UpdateBlock(tree, a, x, content.BlockPatch{"items": []map[string]any{{"text": "one"}}})
	require.NoError(t, err)
	_, _, err = content.DuplicateSection(tree, a)
	require.NoError(t, err)
	_, err = content.DeleteSection(tree, a)
	require.NoError(t, err)

	assert.Equal(t, snapshot, tree)
}
