package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{
		Driver: DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "reports.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleTree() domain.ContentTree {
	return domain.ContentTree{Sections: []domain.Section{{
		ID:     "sec-1",
		Title:  "Summary",
		Level:  1,
		Status: domain.StatusManual,
		Blocks: []domain.Block{{
			ID:        "blk-1",
			Type:      domain.BlockTypeParagraph,
			CreatedAt: testTime,
			UpdatedAt: testTime,
			Payload:   domain.ParagraphPayload{Content: "Revenue grew."},
		}},
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}}}
}

func sampleReport(id string) *domain.Report {
	return &domain.Report{
		ID:        id,
		Title:     "Quarterly",
		Tree:      sampleTree(),
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func TestReportStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore(openTestDB(t))

	r := sampleReport("r1")
	require.NoError(t, store.SaveReport(ctx, r))

	got, err := store.LoadReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly", got.Title)
	assert.Equal(t, r.Tree, got.Tree)
	assert.True(t, got.CreatedAt.Equal(testTime))
	assert.Nil(t, got.LastSavedAt)

	saved := testTime.Add(time.Minute)
	r.Title = "Quarterly (final)"
	r.UpdatedAt = saved
	r.LastSavedAt = &saved
	require.NoError(t, store.SaveReport(ctx, r))

	got, err = store.LoadReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly (final)", got.Title)
	require.NotNil(t, got.LastSavedAt)
	assert.True(t, got.LastSavedAt.Equal(saved))
	assert.True(t, got.CreatedAt.Equal(testTime), "created_at survives an overwrite")
}

func TestReportStore_LoadMissing(t *testing.T) {
	store := NewReportStore(openTestDB(t))
	_, err := store.LoadReport(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestReportStore_SaveRejectsInvalidTree(t *testing.T) {
	store := NewReportStore(openTestDB(t))
	r := sampleReport("r1")
	r.Tree.Sections[0].Level = 9
	assert.Error(t, store.SaveReport(context.Background(), r))
}

func TestReportStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore(openTestDB(t))

	older := sampleReport("a")
	newer := sampleReport("b")
	newer.UpdatedAt = testTime.Add(time.Hour)
	require.NoError(t, store.SaveReport(ctx, older))
	require.NoError(t, store.SaveReport(ctx, newer))
	require.NoError(t, store.AppendVersion(ctx, &domain.Version{ID: "v1", ReportID: "a", Tree: older.Tree, CreatedAt: testTime}))

	list, err := store.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	require.NoError(t, store.DeleteReport(ctx, "a"))
	_, err = store.LoadReport(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
	_, err = store.GetVersion(ctx, "v1")
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)

	assert.ErrorIs(t, store.DeleteReport(ctx, "a"), domain.ErrReportNotFound)
}

func TestReportStore_VersionsOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore(openTestDB(t))
	require.NoError(t, store.SaveReport(ctx, sampleReport("r1")))

	// Equal timestamps still keep insertion order.
	for _, id := range []string{"v1", "v2", "v3"} {
		require.NoError(t, store.AppendVersion(ctx, &domain.Version{
			ID: id, ReportID: "r1", Tree: sampleTree(), CreatedAt: testTime,
		}))
	}

	versions, err := store.ListVersions(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, []string{"v1", "v2", "v3"}, []string{versions[0].ID, versions[1].ID, versions[2].ID})
	assert.Equal(t, sampleTree(), versions[2].Tree)

	v, err := store.GetVersion(ctx, "v2")
	require.NoError(t, err)
	assert.Equal(t, "r1", v.ReportID)

	_, err = store.GetVersion(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestReportStore_PruneKeepsLabeled(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore(openTestDB(t))
	require.NoError(t, store.SaveReport(ctx, sampleReport("r1")))

	add := func(id, label string) {
		require.NoError(t, store.AppendVersion(ctx, &domain.Version{
			ID: id, ReportID: "r1", Label: label, Tree: sampleTree(), CreatedAt: testTime,
		}))
	}
	add("u1", "")
	add("l1", "Draft for review")
	add("u2", "")
	add("u3", "")
	add("u4", "")

	require.NoError(t, store.PruneVersions(ctx, "r1", 2))

	versions, err := store.ListVersions(ctx, "r1")
	require.NoError(t, err)
	var ids []string
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"l1", "u3", "u4"}, ids)

	// Nothing to prune is a no-op.
	require.NoError(t, store.PruneVersions(ctx, "r1", 10))
	versions, err = store.ListVersions(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, versions, 3)
}

func TestSettingsStore(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(openTestDB(t))

	_, ok, err := store.GetSetting(ctx, "editor.r1.zoom")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetSetting(ctx, "editor.r1.zoom", "125"))
	require.NoError(t, store.SetSetting(ctx, "editor.r1.zoom", "150"))

	v, ok, err := store.GetSetting(ctx, "editor.r1.zoom")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "150", v)
}
