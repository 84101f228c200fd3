package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reports/internal/content"
	"reports/internal/domain"
	"reports/internal/service"
)

func TestReportWatcher_DetectsForeignSave(t *testing.T) {
	svc, store, _, emitter := newReportService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, "Shared")
	require.NoError(t, err)
	sess, err := svc.Open(ctx, r.ID)
	require.NoError(t, err)
	_, err = sess.AddSection(ctx, content.SectionSpec{Title: "mine"}, "")
	require.NoError(t, err)
	require.NoError(t, sess.Save(ctx))

	w := service.NewReportWatcher(svc, "", time.Second, zerolog.Nop())
	w.Check(ctx)
	assert.Zero(t, emitter.Count(service.EventExternalChange), "own saves are not external")

	foreign, err := store.LoadReport(ctx, r.ID)
	require.NoError(t, err)
	later := sess.LastSavedAt().Add(time.Minute)
	foreign.LastSavedAt = &later
	store.put(*foreign)

	w.Check(ctx)
	w.Check(ctx)
	require.Equal(t, 1, emitter.Count(service.EventExternalChange), "one event per foreign save")
	last, _ := emitter.Last(service.EventExternalChange)
	ev := last.Data.(service.ExternalChangeEvent)
	assert.Equal(t, r.ID, ev.ReportID)
	assert.True(t, later.Equal(ev.SavedAt))
}

func TestReportWatcher_DetectsDeletion(t *testing.T) {
	svc, store, _, emitter := newReportService(t)
	ctx := context.Background()
	r, err := svc.Create(ctx, "Gone")
	require.NoError(t, err)
	_, err = svc.Open(ctx, r.ID)
	require.NoError(t, err)

	require.NoError(t, store.DeleteReport(ctx, r.ID))
	service.NewReportWatcher(svc, "", 0, zerolog.Nop()).Check(ctx)

	last, ok := emitter.Last(service.EventExternalChange)
	require.True(t, ok)
	assert.True(t, last.Data.(service.ExternalChangeEvent).Deleted)
}

func TestVersionScheduler_SnapshotsChangedReports(t *testing.T) {
	svc, store, _, _ := newReportService(t)
	ctx := context.Background()

	changed, err := svc.Create(ctx, "changed")
	require.NoError(t, err)
	untouched, err := svc.Create(ctx, "untouched")
	require.NoError(t, err)
	sess, err := svc.Open(ctx, changed.ID)
	require.NoError(t, err)
	_, err = svc.Open(ctx, untouched.ID)
	require.NoError(t, err)
	_, err = sess.AddSection(ctx, content.SectionSpec{Title: "new"}, "")
	require.NoError(t, err)

	sched := service.NewVersionScheduler(svc, "@hourly", zerolog.Nop())
	assert.Equal(t, 1, sched.RunOnce(ctx))
	assert.Zero(t, sched.RunOnce(ctx), "nothing changed since the scheduled version")

	versions, err := store.ListVersions(ctx, changed.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Contains(t, versions[0].Label, "Scheduled")

	none, err := store.ListVersions(ctx, untouched.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestVersionScheduler_StartRejectsBadSpec(t *testing.T) {
	svc, _, _, _ := newReportService(t)
	sched := service.NewVersionScheduler(svc, "every tuesday", zerolog.Nop())
	assert.Error(t, sched.Start(context.Background()))

	sched = service.NewVersionScheduler(svc, "@every 1h", zerolog.Nop())
	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()
}

var _ domain.ReportStore = (*memStore)(nil)
