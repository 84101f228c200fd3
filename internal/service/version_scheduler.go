package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ─────────────────────────────────────────────────────────────
// Version Scheduler: periodic labelled snapshots
// ─────────────────────────────────────────────────────────────

// VersionScheduler saves a labelled version of every open report that
// changed since its last labelled version, on a cron schedule.
type VersionScheduler struct {
	reports *ReportService
	spec    string
	log     zerolog.Logger
	cron    *cron.Cron
}

func NewVersionScheduler(reports *ReportService, spec string, log zerolog.Logger) *VersionScheduler {
	return &VersionScheduler{
		reports: reports,
		spec:    spec,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the snapshot job. An empty spec disables the scheduler.
func (s *VersionScheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() {
		n := s.RunOnce(ctx)
		if n > 0 {
			s.log.Info().Int("reports", n).Msg("scheduled versions saved")
		}
	}); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.spec, err)
	}
	c.Start()
	s.cron = c
	s.log.Debug().Str("spec", s.spec).Msg("version scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running snapshot to finish.
func (s *VersionScheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

// RunOnce snapshots every changed open report and returns how many
// versions it wrote.
func (s *VersionScheduler) RunOnce(ctx context.Context) int {
	label := "Scheduled " + s.reports.clock.Now().Format(time.DateTime)
	n := 0
	for _, sess := range s.reports.Sessions() {
		if !sess.ChangedSinceVersion() {
			continue
		}
		if _, err := sess.SaveVersion(ctx, label); err != nil {
			s.log.Warn().Err(err).Str("report", sess.ReportID()).Msg("scheduled version")
			continue
		}
		n++
	}
	return n
}
