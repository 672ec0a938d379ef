package rentals

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSyncSchedule matches the cadence of the hosted scheduler the
// engine was previously driven by.
const DefaultSyncSchedule = "@every 6h"

// Scheduler runs the batch sync pass on a cron cadence. One pass runs at a
// time: jobs are chained with SkipIfStillRunning, so a trigger that fires
// while a slow pass is still in flight is skipped rather than run
// concurrently.
type Scheduler struct {
	cron   *cron.Cron
	syncer *Syncer
}

// NewScheduler registers the batch pass at the given cron spec
// (e.g. "@every 6h" or "0 */6 * * *").
func NewScheduler(syncer *Syncer, spec string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSyncSchedule
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		syncer: syncer,
	}
	if _, err := s.cron.AddFunc(spec, s.runPass); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins triggering passes in the background.
func (s *Scheduler) Start() {
	slog.Info("Starting sync scheduler", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts the scheduler and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Sync scheduler stopped")
}

// Entries exposes the scheduled jobs, mainly for tests and diagnostics.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runPass() {
	if _, err := s.syncer.SyncAll(context.Background()); err != nil {
		slog.Error("Scheduled sync pass failed", "error", err)
	}
}
