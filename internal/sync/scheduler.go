package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wesm/zenhub-mirror/internal/store"
)

const (
	// DefaultTickInterval is the scheduler cadence.
	DefaultTickInterval = 60 * time.Second

	incrementalInterval = 4 * time.Minute
	fullScanHour        = 3
	staleAfterHours     = 48
	idleWorkThreshold   = 100
)

// Scheduler decides, once per tick, whether to start the daily full scan or
// run an incremental scan.
type Scheduler struct {
	syncer      *Syncer
	selection   Selection
	fingerprint string
	interval    time.Duration

	// scannedDays holds year*1000+day-of-year for every day a full scan was started.
	scannedDays        map[int]bool
	fullScanInProgress bool
	nextIncremental    time.Time

	log *slog.Logger
}

// NewScheduler creates a scheduler for sel. fingerprint is persisted under
// store.FingerprintKey whenever a full scan starts.
func NewScheduler(syncer *Syncer, sel Selection, fingerprint string) *Scheduler {
	return &Scheduler{
		syncer:      syncer,
		selection:   sel,
		fingerprint: fingerprint,
		interval:    DefaultTickInterval,
		scannedDays: make(map[int]bool),
		log:         slog.Default(),
	}
}

// SetInterval sets the time between ticks.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.interval = d
}

// FullScanInProgress reports whether a started full scan has not yet drained.
func (s *Scheduler) FullScanInProgress() bool {
	return s.fullScanInProgress
}

// Run ticks until ctx is done. A failing or panicking tick is logged and
// the loop carries on.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		err := safely(func() error { return s.Tick(ctx, time.Now()) })
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("scheduler tick failed", "err", err)
		}
		if sleep(ctx, s.interval) != nil {
			return nil
		}
	}
}

// Tick runs one scheduling decision at now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	db := s.syncer.db
	q := s.syncer.queue
	hour := now.Hour()

	runFullScan := hour == fullScanHour || !db.IsInitialized()

	if !s.fullScanInProgress {
		last, err := db.GetLong(store.LastFullScanKey)
		switch {
		case err == nil:
			if elapsed := int64(now.Sub(time.UnixMilli(last)).Hours()); elapsed > staleAfterHours {
				s.log.Info("database is stale, running full scan", "age_hours", elapsed)
				runFullScan = true
			}
		case !store.IsNotFound(err):
			s.log.Warn("unreadable last full scan time, running full scan", "err", err)
			runFullScan = true
		}
	}

	if runFullScan {
		if !db.IsInitialized() {
			db.Initialize()
		}
		day := now.Year()*1000 + now.YearDay()
		if s.scannedDays[day] {
			return nil
		}
		if err := s.startFullScan(ctx); err != nil {
			return err
		}
		s.scannedDays[day] = true
		s.fullScanInProgress = true
		return nil
	}

	if hour >= fullScanHour-1 && hour <= fullScanHour+1 {
		return nil
	}

	if q.AvailableWork() > idleWorkThreshold {
		return nil
	}

	if q.AvailableWork() == 0 && s.fullScanInProgress {
		s.fullScanInProgress = false
		if err := db.PersistLong(store.LastFullScanKey, now.UnixMilli()); err != nil {
			return err
		}
		s.log.Info("full scan complete")
	}

	if !now.Before(s.nextIncremental) {
		s.nextIncremental = now.Add(incrementalInterval)
		s.syncer.IncrementalScan(ctx, s.selection)
	}
	return nil
}

// startFullScan queues every selected repository. It only enqueues; workers
// do the scanning.
func (s *Scheduler) startFullScan(ctx context.Context) error {
	if s.fingerprint != "" {
		if err := s.syncer.db.PersistString(store.FingerprintKey, s.fingerprint); err != nil {
			return err
		}
	}

	q := s.syncer.queue
	for _, owner := range s.selection.Owners {
		repos, err := s.syncer.github.ListOwnerRepositories(ctx, owner)
		if err != nil {
			return fmt.Errorf("failed to start full scan of %s: %w", owner, err)
		}
		for _, r := range repos {
			q.AddRepository(owner, r, r.GetName(), r.GetID())
		}
	}
	for _, t := range s.selection.Repositories {
		q.AddRepository(t.Owner, t.Repo, t.Name, t.ID)
	}

	s.log.Info("full scan started", "queued", q.AvailableWork())
	return nil
}
