// Package worker runs the settlement sweep on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"time"

	"contractor-payouts/internal/core/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const sweepLeaseName = "settlement-sweep"

// Scheduler triggers SettlementService.Sweep periodically. When a lease is
// configured only the instance holding it sweeps in a given tick.
type Scheduler struct {
	cron       *cron.Cron
	settlement ports.SettlementService
	lease      ports.SweepLease
	schedule   string
	leaseTTL   time.Duration
	log        zerolog.Logger
}

// NewScheduler creates a scheduler. lease may be nil for single-instance runs.
func NewScheduler(settlement ports.SettlementService, lease ports.SweepLease, schedule string, leaseTTL time.Duration, log zerolog.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		settlement: settlement,
		lease:      lease,
		schedule:   schedule,
		leaseTTL:   leaseTTL,
		log:        log,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.leaseTTL)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error().Err(err).Msg("settlement sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule settlement sweep %q: %w", s.schedule, err)
	}
	s.log.Info().Str("schedule", s.schedule).Msg("scheduled settlement sweep")
	s.cron.Start()
	return nil
}

// Stop stops the cron loop. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs a single sweep. It reports false when another instance
// holds the lease and the sweep was skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	if s.lease != nil {
		acquired, err := s.lease.Acquire(ctx, sweepLeaseName, s.leaseTTL)
		if err != nil {
			return false, fmt.Errorf("acquire sweep lease: %w", err)
		}
		if !acquired {
			s.log.Debug().Msg("sweep lease held elsewhere, skipping")
			return false, nil
		}
		defer func() {
			if err := s.lease.Release(context.Background(), sweepLeaseName); err != nil {
				s.log.Warn().Err(err).Msg("failed to release sweep lease")
			}
		}()
	}

	report, err := s.settlement.Sweep(ctx)
	if err != nil {
		return true, err
	}
	if report.Claimed > 0 {
		s.log.Info().
			Int("seen", report.Seen).
			Int("claimed", report.Claimed).
			Int("completed", report.Completed).
			Int("requeued", report.Requeued).
			Int("failed", report.Failed).
			Msg("settlement sweep")
	}
	return true, nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
