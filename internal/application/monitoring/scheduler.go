package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// CycleRunner executes one check cycle.  The scheduler only decides what is
// due; how cycles run is the orchestrator's concern.
type CycleRunner interface {
	RunCycle(ctx context.Context, counterpartyID common.ID) error
}

// SchedulerConfig holds the scheduler's tunables.
type SchedulerConfig struct {
	// TickInterval is how often due counterparties are evaluated.
	TickInterval time.Duration

	// PoolSize caps concurrent check cycles across all counterparties.
	PoolSize int

	// DefaultFrequency applies to counterparties without an override.
	DefaultFrequency counterparty.CheckFrequency

	// FailedCycleRetryAfter makes a counterparty whose last cycle failed due
	// again sooner than its regular interval.
	FailedCycleRetryAfter time.Duration
}

// Scheduler is the periodic driver: a single cooperative timer evaluates due
// counterparties each tick and dispatches each as an independent unit of work
// bounded by a global worker pool.  Per-counterparty serialization is the
// orchestrator's lock, not the scheduler's concern.
type Scheduler struct {
	cfg            SchedulerConfig
	counterparties counterparty.Repository
	runner         CycleRunner
	clock          common.Clock
	logger         logging.Logger

	// sem is the worker pool: one slot per concurrently running cycle.
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewScheduler wires the scheduler.
func NewScheduler(cfg SchedulerConfig, repo counterparty.Repository, runner CycleRunner, clock common.Clock, logger logging.Logger) *Scheduler {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	if clock == nil {
		clock = common.SystemClock{}
	}
	return &Scheduler{
		cfg:            cfg,
		counterparties: repo,
		runner:         runner,
		clock:          clock,
		logger:         logger.Named("scheduler"),
		sem:            make(chan struct{}, cfg.PoolSize),
	}
}

// Run drives the tick loop until ctx is cancelled, then waits for in-flight
// cycles to drain.  The first tick fires immediately so a restart does not
// wait a full interval before resuming checks.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		logging.Duration("tick_interval", s.cfg.TickInterval),
		logging.Int("pool_size", cap(s.sem)))

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping, draining in-flight cycles")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick finds due counterparties and dispatches a cycle for each, blocking on
// the pool when it is full.  Lock contention inside the orchestrator makes
// double-dispatch across overlapping ticks a harmless skip.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock.Now()
	due, err := s.counterparties.FindDue(ctx, now, s.cfg.DefaultFrequency, s.cfg.FailedCycleRetryAfter)
	if err != nil {
		s.logger.Error("failed to evaluate due counterparties", logging.Err(err))
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Debug("dispatching due checks", logging.Int("due", len(due)))

	for _, cp := range due {
		select {
		case <-ctx.Done():
			return
		case s.sem <- struct{}{}:
		}

		s.wg.Add(1)
		go func(id common.ID) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			if err := s.runner.RunCycle(ctx, id); err != nil {
				if errors.IsCode(err, errors.ErrCodeCycleInProgress) {
					s.logger.Debug("cycle already in flight, skipped",
						logging.String("counterparty_id", id.String()))
					return
				}
				s.logger.Error("check cycle failed",
					logging.String("counterparty_id", id.String()),
					logging.Err(err))
			}
		}(cp.ID)
	}
}
