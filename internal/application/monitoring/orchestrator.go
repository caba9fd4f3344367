package monitoring

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/domain/snapshot"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/verification"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// CycleLocker grants per-counterparty mutual exclusion so at most one check
// cycle per counterparty is in flight.  Acquire returns ok=false on
// contention, which callers treat as a no-op skip rather than an error.
type CycleLocker interface {
	Acquire(ctx context.Context, counterpartyID common.ID) (release func(), ok bool, err error)
}

// Metrics receives engine-level observations.  The worker wires a prometheus
// implementation; tests use NopMetrics.
type Metrics interface {
	CycleCompleted(outcome string, elapsed time.Duration)
	AdapterCall(source counterparty.Source, status verification.Status, elapsed time.Duration)
	AlertCreated(condition string)
}

// Cycle outcome labels.
const (
	CycleOutcomeOK      = "ok"
	CycleOutcomeFailed  = "failed"
	CycleOutcomeSkipped = "skipped"
)

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) CycleCompleted(string, time.Duration)                                {}
func (NopMetrics) AdapterCall(counterparty.Source, verification.Status, time.Duration) {}
func (NopMetrics) AlertCreated(string)                                                 {}

// OrchestratorDeps carries the orchestrator's collaborators.
type OrchestratorDeps struct {
	Counterparties counterparty.Repository
	Policies       counterparty.PolicyProvider
	Snapshots      snapshot.Repository
	Alerts         *AlertManager
	Publisher      Publisher
	Adapters       []verification.Adapter
	Locks          CycleLocker

	// Retry is the shared per-adapter backoff policy.
	Retry verification.BackoffPolicy

	// PerAttemptTimeout is the longest single-attempt source timeout; the
	// cycle deadline is Retry.Budget(PerAttemptTimeout).
	PerAttemptTimeout time.Duration

	// MaxConcurrentCalls bounds adapter fan-out within one cycle.
	MaxConcurrentCalls int

	Scorer  *Scorer
	Clock   common.Clock
	Logger  logging.Logger
	Metrics Metrics
}

// Orchestrator executes one full check cycle for one counterparty: adapter
// fan-out under retry, snapshot assembly with stale carry-forward, diffing,
// scoring, persistence, and alert evaluation.
type Orchestrator struct {
	counterparties counterparty.Repository
	policies       counterparty.PolicyProvider
	snapshots      snapshot.Repository
	alerts         *AlertManager
	publisher      Publisher
	adapters       map[counterparty.Source]verification.Adapter
	locks          CycleLocker
	retry          verification.BackoffPolicy
	cycleBudget    time.Duration
	maxCalls       int
	scorer         *Scorer
	clock          common.Clock
	logger         logging.Logger
	metrics        Metrics
}

// NewOrchestrator wires the orchestrator from its dependencies.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	adapters := make(map[counterparty.Source]verification.Adapter, len(deps.Adapters))
	for _, a := range deps.Adapters {
		adapters[a.Source()] = a
	}
	maxCalls := deps.MaxConcurrentCalls
	if maxCalls < 1 {
		maxCalls = len(adapters)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = common.SystemClock{}
	}
	return &Orchestrator{
		counterparties: deps.Counterparties,
		policies:       deps.Policies,
		snapshots:      deps.Snapshots,
		alerts:         deps.Alerts,
		publisher:      deps.Publisher,
		adapters:       adapters,
		locks:          deps.Locks,
		retry:          deps.Retry,
		cycleBudget:    deps.Retry.Budget(deps.PerAttemptTimeout),
		maxCalls:       maxCalls,
		scorer:         deps.Scorer,
		clock:          clock,
		logger:         deps.Logger.Named("orchestrator"),
		metrics:        metrics,
	}
}

// RunCycle executes one check cycle for the given counterparty.  Contention
// on the per-counterparty lock returns a CycleInProgress error, which the
// scheduler treats as a skip.  A cycle in which every enabled source returned
// unknown is recorded as failed and leaves the prior snapshot and risk fields
// untouched.
func (o *Orchestrator) RunCycle(ctx context.Context, counterpartyID common.ID) error {
	release, ok, err := o.locks.Acquire(ctx, counterpartyID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to acquire cycle lock")
	}
	if !ok {
		o.metrics.CycleCompleted(CycleOutcomeSkipped, 0)
		return errors.Newf(errors.ErrCodeCycleInProgress, "check cycle already in flight for %s", counterpartyID)
	}
	defer release()

	started := o.clock.Now()
	err = o.runLocked(ctx, counterpartyID)
	elapsed := o.clock.Now().Sub(started)
	if err != nil {
		o.metrics.CycleCompleted(CycleOutcomeFailed, elapsed)
		return err
	}
	o.metrics.CycleCompleted(CycleOutcomeOK, elapsed)
	return nil
}

func (o *Orchestrator) runLocked(ctx context.Context, counterpartyID common.ID) error {
	cp, err := o.counterparties.FindByID(ctx, counterpartyID)
	if err != nil {
		return err
	}
	if cp == nil {
		return errors.NewNotFound("counterparty %s not found", counterpartyID)
	}
	if cp.Retired {
		return errors.Newf(errors.ErrCodeValidation, "counterparty %s is retired", counterpartyID)
	}

	policy, err := o.policies.PolicyFor(ctx, cp.TenantID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to resolve monitoring policy")
	}

	// The cycle deadline is the worst-case adapter budget: attempts times the
	// per-attempt timeout plus the backoff waits.  Exceeding it aborts the
	// remaining calls and records a failed cycle rather than hanging.
	cycleCtx, cancel := context.WithTimeout(ctx, o.cycleBudget)
	defer cancel()

	outcomes := o.verifyAll(cycleCtx, cp, policy)

	now := o.clock.Now()
	logger := o.logger.With(
		logging.String("counterparty_id", cp.ID.String()),
		logging.String("tenant_id", cp.TenantID.String()))

	if allUnknown(outcomes) {
		logger.Warn("check cycle failed, every enabled source unavailable")
		if err := o.counterparties.MarkCycleFailed(ctx, cp.ID, now); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record failed cycle")
		}
		o.publishEvent(ctx, NotificationEvent{
			ID:             common.NewID("EVT"),
			Type:           EventCheckFailed,
			TenantID:       cp.TenantID,
			CounterpartyID: cp.ID,
			OccurredAt:     now,
		})
		return errors.Newf(errors.ErrCodeExternalService, "all verification sources unavailable for %s", cp.ID)
	}

	prior, err := o.snapshots.LoadCurrent(ctx, cp.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load current snapshot")
	}

	next := o.assembleSnapshot(cp, prior, outcomes, now)
	changes := snapshot.Diff(prior, next, now)
	findings := buildFindings(cp, outcomes, len(changes) > 0)

	scorer := o.scorer.ForPolicy(policy)
	score := scorer.Score(findings)
	level := scorer.LevelFor(score)

	if err := o.snapshots.SaveSnapshot(ctx, next); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save snapshot")
	}
	if len(changes) > 0 {
		if err := o.snapshots.SaveChanges(ctx, changes); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save changes")
		}
	}
	if err := o.counterparties.UpdateRisk(ctx, cp.ID, score, level, now); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update risk fields")
	}

	created, err := o.alerts.Evaluate(ctx, cp, policy, findings, score, level)
	if err != nil {
		return err
	}
	for _, alert := range created {
		o.metrics.AlertCreated(alert.Condition)
	}

	o.notifyChanges(ctx, cp, changes)

	logger.Info("check cycle completed",
		logging.Float64("score", score),
		logging.String("risk_level", level.String()),
		logging.Int("changes", len(changes)),
		logging.Int("alerts_created", len(created)),
		logging.Int("stale_sources", len(next.StaleSources)))
	return nil
}

// RunCheckNow is the manual trigger: one immediate cycle, subject to the same
// per-counterparty exclusion as scheduled cycles.
func (o *Orchestrator) RunCheckNow(ctx context.Context, counterpartyID common.ID) error {
	return o.RunCycle(ctx, counterpartyID)
}

// verifyAll fans out to every enabled adapter with bounded concurrency and
// per-adapter retry.  A source that exhausts its retries contributes an
// unknown outcome; a single source outage never aborts the cycle.
func (o *Orchestrator) verifyAll(ctx context.Context, cp *counterparty.Counterparty, policy *counterparty.MonitoringPolicy) map[counterparty.Source]verification.Outcome {
	id := verification.Identifier{
		CounterpartyID: cp.ID,
		DisplayName:    cp.Name,
		CountryCode:    cp.CountryCode,
		VATNumber:      cp.VATNumber,
		LEI:            cp.LEI,
	}

	var mu sync.Mutex
	outcomes := make(map[counterparty.Source]verification.Outcome)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxCalls)

	for _, src := range counterparty.AllSources {
		adapter, registered := o.adapters[src]
		if !registered || !policy.SourceEnabled(src) {
			continue
		}
		// A counterparty without an LEI simply skips that source.
		if src == counterparty.SourceLEI && cp.LEI == "" {
			continue
		}

		src, adapter := src, adapter
		g.Go(func() error {
			var out verification.Outcome
			retryErr := o.retry.Retry(gctx, func(callCtx context.Context) error {
				var callErr error
				started := o.clock.Now()
				out, callErr = adapter.Verify(callCtx, id)
				o.metrics.AdapterCall(src, out.Status, o.clock.Now().Sub(started))
				return callErr
			})
			if retryErr != nil && out.Status == 0 {
				out = verification.Unknown(src, retryErr)
			}

			mu.Lock()
			outcomes[src] = out
			mu.Unlock()
			// Errors were already downgraded to unknown outcomes; never
			// cancel the sibling calls.
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// assembleSnapshot builds the cycle's snapshot from adapter outcomes.  Fields
// whose source returned unknown reuse the prior snapshot's values and are
// flagged stale; with no prior value they stay empty.
func (o *Orchestrator) assembleSnapshot(cp *counterparty.Counterparty, prior *snapshot.Snapshot, outcomes map[counterparty.Source]verification.Outcome, takenAt time.Time) *snapshot.Snapshot {
	next := &snapshot.Snapshot{
		ID:             common.NewID("SNP"),
		CounterpartyID: cp.ID,
		TakenAt:        takenAt,
		SourceRefs:     make(map[counterparty.Source]string),
	}

	if out, ok := outcomes[counterparty.SourceVAT]; ok {
		switch out.Status {
		case verification.StatusUnknown:
			next.StaleSources = append(next.StaleSources, counterparty.SourceVAT)
			if prior != nil {
				next.VATValid = prior.VATValid
				next.RegisteredName = prior.RegisteredName
				next.RegisteredAddress = prior.RegisteredAddress
			}
		default:
			valid := out.Status == verification.StatusValid
			next.VATValid = &valid
			next.RegisteredName = out.RegisteredName
			next.RegisteredAddress = out.RegisteredAddress
			if out.Ref != "" {
				next.SourceRefs[counterparty.SourceVAT] = out.Ref
			}
		}
	} else if prior != nil {
		// Source disabled or not applicable: carry the prior value without a
		// stale flag, so disabling a source does not register as a change.
		next.VATValid = prior.VATValid
		next.RegisteredName = prior.RegisteredName
		next.RegisteredAddress = prior.RegisteredAddress
	}

	if out, ok := outcomes[counterparty.SourceLEI]; ok {
		switch out.Status {
		case verification.StatusUnknown:
			next.StaleSources = append(next.StaleSources, counterparty.SourceLEI)
			if prior != nil {
				next.LEIStatus = prior.LEIStatus
			}
		default:
			next.LEIStatus = out.LEIStatus
			if out.Ref != "" {
				next.SourceRefs[counterparty.SourceLEI] = out.Ref
			}
		}
	} else if prior != nil {
		next.LEIStatus = prior.LEIStatus
	}

	if out, ok := outcomes[counterparty.SourceSanctions]; ok {
		switch out.Status {
		case verification.StatusUnknown:
			next.StaleSources = append(next.StaleSources, counterparty.SourceSanctions)
			if prior != nil {
				next.SanctionsMatches = prior.SanctionsMatches
			}
		default:
			next.SanctionsMatches = out.MatchedLists
		}
	} else if prior != nil {
		next.SanctionsMatches = prior.SanctionsMatches
	}

	return next
}

// notifyChanges emits one event per detected change and flips the change's
// notified flag on successful emission.
func (o *Orchestrator) notifyChanges(ctx context.Context, cp *counterparty.Counterparty, changes []snapshot.Change) {
	for _, ch := range changes {
		err := o.publishEvent(ctx, NotificationEvent{
			ID:             common.NewID("EVT"),
			Type:           EventChangeDetected,
			TenantID:       cp.TenantID,
			CounterpartyID: cp.ID,
			OccurredAt:     ch.DetectedAt,
			Payload: map[string]any{
				"change_id": ch.ID.String(),
				"field":     ch.Field,
				"old_value": ch.OldValue,
				"new_value": ch.NewValue,
			},
		})
		if err != nil {
			continue
		}
		if err := o.snapshots.MarkChangeNotified(ctx, ch.ID); err != nil {
			o.logger.Warn("failed to mark change notified",
				logging.String("change_id", ch.ID.String()),
				logging.Err(err))
		}
	}
}

func (o *Orchestrator) publishEvent(ctx context.Context, event NotificationEvent) error {
	if o.publisher == nil {
		return nil
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("failed to publish notification event",
			logging.String("event_type", event.Type),
			logging.Err(err))
		return err
	}
	return nil
}

// allUnknown reports whether every collected outcome is unknown.  An empty
// outcome set counts as all-unknown: nothing was verifiable.
func allUnknown(outcomes map[counterparty.Source]verification.Outcome) bool {
	if len(outcomes) == 0 {
		return true
	}
	for _, out := range outcomes {
		if out.Status != verification.StatusUnknown {
			return false
		}
	}
	return true
}
