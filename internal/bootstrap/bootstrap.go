// Package bootstrap assembles the monitoring engine from configuration.  The
// worker and kybctl both wire through here so the two processes run the same
// stack the same way.
package bootstrap

import (
	"context"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
	"github.com/turtacn/KYB-Sentinel/internal/config"
	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/database/postgres"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/database/redis"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/verification"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// Engine bundles the assembled application services plus the pieces callers
// still need a handle on: the counterparty repository for the scheduler and
// the sanctions adapter for config hot-reload.
type Engine struct {
	Orchestrator *monitoring.Orchestrator
	AlertManager *monitoring.AlertManager
	Reports      *monitoring.ReportService

	Counterparties counterparty.Repository

	// SnapshotPruner and AlertPruner enforce the retention windows; the
	// worker drives them on a daily loop.
	SnapshotPruner SnapshotPruner
	AlertPruner    AlertPruner

	// Sanctions is nil when the sanctions source is disabled.
	Sanctions *verification.SanctionsAdapter

	DefaultFrequency counterparty.CheckFrequency
}

// SnapshotPruner deletes historical snapshots older than the cutoff.
type SnapshotPruner interface {
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertPruner deletes terminal alerts closed before the cutoff.
type AlertPruner interface {
	PruneAlerts(ctx context.Context, cutoff time.Time) (int64, error)
}

// BuildEngine wires repositories, adapters, scoring, alerting, and the
// orchestrator on top of already-open connections.  metrics may be nil.
func BuildEngine(cfg *config.Config, conn *postgres.Connection, redisClient *redis.Client, publisher monitoring.Publisher, metrics monitoring.Metrics, logger logging.Logger) (*Engine, error) {
	defaultFrequency, err := counterparty.ParseFrequency(cfg.Monitoring.DefaultFrequency)
	if err != nil {
		return nil, err
	}

	retry := verification.BackoffPolicy{
		MaxAttempts: cfg.Verification.Retry.MaxAttempts,
		BaseDelay:   cfg.Verification.Retry.BaseDelay,
		Multiplier:  cfg.Verification.Retry.Multiplier,
		MaxDelay:    cfg.Verification.Retry.MaxDelay,
	}

	// The orchestrator counts adapter calls itself, so the middleware here
	// only adds structured call logs.
	var adapters []verification.Adapter
	var sanctions *verification.SanctionsAdapter
	if cfg.Verification.VAT.Enabled {
		vat := verification.NewVATAdapter(cfg.Verification.VAT.BaseURL, cfg.Verification.VAT.Timeout)
		adapters = append(adapters, verification.Instrument(vat, logger, nil))
	}
	if cfg.Verification.LEI.Enabled {
		lei := verification.NewLEIAdapter(cfg.Verification.LEI.BaseURL, cfg.Verification.LEI.Timeout)
		adapters = append(adapters, verification.Instrument(lei, logger, nil))
	}
	if cfg.Verification.Sanctions.Enabled {
		sanctions = verification.NewSanctionsAdapter(KeywordLists(cfg.Verification.Lists))
		adapters = append(adapters, verification.Instrument(sanctions, logger, nil))
	}

	counterpartyRepo := repositories.NewCounterpartyRepository(conn.DB(), logger)
	snapshotRepo := repositories.NewSnapshotRepository(conn.DB(), logger)
	alertRepo := repositories.NewAlertRepository(conn.DB(), logger)
	policyRepo := repositories.NewPolicyRepository(conn.DB(), defaultPolicy(cfg.Monitoring, defaultFrequency), logger)

	perAttempt := maxTimeout(
		cfg.Verification.VAT.Timeout,
		cfg.Verification.LEI.Timeout,
		cfg.Verification.Sanctions.Timeout)

	// The lock must outlive the worst-case cycle so a slow cycle never loses
	// its exclusion mid-flight.
	lockTTL := retry.Budget(perAttempt) + time.Minute
	locks := redis.NewCycleLockFactory(redisClient, lockTTL, logger)

	clock := common.SystemClock{}
	alertManager := monitoring.NewAlertManager(alertRepo, publisher, clock, logger)
	orchestrator := monitoring.NewOrchestrator(monitoring.OrchestratorDeps{
		Counterparties:     counterpartyRepo,
		Policies:           policyRepo,
		Snapshots:          snapshotRepo,
		Alerts:             alertManager,
		Publisher:          publisher,
		Adapters:           adapters,
		Locks:              locks,
		Retry:              retry,
		PerAttemptTimeout:  perAttempt,
		MaxConcurrentCalls: cfg.Verification.MaxConcurrentCalls,
		Scorer:             monitoring.NewScorer(weightsFrom(cfg.Monitoring), thresholdsFrom(cfg.Monitoring)),
		Clock:              clock,
		Logger:             logger,
		Metrics:            metrics,
	})

	reportCache := redis.NewCache(redisClient, 0, logger)
	reports := monitoring.NewReportService(counterpartyRepo, snapshotRepo, alertRepo, reportCache, 0, clock, logger)

	return &Engine{
		Orchestrator:     orchestrator,
		AlertManager:     alertManager,
		Reports:          reports,
		Counterparties:   counterpartyRepo,
		SnapshotPruner:   snapshotRepo,
		AlertPruner:      alertRepo,
		Sanctions:        sanctions,
		DefaultFrequency: defaultFrequency,
	}, nil
}

// KeywordLists converts configured sanctions lists to the adapter's form.
func KeywordLists(lists []config.SanctionsList) []verification.KeywordList {
	out := make([]verification.KeywordList, 0, len(lists))
	for _, l := range lists {
		out = append(out, verification.KeywordList{Name: l.Name, Keywords: l.Keywords})
	}
	return out
}

// defaultPolicy is the engine-level monitoring policy applied to tenants with
// no override row of their own.
func defaultPolicy(m config.MonitoringDefaults, frequency counterparty.CheckFrequency) counterparty.MonitoringPolicy {
	return counterparty.MonitoringPolicy{
		EnabledSources:         counterparty.AllSources,
		Frequency:              frequency,
		ThresholdCritical:      m.ThresholdCritical,
		ThresholdHigh:          m.ThresholdHigh,
		ThresholdMedium:        m.ThresholdMedium,
		AlertThreshold:         m.AlertThreshold,
		AlwaysAlertOnSanctions: true,
	}
}

func weightsFrom(m config.MonitoringDefaults) monitoring.Weights {
	return monitoring.Weights{
		SanctionsMatch: m.WeightSanctionsMatch,
		Insolvency:     m.WeightInsolvency,
		VATInvalid:     m.WeightVATInvalid,
		LEIInvalid:     m.WeightLEIInvalid,
		DataChanged:    m.WeightDataChanged,
	}
}

func thresholdsFrom(m config.MonitoringDefaults) monitoring.Thresholds {
	return monitoring.Thresholds{
		Critical: m.ThresholdCritical,
		High:     m.ThresholdHigh,
		Medium:   m.ThresholdMedium,
	}
}

func maxTimeout(timeouts ...time.Duration) time.Duration {
	var max time.Duration
	for _, t := range timeouts {
		if t > max {
			max = t
		}
	}
	if max == 0 {
		max = 15 * time.Second
	}
	return max
}
