package monitoring

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/domain/snapshot"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// ReportCache is the minimal caching contract the report service needs.  The
// redis cache satisfies it; a nil cache disables caching entirely.
type ReportCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CounterpartySummary is one counterparty's row in the monitoring report.
// LastSuccessfulCheckAt distinguishes "compliant" from "checks are failing":
// a clean risk profile means nothing when no check has succeeded recently.
type CounterpartySummary struct {
	ID                    common.ID  `json:"id"`
	Name                  string     `json:"name"`
	RiskScore             float64    `json:"risk_score"`
	RiskLevel             string     `json:"risk_level"`
	LastCheckedAt         *time.Time `json:"last_checked_at,omitempty"`
	LastSuccessfulCheckAt *time.Time `json:"last_successful_check_at,omitempty"`
	LastCycleFailed       bool       `json:"last_cycle_failed"`
}

// Report is the tenant-level monitoring overview.
type Report struct {
	TenantID            common.ID             `json:"tenant_id"`
	GeneratedAt         time.Time             `json:"generated_at"`
	TotalCounterparties int                   `json:"total_counterparties"`
	HighRiskCount       int                   `json:"high_risk_count"`
	OpenAlertCount      int                   `json:"open_alert_count"`
	RecentChanges       []snapshot.Change     `json:"recent_changes"`
	RecentAlerts        []*Alert              `json:"recent_alerts"`
	Counterparties      []CounterpartySummary `json:"counterparties"`
}

// ReportService assembles monitoring reports, with a short-TTL cache in front
// of the aggregate queries.
type ReportService struct {
	counterparties counterparty.Repository
	snapshots      snapshot.Repository
	alerts         AlertRepository
	cache          ReportCache
	cacheTTL       time.Duration
	clock          common.Clock
	logger         logging.Logger

	// sf collapses concurrent report builds for the same tenant into one
	// aggregate query pass.
	sf singleflight.Group
}

// NewReportService wires the report service.  cache may be nil.
func NewReportService(cps counterparty.Repository, snaps snapshot.Repository, alerts AlertRepository, cache ReportCache, cacheTTL time.Duration, clock common.Clock, logger logging.Logger) *ReportService {
	if clock == nil {
		clock = common.SystemClock{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &ReportService{
		counterparties: cps,
		snapshots:      snaps,
		alerts:         alerts,
		cache:          cache,
		cacheTTL:       cacheTTL,
		clock:          clock,
		logger:         logger.Named("report"),
	}
}

const (
	recentWindow      = 7 * 24 * time.Hour
	recentChangeLimit = 50
	recentAlertLimit  = 20
)

// GetMonitoringReport assembles the tenant's monitoring overview.
func (s *ReportService) GetMonitoringReport(ctx context.Context, tenantID common.ID) (*Report, error) {
	cacheKey := fmt.Sprintf("report:%s", tenantID)
	if s.cache != nil {
		var cached Report
		hit, err := s.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn("report cache read failed", logging.Err(err))
		} else if hit {
			return &cached, nil
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (any, error) {
		return s.buildReport(ctx, tenantID, cacheKey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

func (s *ReportService) buildReport(ctx context.Context, tenantID common.ID, cacheKey string) (*Report, error) {
	now := s.clock.Now()
	cps, err := s.counterparties.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list counterparties")
	}

	report := &Report{
		TenantID:       tenantID,
		GeneratedAt:    now,
		Counterparties: make([]CounterpartySummary, 0, len(cps)),
	}
	for _, cp := range cps {
		if cp.Retired {
			continue
		}
		report.TotalCounterparties++
		if cp.RiskLevel >= counterparty.RiskLevelHigh {
			report.HighRiskCount++
		}
		report.Counterparties = append(report.Counterparties, CounterpartySummary{
			ID:                    cp.ID,
			Name:                  cp.Name,
			RiskScore:             cp.RiskScore,
			RiskLevel:             cp.RiskLevel.String(),
			LastCheckedAt:         cp.LastCheckedAt,
			LastSuccessfulCheckAt: cp.LastSuccessfulCheckAt,
			LastCycleFailed:       cp.LastCycleFailed,
		})
	}

	report.RecentChanges, err = s.snapshots.RecentChanges(ctx, tenantID, now.Add(-recentWindow), recentChangeLimit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load recent changes")
	}

	report.RecentAlerts, _, err = s.alerts.ListAlertsByTenant(ctx, tenantID, 1, recentAlertLimit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load recent alerts")
	}

	counts, err := s.alerts.CountAlertsByStatus(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count alerts")
	}
	report.OpenAlertCount = counts[AlertStatusOpen] + counts[AlertStatusAcknowledged]

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", logging.Err(err))
		}
	}
	return report, nil
}
