package monitoring_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/domain/snapshot"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/internal/testutil"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// memCache is a trivial ReportCache for tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
}

func newMemCache() *memCache { return &memCache{entries: make(map[string][]byte)} }

func (c *memCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func reportFixture(t *testing.T) (*testutil.MemCounterpartyRepo, *testutil.MemSnapshotRepo, *testutil.MemAlertRepo) {
	t.Helper()
	ctx := context.Background()
	cps := testutil.NewMemCounterpartyRepo()
	snaps := testutil.NewMemSnapshotRepo(func(common.ID) common.ID { return "TNT-1" })
	alerts := testutil.NewMemAlertRepo()

	checked := testTime.Add(-2 * time.Hour)
	require.NoError(t, cps.Save(ctx, &counterparty.Counterparty{
		ID: "CPY-low", TenantID: "TNT-1", Name: "Calm Co",
		RiskScore: 10, RiskLevel: counterparty.RiskLevelLow,
		LastCheckedAt: &checked, LastSuccessfulCheckAt: &checked,
	}))
	require.NoError(t, cps.Save(ctx, &counterparty.Counterparty{
		ID: "CPY-high", TenantID: "TNT-1", Name: "Risky Co",
		RiskScore: 80, RiskLevel: counterparty.RiskLevelHigh,
		LastCheckedAt: &checked, LastSuccessfulCheckAt: &checked,
	}))
	require.NoError(t, cps.Save(ctx, &counterparty.Counterparty{
		ID: "CPY-crit", TenantID: "TNT-1", Name: "Sanctioned Co",
		RiskScore: 100, RiskLevel: counterparty.RiskLevelCritical,
		LastCheckedAt: &checked, LastSuccessfulCheckAt: &checked,
	}))
	// Checks failing: checked but never successfully.
	failedAt := testTime.Add(-30 * time.Minute)
	require.NoError(t, cps.Save(ctx, &counterparty.Counterparty{
		ID: "CPY-failing", TenantID: "TNT-1", Name: "Unreachable Co",
		RiskLevel: counterparty.RiskLevelLow, LastCheckedAt: &failedAt, LastCycleFailed: true,
	}))
	// Retired counterparties stay out of the report.
	require.NoError(t, cps.Save(ctx, &counterparty.Counterparty{
		ID: "CPY-gone", TenantID: "TNT-1", Name: "Former Co", Retired: true,
	}))

	require.NoError(t, snaps.SaveChanges(ctx, []snapshot.Change{{
		ID: "CHG-1", CounterpartyID: "CPY-high",
		Field: snapshot.FieldRegisteredAddress, OldValue: "Old St 1", NewValue: "New St 2",
		DetectedAt: testTime.Add(-time.Hour),
	}}))

	require.NoError(t, alerts.SaveAlert(ctx, &monitoring.Alert{
		ID: "ALT-1", TenantID: "TNT-1", CounterpartyID: "CPY-crit",
		Condition: monitoring.ConditionSanctionsMatch,
		Severity:  counterparty.RiskLevelCritical,
		Status:    monitoring.AlertStatusOpen, CreatedAt: testTime.Add(-time.Hour),
	}))
	require.NoError(t, alerts.SaveAlert(ctx, &monitoring.Alert{
		ID: "ALT-2", TenantID: "TNT-1", CounterpartyID: "CPY-high",
		Condition: monitoring.ConditionRiskThreshold,
		Severity:  counterparty.RiskLevelHigh,
		Status:    monitoring.AlertStatusResolved, CreatedAt: testTime.Add(-2 * time.Hour),
	}))
	return cps, snaps, alerts
}

func TestMonitoringReportAggregates(t *testing.T) {
	cps, snaps, alerts := reportFixture(t)
	svc := monitoring.NewReportService(cps, snaps, alerts, nil, 0, common.FixedClock{T: testTime}, logging.NewNop())

	report, err := svc.GetMonitoringReport(context.Background(), "TNT-1")
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalCounterparties, "retired counterparties excluded")
	assert.Equal(t, 2, report.HighRiskCount, "high and critical both count")
	assert.Equal(t, 1, report.OpenAlertCount)
	require.Len(t, report.RecentChanges, 1)
	assert.Equal(t, snapshot.FieldRegisteredAddress, report.RecentChanges[0].Field)
	require.Len(t, report.RecentAlerts, 2)
}

func TestMonitoringReportDistinguishesFailingChecks(t *testing.T) {
	cps, snaps, alerts := reportFixture(t)
	svc := monitoring.NewReportService(cps, snaps, alerts, nil, 0, common.FixedClock{T: testTime}, logging.NewNop())

	report, err := svc.GetMonitoringReport(context.Background(), "TNT-1")
	require.NoError(t, err)

	var failing *monitoring.CounterpartySummary
	for i := range report.Counterparties {
		if report.Counterparties[i].ID == "CPY-failing" {
			failing = &report.Counterparties[i]
		}
	}
	require.NotNil(t, failing)
	// "No alerts because compliant" vs "no data because checks are failing":
	// the summary exposes the distinction explicitly.
	assert.True(t, failing.LastCycleFailed)
	assert.NotNil(t, failing.LastCheckedAt)
	assert.Nil(t, failing.LastSuccessfulCheckAt)
}

func TestMonitoringReportUsesCache(t *testing.T) {
	cps, snaps, alerts := reportFixture(t)
	cache := newMemCache()
	svc := monitoring.NewReportService(cps, snaps, alerts, cache, time.Minute, common.FixedClock{T: testTime}, logging.NewNop())
	ctx := context.Background()

	first, err := svc.GetMonitoringReport(ctx, "TNT-1")
	require.NoError(t, err)
	second, err := svc.GetMonitoringReport(ctx, "TNT-1")
	require.NoError(t, err)

	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.TotalCounterparties, second.TotalCounterparties)
	assert.Equal(t, first.OpenAlertCount, second.OpenAlertCount)
}
