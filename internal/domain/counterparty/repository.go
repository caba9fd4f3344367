package counterparty

import (
	"context"
	"time"

	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// Repository defines the persistence contract for counterparties.  The
// storage backend is a collaborator concern; postgres and in-memory
// implementations exist under internal/infrastructure and internal/testutil.
type Repository interface {
	Save(ctx context.Context, cp *Counterparty) error
	FindByID(ctx context.Context, id common.ID) (*Counterparty, error)
	ListByTenant(ctx context.Context, tenantID common.ID) ([]*Counterparty, error)

	// FindDue returns active counterparties whose next check is due at or
	// before now, per the DueAt rules.
	FindDue(ctx context.Context, now time.Time, tenantDefault CheckFrequency, failedRetryAfter time.Duration) ([]*Counterparty, error)

	// UpdateRisk writes the scorer-owned fields after a completed cycle.
	// This is the only write path for risk_score and risk_level.
	UpdateRisk(ctx context.Context, id common.ID, score float64, level RiskLevel, checkedAt time.Time) error

	// MarkCycleFailed records a cycle in which every adapter returned
	// unknown.  The prior snapshot and risk fields stay untouched; the
	// counterparty becomes due again after the failed-cycle retry window.
	MarkCycleFailed(ctx context.Context, id common.ID, at time.Time) error

	// Retire soft-retires a counterparty; it stops being scheduled but its
	// alerts and history remain readable.
	Retire(ctx context.Context, id common.ID) error
}

// PolicyProvider resolves the monitoring policy for a tenant.  Policy
// administration is an external collaborator; the engine only reads.
type PolicyProvider interface {
	PolicyFor(ctx context.Context, tenantID common.ID) (*MonitoringPolicy, error)
}
