package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// PolicyRepository resolves per-tenant monitoring policies.  Tenants without
// a stored policy get the engine defaults; policy administration writes rows
// through an external path, the engine only reads.
type PolicyRepository struct {
	db       queryExecutor
	defaults counterparty.MonitoringPolicy
	logger   logging.Logger
}

// NewPolicyRepository constructs the provider.  defaults is the engine-level
// policy applied to tenants without an override row.
func NewPolicyRepository(db queryExecutor, defaults counterparty.MonitoringPolicy, logger logging.Logger) *PolicyRepository {
	return &PolicyRepository{db: db, defaults: defaults, logger: logger.Named("policy_repo")}
}

// PolicyFor returns the tenant's policy, falling back to the defaults.
func (r *PolicyRepository) PolicyFor(ctx context.Context, tenantID common.ID) (*counterparty.MonitoringPolicy, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, enabled_sources, frequency, weights,
		       threshold_critical, threshold_high, threshold_medium,
		       alert_threshold, always_alert_on_sanctions
		FROM monitoring_policies WHERE tenant_id = $1`, tenantID)

	var (
		p       counterparty.MonitoringPolicy
		sources pq.StringArray
		freq    string
		weights []byte
	)
	err := row.Scan(&p.TenantID, &sources, &freq, &weights,
		&p.ThresholdCritical, &p.ThresholdHigh, &p.ThresholdMedium,
		&p.AlertThreshold, &p.AlwaysAlertOnSanctions)
	if err == sql.ErrNoRows {
		def := r.defaults
		def.TenantID = tenantID
		return &def, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load monitoring policy")
	}

	for _, s := range sources {
		p.EnabledSources = append(p.EnabledSources, counterparty.Source(s))
	}
	p.Frequency, err = counterparty.ParseFrequency(freq)
	if err != nil {
		return nil, err
	}
	if len(weights) > 0 {
		if err := json.Unmarshal(weights, &p.Weights); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode policy weights")
		}
	}
	return &p, nil
}
