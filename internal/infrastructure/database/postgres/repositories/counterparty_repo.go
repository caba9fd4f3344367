package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// CounterpartyRepository is the PostgreSQL implementation of
// counterparty.Repository.
type CounterpartyRepository struct {
	db     queryExecutor
	logger logging.Logger
}

// NewCounterpartyRepository constructs the repository.
func NewCounterpartyRepository(db queryExecutor, logger logging.Logger) *CounterpartyRepository {
	return &CounterpartyRepository{db: db, logger: logger.Named("counterparty_repo")}
}

const counterpartyColumns = `
	id, tenant_id, name, country_code, vat_number, lei, address,
	risk_score, risk_level, insolvent, frequency_override,
	last_checked_at, last_successful_check_at, last_cycle_failed,
	retired, created_at, updated_at`

// Save upserts the identity fields.  Risk fields are written only through
// UpdateRisk and are deliberately excluded from the conflict update.
func (r *CounterpartyRepository) Save(ctx context.Context, cp *counterparty.Counterparty) error {
	var freq sql.NullString
	if cp.FrequencyOverride != nil {
		freq = sql.NullString{String: cp.FrequencyOverride.String(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO counterparties (`+counterpartyColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			country_code = EXCLUDED.country_code,
			vat_number = EXCLUDED.vat_number,
			lei = EXCLUDED.lei,
			address = EXCLUDED.address,
			insolvent = EXCLUDED.insolvent,
			frequency_override = EXCLUDED.frequency_override,
			retired = EXCLUDED.retired,
			updated_at = EXCLUDED.updated_at`,
		cp.ID, cp.TenantID, cp.Name, cp.CountryCode, cp.VATNumber, cp.LEI, cp.Address,
		cp.RiskScore, cp.RiskLevel.String(), cp.Insolvent, freq,
		nullableTime(cp.LastCheckedAt), nullableTime(cp.LastSuccessfulCheckAt), cp.LastCycleFailed,
		cp.Retired, cp.CreatedAt, cp.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save counterparty")
	}
	return nil
}

// FindByID returns the counterparty, or nil when absent.
func (r *CounterpartyRepository) FindByID(ctx context.Context, id common.ID) (*counterparty.Counterparty, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+counterpartyColumns+`
		FROM counterparties WHERE id = $1`, id)
	cp, err := scanCounterparty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load counterparty")
	}
	return cp, nil
}

// ListByTenant returns all of a tenant's counterparties, retired included.
func (r *CounterpartyRepository) ListByTenant(ctx context.Context, tenantID common.ID) ([]*counterparty.Counterparty, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+counterpartyColumns+`
		FROM counterparties WHERE tenant_id = $1
		ORDER BY name`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list counterparties")
	}
	defer rows.Close()

	var out []*counterparty.Counterparty
	for rows.Next() {
		cp, err := scanCounterparty(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan counterparty")
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// FindDue selects the active counterparties whose next check is due.  The
// due-time rules mirror Counterparty.DueAt: never-checked rows are due
// immediately, failed cycles wait the shorter retry window, everything else
// waits its effective frequency.
func (r *CounterpartyRepository) FindDue(ctx context.Context, now time.Time, tenantDefault counterparty.CheckFrequency, failedRetryAfter time.Duration) ([]*counterparty.Counterparty, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+counterpartyColumns+`
		FROM counterparties
		WHERE retired = FALSE
		  AND (
			last_checked_at IS NULL
			OR (last_cycle_failed AND last_checked_at + make_interval(secs => $2) <= $1)
			OR (NOT last_cycle_failed AND last_checked_at + (
				CASE COALESCE(frequency_override, $3)
					WHEN 'hourly'  THEN interval '1 hour'
					WHEN 'daily'   THEN interval '24 hours'
					WHEN 'weekly'  THEN interval '168 hours'
					WHEN 'monthly' THEN interval '720 hours'
				END) <= $1)
		  )
		ORDER BY last_checked_at NULLS FIRST`,
		now, failedRetryAfter.Seconds(), tenantDefault.String())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query due counterparties")
	}
	defer rows.Close()

	var due []*counterparty.Counterparty
	for rows.Next() {
		cp, err := scanCounterparty(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan counterparty")
		}
		due = append(due, cp)
	}
	return due, rows.Err()
}

// UpdateRisk writes the scorer-owned fields after a completed cycle.
func (r *CounterpartyRepository) UpdateRisk(ctx context.Context, id common.ID, score float64, level counterparty.RiskLevel, checkedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE counterparties SET
			risk_score = $2,
			risk_level = $3,
			last_checked_at = $4,
			last_successful_check_at = $4,
			last_cycle_failed = FALSE,
			updated_at = $4
		WHERE id = $1`,
		id, score, level.String(), checkedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update risk fields")
	}
	return nil
}

// MarkCycleFailed records an all-unknown cycle without touching risk fields.
func (r *CounterpartyRepository) MarkCycleFailed(ctx context.Context, id common.ID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE counterparties SET
			last_checked_at = $2,
			last_cycle_failed = TRUE,
			updated_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to mark cycle failed")
	}
	return nil
}

// Retire soft-retires a counterparty.
func (r *CounterpartyRepository) Retire(ctx context.Context, id common.ID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE counterparties SET retired = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to retire counterparty")
	}
	return nil
}

func scanCounterparty(s scanner) (*counterparty.Counterparty, error) {
	var (
		cp        counterparty.Counterparty
		level     string
		freq      sql.NullString
		checked   sql.NullTime
		succeeded sql.NullTime
	)
	err := s.Scan(
		&cp.ID, &cp.TenantID, &cp.Name, &cp.CountryCode, &cp.VATNumber, &cp.LEI, &cp.Address,
		&cp.RiskScore, &level, &cp.Insolvent, &freq,
		&checked, &succeeded, &cp.LastCycleFailed,
		&cp.Retired, &cp.CreatedAt, &cp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cp.RiskLevel = counterparty.ParseRiskLevel(level)
	if freq.Valid {
		f, err := counterparty.ParseFrequency(freq.String)
		if err != nil {
			return nil, err
		}
		cp.FrequencyOverride = &f
	}
	cp.LastCheckedAt = timePtr(checked)
	cp.LastSuccessfulCheckAt = timePtr(succeeded)
	return &cp, nil
}
