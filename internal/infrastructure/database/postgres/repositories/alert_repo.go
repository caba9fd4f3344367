package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// AlertRepository is the PostgreSQL implementation of
// monitoring.AlertRepository.
type AlertRepository struct {
	db     queryExecutor
	logger logging.Logger
}

// NewAlertRepository constructs the repository.
func NewAlertRepository(db queryExecutor, logger logging.Logger) *AlertRepository {
	return &AlertRepository{db: db, logger: logger.Named("alert_repo")}
}

const alertColumns = `
	id, tenant_id, counterparty_id, condition, severity, status, message,
	created_at, acknowledged_at, acknowledged_by, resolved_at, resolved_by, notes`

// SaveAlert upserts an alert, transitions included.
func (r *AlertRepository) SaveAlert(ctx context.Context, alert *monitoring.Alert) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			acknowledged_at = EXCLUDED.acknowledged_at,
			acknowledged_by = EXCLUDED.acknowledged_by,
			resolved_at = EXCLUDED.resolved_at,
			resolved_by = EXCLUDED.resolved_by,
			notes = EXCLUDED.notes`,
		alert.ID, alert.TenantID, alert.CounterpartyID, alert.Condition,
		alert.Severity.String(), alert.Status.String(), alert.Message,
		alert.CreatedAt, nullableTime(alert.AcknowledgedAt), alert.AcknowledgedBy,
		nullableTime(alert.ResolvedAt), alert.ResolvedBy, alert.Notes,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save alert")
	}
	return nil
}

// FindAlertByID returns the alert, or nil when absent.
func (r *AlertRepository) FindAlertByID(ctx context.Context, id common.ID) (*monitoring.Alert, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load alert")
	}
	return alert, nil
}

// FindOpenAlert returns the open or acknowledged alert for the
// counterparty+condition pair, or nil.  Terminal alerts never suppress a new
// occurrence.
func (r *AlertRepository) FindOpenAlert(ctx context.Context, counterpartyID common.ID, condition string) (*monitoring.Alert, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE counterparty_id = $1 AND condition = $2
		  AND status IN ('open','acknowledged')
		ORDER BY created_at DESC
		LIMIT 1`, counterpartyID, condition)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to look up open alert")
	}
	return alert, nil
}

// ListAlertsByTenant returns one page of a tenant's alerts, newest first,
// plus the total count.
func (r *AlertRepository) ListAlertsByTenant(ctx context.Context, tenantID common.ID, page, pageSize int) ([]*monitoring.Alert, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count alerts")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, tenantID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list alerts")
	}
	defer rows.Close()

	var out []*monitoring.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan alert")
		}
		out = append(out, alert)
	}
	return out, total, rows.Err()
}

// CountAlertsByStatus returns per-status counts for a tenant.
func (r *AlertRepository) CountAlertsByStatus(ctx context.Context, tenantID common.ID) (map[monitoring.AlertStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM alerts WHERE tenant_id = $1 GROUP BY status`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count alerts by status")
	}
	defer rows.Close()

	counts := make(map[monitoring.AlertStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan alert count")
		}
		counts[monitoring.ParseAlertStatus(status)] = n
	}
	return counts, rows.Err()
}

// PruneAlerts deletes terminal alerts closed before the cutoff, honoring the
// retention policy.  Open and acknowledged alerts are never pruned.
func (r *AlertRepository) PruneAlerts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM alerts
		WHERE status IN ('resolved','false_positive') AND resolved_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to prune alerts")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.logger.Info("pruned closed alerts", logging.Int64("deleted", n))
	}
	return n, nil
}

func scanAlert(s scanner) (*monitoring.Alert, error) {
	var (
		alert    monitoring.Alert
		severity string
		status   string
		ackedAt  sql.NullTime
		resAt    sql.NullTime
	)
	err := s.Scan(
		&alert.ID, &alert.TenantID, &alert.CounterpartyID, &alert.Condition,
		&severity, &status, &alert.Message,
		&alert.CreatedAt, &ackedAt, &alert.AcknowledgedBy, &resAt, &alert.ResolvedBy, &alert.Notes,
	)
	if err != nil {
		return nil, err
	}
	alert.Severity = counterparty.ParseRiskLevel(severity)
	alert.Status = monitoring.ParseAlertStatus(status)
	alert.AcknowledgedAt = timePtr(ackedAt)
	alert.ResolvedAt = timePtr(resAt)
	return &alert, nil
}
