package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/domain/snapshot"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// SnapshotRepository is the PostgreSQL implementation of snapshot.Repository.
// The current-snapshot invariant is held by an is_current flag flipped inside
// the same transaction as the insert, so readers never observe a
// partially-written current snapshot.
type SnapshotRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewSnapshotRepository constructs the repository.  It takes the concrete
// *sql.DB rather than queryExecutor because SaveSnapshot opens its own
// transaction.
func NewSnapshotRepository(db *sql.DB, logger logging.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, logger: logger.Named("snapshot_repo")}
}

const snapshotColumns = `
	id, counterparty_id, taken_at, vat_valid, registered_name,
	registered_address, lei_status, sanctions_matches, stale_sources,
	source_refs, is_current`

// SaveSnapshot persists snap as current, demoting the previous current to
// history in the same transaction.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin snapshot transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		UPDATE snapshots SET is_current = FALSE
		WHERE counterparty_id = $1 AND is_current`, snap.CounterpartyID); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to demote current snapshot")
	}

	refs, err := json.Marshal(snap.SourceRefs)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode source refs")
	}
	stale := make([]string, 0, len(snap.StaleSources))
	for _, src := range snap.StaleSources {
		stale = append(stale, string(src))
	}
	var vatValid sql.NullBool
	if snap.VATValid != nil {
		vatValid = sql.NullBool{Bool: *snap.VATValid, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,TRUE)`,
		snap.ID, snap.CounterpartyID, snap.TakenAt, vatValid, snap.RegisteredName,
		snap.RegisteredAddress, snap.LEIStatus, pq.Array(snap.SanctionsMatches), pq.Array(stale),
		refs,
	); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert snapshot")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit snapshot")
	}
	return nil
}

// LoadCurrent returns the current snapshot, or nil when no check has
// completed yet.
func (r *SnapshotRepository) LoadCurrent(ctx context.Context, counterpartyID common.ID) (*snapshot.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE counterparty_id = $1 AND is_current`, counterpartyID)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load current snapshot")
	}
	return snap, nil
}

// History returns snapshots newest first.
func (r *SnapshotRepository) History(ctx context.Context, counterpartyID common.ID, limit int) ([]*snapshot.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE counterparty_id = $1
		ORDER BY taken_at DESC
		LIMIT $2`, counterpartyID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query snapshot history")
	}
	defer rows.Close()

	var out []*snapshot.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan snapshot")
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// SaveChanges appends change records.
func (r *SnapshotRepository) SaveChanges(ctx context.Context, changes []snapshot.Change) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin changes transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, ch := range changes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO changes (id, counterparty_id, field, old_value, new_value, detected_at, notified)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			ch.ID, ch.CounterpartyID, ch.Field, ch.OldValue, ch.NewValue, ch.DetectedAt, ch.Notified,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert change")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit changes")
	}
	return nil
}

// RecentChanges returns a tenant's changes since the given instant, newest
// first.
func (r *SnapshotRepository) RecentChanges(ctx context.Context, tenantID common.ID, since time.Time, limit int) ([]snapshot.Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.counterparty_id, c.field, c.old_value, c.new_value, c.detected_at, c.notified
		FROM changes c
		JOIN counterparties cp ON cp.id = c.counterparty_id
		WHERE cp.tenant_id = $1 AND c.detected_at >= $2
		ORDER BY c.detected_at DESC
		LIMIT $3`, tenantID, since, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query recent changes")
	}
	defer rows.Close()

	var out []snapshot.Change
	for rows.Next() {
		var ch snapshot.Change
		if err := rows.Scan(&ch.ID, &ch.CounterpartyID, &ch.Field, &ch.OldValue, &ch.NewValue, &ch.DetectedAt, &ch.Notified); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan change")
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// MarkChangeNotified flips the notified flag.
func (r *SnapshotRepository) MarkChangeNotified(ctx context.Context, changeID common.ID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE changes SET notified = TRUE WHERE id = $1`, changeID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to mark change notified")
	}
	return nil
}

// PruneHistory deletes non-current snapshots older than the cutoff, honoring
// the retention policy.  The current snapshot is never pruned.
func (r *SnapshotRepository) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE NOT is_current AND taken_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to prune snapshot history")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.logger.Info("pruned snapshot history", logging.Int64("deleted", n))
	}
	return n, nil
}

func scanSnapshot(s scanner) (*snapshot.Snapshot, error) {
	var (
		snap      snapshot.Snapshot
		vatValid  sql.NullBool
		matches   pq.StringArray
		stale     pq.StringArray
		refs      []byte
		isCurrent bool
	)
	err := s.Scan(
		&snap.ID, &snap.CounterpartyID, &snap.TakenAt, &vatValid, &snap.RegisteredName,
		&snap.RegisteredAddress, &snap.LEIStatus, &matches, &stale,
		&refs, &isCurrent,
	)
	if err != nil {
		return nil, err
	}
	if vatValid.Valid {
		v := vatValid.Bool
		snap.VATValid = &v
	}
	snap.SanctionsMatches = []string(matches)
	for _, src := range stale {
		snap.StaleSources = append(snap.StaleSources, counterparty.Source(src))
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &snap.SourceRefs); err != nil {
			return nil, err
		}
	}
	return &snap, nil
}
