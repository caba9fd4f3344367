package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/domain/snapshot"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
)

func TestSaveSnapshotFlipsCurrentPointerInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	valid := true
	snap := &snapshot.Snapshot{
		ID:               "SNP-2",
		CounterpartyID:   "CPY-1",
		TakenAt:          time.Now().UTC(),
		VATValid:         &valid,
		RegisteredName:   "Nordwind Logistics GmbH",
		SanctionsMatches: []string{"demo_consolidated"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE snapshots SET is_current = FALSE`).
		WithArgs("CPY-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO snapshots`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	repo := NewSnapshotRepository(db, logging.NewNop())
	require.NoError(t, repo.SaveSnapshot(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSnapshotRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE snapshots SET is_current = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO snapshots`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	repo := NewSnapshotRepository(db, logging.NewNop())
	err = repo.SaveSnapshot(context.Background(), &snapshot.Snapshot{ID: "SNP-1", CounterpartyID: "CPY-1"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCurrentMissingIsNil(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM snapshots\s+WHERE counterparty_id = \$1 AND is_current`).
		WithArgs("CPY-new").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewSnapshotRepository(db, logging.NewNop())
	snap, err := repo.LoadCurrent(context.Background(), "CPY-new")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestLoadCurrentScansArraysAndRefs(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	cols := []string{
		"id", "counterparty_id", "taken_at", "vat_valid", "registered_name",
		"registered_address", "lei_status", "sanctions_matches", "stale_sources",
		"source_refs", "is_current",
	}
	mock.ExpectQuery(`SELECT .+ FROM snapshots`).
		WithArgs("CPY-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"SNP-1", "CPY-1", now, true, "Nordwind Logistics GmbH",
			"Hafenstr. 12", "ACTIVE", "{demo_consolidated}", "{vat}",
			[]byte(`{"vat":"WAPIAAAA42"}`), true,
		))

	repo := NewSnapshotRepository(db, logging.NewNop())
	snap, err := repo.LoadCurrent(context.Background(), "CPY-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, []string{"demo_consolidated"}, snap.SanctionsMatches)
	assert.True(t, snap.IsStale(counterparty.SourceVAT))
	assert.Equal(t, "WAPIAAAA42", snap.SourceRefs[counterparty.SourceVAT])
}

func TestMarkChangeNotified(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE changes SET notified = TRUE WHERE id = \$1`).
		WithArgs("CHG-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSnapshotRepository(db, logging.NewNop())
	require.NoError(t, repo.MarkChangeNotified(context.Background(), "CHG-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
