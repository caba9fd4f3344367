package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

func boolPtr(b bool) *bool { return &b }

func baseSnapshot() *Snapshot {
	return &Snapshot{
		ID:                common.NewID("SNP"),
		CounterpartyID:    "CPY-1",
		TakenAt:           time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		VATValid:          boolPtr(true),
		RegisteredName:    "Acme Logistics GmbH",
		RegisteredAddress: "Hafenstr. 1, Hamburg",
		LEIStatus:         "ACTIVE",
	}
}

func TestDiffAgainstSelfYieldsNothing(t *testing.T) {
	s := baseSnapshot()
	assert.Empty(t, Diff(s, s, time.Now()))
}

func TestDiffAgainstNilPriorIsBaseline(t *testing.T) {
	assert.Empty(t, Diff(nil, baseSnapshot(), time.Now()))
}

func TestDiffDetectsFieldChanges(t *testing.T) {
	prior := baseSnapshot()
	next := baseSnapshot()
	next.RegisteredName = "Acme Logistics SE"
	next.VATValid = boolPtr(false)

	detectedAt := time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC)
	changes := Diff(prior, next, detectedAt)

	require.Len(t, changes, 2)
	// Declaration order: registered_name before vat_valid.
	assert.Equal(t, FieldRegisteredName, changes[0].Field)
	assert.Equal(t, "Acme Logistics GmbH", changes[0].OldValue)
	assert.Equal(t, "Acme Logistics SE", changes[0].NewValue)

	assert.Equal(t, FieldVATValid, changes[1].Field)
	assert.Equal(t, "true", changes[1].OldValue)
	assert.Equal(t, "false", changes[1].NewValue)

	for _, c := range changes {
		assert.Equal(t, common.ID("CPY-1"), c.CounterpartyID)
		assert.Equal(t, detectedAt, c.DetectedAt)
		assert.False(t, c.Notified)
	}
}

func TestDiffSanctionsSetIsOrderInsensitive(t *testing.T) {
	prior := baseSnapshot()
	prior.SanctionsMatches = []string{"list_b", "list_a"}
	next := baseSnapshot()
	next.SanctionsMatches = []string{"list_a", "list_b"}

	assert.Empty(t, Diff(prior, next, time.Now()))
}

func TestDiffDetectsNewSanctionsMatch(t *testing.T) {
	prior := baseSnapshot()
	next := baseSnapshot()
	next.SanctionsMatches = []string{"eu_consolidated"}

	changes := Diff(prior, next, time.Now())
	require.Len(t, changes, 1)
	assert.Equal(t, FieldSanctionsMatches, changes[0].Field)
	assert.Equal(t, "", changes[0].OldValue)
	assert.Equal(t, "eu_consolidated", changes[0].NewValue)
}

func TestDiffUnknownVATRendersDistinctly(t *testing.T) {
	prior := baseSnapshot()
	next := baseSnapshot()
	next.VATValid = nil

	changes := Diff(prior, next, time.Now())
	require.Len(t, changes, 1)
	assert.Equal(t, FieldVATValid, changes[0].Field)
	assert.Equal(t, "unknown", changes[0].NewValue)
}

func TestIsStale(t *testing.T) {
	s := baseSnapshot()
	assert.False(t, s.IsStale(counterparty.SourceVAT))

	s.StaleSources = []counterparty.Source{counterparty.SourceVAT}
	assert.True(t, s.IsStale(counterparty.SourceVAT))
	assert.False(t, s.IsStale(counterparty.SourceLEI))
}
