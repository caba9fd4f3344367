package snapshot

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// Tracked field names, emitted in this order.  The order is not significant
// for correctness but must be deterministic for reproducible diffs.
const (
	FieldRegisteredName    = "registered_name"
	FieldRegisteredAddress = "registered_address"
	FieldVATValid          = "vat_valid"
	FieldLEIStatus         = "lei_status"
	FieldSanctionsMatches  = "sanctions_matches"
)

// Diff compares the prior and next snapshots of one counterparty and returns
// a Change per tracked field whose value differs.  Equality is value-based.
// A nil prior yields zero changes: the first check is a baseline, not a
// change event.
func Diff(prior, next *Snapshot, detectedAt time.Time) []Change {
	if prior == nil || next == nil {
		return nil
	}

	type field struct {
		name     string
		oldValue string
		newValue string
	}

	fields := []field{
		{FieldRegisteredName, prior.RegisteredName, next.RegisteredName},
		{FieldRegisteredAddress, prior.RegisteredAddress, next.RegisteredAddress},
		{FieldVATValid, renderVATValid(prior.VATValid), renderVATValid(next.VATValid)},
		{FieldLEIStatus, prior.LEIStatus, next.LEIStatus},
		{FieldSanctionsMatches, renderMatchSet(prior.SanctionsMatches), renderMatchSet(next.SanctionsMatches)},
	}

	var changes []Change
	for _, f := range fields {
		if f.oldValue == f.newValue {
			continue
		}
		changes = append(changes, Change{
			ID:             common.NewID("CHG"),
			CounterpartyID: next.CounterpartyID,
			Field:          f.name,
			OldValue:       f.oldValue,
			NewValue:       f.newValue,
			DetectedAt:     detectedAt,
		})
	}
	return changes
}

func renderVATValid(v *bool) string {
	if v == nil {
		return "unknown"
	}
	return strconv.FormatBool(*v)
}

// renderMatchSet canonicalises the sanctions match set so that ordering
// differences between cycles never register as a change.
func renderMatchSet(matches []string) string {
	if len(matches) == 0 {
		return ""
	}
	sorted := make([]string, len(matches))
	copy(sorted, matches)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
