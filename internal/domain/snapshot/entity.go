// Package snapshot defines the immutable point-in-time captures of a
// counterparty's externally verified attributes, the field-level Change
// records produced by comparing consecutive captures, and the differ itself.
package snapshot

import (
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// Snapshot is an immutable capture of a counterparty's verified attributes at
// one point in time.  Exactly one snapshot per counterparty is "current" (the
// most recent); prior snapshots are retained as history until pruned by the
// retention collaborator.  Snapshots are never mutated after creation.
type Snapshot struct {
	ID             common.ID `json:"id"`
	CounterpartyID common.ID `json:"counterparty_id"`
	TakenAt        time.Time `json:"taken_at"`

	// VATValid is nil when the VAT source was unavailable for this cycle and
	// no prior value existed to carry forward.
	VATValid          *bool  `json:"vat_valid,omitempty"`
	RegisteredName    string `json:"registered_name,omitempty"`
	RegisteredAddress string `json:"registered_address,omitempty"`

	// LEIStatus is the registry status string ("ACTIVE", "LAPSED", ...),
	// empty when the LEI source is disabled or unknown.
	LEIStatus string `json:"lei_status,omitempty"`

	// SanctionsMatches holds the names of the lists the counterparty's
	// display name matched.  Empty means no match.
	SanctionsMatches []string `json:"sanctions_matches,omitempty"`

	// StaleSources lists the sources whose values were carried forward from
	// the prior snapshot because the source was unavailable this cycle.
	StaleSources []counterparty.Source `json:"stale_sources,omitempty"`

	// SourceRefs holds per-source reference identifiers (consultation
	// numbers, request IDs) returned by the registries, for audit.
	SourceRefs map[counterparty.Source]string `json:"source_refs,omitempty"`
}

// IsStale reports whether src's value in this snapshot was carried forward
// rather than freshly verified.
func (s *Snapshot) IsStale(src counterparty.Source) bool {
	for _, st := range s.StaleSources {
		if st == src {
			return true
		}
	}
	return false
}

// Change is a field-level difference between two consecutive snapshots of the
// same counterparty.  Changes are append-only; only the Notified flag is ever
// updated after creation.
type Change struct {
	ID             common.ID `json:"id"`
	CounterpartyID common.ID `json:"counterparty_id"`
	Field          string    `json:"field"`
	OldValue       string    `json:"old_value"`
	NewValue       string    `json:"new_value"`
	DetectedAt     time.Time `json:"detected_at"`
	Notified       bool      `json:"notified"`
}
