// Package monitoring implements the check-cycle engine: finding assembly,
// risk scoring, the alert state machine, the per-counterparty check
// orchestrator, the due-check scheduler, and tenant-level reporting.
package monitoring

import (
	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/verification"
)

// Finding condition keys.  These double as per-tenant weight override keys in
// MonitoringPolicy.Weights and as alert condition identifiers.
const (
	ConditionSanctionsMatch = "sanctions_match"
	ConditionInsolvency     = "insolvency"
	ConditionVATInvalid     = "vat_invalid"
	ConditionLEIInvalid     = "lei_invalid"
	ConditionDataChanged    = "data_changed"
	ConditionRiskThreshold  = "risk_threshold"
)

// FindingSet is the transient bag of facts produced during one check cycle.
// It lives only for the duration of one orchestration pass and is consumed by
// the scorer and the alert manager; it is never persisted.
type FindingSet struct {
	SanctionsMatch bool
	MatchedLists   []string

	Insolvency bool
	VATInvalid bool
	LEIInvalid bool

	DataChanged bool

	// UnknownSources lists the enabled sources that failed this cycle after
	// retries were exhausted.  Their fields carry forward from the prior
	// snapshot and are flagged stale.
	UnknownSources []counterparty.Source
}

// Unknown reports whether src failed this cycle.
func (f *FindingSet) Unknown(src counterparty.Source) bool {
	for _, u := range f.UnknownSources {
		if u == src {
			return true
		}
	}
	return false
}

// buildFindings assembles the finding set from adapter outcomes.  A source
// absent from outcomes was disabled by policy and contributes nothing; an
// unknown outcome contributes a stale flag rather than a negative finding.
func buildFindings(cp *counterparty.Counterparty, outcomes map[counterparty.Source]verification.Outcome, changed bool) FindingSet {
	f := FindingSet{
		Insolvency:  cp.Insolvent,
		DataChanged: changed,
	}

	for _, src := range counterparty.AllSources {
		out, ok := outcomes[src]
		if !ok {
			continue
		}
		if out.Status == verification.StatusUnknown {
			f.UnknownSources = append(f.UnknownSources, src)
			continue
		}
		switch src {
		case counterparty.SourceVAT:
			f.VATInvalid = out.Status == verification.StatusInvalid
		case counterparty.SourceLEI:
			f.LEIInvalid = out.Status == verification.StatusInvalid
		case counterparty.SourceSanctions:
			if out.Status == verification.StatusInvalid {
				f.SanctionsMatch = true
				f.MatchedLists = out.MatchedLists
			}
		}
	}
	return f
}
