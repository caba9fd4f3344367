package monitoring

import (
	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
)

// Weights are the additive points each finding contributes to the risk score.
// The sum is capped at 100.
type Weights struct {
	SanctionsMatch float64
	Insolvency     float64
	VATInvalid     float64
	LEIInvalid     float64
	DataChanged    float64
}

// DefaultWeights returns the engine's built-in scoring policy.
func DefaultWeights() Weights {
	return Weights{
		SanctionsMatch: 100,
		Insolvency:     80,
		VATInvalid:     30,
		LEIInvalid:     20,
		DataChanged:    10,
	}
}

// Merge overlays per-tenant weight overrides, keyed by finding condition.
// Absent keys keep the base value; overrides of zero are honored so a tenant
// can explicitly disable a weight.
func (w Weights) Merge(overrides map[string]float64) Weights {
	if len(overrides) == 0 {
		return w
	}
	if v, ok := overrides[ConditionSanctionsMatch]; ok {
		w.SanctionsMatch = v
	}
	if v, ok := overrides[ConditionInsolvency]; ok {
		w.Insolvency = v
	}
	if v, ok := overrides[ConditionVATInvalid]; ok {
		w.VATInvalid = v
	}
	if v, ok := overrides[ConditionLEIInvalid]; ok {
		w.LEIInvalid = v
	}
	if v, ok := overrides[ConditionDataChanged]; ok {
		w.DataChanged = v
	}
	return w
}

// Thresholds are the risk level boundaries, inclusive at the lower edge.
type Thresholds struct {
	Critical float64
	High     float64
	Medium   float64
}

// DefaultThresholds returns the engine's built-in level boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 90, High: 70, Medium: 40}
}

// merge overlays per-tenant boundary overrides; zero means "use base" here
// because a zero boundary would make every score at least that level anyway.
func (t Thresholds) merge(p *counterparty.MonitoringPolicy) Thresholds {
	if p == nil {
		return t
	}
	if p.ThresholdCritical > 0 {
		t.Critical = p.ThresholdCritical
	}
	if p.ThresholdHigh > 0 {
		t.High = p.ThresholdHigh
	}
	if p.ThresholdMedium > 0 {
		t.Medium = p.ThresholdMedium
	}
	return t
}

// Scorer maps a finding set to a score in [0,100] and a discrete risk level.
// Scoring is a fixed, auditable weighted sum; the weights and the level
// boundaries are independent, per-tenant-overridable policies.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer builds a scorer from a base policy.
func NewScorer(w Weights, t Thresholds) *Scorer {
	return &Scorer{weights: w, thresholds: t}
}

// ForPolicy returns a scorer with the tenant's overrides applied.  A nil
// policy returns the receiver unchanged.
func (s *Scorer) ForPolicy(p *counterparty.MonitoringPolicy) *Scorer {
	if p == nil {
		return s
	}
	return &Scorer{
		weights:    s.weights.Merge(p.Weights),
		thresholds: s.thresholds.merge(p),
	}
}

// Score computes the weighted sum of the findings, capped at 100.  Unknown
// sources contribute nothing; a source outage must not inflate risk.
func (s *Scorer) Score(f FindingSet) float64 {
	var score float64
	if f.SanctionsMatch {
		score += s.weights.SanctionsMatch
	}
	if f.Insolvency {
		score += s.weights.Insolvency
	}
	if f.VATInvalid {
		score += s.weights.VATInvalid
	}
	if f.LEIInvalid {
		score += s.weights.LEIInvalid
	}
	if f.DataChanged {
		score += s.weights.DataChanged
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// LevelFor maps a score to its risk level.  Boundaries are inclusive at the
// lower edge: exactly 90 is critical, exactly 70 is high, exactly 40 medium.
func (s *Scorer) LevelFor(score float64) counterparty.RiskLevel {
	switch {
	case score >= s.thresholds.Critical:
		return counterparty.RiskLevelCritical
	case score >= s.thresholds.High:
		return counterparty.RiskLevelHigh
	case score >= s.thresholds.Medium:
		return counterparty.RiskLevelMedium
	default:
		return counterparty.RiskLevelLow
	}
}
