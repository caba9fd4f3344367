package monitoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
)

func defaultScorer() *monitoring.Scorer {
	return monitoring.NewScorer(monitoring.DefaultWeights(), monitoring.DefaultThresholds())
}

func TestScoreIsBounded(t *testing.T) {
	s := defaultScorer()

	cases := []monitoring.FindingSet{
		{},
		{SanctionsMatch: true},
		{SanctionsMatch: true, Insolvency: true, VATInvalid: true, LEIInvalid: true, DataChanged: true},
		{VATInvalid: true, LEIInvalid: true, DataChanged: true},
	}
	for _, f := range cases {
		score := s.Score(f)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
}

func TestSanctionsMatchScoresFull(t *testing.T) {
	s := defaultScorer()

	assert.Equal(t, 100.0, s.Score(monitoring.FindingSet{SanctionsMatch: true}))
	// Capping applies: 100 + 80 stays 100, not 180.
	assert.Equal(t, 100.0, s.Score(monitoring.FindingSet{SanctionsMatch: true, Insolvency: true}))
}

func TestWeightsAreAdditive(t *testing.T) {
	s := defaultScorer()

	assert.Equal(t, 0.0, s.Score(monitoring.FindingSet{}))
	assert.Equal(t, 30.0, s.Score(monitoring.FindingSet{VATInvalid: true}))
	assert.Equal(t, 50.0, s.Score(monitoring.FindingSet{VATInvalid: true, LEIInvalid: true}))
	assert.Equal(t, 60.0, s.Score(monitoring.FindingSet{VATInvalid: true, LEIInvalid: true, DataChanged: true}))
	assert.Equal(t, 80.0, s.Score(monitoring.FindingSet{Insolvency: true}))
}

func TestLevelBoundariesAreInclusiveAtLowerEdge(t *testing.T) {
	s := defaultScorer()

	assert.Equal(t, counterparty.RiskLevelCritical, s.LevelFor(90))
	assert.Equal(t, counterparty.RiskLevelHigh, s.LevelFor(89.999))
	assert.Equal(t, counterparty.RiskLevelHigh, s.LevelFor(70))
	assert.Equal(t, counterparty.RiskLevelMedium, s.LevelFor(69.999))
	assert.Equal(t, counterparty.RiskLevelMedium, s.LevelFor(40))
	assert.Equal(t, counterparty.RiskLevelLow, s.LevelFor(39.999))
	assert.Equal(t, counterparty.RiskLevelLow, s.LevelFor(0))
	assert.Equal(t, counterparty.RiskLevelCritical, s.LevelFor(100))
}

func TestPolicyOverridesWeightsAndThresholds(t *testing.T) {
	base := defaultScorer()
	policy := &counterparty.MonitoringPolicy{
		Weights: map[string]float64{
			monitoring.ConditionVATInvalid:  50,
			monitoring.ConditionDataChanged: 0, // explicit disable
		},
		ThresholdCritical: 95,
		ThresholdHigh:     60,
	}

	s := base.ForPolicy(policy)
	assert.Equal(t, 50.0, s.Score(monitoring.FindingSet{VATInvalid: true}))
	assert.Equal(t, 0.0, s.Score(monitoring.FindingSet{DataChanged: true}))

	assert.Equal(t, counterparty.RiskLevelHigh, s.LevelFor(90), "critical raised to 95 by policy")
	assert.Equal(t, counterparty.RiskLevelHigh, s.LevelFor(60))

	// The base scorer stays untouched.
	assert.Equal(t, 30.0, base.Score(monitoring.FindingSet{VATInvalid: true}))
}

func TestNilPolicyKeepsDefaults(t *testing.T) {
	s := defaultScorer()
	assert.Same(t, s, s.ForPolicy(nil))
}
