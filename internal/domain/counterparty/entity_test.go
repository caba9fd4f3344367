package counterparty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KYB-Sentinel/pkg/errors"
)

func TestParseFrequencyClosedSet(t *testing.T) {
	cases := map[string]CheckFrequency{
		"hourly":  FrequencyHourly,
		"daily":   FrequencyDaily,
		"weekly":  FrequencyWeekly,
		"monthly": FrequencyMonthly,
	}
	for in, want := range cases {
		got, err := ParseFrequency(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "biweekly", "DAILY", "yearly"} {
		_, err := ParseFrequency(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownFrequency))
	}
}

func TestFrequencyDuration(t *testing.T) {
	assert.Equal(t, time.Hour, FrequencyHourly.Duration())
	assert.Equal(t, 24*time.Hour, FrequencyDaily.Duration())
	assert.Equal(t, 7*24*time.Hour, FrequencyWeekly.Duration())
	assert.Equal(t, 30*24*time.Hour, FrequencyMonthly.Duration())
}

func TestEffectiveFrequencyOverride(t *testing.T) {
	cp := &Counterparty{}
	assert.Equal(t, FrequencyDaily, cp.EffectiveFrequency(FrequencyDaily))

	override := FrequencyHourly
	cp.FrequencyOverride = &override
	assert.Equal(t, FrequencyHourly, cp.EffectiveFrequency(FrequencyDaily))
}

func TestDueAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	retry := 15 * time.Minute

	never := &Counterparty{}
	assert.True(t, never.DueAt(FrequencyDaily, retry).IsZero(), "unchecked counterparty is due immediately")

	checked := &Counterparty{LastCheckedAt: &base}
	assert.Equal(t, base.Add(24*time.Hour), checked.DueAt(FrequencyDaily, retry))

	failed := &Counterparty{LastCheckedAt: &base, LastCycleFailed: true}
	assert.Equal(t, base.Add(retry), failed.DueAt(FrequencyDaily, retry))
}

func TestPolicySourceEnabled(t *testing.T) {
	open := &MonitoringPolicy{}
	assert.True(t, open.SourceEnabled(SourceVAT))
	assert.True(t, open.SourceEnabled(SourceSanctions))

	restricted := &MonitoringPolicy{EnabledSources: []Source{SourceVAT}}
	assert.True(t, restricted.SourceEnabled(SourceVAT))
	assert.False(t, restricted.SourceEnabled(SourceLEI))
}

func TestRiskLevelRoundTrip(t *testing.T) {
	for _, l := range []RiskLevel{RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical} {
		assert.Equal(t, l, ParseRiskLevel(l.String()))
	}
	assert.Equal(t, RiskLevelLow, ParseRiskLevel("bogus"))
}
