// Package counterparty defines the business-counterparty aggregate tracked by
// the monitoring engine, its risk classification, and the monitoring policy
// applied at check time.
package counterparty

import (
	"time"

	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// Source identifies one external verification source.
type Source string

const (
	SourceVAT       Source = "vat"
	SourceLEI       Source = "lei"
	SourceSanctions Source = "sanctions"
)

// AllSources lists every known source in declaration order.
var AllSources = []Source{SourceVAT, SourceLEI, SourceSanctions}

// RiskLevel is the discrete risk classification derived from the risk score.
type RiskLevel int

const (
	RiskLevelLow RiskLevel = iota + 1
	RiskLevelMedium
	RiskLevelHigh
	RiskLevelCritical
)

// String returns the human-readable representation.
func (l RiskLevel) String() string {
	switch l {
	case RiskLevelLow:
		return "LOW"
	case RiskLevelMedium:
		return "MEDIUM"
	case RiskLevelHigh:
		return "HIGH"
	case RiskLevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseRiskLevel converts the persisted string form back to a RiskLevel.
func ParseRiskLevel(s string) RiskLevel {
	switch s {
	case "LOW":
		return RiskLevelLow
	case "MEDIUM":
		return RiskLevelMedium
	case "HIGH":
		return RiskLevelHigh
	case "CRITICAL":
		return RiskLevelCritical
	default:
		return RiskLevelLow
	}
}

// CheckFrequency defines how often a counterparty is re-verified.  The set is
// closed; anything else is a configuration error.
type CheckFrequency int

const (
	FrequencyHourly CheckFrequency = iota + 1
	FrequencyDaily
	FrequencyWeekly
	FrequencyMonthly
)

// String returns the configuration spelling of the frequency.
func (f CheckFrequency) String() string {
	switch f {
	case FrequencyHourly:
		return "hourly"
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	case FrequencyMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// Duration returns the interval between checks.
func (f CheckFrequency) Duration() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ParseFrequency validates s against the closed frequency set.
func ParseFrequency(s string) (CheckFrequency, error) {
	switch s {
	case "hourly":
		return FrequencyHourly, nil
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	default:
		return 0, errors.Newf(errors.ErrCodeUnknownFrequency, "unknown check frequency %q", s)
	}
}

// Counterparty is a business entity tracked by a tenant.  Risk fields are
// owned by the scorer and only ever written through UpdateRisk; the identity
// fields are mutated by the registration/update collaborator.
type Counterparty struct {
	ID          common.ID `json:"id"`
	TenantID    common.ID `json:"tenant_id"`
	Name        string    `json:"name"`
	CountryCode string    `json:"country_code"`
	VATNumber   string    `json:"vat_number"`
	LEI         string    `json:"lei,omitempty"`
	Address     string    `json:"address,omitempty"`

	RiskScore float64   `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`

	// Insolvent is maintained by the registration/update collaborator from
	// insolvency register data; the engine reads it as a scoring finding but
	// never writes it.
	Insolvent bool `json:"insolvent"`

	// FrequencyOverride replaces the tenant default cadence when set.
	FrequencyOverride *CheckFrequency `json:"frequency_override,omitempty"`

	LastCheckedAt         *time.Time `json:"last_checked_at,omitempty"`
	LastSuccessfulCheckAt *time.Time `json:"last_successful_check_at,omitempty"`
	LastCycleFailed       bool       `json:"last_cycle_failed"`

	// Retired marks a soft-retired counterparty.  Rows are never hard-deleted
	// while alerts reference them.
	Retired   bool      `json:"retired"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveFrequency resolves the check cadence: the per-counterparty
// override when present, otherwise the tenant default.
func (c *Counterparty) EffectiveFrequency(tenantDefault CheckFrequency) CheckFrequency {
	if c.FrequencyOverride != nil {
		return *c.FrequencyOverride
	}
	return tenantDefault
}

// DueAt returns the instant the next check becomes due.  A counterparty that
// has never been checked is due immediately; one whose last cycle failed is
// due after the shorter retry window instead of the full interval.
func (c *Counterparty) DueAt(tenantDefault CheckFrequency, failedRetryAfter time.Duration) time.Time {
	if c.LastCheckedAt == nil {
		return time.Time{}
	}
	if c.LastCycleFailed {
		return c.LastCheckedAt.Add(failedRetryAfter)
	}
	return c.LastCheckedAt.Add(c.EffectiveFrequency(tenantDefault).Duration())
}

// MonitoringPolicy is the per-tenant monitoring configuration, read-only at
// check time.  Mutation happens through an administrative collaborator.
type MonitoringPolicy struct {
	TenantID       common.ID      `json:"tenant_id"`
	EnabledSources []Source       `json:"enabled_sources"`
	Frequency      CheckFrequency `json:"frequency"`

	// Weights are the additive scoring weights; zero values fall back to the
	// engine defaults at scoring time.
	Weights map[string]float64 `json:"weights,omitempty"`

	// Thresholds are the risk level boundaries; zero values fall back to the
	// engine defaults.
	ThresholdCritical float64 `json:"threshold_critical,omitempty"`
	ThresholdHigh     float64 `json:"threshold_high,omitempty"`
	ThresholdMedium   float64 `json:"threshold_medium,omitempty"`

	// AlertThreshold is the score at or above which a risk_threshold alert is
	// raised.
	AlertThreshold float64 `json:"alert_threshold,omitempty"`

	// AlwaysAlertOnSanctions forces an alert on any sanctions match
	// regardless of the computed score.
	AlwaysAlertOnSanctions bool `json:"always_alert_on_sanctions"`

	SnapshotRetention time.Duration `json:"snapshot_retention,omitempty"`
	AlertRetention    time.Duration `json:"alert_retention,omitempty"`
}

// SourceEnabled reports whether the policy enables a source.  A policy with
// no explicit source list enables everything.
func (p *MonitoringPolicy) SourceEnabled(s Source) bool {
	if len(p.EnabledSources) == 0 {
		return true
	}
	for _, enabled := range p.EnabledSources {
		if enabled == s {
			return true
		}
	}
	return false
}
