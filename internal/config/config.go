// Package config defines all configuration structures for the KYB-Sentinel
// monitoring engine.  No I/O or parsing logic lives here — only plain data
// types and validation.  Loading lives in loader.go, defaults in defaults.go.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
)

// WorkerConfig holds tunables for the monitoring worker process.
type WorkerConfig struct {
	// HealthPort is the port for the /healthz and /metrics endpoints.
	HealthPort int `mapstructure:"health_port"`

	// PoolSize caps how many check cycles run concurrently.
	PoolSize int `mapstructure:"pool_size"`

	// TickInterval is how often the scheduler evaluates due counterparties.
	TickInterval time.Duration `mapstructure:"tick_interval"`

	// ShutdownTimeout bounds the graceful drain on SIGTERM.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
}

// KafkaConfig holds notification event producer parameters.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Acks         string        `mapstructure:"acks"` // "none" | "one" | "all"
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RetryConfig is the shared backoff policy applied to every verification
// source and to transport bootstrap.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Multiplier  float64       `mapstructure:"multiplier"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// SourceConfig holds per-source connection parameters for one external
// verification registry.
type SourceConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SanctionsList is one named sanctions list with its flagged keywords.  The
// engine ships with no entries; list contents are operator-supplied
// configuration and hot-reloadable via Watch.
type SanctionsList struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
}

// VerificationConfig groups the external source settings.
type VerificationConfig struct {
	VAT       SourceConfig    `mapstructure:"vat"`
	LEI       SourceConfig    `mapstructure:"lei"`
	Sanctions SourceConfig    `mapstructure:"sanctions"`
	Lists     []SanctionsList `mapstructure:"sanctions_lists"`
	Retry     RetryConfig     `mapstructure:"retry"`
	// MaxConcurrentCalls bounds adapter fan-out within one cycle.
	MaxConcurrentCalls int `mapstructure:"max_concurrent_calls"`
}

// MonitoringDefaults holds the engine-level policy applied to tenants that
// have no override of their own.
type MonitoringDefaults struct {
	// DefaultFrequency must be one of hourly|daily|weekly|monthly.
	DefaultFrequency string `mapstructure:"default_frequency"`

	// FailedCycleRetryAfter makes a counterparty whose last cycle failed due
	// again sooner than its regular frequency.
	FailedCycleRetryAfter time.Duration `mapstructure:"failed_cycle_retry_after"`

	// Scoring weights (points added per finding, sum capped at 100).
	WeightSanctionsMatch float64 `mapstructure:"weight_sanctions_match"`
	WeightInsolvency     float64 `mapstructure:"weight_insolvency"`
	WeightVATInvalid     float64 `mapstructure:"weight_vat_invalid"`
	WeightLEIInvalid     float64 `mapstructure:"weight_lei_invalid"`
	WeightDataChanged    float64 `mapstructure:"weight_data_changed"`

	// Risk level boundaries, inclusive at the lower edge.
	ThresholdCritical float64 `mapstructure:"threshold_critical"`
	ThresholdHigh     float64 `mapstructure:"threshold_high"`
	ThresholdMedium   float64 `mapstructure:"threshold_medium"`

	// AlertThreshold is the score at or above which a risk_threshold alert
	// is raised.
	AlertThreshold float64 `mapstructure:"alert_threshold"`

	// Retention windows, enforced by the pruning collaborator.
	SnapshotRetention time.Duration `mapstructure:"snapshot_retention"`
	AlertRetention    time.Duration `mapstructure:"alert_retention"`
}

// Config is the root configuration for all KYB-Sentinel processes.
type Config struct {
	Worker       WorkerConfig       `mapstructure:"worker"`
	Log          logging.LogConfig  `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Verification VerificationConfig `mapstructure:"verification"`
	Monitoring   MonitoringDefaults `mapstructure:"monitoring"`
}

// Validate checks cross-field consistency.  It is called by the loader after
// defaults are applied, so zero values that have defaults never reach here.
func (c *Config) Validate() error {
	if c.Worker.PoolSize < 1 {
		return fmt.Errorf("worker.pool_size must be >= 1, got %d", c.Worker.PoolSize)
	}
	if c.Worker.TickInterval <= 0 {
		return fmt.Errorf("worker.tick_interval must be positive")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	switch c.Monitoring.DefaultFrequency {
	case "hourly", "daily", "weekly", "monthly":
	default:
		return fmt.Errorf("monitoring.default_frequency %q is not one of hourly|daily|weekly|monthly", c.Monitoring.DefaultFrequency)
	}
	if c.Verification.Retry.MaxAttempts < 1 {
		return fmt.Errorf("verification.retry.max_attempts must be >= 1")
	}
	if c.Verification.Retry.Multiplier < 1 {
		return fmt.Errorf("verification.retry.multiplier must be >= 1")
	}
	if c.Monitoring.ThresholdCritical < c.Monitoring.ThresholdHigh ||
		c.Monitoring.ThresholdHigh < c.Monitoring.ThresholdMedium {
		return fmt.Errorf("monitoring thresholds must be ordered critical >= high >= medium")
	}
	for _, l := range c.Verification.Lists {
		if l.Name == "" {
			return fmt.Errorf("verification.sanctions_lists entries require a name")
		}
	}
	return nil
}
