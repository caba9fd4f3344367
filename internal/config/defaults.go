package config

import "time"

// ApplyDefaults fills unset fields with the engine's standard values.  It is
// idempotent and never overwrites an explicitly configured value.
func ApplyDefaults(cfg *Config) {
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = 8081
	}
	if cfg.Worker.PoolSize == 0 {
		cfg.Worker.PoolSize = 8
	}
	if cfg.Worker.TickInterval == 0 {
		cfg.Worker.TickInterval = time.Minute
	}
	if cfg.Worker.ShutdownTimeout == 0 {
		cfg.Worker.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 10 * time.Minute
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "kyb"
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 5 * time.Minute
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Acks == "" {
		cfg.Kafka.Acks = "all"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	applySourceDefaults(&cfg.Verification.VAT, 15*time.Second)
	applySourceDefaults(&cfg.Verification.LEI, 10*time.Second)
	applySourceDefaults(&cfg.Verification.Sanctions, 5*time.Second)
	if cfg.Verification.Retry.MaxAttempts == 0 {
		cfg.Verification.Retry.MaxAttempts = 3
	}
	if cfg.Verification.Retry.BaseDelay == 0 {
		cfg.Verification.Retry.BaseDelay = time.Second
	}
	if cfg.Verification.Retry.Multiplier == 0 {
		cfg.Verification.Retry.Multiplier = 2
	}
	if cfg.Verification.Retry.MaxDelay == 0 {
		cfg.Verification.Retry.MaxDelay = 30 * time.Second
	}
	if cfg.Verification.MaxConcurrentCalls == 0 {
		cfg.Verification.MaxConcurrentCalls = 3
	}

	if cfg.Monitoring.DefaultFrequency == "" {
		cfg.Monitoring.DefaultFrequency = "daily"
	}
	if cfg.Monitoring.FailedCycleRetryAfter == 0 {
		cfg.Monitoring.FailedCycleRetryAfter = 15 * time.Minute
	}
	if cfg.Monitoring.WeightSanctionsMatch == 0 {
		cfg.Monitoring.WeightSanctionsMatch = 100
	}
	if cfg.Monitoring.WeightInsolvency == 0 {
		cfg.Monitoring.WeightInsolvency = 80
	}
	if cfg.Monitoring.WeightVATInvalid == 0 {
		cfg.Monitoring.WeightVATInvalid = 30
	}
	if cfg.Monitoring.WeightLEIInvalid == 0 {
		cfg.Monitoring.WeightLEIInvalid = 20
	}
	if cfg.Monitoring.WeightDataChanged == 0 {
		cfg.Monitoring.WeightDataChanged = 10
	}
	if cfg.Monitoring.ThresholdCritical == 0 {
		cfg.Monitoring.ThresholdCritical = 90
	}
	if cfg.Monitoring.ThresholdHigh == 0 {
		cfg.Monitoring.ThresholdHigh = 70
	}
	if cfg.Monitoring.ThresholdMedium == 0 {
		cfg.Monitoring.ThresholdMedium = 40
	}
	if cfg.Monitoring.AlertThreshold == 0 {
		cfg.Monitoring.AlertThreshold = 70
	}
	if cfg.Monitoring.SnapshotRetention == 0 {
		cfg.Monitoring.SnapshotRetention = 365 * 24 * time.Hour
	}
	if cfg.Monitoring.AlertRetention == 0 {
		cfg.Monitoring.AlertRetention = 2 * 365 * 24 * time.Hour
	}
}

func applySourceDefaults(src *SourceConfig, timeout time.Duration) {
	if src.Timeout == 0 {
		src.Timeout = timeout
	}
}
