package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 8, cfg.Worker.PoolSize)
	assert.Equal(t, time.Minute, cfg.Worker.TickInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "daily", cfg.Monitoring.DefaultFrequency)
	assert.Equal(t, 3, cfg.Verification.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Verification.Retry.BaseDelay)
	assert.Equal(t, float64(2), cfg.Verification.Retry.Multiplier)
	assert.Equal(t, float64(100), cfg.Monitoring.WeightSanctionsMatch)
	assert.Equal(t, float64(90), cfg.Monitoring.ThresholdCritical)
	assert.Equal(t, 15*time.Minute, cfg.Monitoring.FailedCycleRetryAfter)
}

func TestApplyDefaultsDoesNotOverride(t *testing.T) {
	cfg := &Config{}
	cfg.Worker.PoolSize = 2
	cfg.Monitoring.DefaultFrequency = "weekly"
	ApplyDefaults(cfg)

	assert.Equal(t, 2, cfg.Worker.PoolSize)
	assert.Equal(t, "weekly", cfg.Monitoring.DefaultFrequency)
}

func TestValidateRejectsUnknownFrequency(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Database.Host = "localhost"
	cfg.Monitoring.DefaultFrequency = "fortnightly"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_frequency")
}

func TestValidateRejectsUnorderedThresholds(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Database.Host = "localhost"
	cfg.Monitoring.ThresholdHigh = 95 // above critical

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresholds")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  host: db.internal
  user: kyb
  db_name: kyb
worker:
  pool_size: 4
verification:
  sanctions_lists:
    - name: demo_list
      keywords: ["flagged co"]
monitoring:
  default_frequency: hourly
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 4, cfg.Worker.PoolSize)
	assert.Equal(t, "hourly", cfg.Monitoring.DefaultFrequency)
	require.Len(t, cfg.Verification.Lists, 1)
	assert.Equal(t, "demo_list", cfg.Verification.Lists[0].Name)
	// Defaults still fill the gaps.
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsNamelessSanctionsList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  host: db.internal
verification:
  sanctions_lists:
    - keywords: ["x"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sanctions_lists")
}
