package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "SP500", c.Analysis.BenchmarkID)
	assert.Equal(t, 60, c.Analysis.WindowDays)
	assert.InDelta(t, 0.95, c.Analysis.MinOverlapRatio, 1e-12)
	assert.Equal(t, 10, c.Analysis.MinSamples)
	assert.Equal(t, 32255, c.Analysis.ExcludeCategoryID)
	assert.Equal(t, 20, c.Curation.MinAligned)
	assert.Equal(t, 5, c.Curation.BofACap)
	assert.Equal(t, 3, c.Curation.VolCap)
	assert.Equal(t, time.Second, c.Fred.MinRequestInterval)
	assert.Equal(t, 6, c.Fred.MaxRetries)
	assert.Equal(t, 60*time.Second, c.Fred.MaxBackoff)
	assert.Equal(t, []int{32255, 32356, 33913}, c.Discovery.SkipCategoryIDs)
	assert.Equal(t, "fast", c.Discovery.Mode)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
environment: test
analysis:
  window_days: 90
  min_overlap_ratio: 0.9
fred:
  min_request_interval: 250ms
discovery:
  mode: full-tree
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 90, c.Analysis.WindowDays)
	assert.InDelta(t, 0.9, c.Analysis.MinOverlapRatio, 1e-12)
	assert.Equal(t, 250*time.Millisecond, c.Fred.MinRequestInterval)
	assert.Equal(t, "full-tree", c.Discovery.Mode)
	// untouched sections keep their defaults
	assert.Equal(t, "SP500", c.Analysis.BenchmarkID)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  min_overlap_ratio: 1.5\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FRED_API_KEY", "secret")
	t.Setenv("FRED_MIN_REQUEST_INTERVAL_S", "0.5")
	t.Setenv("FRED_MAX_RETRIES", "2")
	t.Setenv("FRED_MAX_BACKOFF_S", "10")
	t.Setenv("FRED_RECENT_WINDOW_DAYS", "3")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, "secret", c.Fred.APIKey)
	assert.Equal(t, 500*time.Millisecond, c.Fred.MinRequestInterval)
	assert.Equal(t, 2, c.Fred.MaxRetries)
	assert.Equal(t, 10*time.Second, c.Fred.MaxBackoff)
	assert.Equal(t, 3, c.Discovery.RecentWindowDays)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.NoError(t, c.RequireAPIKey())
}

func TestRequireAPIKey(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	c.Fred.APIKey = ""
	assert.ErrorIs(t, c.RequireAPIKey(), ErrMissingAPIKey)
}

func TestValidateKafkaNeedsBrokers(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	c.Kafka.Enabled = true
	c.Kafka.Brokers = nil
	assert.Error(t, c.Validate())
}
