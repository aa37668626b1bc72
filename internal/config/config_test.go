package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, warnings, err := Load()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 20, cfg.Segmentation.MicroMaxReviews)
	assert.InDelta(t, 3.5, cfg.Segmentation.GoodRatingThreshold, 0.001)
	assert.Contains(t, cfg.Segmentation.ChainBlacklist, "OXXO")
	assert.Equal(t, 5, cfg.Crawl.StabilityAttempts)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leads.db", cfg.Store.Path)
	assert.Equal(t, ".", cfg.Export.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte(`
segmentation:
  micro_max_reviews: 50
crawl:
  stability_attempts: 3
store:
  driver: postgres
  database_url: postgres://localhost/leads
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, warnings, err := Load()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 50, cfg.Segmentation.MicroMaxReviews)
	assert.Equal(t, 3, cfg.Crawl.StabilityAttempts)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	// Untouched keys keep their defaults.
	assert.InDelta(t, 3.5, cfg.Segmentation.GoodRatingThreshold, 0.001)
}

func TestLoad_MalformedFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{{{not yaml"), 0o644))

	cfg, warnings, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	assert.Equal(t, 20, cfg.Segmentation.MicroMaxReviews)
}

func TestLoad_InvalidValuesRevertWithWarnings(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte(`
segmentation:
  good_rating_threshold: 9.5
crawl:
  stability_attempts: 0
  listings_per_sec: -1
store:
  driver: oracle
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, warnings, err := Load()
	require.NoError(t, err)
	assert.Len(t, warnings, 4)

	assert.InDelta(t, 3.5, cfg.Segmentation.GoodRatingThreshold, 0.001)
	assert.Equal(t, 5, cfg.Crawl.StabilityAttempts)
	assert.InDelta(t, 0.5, cfg.Crawl.ListingsPerSec, 0.001)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEADS_STORE_PATH", "/tmp/other.db")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
}

func TestCrawlConfig_DurationHelpers(t *testing.T) {
	c := CrawlConfig{ScrollWaitSecs: 3, ManualWaitSecs: 60}
	assert.Equal(t, "3s", c.ScrollWait().String())
	assert.Equal(t, "1m0s", c.ManualWait().String())
}
