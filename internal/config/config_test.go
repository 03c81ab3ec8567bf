package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "https://digis.ru", cfg.Site.BaseURL)
	require.Equal(t, "PAGEN_1", cfg.Site.PageParam)
	require.Equal(t, 5, cfg.Fetch.WorkerLimit)
	require.InDelta(t, 3.0, cfg.Fetch.BaseSleepSeconds, 0.0001)
	require.Equal(t, 30, cfg.Fetch.TimeoutSeconds)
	require.Equal(t, 1000, cfg.Harvest.BatchSize)
	require.Equal(t, 5, cfg.Harvest.WorkerLimit)
	require.Equal(t, "csv", cfg.Output.Sink)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	payload := []byte(`
site:
  base_url: https://catalog.example
fetch:
  worker_limit: 2
  base_sleep_seconds: 0.5
harvest:
  batch_size: 50
output:
  sink: csv
  csv_path: out.csv
`)
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://catalog.example", cfg.Site.BaseURL)
	require.Equal(t, 2, cfg.Fetch.WorkerLimit)
	require.Equal(t, 50, cfg.Harvest.BatchSize)
	require.InDelta(t, 0.5, cfg.Fetch.BaseSleepSeconds, 0.0001)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Site.BaseURL = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Fetch.WorkerLimit = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Harvest.BatchSize = -1
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Output.Sink = "postgres"
	require.Error(t, cfg.Validate(), "postgres sink without dsn")

	cfg = base()
	cfg.Output.Sink = "s3"
	require.Error(t, cfg.Validate())
}
