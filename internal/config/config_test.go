package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/pulseboard/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	// explicit path that does not exist is an error
	require.Error(t, err)

	cfg, err = config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultIngestWorkers, cfg.Ingest.Workers)
	assert.Equal(t, config.DefaultIngestFetchTimeout, cfg.Ingest.FetchTimeout)
	assert.Equal(t, config.DefaultIngestSchedule, cfg.Ingest.Schedule)
	assert.Equal(t, config.DefaultFailureThreshold, cfg.RateLimit.FailureThreshold)
	assert.Equal(t, config.DefaultCooldown, cfg.RateLimit.Cooldown)
	assert.Equal(t, config.DefaultGitHubBaseURL, cfg.Providers.GitHub.BaseURL)
	assert.Equal(t, config.DefaultRedditMaxRows, cfg.Providers.Reddit.MaxPosts)
	assert.Equal(t, config.DefaultMetricsAddr, cfg.Server.MetricsAddr)
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pulseboard.yaml")

	content := `
database:
  dsn: postgres://db.internal/pulseboard
ingest:
  workers: 4
  fetch_timeout: 10s
rate_limit:
  failure_threshold: 5
  cooldown: 2m
providers:
  github:
    max_repos: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://db.internal/pulseboard", cfg.Database.DSN)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 10*time.Second, cfg.Ingest.FetchTimeout)
	assert.Equal(t, 5, cfg.RateLimit.FailureThreshold)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Cooldown)
	assert.Equal(t, 3, cfg.Providers.GitHub.MaxRepos)
	// untouched sections keep defaults
	assert.Equal(t, config.DefaultBlueskyLimit, cfg.Providers.Bluesky.Limit)
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pulseboard.yaml")

	content := `
rate_limit:
  failure_threshold: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidThreshold)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() config.Config {
		return config.Config{
			Ingest: config.IngestConfig{
				Workers:      config.DefaultIngestWorkers,
				FetchTimeout: config.DefaultIngestFetchTimeout,
				Schedule:     config.DefaultIngestSchedule,
			},
			RateLimit: config.RateLimitConfig{
				FailureThreshold: config.DefaultFailureThreshold,
				Cooldown:         config.DefaultCooldown,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(*config.Config) {},
		},
		{
			name:    "negative workers",
			mutate:  func(c *config.Config) { c.Ingest.Workers = -1 },
			wantErr: config.ErrInvalidWorkers,
		},
		{
			name:    "negative fetch timeout",
			mutate:  func(c *config.Config) { c.Ingest.FetchTimeout = -time.Second },
			wantErr: config.ErrInvalidFetchTimeout,
		},
		{
			name:    "zero threshold",
			mutate:  func(c *config.Config) { c.RateLimit.FailureThreshold = 0 },
			wantErr: config.ErrInvalidThreshold,
		},
		{
			name:    "zero cooldown",
			mutate:  func(c *config.Config) { c.RateLimit.Cooldown = 0 },
			wantErr: config.ErrInvalidCooldown,
		},
		{
			name:    "negative reddit caps",
			mutate:  func(c *config.Config) { c.Providers.Reddit.MaxComments = -1 },
			wantErr: config.ErrInvalidRedditCaps,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
