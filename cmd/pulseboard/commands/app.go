// Package commands implements CLI command handlers for pulseboard.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/pulseboard/pulseboard/internal/config"
	"github.com/pulseboard/pulseboard/internal/corpus"
	"github.com/pulseboard/pulseboard/internal/ingest"
	"github.com/pulseboard/pulseboard/internal/observability"
	"github.com/pulseboard/pulseboard/internal/provider"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
	"github.com/pulseboard/pulseboard/internal/secrets"
	"github.com/pulseboard/pulseboard/internal/storage"
)

// app bundles the wired collaborators behind every command that touches
// the database and the corpus.
type app struct {
	cfg    *config.Config
	db     *sqlx.DB
	prom   *observability.Prometheus
	engine *ingest.Engine
	logger *slog.Logger
}

// newApp loads configuration and wires the ingestion engine. Callers must
// Close the returned app.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := storage.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	err = storage.Migrate(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	codec, err := secrets.New(cfg.Security.EncryptionKey)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("configure token codec: %w", err)
	}

	prom, err := observability.NewPrometheus()
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	metrics, err := observability.NewIngestMetrics(prom.Meter())
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	policy := ratelimit.NewPolicy()
	policy.Threshold = cfg.RateLimit.FailureThreshold
	policy.Cooldown = cfg.RateLimit.Cooldown

	engine := &ingest.Engine{
		Accounts:     storage.NewSQLAccounts(db),
		Rates:        storage.NewSQLRates(db),
		Corpus:       corpus.New(storage.NewSQLManifests(db), corpus.NewFSBlobs(cfg.Blobs.Dir)),
		Providers:    buildRegistry(cfg),
		Secrets:      codec,
		Policy:       policy,
		Logger:       logger,
		Metrics:      metrics,
		Workers:      cfg.Ingest.Workers,
		FetchTimeout: cfg.Ingest.FetchTimeout,
	}

	return &app{cfg: cfg, db: db, prom: prom, engine: engine, logger: logger}, nil
}

// Close releases the database handle and flushes metrics.
func (a *app) Close() {
	err := a.prom.Shutdown(context.Background())
	if err != nil {
		a.logger.Warn("shutdown metrics", "error", err)
	}

	err = a.db.Close()
	if err != nil {
		a.logger.Warn("close database", "error", err)
	}
}

// readyCheck reports database reachability for the /readyz endpoint.
func (a *app) readyCheck(ctx context.Context) error {
	err := a.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

// buildRegistry constructs every platform adapter with its configured
// overrides.
func buildRegistry(cfg *config.Config) *provider.Registry {
	github := provider.NewGitHubProvider()
	github.BaseURL = cfg.Providers.GitHub.BaseURL
	github.MaxRepos = cfg.Providers.GitHub.MaxRepos

	bluesky := provider.NewBlueskyProvider()
	bluesky.BaseURL = cfg.Providers.Bluesky.BaseURL
	bluesky.Limit = cfg.Providers.Bluesky.Limit

	youtube := provider.NewYouTubeProvider()
	youtube.BaseURL = cfg.Providers.YouTube.BaseURL
	youtube.MaxResults = cfg.Providers.YouTube.MaxResults

	dayplan := provider.NewDayplanProvider()
	dayplan.BaseURL = cfg.Providers.Dayplan.BaseURL

	reddit := provider.NewRedditProvider()
	reddit.BaseURL = cfg.Providers.Reddit.BaseURL
	reddit.MaxPosts = cfg.Providers.Reddit.MaxPosts
	reddit.MaxComments = cfg.Providers.Reddit.MaxComments
	reddit.UserAgent = cfg.Providers.Reddit.UserAgent

	twitter := provider.NewTwitterProvider()
	twitter.BaseURL = cfg.Providers.Twitter.BaseURL
	twitter.PageSize = cfg.Providers.Twitter.PageSize

	return provider.NewRegistry(github, bluesky, youtube, dayplan, reddit, twitter)
}
