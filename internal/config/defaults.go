package config

import "time"

// Default configuration values.
const (
	DefaultDatabaseDSN = "postgres://localhost/pulseboard?sslmode=disable"
	DefaultBlobDir     = "./data/blobs"

	DefaultIngestWorkers      = 8
	DefaultIngestFetchTimeout = 30 * time.Second
	// DefaultIngestSchedule runs one invocation every 15 minutes.
	DefaultIngestSchedule = "*/15 * * * *"

	DefaultFailureThreshold = 3
	DefaultCooldown         = 5 * time.Minute

	DefaultGitHubBaseURL     = "https://api.github.com"
	DefaultGitHubMaxRepos    = 5
	DefaultBlueskyBaseURL    = "https://bsky.social"
	DefaultBlueskyLimit      = 50
	DefaultYouTubeBaseURL    = "https://www.googleapis.com/youtube/v3"
	DefaultYouTubeMaxResults = 50
	DefaultDayplanBaseURL    = "https://api.dayplan.app/v1"
	DefaultRedditBaseURL     = "https://oauth.reddit.com"
	DefaultRedditMaxRows     = 1000
	DefaultRedditUserAgent   = "pulseboard-ingest/1.0"
	DefaultTwitterBaseURL    = "https://api.twitter.com/2"
	DefaultTwitterPageSize   = 100

	DefaultMetricsAddr = ":9090"
)
