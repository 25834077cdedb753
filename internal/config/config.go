// Package config loads and validates engine configuration from file,
// environment, and defaults.
package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration struct for pulseboard.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Blobs     BlobConfig      `mapstructure:"blobs"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Security  SecurityConfig  `mapstructure:"security"`
	Server    ServerConfig    `mapstructure:"server"`
}

// DatabaseConfig holds the relational store connection settings.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// BlobConfig holds the snapshot blob backend settings.
type BlobConfig struct {
	Dir string `mapstructure:"dir"`
}

// IngestConfig holds invocation resource knobs.
type IngestConfig struct {
	Workers      int           `mapstructure:"workers"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	Schedule     string        `mapstructure:"schedule"`
}

// RateLimitConfig holds the fetch-gate policy knobs.
type RateLimitConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// ProvidersConfig holds per-platform adapter settings.
type ProvidersConfig struct {
	GitHub  GitHubConfig  `mapstructure:"github"`
	Bluesky BlueskyConfig `mapstructure:"bluesky"`
	YouTube YouTubeConfig `mapstructure:"youtube"`
	Dayplan DayplanConfig `mapstructure:"dayplan"`
	Reddit  RedditConfig  `mapstructure:"reddit"`
	Twitter TwitterConfig `mapstructure:"twitter"`
}

// GitHubConfig holds github adapter settings.
type GitHubConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	MaxRepos int    `mapstructure:"max_repos"`
}

// BlueskyConfig holds bluesky adapter settings.
type BlueskyConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Limit   int    `mapstructure:"limit"`
}

// YouTubeConfig holds youtube adapter settings.
type YouTubeConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
}

// DayplanConfig holds task tracker adapter settings.
type DayplanConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// RedditConfig holds reddit adapter settings.
type RedditConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	MaxPosts    int    `mapstructure:"max_posts"`
	MaxComments int    `mapstructure:"max_comments"`
	UserAgent   string `mapstructure:"user_agent"`
}

// TwitterConfig holds twitter adapter settings.
type TwitterConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	PageSize int    `mapstructure:"page_size"`
}

// SecurityConfig holds the token encryption keyphrase. It is normally
// supplied through the environment rather than the config file.
type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

// ServerConfig holds the serve-mode listener settings.
type ServerConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("ingest.workers must be non-negative")
	// ErrInvalidFetchTimeout indicates the fetch timeout is negative.
	ErrInvalidFetchTimeout = errors.New("ingest.fetch_timeout must be non-negative")
	// ErrInvalidThreshold indicates the failure threshold is not positive.
	ErrInvalidThreshold = errors.New("rate_limit.failure_threshold must be positive")
	// ErrInvalidCooldown indicates the cooldown is not positive.
	ErrInvalidCooldown = errors.New("rate_limit.cooldown must be positive")
	// ErrInvalidRedditCaps indicates a reddit pagination cap is negative.
	ErrInvalidRedditCaps = errors.New("providers.reddit caps must be non-negative")
	// ErrMissingSchedule indicates serve mode has no cron schedule.
	ErrMissingSchedule = errors.New("ingest.schedule must not be empty")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Ingest.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Ingest.FetchTimeout < 0 {
		return ErrInvalidFetchTimeout
	}

	if c.RateLimit.FailureThreshold <= 0 {
		return ErrInvalidThreshold
	}

	if c.RateLimit.Cooldown <= 0 {
		return ErrInvalidCooldown
	}

	if c.Providers.Reddit.MaxPosts < 0 || c.Providers.Reddit.MaxComments < 0 {
		return ErrInvalidRedditCaps
	}

	return nil
}
