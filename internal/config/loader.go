package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".pulseboard"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for pulseboard settings.
const envPrefix = "PULSEBOARD"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load reads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// A missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("database.dsn", DefaultDatabaseDSN)
	viperCfg.SetDefault("blobs.dir", DefaultBlobDir)

	viperCfg.SetDefault("ingest.workers", DefaultIngestWorkers)
	viperCfg.SetDefault("ingest.fetch_timeout", DefaultIngestFetchTimeout)
	viperCfg.SetDefault("ingest.schedule", DefaultIngestSchedule)

	viperCfg.SetDefault("rate_limit.failure_threshold", DefaultFailureThreshold)
	viperCfg.SetDefault("rate_limit.cooldown", DefaultCooldown)

	viperCfg.SetDefault("providers.github.base_url", DefaultGitHubBaseURL)
	viperCfg.SetDefault("providers.github.max_repos", DefaultGitHubMaxRepos)
	viperCfg.SetDefault("providers.bluesky.base_url", DefaultBlueskyBaseURL)
	viperCfg.SetDefault("providers.bluesky.limit", DefaultBlueskyLimit)
	viperCfg.SetDefault("providers.youtube.base_url", DefaultYouTubeBaseURL)
	viperCfg.SetDefault("providers.youtube.max_results", DefaultYouTubeMaxResults)
	viperCfg.SetDefault("providers.dayplan.base_url", DefaultDayplanBaseURL)
	viperCfg.SetDefault("providers.reddit.base_url", DefaultRedditBaseURL)
	viperCfg.SetDefault("providers.reddit.max_posts", DefaultRedditMaxRows)
	viperCfg.SetDefault("providers.reddit.max_comments", DefaultRedditMaxRows)
	viperCfg.SetDefault("providers.reddit.user_agent", DefaultRedditUserAgent)
	viperCfg.SetDefault("providers.twitter.base_url", DefaultTwitterBaseURL)
	viperCfg.SetDefault("providers.twitter.page_size", DefaultTwitterPageSize)

	viperCfg.SetDefault("server.metrics_addr", DefaultMetricsAddr)
}
