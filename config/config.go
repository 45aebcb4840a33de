package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Stockpulse StockpulseConfig `yaml:"stockpulse"`
	Feed       FeedConfig       `yaml:"feed"`
	Insights   InsightsConfig   `yaml:"insights"`
	API        APIConfig        `yaml:"api"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type StockpulseConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type FeedConfig struct {
	URL     string   `yaml:"url"`
	Token   string   `yaml:"token"`
	Symbols []string `yaml:"symbols"`
	// InsecureSkipVerify disables TLS certificate verification for the
	// feed connection. Verification stays on unless explicitly requested.
	InsecureSkipVerify bool                `yaml:"insecure_skip_verify"`
	Reconnect          ReconnectConfig     `yaml:"reconnect"`
	SubscribeRate      SubscribeRateConfig `yaml:"subscribe_rate"`
}

type ReconnectConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	// MaxAttempts is recorded for operator visibility only; retries are
	// unbounded.
	MaxAttempts int `yaml:"max_attempts"`
}

type SubscribeRateConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

type InsightsConfig struct {
	ThresholdPercent float64 `yaml:"threshold_percent"`
	HistorySize      int     `yaml:"history_size"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Defaults applied by LoadConfig when the corresponding field is unset.
const (
	DefaultReconnectInitialDelay = 5 * time.Second
	DefaultReconnectMaxDelay     = 60 * time.Second
	DefaultInsightHistorySize    = 1000
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override the feed token from the environment if available
	if v := os.Getenv("FEED_TOKEN"); v != "" {
		config.Feed.Token = strings.TrimSpace(v)
	} else if v := os.Getenv("FINNHUB_TOKEN"); v != "" {
		config.Feed.Token = strings.TrimSpace(v)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.TrimSpace(v)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Feed.Reconnect.InitialDelay <= 0 {
		cfg.Feed.Reconnect.InitialDelay = DefaultReconnectInitialDelay
	}
	if cfg.Feed.Reconnect.MaxDelay <= 0 {
		cfg.Feed.Reconnect.MaxDelay = DefaultReconnectMaxDelay
	}
	if cfg.Insights.HistorySize <= 0 {
		cfg.Insights.HistorySize = DefaultInsightHistorySize
	}

	// Watched symbols are matched in uppercase everywhere
	for i, s := range cfg.Feed.Symbols {
		cfg.Feed.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Stockpulse.Name == "" {
		return fmt.Errorf("stockpulse.name is required")
	}
	if cfg.Stockpulse.Version == "" {
		return fmt.Errorf("stockpulse.version is required")
	}
	if cfg.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if !strings.HasPrefix(cfg.Feed.URL, "ws://") && !strings.HasPrefix(cfg.Feed.URL, "wss://") {
		return fmt.Errorf("feed.url must be a ws:// or wss:// URL")
	}
	if len(cfg.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols must not be empty")
	}
	if cfg.Insights.ThresholdPercent <= 0 {
		return fmt.Errorf("insights.threshold_percent must be greater than 0")
	}
	if cfg.Feed.Reconnect.MaxDelay < cfg.Feed.Reconnect.InitialDelay {
		return fmt.Errorf("feed.reconnect.max_delay must not be less than initial_delay")
	}
	if cfg.API.Enabled && cfg.API.Address == "" {
		return fmt.Errorf("api.address is required when the API is enabled")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}
	return nil
}
