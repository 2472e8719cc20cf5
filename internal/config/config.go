// Package config loads and validates configuration at startup.
// Fail-fast: if a required variable is missing, the process exits.
//
// Sources, lowest precedence first: defaults, an optional discovery.yaml in
// the working directory, a .env file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ProviderConfig is the construction config shared by every adapter.
type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// AdzunaConfig adds the Adzuna application id and country.
type AdzunaConfig struct {
	ProviderConfig `mapstructure:",squash"`
	AppID          string `mapstructure:"app_id"`
	Country        string `mapstructure:"country"` // e.g. "fr", "gb", "us"
}

// ProvidersConfig groups every known adapter.
type ProvidersConfig struct {
	Adzuna     AdzunaConfig   `mapstructure:"adzuna"`
	TheirStack ProviderConfig `mapstructure:"theirstack"`
	Mock       ProviderConfig `mapstructure:"mock"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // "openai" or "gemini"
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// Config holds all runtime configuration for the matching service.
type Config struct {
	Port                string          `mapstructure:"port"`
	GRPCPort            string          `mapstructure:"grpc_port"`
	DatabaseURL         string          `mapstructure:"database_url"`
	RedisURL            string          `mapstructure:"redis_url"`
	ScrapeIntervalHours int             `mapstructure:"scrape_interval_hours"` // How often the cron job fires
	EnrichmentQueueSize int             `mapstructure:"enrichment_queue_size"`
	LogJSON             bool            `mapstructure:"log_json"`
	Debug               bool            `mapstructure:"debug"`
	Providers           ProvidersConfig `mapstructure:"providers"`
	Embedding           EmbeddingConfig `mapstructure:"embedding"`
}

// envBindings keeps the discovery service's historical variable names.
var envBindings = map[string]string{
	"port":                          "DISCOVERY_PORT",
	"grpc_port":                     "GRPC_PORT",
	"database_url":                  "DATABASE_URL",
	"redis_url":                     "REDIS_URL",
	"scrape_interval_hours":         "SCRAPE_INTERVAL_HOURS",
	"enrichment_queue_size":         "ENRICHMENT_QUEUE_SIZE",
	"log_json":                      "LOG_JSON",
	"debug":                         "DEBUG",
	"providers.adzuna.enabled":      "PROVIDERS_ADZUNA_ENABLED",
	"providers.adzuna.app_id":       "ADZUNA_APP_ID",
	"providers.adzuna.api_key":      "ADZUNA_APP_KEY",
	"providers.adzuna.country":      "ADZUNA_COUNTRY",
	"providers.theirstack.enabled":  "PROVIDERS_THEIRSTACK_ENABLED",
	"providers.theirstack.api_key":  "THEIRSTACK_API_KEY",
	"providers.mock.enabled":        "PROVIDERS_MOCK_ENABLED",
	"embedding.provider":            "EMBEDDING_PROVIDER",
	"embedding.api_key":             "EMBEDDING_API_KEY",
	"embedding.model":               "EMBEDDING_MODEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8081")
	v.SetDefault("grpc_port", "9081")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("scrape_interval_hours", 1)
	v.SetDefault("enrichment_queue_size", 256)
	v.SetDefault("log_json", false)
	v.SetDefault("debug", false)
	v.SetDefault("providers.adzuna.enabled", true)
	v.SetDefault("providers.adzuna.app_id", "")
	v.SetDefault("providers.adzuna.api_key", "")
	v.SetDefault("providers.adzuna.country", "fr")
	v.SetDefault("providers.theirstack.enabled", false)
	v.SetDefault("providers.theirstack.api_key", "")
	v.SetDefault("providers.mock.enabled", false)
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "")
}

// Load reads configuration and returns a validated Config.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("discovery")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read discovery.yaml: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.ScrapeIntervalHours < 1 {
		return fmt.Errorf("SCRAPE_INTERVAL_HOURS must be a positive integer, got %d", c.ScrapeIntervalHours)
	}
	if c.EnrichmentQueueSize < 1 {
		return fmt.Errorf("ENRICHMENT_QUEUE_SIZE must be a positive integer, got %d", c.EnrichmentQueueSize)
	}

	c.Embedding.Provider = strings.ToLower(strings.TrimSpace(c.Embedding.Provider))
	switch c.Embedding.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be openai or gemini, got %q", c.Embedding.Provider)
	}

	if c.Providers.Adzuna.Country == "" {
		c.Providers.Adzuna.Country = "fr"
	}
	return nil
}
