// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/spendguard/spendguard/internal/common"
)

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig
	LLM      LLMConfig
	Queue    QueueConfig
	Metrics  MetricsConfig
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string
}

// LLMConfig configures the classification provider.
type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// QueueConfig configures the embedded queue server and its clients.
type QueueConfig struct {
	StoreDir string
	// URL points clients at an already-running server. Empty means the
	// command embeds its own.
	URL string
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Addr string
}

// Load reads configuration from Viper with environment fallbacks for
// secrets. Call after viper.ReadInConfig.
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Path: ExpandPath(viper.GetString("database.path")),
		},
		LLM: LLMConfig{
			Provider: viper.GetString("llm.provider"),
			APIKey:   viper.GetString("llm.api_key"),
			Model:    viper.GetString("llm.model"),
			Timeout:  viper.GetDuration("llm.timeout"),
		},
		Queue: QueueConfig{
			StoreDir: ExpandPath(viper.GetString("queue.store_dir")),
			URL:      viper.GetString("queue.url"),
		},
		Metrics: MetricsConfig{
			Addr: viper.GetString("metrics.addr"),
		},
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = ExpandPath("~/.local/share/spendguard/spendguard.db")
	}
	if cfg.Queue.StoreDir == "" {
		cfg.Queue.StoreDir = ExpandPath("~/.local/share/spendguard/queue")
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}

	// Secrets come from the environment when the config file omits them.
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	return cfg, nil
}

// Validate checks that the pieces needed for classification are present.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: llm.api_key (or provider API key env var)", common.ErrMissingConfig)
	}
	return nil
}
