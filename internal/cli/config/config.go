// Package config loads the lifecycle tool configuration from
// lifecycle.yml with environment variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents the lifecycle tool configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Hooks    HooksConfig    `mapstructure:"hooks"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	Dialect string `mapstructure:"dialect"`
}

// HooksConfig represents hook execution configuration
type HooksConfig struct {
	AsyncWorkers int `mapstructure:"async_workers"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads the configuration from lifecycle.yml or lifecycle.yaml
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("database.dialect", "postgres")
	v.SetDefault("hooks.async_workers", 4)
	v.SetDefault("logging.level", "info")

	v.SetConfigName("lifecycle")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file - defaults apply.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetDatabaseURL returns the database URL, preferring the environment.
func GetDatabaseURL(cfg *Config) string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Database.URL
	}
	return ""
}

func validateConfig(config *Config) error {
	switch config.Database.Dialect {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database dialect: %s", config.Database.Dialect)
	}
	if config.Hooks.AsyncWorkers < 1 {
		return fmt.Errorf("hooks.async_workers must be at least 1, got %d", config.Hooks.AsyncWorkers)
	}
	return nil
}
