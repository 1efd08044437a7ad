package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	PairingSource PairingSourceConfig `yaml:"pairing_source"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the API listener configuration.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// PairingSourceConfig holds the external pairing service configuration.
type PairingSourceConfig struct {
	BaseURL       string  `yaml:"base_url"`
	MaxRetries    uint64  `yaml:"max_retries"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("PAIRINGS_BASE_URL"); v != "" {
		cfg.PairingSource.BaseURL = v
	}
	if v := os.Getenv("PAIRINGS_MAX_RETRIES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.PairingSource.MaxRetries = n
		}
	}
	if v := os.Getenv("PAIRINGS_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.PairingSource.RatePerSecond = f
		}
	}
	if v := os.Getenv("PAIRINGS_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PairingSource.RateBurst = n
		}
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	// NATS is optional; without it the app runs with event publication
	// disabled.
	cfg.NATS.URL = os.Getenv("NATS_URL")

	cfg.HTTP.Address = os.Getenv("HTTP_ADDRESS")
	cfg.PairingSource.BaseURL = os.Getenv("PAIRINGS_BASE_URL")
	if v := os.Getenv("PAIRINGS_MAX_RETRIES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PAIRINGS_MAX_RETRIES value: %v", err)
		}
		cfg.PairingSource.MaxRetries = n
	}
	if v := os.Getenv("PAIRINGS_RATE_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PAIRINGS_RATE_PER_SECOND value: %v", err)
		}
		cfg.PairingSource.RatePerSecond = f
	}
	cfg.Observability.MetricsAddress = os.Getenv("METRICS_ADDRESS") // optional; empty disables metrics
	cfg.Observability.Environment = os.Getenv("ENV")

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.PairingSource.MaxRetries == 0 {
		cfg.PairingSource.MaxRetries = 2
	}
	if cfg.PairingSource.RatePerSecond == 0 {
		cfg.PairingSource.RatePerSecond = 5
	}
	if cfg.PairingSource.RateBurst == 0 {
		cfg.PairingSource.RateBurst = 10
	}
}
