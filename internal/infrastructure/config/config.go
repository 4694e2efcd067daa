// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	port := cfg.Server.Port
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Matcher       MatcherConfig       `yaml:"matcher"`
	Import        ImportConfig        `yaml:"import"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MatcherConfig holds resident matching thresholds
type MatcherConfig struct {
	MinScore       float64 `yaml:"min_score"`
	ConfidentScore float64 `yaml:"confident_score"`
	MediumScore    float64 `yaml:"medium_score"`
	TieMargin      float64 `yaml:"tie_margin"`
	MaxCandidates  int     `yaml:"max_candidates"`
	// Phone and house passes are on unless explicitly disabled.
	DisablePhoneMatching bool `yaml:"disable_phone_matching"`
	DisableHouseMatching bool `yaml:"disable_house_matching"`
}

// ImportConfig holds statement import defaults
type ImportConfig struct {
	TransactionFilter      string `yaml:"transaction_filter"` // all, credit_only, debit_only
	DuplicateToleranceDays int    `yaml:"duplicate_tolerance_days"`
	SkipDuplicates         bool   `yaml:"skip_duplicates"`
	SkipUnmatched          bool   `yaml:"skip_unmatched"`
	RequireApproval        bool   `yaml:"require_approval"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${ESTATE_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("ESTATE_PORT", 8080),
			AllowedOrigins: splitList(getEnv("ESTATE_ALLOWED_ORIGINS", "*")),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("ESTATE_DB_PATH", "estate.db"),
		},
		Import: ImportConfig{
			TransactionFilter:      getEnv("ESTATE_TRANSACTION_FILTER", "credit_only"),
			DuplicateToleranceDays: getEnvInt("ESTATE_DUPLICATE_TOLERANCE_DAYS", 3),
			SkipDuplicates:         true,
			SkipUnmatched:          true,
			RequireApproval:        getEnv("ESTATE_REQUIRE_APPROVAL", "true") == "true",
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values that have sensible defaults, so a partial
// YAML file still yields a runnable configuration.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "estate.db"
	}
	if c.Matcher.MinScore == 0 {
		c.Matcher.MinScore = 0.60
	}
	if c.Matcher.ConfidentScore == 0 {
		c.Matcher.ConfidentScore = 0.90
	}
	if c.Matcher.MediumScore == 0 {
		c.Matcher.MediumScore = 0.70
	}
	if c.Matcher.TieMargin == 0 {
		c.Matcher.TieMargin = 0.05
	}
	if c.Matcher.MaxCandidates == 0 {
		c.Matcher.MaxCandidates = 5
	}
	if c.Import.TransactionFilter == "" {
		c.Import.TransactionFilter = "credit_only"
	}
	if c.Import.DuplicateToleranceDays == 0 {
		c.Import.DuplicateToleranceDays = 3
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
