// Package config loads the service configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/devfolio/github-aggregator/pkg/github"
	"github.com/devfolio/github-aggregator/pkg/logging"
)

// Config holds the application configuration.
type Config struct {
	// API Server
	Port string
	Host string

	// Upstream GitHub API
	GitHubBaseURL    string
	GitHubAPIVersion string
	UserAgent        string

	// Per-operation timeouts
	UserTimeout   time.Duration
	ReposTimeout  time.Duration
	OrgsTimeout   time.Duration
	SearchTimeout time.Duration

	// Resilience
	MaxRetries         int
	InitialBackoff     time.Duration
	MaxBackoff         time.Duration
	RateLimitThreshold int
	RateLimitCeiling   int
	BreakerThreshold   int
	BreakerCooldown    time.Duration
	CacheMaxEntries    int

	// Logging
	LogLevel  string
	LogPretty bool
}

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	defaults := github.DefaultConfig()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Host:               getEnv("HOST", ""),
		GitHubBaseURL:      getEnv("GITHUB_API_BASE_URL", defaults.BaseURL),
		GitHubAPIVersion:   getEnv("GITHUB_API_VERSION", defaults.APIVersion),
		UserAgent:          getEnv("USER_AGENT", defaults.UserAgent),
		UserTimeout:        getEnvDuration("GITHUB_TIMEOUT_USER", defaults.UserTimeout),
		ReposTimeout:       getEnvDuration("GITHUB_TIMEOUT_REPOS", defaults.ReposTimeout),
		OrgsTimeout:        getEnvDuration("GITHUB_TIMEOUT_ORGS", defaults.OrgsTimeout),
		SearchTimeout:      getEnvDuration("GITHUB_TIMEOUT_SEARCH", defaults.SearchTimeout),
		MaxRetries:         getEnvInt("GITHUB_MAX_RETRIES", defaults.MaxRetries),
		InitialBackoff:     getEnvDuration("GITHUB_RETRY_INITIAL_BACKOFF", defaults.InitialBackoff),
		MaxBackoff:         getEnvDuration("GITHUB_RETRY_MAX_BACKOFF", defaults.MaxBackoff),
		RateLimitThreshold: getEnvInt("RATE_LIMIT_THRESHOLD", defaults.RateLimitThreshold),
		RateLimitCeiling:   getEnvInt("RATE_LIMIT_CEILING", defaults.RateLimitCeiling),
		BreakerThreshold:   getEnvInt("CIRCUIT_FAILURE_THRESHOLD", int(defaults.BreakerThreshold)),
		BreakerCooldown:    getEnvDuration("CIRCUIT_COOLDOWN", defaults.BreakerCooldown),
		CacheMaxEntries:    getEnvInt("CACHE_MAX_ENTRIES", defaults.CacheMaxEntries),
		LogLevel:           getEnv("LOG_LEVEL", string(logging.LevelInfo)),
		LogPretty:          getEnvBool("LOG_PRETTY", false),
	}, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.GitHubBaseURL == "" {
		return &ConfigError{Field: "GITHUB_API_BASE_URL", Message: "GitHub API base URL is required"}
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return &ConfigError{Field: "PORT", Message: "must be a port number"}
	}
	if c.UserTimeout <= 0 || c.ReposTimeout <= 0 || c.OrgsTimeout <= 0 || c.SearchTimeout <= 0 {
		return &ConfigError{Field: "GITHUB_TIMEOUT_*", Message: "timeouts must be positive"}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Field: "GITHUB_MAX_RETRIES", Message: "must not be negative"}
	}
	if c.BreakerThreshold <= 0 {
		return &ConfigError{Field: "CIRCUIT_FAILURE_THRESHOLD", Message: "must be positive"}
	}
	return nil
}

// ClientConfig maps the loaded configuration onto the GitHub client
// configuration.
func (c *Config) ClientConfig() github.Config {
	cfg := github.DefaultConfig()
	cfg.BaseURL = c.GitHubBaseURL
	cfg.APIVersion = c.GitHubAPIVersion
	cfg.UserAgent = c.UserAgent
	cfg.UserTimeout = c.UserTimeout
	cfg.ReposTimeout = c.ReposTimeout
	cfg.OrgsTimeout = c.OrgsTimeout
	cfg.SearchTimeout = c.SearchTimeout
	cfg.MaxRetries = c.MaxRetries
	cfg.InitialBackoff = c.InitialBackoff
	cfg.MaxBackoff = c.MaxBackoff
	cfg.RateLimitThreshold = c.RateLimitThreshold
	cfg.RateLimitCeiling = c.RateLimitCeiling
	cfg.BreakerThreshold = uint32(c.BreakerThreshold)
	cfg.BreakerCooldown = c.BreakerCooldown
	cfg.CacheMaxEntries = c.CacheMaxEntries
	return cfg
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable (e.g. "30s",
// "2m") or a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
