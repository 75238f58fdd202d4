package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.GitHubBaseURL != "https://api.github.com" {
		t.Errorf("GitHubBaseURL = %q", cfg.GitHubBaseURL)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
	}
	if cfg.BreakerThreshold != 5 {
		t.Errorf("BreakerThreshold = %d, want 5", cfg.BreakerThreshold)
	}
	if cfg.BreakerCooldown != 60*time.Second {
		t.Errorf("BreakerCooldown = %v, want 60s", cfg.BreakerCooldown)
	}
	if cfg.RateLimitThreshold != 10 {
		t.Errorf("RateLimitThreshold = %d, want 10", cfg.RateLimitThreshold)
	}
	if cfg.RateLimitCeiling != 5000 {
		t.Errorf("RateLimitCeiling = %d, want 5000", cfg.RateLimitCeiling)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GITHUB_MAX_RETRIES", "5")
	t.Setenv("GITHUB_TIMEOUT_REPOS", "90s")
	t.Setenv("CIRCUIT_COOLDOWN", "2m")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.ReposTimeout != 90*time.Second {
		t.Errorf("ReposTimeout = %v, want 90s", cfg.ReposTimeout)
	}
	if cfg.BreakerCooldown != 2*time.Minute {
		t.Errorf("BreakerCooldown = %v, want 2m", cfg.BreakerCooldown)
	}
	if !cfg.LogPretty {
		t.Error("LogPretty = false, want true")
	}
}

func TestLoad_MalformedEnvFallsBackToDefaults(t *testing.T) {
	t.Setenv("GITHUB_MAX_RETRIES", "many")
	t.Setenv("GITHUB_TIMEOUT_USER", "soon")
	t.Setenv("LOG_PRETTY", "yes please")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want default 2", cfg.MaxRetries)
	}
	if cfg.UserTimeout != 30*time.Second {
		t.Errorf("UserTimeout = %v, want default 30s", cfg.UserTimeout)
	}
	if cfg.LogPretty {
		t.Error("LogPretty = true, want default false")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing base URL", func(c *Config) { c.GitHubBaseURL = "" }, "GITHUB_API_BASE_URL"},
		{"non-numeric port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"zero timeout", func(c *Config) { c.OrgsTimeout = 0 }, "GITHUB_TIMEOUT_*"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "GITHUB_MAX_RETRIES"},
		{"zero breaker threshold", func(c *Config) { c.BreakerThreshold = 0 }, "CIRCUIT_FAILURE_THRESHOLD"},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestClientConfig_Mapping(t *testing.T) {
	t.Setenv("GITHUB_API_BASE_URL", "https://github.example.com/api/v3")
	t.Setenv("CIRCUIT_FAILURE_THRESHOLD", "7")
	t.Setenv("RATE_LIMIT_CEILING", "15000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	clientCfg := cfg.ClientConfig()
	if clientCfg.BaseURL != "https://github.example.com/api/v3" {
		t.Errorf("BaseURL = %q", clientCfg.BaseURL)
	}
	if clientCfg.BreakerThreshold != 7 {
		t.Errorf("BreakerThreshold = %d, want 7", clientCfg.BreakerThreshold)
	}
	if clientCfg.RateLimitCeiling != 15000 {
		t.Errorf("RateLimitCeiling = %d, want 15000", clientCfg.RateLimitCeiling)
	}
}
