package config

import "time"

// Config represents the complete orchestra-gw configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	State   StateConfig   `yaml:"state"`
	API     APIConfig     `yaml:"api"`
	Quota   QuotaConfig   `yaml:"quota"`
	Agents  AgentsConfig  `yaml:"agents"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// StateConfig defines where quota and audit state lives.
type StateConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Listen string        `yaml:"listen"`
	Auth   APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is the legacy single bearer token (default tenant, full
	// access). Prefer Tokens for per-tenant scoped access.
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token, the tenant it acts for, and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Tenant string   `yaml:"tenant"`
	Scopes []string `yaml:"scopes"`
}

// QuotaConfig defines the daily execution-time budget per tenant.
type QuotaConfig struct {
	Enabled     bool                     `yaml:"enabled"`
	DailyBudget time.Duration            `yaml:"daily_budget"`
	Overrides   map[string]time.Duration `yaml:"overrides,omitempty"`
}

// AgentsConfig defines builtin capability settings.
type AgentsConfig struct {
	// RepositoryRoot anchors relative repository paths for analysis.
	RepositoryRoot string `yaml:"repository_root"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "orchestra-gw",
			LogLevel: "info",
		},
		State: StateConfig{
			Path: "./data/state.db",
		},
		API: APIConfig{
			Listen: "127.0.0.1:8080",
		},
		Quota: QuotaConfig{
			Enabled:     true,
			DailyBudget: 2 * time.Hour,
		},
		Agents: AgentsConfig{
			RepositoryRoot: ".",
		},
	}
}
