package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the service-level runtime configuration: everything that
// is deployment-specific and therefore lives outside the frozen
// decision matrices. Loaded from YAML with env-var overrides for
// provider keys.
type Settings struct {
	Server    ServerSettings    `yaml:"server"`
	Providers ProviderSettings  `yaml:"providers"`
	Decision  DecisionSettings  `yaml:"decision"`
	RateLimit RateLimitSettings `yaml:"rate_limit"`
	Store     StoreSettings     `yaml:"store"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// ProviderSettings configures the three market-data providers. An
// empty APIKey disables the provider: its section always falls back.
type ProviderSettings struct {
	CallBudget time.Duration  `yaml:"call_budget"`
	MaxRetries int            `yaml:"max_retries"`
	RetryBase  time.Duration  `yaml:"retry_base"`
	Options    ProviderConfig `yaml:"options"`
	Stats      ProviderConfig `yaml:"stats"`
	Liquidity  ProviderConfig `yaml:"liquidity"`
}

// ProviderConfig is one provider endpoint.
type ProviderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Enabled reports whether the provider has a usable key.
func (p ProviderConfig) Enabled() bool { return p.APIKey != "" }

// DecisionSettings bounds one evaluation.
type DecisionSettings struct {
	SoftBudget time.Duration `yaml:"soft_budget"`
	AuditSize  int           `yaml:"audit_size"`
	// Timezone for session classification; decisions never consult the
	// host locale.
	SessionTimezone string `yaml:"session_timezone"`
}

// RateLimitSettings configures the webhook token bucket.
type RateLimitSettings struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// StoreSettings selects the store backend.
type StoreSettings struct {
	Backend   string `yaml:"backend"` // "memory" or "redis"
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// DefaultSettings returns production defaults; a config file and env
// overrides layer on top.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host:         "127.0.0.1",
			Port:         8090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1 << 20, // 1 MB webhook body cap
		},
		Providers: ProviderSettings{
			CallBudget: 600 * time.Millisecond,
			MaxRetries: 2,
			RetryBase:  50 * time.Millisecond,
			Options:    ProviderConfig{APIKeyEnv: "OPTIONS_API_KEY"},
			Stats:      ProviderConfig{APIKeyEnv: "STATS_API_KEY"},
			Liquidity:  ProviderConfig{APIKeyEnv: "LIQUIDITY_API_KEY"},
		},
		Decision: DecisionSettings{
			SoftBudget:      2 * time.Second,
			AuditSize:       1024,
			SessionTimezone: "America/New_York",
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Store: StoreSettings{
			Backend: "memory",
		},
	}
}

// LoadSettings reads the optional YAML file, then applies provider key
// env overrides. A missing path returns pure defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read settings %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return s, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}
	s.resolveKeys()
	return s, nil
}

// resolveKeys reads provider API keys from the environment once at
// init; keys are never re-read.
func (s *Settings) resolveKeys() {
	for _, p := range []*ProviderConfig{&s.Providers.Options, &s.Providers.Stats, &s.Providers.Liquidity} {
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
		}
	}
}
