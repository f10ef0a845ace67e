// Package config loads goldmine's configuration.
//
// Values come from, in increasing priority: built-in defaults, a YAML file,
// .env files, and the process environment (via `env` struct tags). The
// result is validated once and then passed by value; nothing here writes to
// the environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/goldmine/internal/brain"
	"github.com/abelbrown/goldmine/internal/cache"
)

// Config is the complete application configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Quota    QuotaConfig    `yaml:"quota"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Sources  SourcesConfig  `yaml:"sources"`
	Cache    CacheConfig    `yaml:"cache"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LLMConfig selects and configures the generative-text provider.
type LLMConfig struct {
	Provider   string        `yaml:"provider" env:"GOLDMINE_LLM_PROVIDER" validate:"oneof=claude anthropic openai grok ollama"`
	Model      string        `yaml:"model" env:"GOLDMINE_LLM_MODEL"`
	APIKey     string        `yaml:"api_key" env:"GOLDMINE_LLM_API_KEY"`
	Endpoint   string        `yaml:"endpoint" env:"GOLDMINE_LLM_ENDPOINT" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout" env:"GOLDMINE_LLM_TIMEOUT" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" env:"GOLDMINE_LLM_MAX_RETRIES" validate:"gte=0,lte=5"`
	MaxTokens  int           `yaml:"max_tokens" env:"GOLDMINE_LLM_MAX_TOKENS" validate:"gt=0"`

	// Fallbacks are tried in order when the primary provider has no key.
	// They use their default model and endpoint.
	Fallbacks []string `yaml:"fallbacks" env:"GOLDMINE_LLM_FALLBACKS" validate:"dive,oneof=claude anthropic openai grok ollama"`

	// fallbackKeys holds keys resolved from the environment, by provider.
	fallbackKeys map[string]string
}

// QuotaConfig bounds calls to the provider. Zero disables a limit.
type QuotaConfig struct {
	PerMinute int `yaml:"per_minute" env:"GOLDMINE_QUOTA_PER_MINUTE" validate:"gte=0"`
	PerDay    int `yaml:"per_day" env:"GOLDMINE_QUOTA_PER_DAY" validate:"gte=0"`
}

// PipelineConfig holds the funnel cutoffs and concurrency limits.
type PipelineConfig struct {
	ShortlistSize        int           `yaml:"shortlist_size" validate:"gte=1,lte=100"`
	FinalistSize         int           `yaml:"finalist_size" validate:"gte=1,lte=10,ltefield=ShortlistSize"`
	BlueprintConcurrency int           `yaml:"blueprint_concurrency" env:"GOLDMINE_BLUEPRINT_CONCURRENCY" validate:"gte=1,lte=20"`
	FetchConcurrency     int           `yaml:"fetch_concurrency" env:"GOLDMINE_FETCH_CONCURRENCY" validate:"gte=1,lte=32"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout" env:"GOLDMINE_FETCH_TIMEOUT" validate:"gt=0"`
}

// SourcesConfig holds fetch defaults.
type SourcesConfig struct {
	Channels  []string `yaml:"channels"`
	Window    string   `yaml:"window" env:"GOLDMINE_WINDOW" validate:"oneof=day week month"`
	UserAgent string   `yaml:"user_agent" env:"GOLDMINE_USER_AGENT" validate:"required"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend" env:"GOLDMINE_CACHE_BACKEND" validate:"oneof=sqlite redis none"`
	TTL           time.Duration `yaml:"ttl" env:"GOLDMINE_CACHE_TTL" validate:"gte=0"`
	RedisAddress  string        `yaml:"redis_address" env:"GOLDMINE_REDIS_ADDRESS" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redis_password" env:"GOLDMINE_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"GOLDMINE_REDIS_DB" validate:"gte=0"`
}

// StoreConfig locates the SQLite database and sets per-user caps.
type StoreConfig struct {
	Path           string `yaml:"path" env:"GOLDMINE_DB_PATH" validate:"required"`
	HistoryLimit   int    `yaml:"history_limit" validate:"gte=1"`
	FavoritesLimit int    `yaml:"favorites_limit" validate:"gte=1"`
}

// LogConfig controls the text log and the JSONL event log.
type LogConfig struct {
	Level      string `yaml:"level" env:"GOLDMINE_LOG_LEVEL" validate:"oneof=debug info warn error"`
	Dir        string `yaml:"dir" env:"GOLDMINE_LOG_DIR"`
	EventsPath string `yaml:"events_path" env:"GOLDMINE_EVENTS_PATH"`
}

// MetricsConfig enables Prometheus metrics. Listen starts a /metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"GOLDMINE_METRICS_ENABLED"`
	Listen  string `yaml:"listen" env:"GOLDMINE_METRICS_LISTEN" validate:"omitempty,hostname_port"`
}

// HomeDir is the directory for goldmine's data files.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".goldmine"
	}
	return filepath.Join(home, ".goldmine")
}

// Default returns the built-in configuration.
func Default() Config {
	dir := HomeDir()
	return Config{
		LLM: LLMConfig{
			Provider:   "claude",
			Timeout:    60 * time.Second,
			MaxRetries: 0,
			MaxTokens:  2048,
			Fallbacks:  []string{"openai", "grok"},
		},
		Quota: QuotaConfig{
			PerMinute: 20,
			PerDay:    500,
		},
		Pipeline: PipelineConfig{
			ShortlistSize:        20,
			FinalistSize:         10,
			BlueprintConcurrency: 5,
			FetchConcurrency:     5,
			FetchTimeout:         30 * time.Second,
		},
		Sources: SourcesConfig{
			Window:    "week",
			UserAgent: "goldmine/1.0 (+https://github.com/abelbrown/goldmine)",
		},
		Cache: CacheConfig{
			Backend: "sqlite",
			TTL:     6 * time.Hour,
		},
		Store: StoreConfig{
			Path:           filepath.Join(dir, "goldmine.db"),
			HistoryLimit:   20,
			FavoritesLimit: 50,
		},
		Log: LogConfig{
			Level:      "info",
			Dir:        filepath.Join(dir, "logs"),
			EventsPath: filepath.Join(dir, "events.jsonl"),
		},
	}
}

// Path returns the config file location: $GOLDMINE_CONFIG, or
// ~/.goldmine/config.yaml.
func Path() string {
	if p := os.Getenv("GOLDMINE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(HomeDir(), "config.yaml")
}

// Settings converts the llm section into provider settings.
func (c Config) Settings() brain.Settings {
	return brain.Settings{
		Provider:   c.LLM.Provider,
		Model:      c.LLM.Model,
		APIKey:     c.LLM.APIKey,
		Endpoint:   c.LLM.Endpoint,
		Timeout:    c.LLM.Timeout,
		MaxRetries: c.LLM.MaxRetries,
		MaxTokens:  c.LLM.MaxTokens,
	}
}

// Redis converts the cache section into Redis connection settings.
func (c Config) Redis() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  c.Cache.RedisAddress,
		Password: c.Cache.RedisPassword,
		DB:       c.Cache.RedisDB,
	}
}

// ProviderChain returns the primary provider settings followed by one
// entry per fallback. Fallbacks naming the primary are skipped.
func (c Config) ProviderChain() []brain.Settings {
	primary := c.Settings()
	chain := []brain.Settings{primary}
	seen := map[string]bool{canonicalProvider(primary.Provider): true}
	for _, name := range c.LLM.Fallbacks {
		if seen[canonicalProvider(name)] {
			continue
		}
		seen[canonicalProvider(name)] = true
		chain = append(chain, brain.Settings{
			Provider:   name,
			APIKey:     c.LLM.fallbackKeys[name],
			Timeout:    c.LLM.Timeout,
			MaxRetries: c.LLM.MaxRetries,
			MaxTokens:  c.LLM.MaxTokens,
		})
	}
	return chain
}

func canonicalProvider(name string) string {
	if name == "anthropic" {
		return "claude"
	}
	return name
}
