package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/soundware/sndw"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Harness  HarnessConfig  `mapstructure:"harness"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig stores HTTP listener settings.
type ServerConfig struct {
	Addr               string        `mapstructure:"addr"`
	StaticDir          string        `mapstructure:"static_dir"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"` // per client IP
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// LLMConfig stores generative model settings.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // "openai", "gemini"
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"` // OpenAI-compatible endpoint
	APIKey      string        `mapstructure:"api_key"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LookupConfig stores video lookup settings.
type LookupConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"` // per lookup call

	// Circuit breaker
	BreakerMaxRequests  uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval     time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout      time.Duration `mapstructure:"breaker_timeout"`
	BreakerMinRequests  uint32        `mapstructure:"breaker_min_requests"`
	BreakerFailureRatio float64       `mapstructure:"breaker_failure_ratio"`
}

// PipelineConfig stores recommendation turn settings.
type PipelineConfig struct {
	MaxTurns         int     `mapstructure:"max_turns"`          // conversational turns kept after the system turn
	MaxContextTokens int     `mapstructure:"max_context_tokens"` // 0 disables the token budget
	MinResults       int     `mapstructure:"min_results"`        // quality gate threshold
	MaxConcurrency   int     `mapstructure:"max_concurrency"`    // concurrent lookups per turn
	MaxOutputSize    int     `mapstructure:"max_output_size"`    // bytes of generated text accepted
	SystemPrompt     string  `mapstructure:"system_prompt"`      // empty uses the built-in instruction
	Temperature      float32 `mapstructure:"temperature"`
}

// SessionsConfig stores conversation session lifecycle settings.
type SessionsConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxSessions   int           `mapstructure:"max_sessions"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// HarnessConfig stores cross-cutting pipeline adapters.
type HarnessConfig struct {
	// Cache settings
	CacheEnabled    bool `mapstructure:"cache_enabled"`     // Memoize lookup results
	CacheCapacity   int  `mapstructure:"cache_capacity"`    // LRU cache capacity
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"` // Cache entry TTL

	// Rate limiting
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`     // Enable per-session turn limiting
	RateLimitCapacity   int           `mapstructure:"rate_limit_capacity"`    // Token bucket capacity
	RateLimitRefillRate time.Duration `mapstructure:"rate_limit_refill_rate"` // Refill rate

	// Telemetry
	EnableTracing bool `mapstructure:"enable_tracing"` // Enable structured span logging

	// Persistence
	PersistTranscripts bool `mapstructure:"persist_transcripts"` // Save turns to the database
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	DSN       string `mapstructure:"dsn"`
	AuthToken string `mapstructure:"auth_token"` // remote libsql only
	DataDir   string `mapstructure:"data_dir"`
}

// LoggingConfig stores logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.AutomaticEnv()
	// llm.api_key becomes LLM_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", internal.DefaultListenAddr)
	v.SetDefault("server.static_dir", internal.DefaultStaticDir)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s") // a turn waits on the model and every lookup
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_requests", 60)
	v.SetDefault("server.rate_limit_window", "1m")

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", "60s")

	// Lookup defaults (YouTube Data API v3)
	v.SetDefault("lookup.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("lookup.api_key", "")
	v.SetDefault("lookup.timeout", "10s")
	v.SetDefault("lookup.breaker_max_requests", 3)
	v.SetDefault("lookup.breaker_interval", "1m")
	v.SetDefault("lookup.breaker_timeout", "30s")
	v.SetDefault("lookup.breaker_min_requests", 10)
	v.SetDefault("lookup.breaker_failure_ratio", 0.6)

	// Pipeline defaults
	v.SetDefault("pipeline.max_turns", 10) // 5 user/assistant pairs
	v.SetDefault("pipeline.max_context_tokens", 0)
	v.SetDefault("pipeline.min_results", 2)
	v.SetDefault("pipeline.max_concurrency", 8)
	v.SetDefault("pipeline.max_output_size", 16384)
	v.SetDefault("pipeline.system_prompt", "")
	v.SetDefault("pipeline.temperature", 0.7)

	// Session defaults
	v.SetDefault("sessions.ttl", "30m")
	v.SetDefault("sessions.max_sessions", 1000)
	v.SetDefault("sessions.sweep_interval", "1m")

	// Harness defaults
	v.SetDefault("harness.cache_enabled", true)
	v.SetDefault("harness.cache_capacity", 1000)
	v.SetDefault("harness.cache_ttl_seconds", 86400) // video ids are stable
	v.SetDefault("harness.rate_limit_enabled", true)
	v.SetDefault("harness.rate_limit_capacity", 5)
	v.SetDefault("harness.rate_limit_refill_rate", "2s")
	v.SetDefault("harness.enable_tracing", true)
	v.SetDefault("harness.persist_transcripts", false)

	// Database defaults
	v.SetDefault("database.dsn", internal.DefaultDatabaseDSN)
	v.SetDefault("database.auth_token", "")
	v.SetDefault("database.data_dir", internal.DefaultDatabaseDir)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.MaxTurns < 2 || c.Pipeline.MaxTurns%2 != 0 {
		return fmt.Errorf("pipeline.max_turns must be an even number >= 2: %d", c.Pipeline.MaxTurns)
	}
	if c.Pipeline.MinResults < 1 {
		return fmt.Errorf("pipeline.min_results must be >= 1: %d", c.Pipeline.MinResults)
	}
	if c.Pipeline.MaxConcurrency < 1 {
		return fmt.Errorf("pipeline.max_concurrency must be >= 1: %d", c.Pipeline.MaxConcurrency)
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be one of openai, gemini: %q", c.LLM.Provider)
	}
	return nil
}
