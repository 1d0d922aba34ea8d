// Package config provides configuration management for the Inkwell content
// service. It covers the HTTP server, AI completion providers, the generation
// pipeline, and runtime behavior customization.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
// It combines server settings, provider configuration, pipeline behavior,
// and logging preferences into a single, cohesive structure.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Pipeline  PipelineConfig            `yaml:"pipeline"`
	Logging   LoggingConfig             `yaml:"logging"`
	RateLimit RateLimitConfig           `yaml:"rate_limit"`
	Queue     QueueConfig               `yaml:"queue"`
}

// ServerConfig holds server-specific configuration for the HTTP server.
// It defines timeouts, limits, and operational parameters.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 8080)
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Generation runs are long; keep this generous (default: 5m)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout specifies how long to wait for the server to shutdown
	// gracefully before forcing termination (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProviderConfig holds configuration for one AI completion provider.
type ProviderConfig struct {
	// Type is the provider wire protocol: "openai" or "anthropic"
	Type string `yaml:"type"`

	// Model is the default model identifier for this provider
	// (e.g., "gpt-4o", "claude-3-5-sonnet-20241022")
	Model string `yaml:"model"`

	// APIKey authenticates against the provider's API.
	// Use environment variables (e.g., ${OPENAI_API_KEY}) in config files.
	APIKey string `yaml:"api_key"`

	// Endpoint overrides the provider's base URL (optional)
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds a single provider HTTP call (default: 120s).
	// A hang is converted into a transient failure and retried.
	Timeout time.Duration `yaml:"timeout"`
}

// PipelineConfig holds the generation pipeline behavior. All values are read
// once at startup and treated as immutable for the process lifetime.
type PipelineConfig struct {
	// MaxRetries is the per-adapter retry budget and the number of primary
	// attempts in the generation fallback chain (default: 3)
	MaxRetries int `yaml:"max_retries"`

	// BackoffMin is the base backoff delay; attempt i sleeps
	// min(BackoffMin * 2^(i-1), BackoffMax) (default: 2s)
	BackoffMin time.Duration `yaml:"backoff_min"`

	// BackoffMax caps the backoff delay (default: 60s)
	BackoffMax time.Duration `yaml:"backoff_max"`

	// DefaultTemperature is used when a request carries none (default: 0.7).
	// Never sent to reasoning models.
	DefaultTemperature float64 `yaml:"default_temperature"`

	// DefaultMaxTokens is the token budget used when a request carries none
	// (default: 4096)
	DefaultMaxTokens int `yaml:"default_max_tokens"`

	// MaxContextTokens bounds the total prompt token count accepted by the
	// HTTP surface (default: 16384)
	MaxContextTokens int `yaml:"max_context_tokens"`

	// ValidatorModel overrides the model used for quality scoring (optional;
	// defaults to the primary provider's model)
	ValidatorModel string `yaml:"validator_model"`

	// FixerModel overrides the model used for content repair (default: gpt-4o)
	FixerModel string `yaml:"fixer_model"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level"`

	// Format specifies log output format: json or text
	Format string `yaml:"format"`
}

// RateLimitConfig controls the per-client rate limiting middleware.
type RateLimitConfig struct {
	// Enabled determines if rate limiting is active (default: true)
	Enabled bool `yaml:"enabled"`

	// RequestsPerMinute is the sustained per-IP rate (default: 10)
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// Burst is the per-IP burst allowance (default: 10)
	Burst int `yaml:"burst"`
}

// QueueConfig defines the configuration for the admission queue middleware
// guarding the pipeline endpoints.
type QueueConfig struct {
	// Enabled determines if the queue middleware is active
	Enabled bool `yaml:"enabled"`

	// MaxSize is the maximum number of queued requests before rejection
	MaxSize int64 `yaml:"max_size"`

	// Concurrency is the number of requests allowed to run at once
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns a configuration that aligns with the validation
// requirements while keeping the implementation focused on the two supported
// providers.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},

		Providers: map[string]ProviderConfig{
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o",
				APIKey:  "${OPENAI_API_KEY}",
				Timeout: 120 * time.Second,
			},
			"anthropic": {
				Type:    "anthropic",
				Model:   "claude-3-5-sonnet-20241022",
				APIKey:  "${ANTHROPIC_API_KEY}",
				Timeout: 120 * time.Second,
			},
		},

		Pipeline: PipelineConfig{
			MaxRetries:         3,
			BackoffMin:         2 * time.Second,
			BackoffMax:         60 * time.Second,
			DefaultTemperature: 0.7,
			DefaultMaxTokens:   4096,
			MaxContextTokens:   16384,
			FixerModel:         "gpt-4o",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},

		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 10,
			Burst:             10,
		},

		Queue: QueueConfig{
			Enabled:     false,
			MaxSize:     100,
			Concurrency: 4,
		},
	}
}

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// expandEnvVars resolves environment variable references within configuration
// strings. It supports standard ${VAR} substitution, the ${VAR:-default}
// default-value syntax, and nested references.
func expandEnvVars(s string) string {
	result := os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			envKey := key[:i]
			defaultValue := key[i+2:]

			if val := os.Getenv(envKey); val != "" {
				return val
			}
			return defaultValue
		}

		return os.Getenv(key)
	})

	// Resolve nested references until a fixed point is reached.
	prev := ""
	for prev != result {
		prev = result
		result = os.Expand(result, os.Getenv)
	}

	return result
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	// Start with defaults
	config := DefaultConfig()

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", c.Server.MaxHeaderBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", c.Server.ShutdownTimeout)
	}

	// Provider validation
	if len(c.Providers) == 0 {
		return fmt.Errorf("no providers configured")
	}
	for name, p := range c.Providers {
		switch p.Type {
		case "openai", "anthropic":
			// Supported provider types
		default:
			return fmt.Errorf("unsupported provider type %q for provider %s", p.Type, name)
		}
		if p.Model == "" {
			return fmt.Errorf("empty model for provider %s", name)
		}
		if p.Timeout < 0 {
			return fmt.Errorf("negative timeout for provider %s: %v", name, p.Timeout)
		}
	}

	// Pipeline validation
	if c.Pipeline.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.Pipeline.MaxRetries)
	}
	if c.Pipeline.BackoffMin <= 0 {
		return fmt.Errorf("backoff_min must be positive, got %v", c.Pipeline.BackoffMin)
	}
	if c.Pipeline.BackoffMax < c.Pipeline.BackoffMin {
		return fmt.Errorf("backoff_max (%v) must be at least backoff_min (%v)",
			c.Pipeline.BackoffMax, c.Pipeline.BackoffMin)
	}
	if c.Pipeline.DefaultTemperature < 0 || c.Pipeline.DefaultTemperature > 2 {
		return fmt.Errorf("default_temperature must be between 0 and 2, got %v",
			c.Pipeline.DefaultTemperature)
	}
	if c.Pipeline.DefaultMaxTokens <= 0 {
		return fmt.Errorf("default_max_tokens must be positive, got %d", c.Pipeline.DefaultMaxTokens)
	}
	if c.Pipeline.MaxContextTokens <= 0 {
		return fmt.Errorf("max_context_tokens must be positive, got %d", c.Pipeline.MaxContextTokens)
	}

	// Logging validation
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Rate limit validation
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("requests_per_minute must be positive, got %d",
				c.RateLimit.RequestsPerMinute)
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("burst must be positive, got %d", c.RateLimit.Burst)
		}
	}

	// Queue validation
	if c.Queue.Enabled {
		if c.Queue.MaxSize <= 0 {
			return fmt.Errorf("queue max_size must be positive, got %d", c.Queue.MaxSize)
		}
		if c.Queue.Concurrency <= 0 {
			return fmt.Errorf("queue concurrency must be positive, got %d", c.Queue.Concurrency)
		}
	}

	return nil
}
