package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/coursecraft/internal/llm"
	"github.com/abhisek/coursecraft/internal/ratelimit"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "coursecraft.yaml"

// Load reads .env files, then returns a Config built from defaults, the
// optional YAML file at path and the environment. Provider API keys are not
// required here; commands that generate call LLM.Validate.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")
	return LoadFrom(path)
}

// LoadFrom is Load without the .env step.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()
	derivedWrite := cfg.Server.WriteTimeout

	if err := loadYAML(&cfg, path); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	// An unset write timeout follows the phase timeouts as finally layered.
	if cfg.Server.WriteTimeout == derivedWrite {
		cfg.Server.WriteTimeout = writeTimeoutFor(cfg.Generation)
	}
	cfg.LLM.ApplyEnv()
	if cfg.LLM.Provider != llm.ProviderMock {
		cfg.LLM.Discover()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

// loadYAML unmarshals the file over cfg. A missing file is not an error.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays non-empty COURSECRAFT_* variables onto cfg. LLM settings
// are handled by llm.Config.ApplyEnv.
func loadEnv(cfg *Config) {
	setString(&cfg.Env, "COURSECRAFT_ENV")
	setString(&cfg.LogLevel, "COURSECRAFT_LOG_LEVEL")
	setString(&cfg.DBPath, "COURSECRAFT_DB")

	setInt(&cfg.Generation.Outline.MaxTokens, "COURSECRAFT_OUTLINE_MAX_TOKENS")
	setDuration(&cfg.Generation.Outline.Timeout, "COURSECRAFT_OUTLINE_TIMEOUT")
	setInt(&cfg.Generation.Content.MaxTokens, "COURSECRAFT_CONTENT_MAX_TOKENS")
	setDuration(&cfg.Generation.Content.Timeout, "COURSECRAFT_CONTENT_TIMEOUT")

	setString(&cfg.RateLimit.Backend, "COURSECRAFT_RATE_LIMIT_BACKEND")
	setString(&cfg.RateLimit.Redis.Addr, "COURSECRAFT_REDIS_ADDR")
	setString(&cfg.RateLimit.Redis.Password, "COURSECRAFT_REDIS_PASSWORD")
	setInt(&cfg.RateLimit.Redis.DB, "COURSECRAFT_REDIS_DB")
	setQuotaLimit(cfg, ratelimit.OpGenerateOutline, "COURSECRAFT_OUTLINE_LIMIT")
	setQuotaLimit(cfg, ratelimit.OpGenerateCourse, "COURSECRAFT_COURSE_LIMIT")

	setString(&cfg.Server.Addr, "COURSECRAFT_ADDR")
	setDuration(&cfg.Server.WriteTimeout, "COURSECRAFT_WRITE_TIMEOUT")
	setBool(&cfg.Server.TrustForwardedFor, "COURSECRAFT_TRUST_FORWARDED_FOR")
	setDuration(&cfg.Server.IdempotencyTTL, "COURSECRAFT_IDEMPOTENCY_TTL")

	setBool(&cfg.Telemetry.Enabled, "COURSECRAFT_OTEL_ENABLED")
	setString(&cfg.Telemetry.Exporter, "COURSECRAFT_OTEL_EXPORTER")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
}

// Validate checks everything except provider credentials.
func (c *Config) Validate() error {
	switch c.RateLimit.Backend {
	case BackendMemory, BackendRedis, BackendNone:
	default:
		return fmt.Errorf("rate_limit.backend must be one of memory, redis, none (got %q)", c.RateLimit.Backend)
	}
	if c.RateLimit.Backend == BackendRedis && c.RateLimit.Redis.Addr == "" {
		return errors.New("rate_limit.redis.addr is required for the redis backend")
	}
	if c.RateLimit.Backend == BackendMemory && c.RateLimit.CleanupInterval <= 0 {
		return errors.New("rate_limit.cleanup_interval must be positive")
	}
	if err := validQuota("rate_limit.default", c.RateLimit.Default); err != nil {
		return err
	}
	for op, q := range c.RateLimit.Quotas {
		if err := validQuota("rate_limit.quotas."+op, q); err != nil {
			return err
		}
	}
	for name, po := range map[string]struct {
		tokens  int
		timeout time.Duration
	}{
		"generation.outline": {c.Generation.Outline.MaxTokens, c.Generation.Outline.Timeout},
		"generation.content": {c.Generation.Content.MaxTokens, c.Generation.Content.Timeout},
	} {
		if po.tokens < 1 {
			return fmt.Errorf("%s.max_tokens must be >= 1", name)
		}
		if po.timeout <= 0 {
			return fmt.Errorf("%s.timeout must be positive", name)
		}
	}
	for _, phase := range []struct {
		name    string
		timeout time.Duration
	}{
		{"generation.outline.timeout", c.Generation.Outline.Timeout},
		{"generation.content.timeout", c.Generation.Content.Timeout},
	} {
		if c.Server.WriteTimeout <= phase.timeout {
			return fmt.Errorf("server.write_timeout (%s) must exceed %s (%s)", c.Server.WriteTimeout, phase.name, phase.timeout)
		}
	}
	if c.Server.MaxBodyBytes < 1 {
		return errors.New("server.max_body_bytes must be >= 1")
	}
	return nil
}

func validQuota(name string, q ratelimit.Quota) error {
	if q.Limit < 1 {
		return fmt.Errorf("%s.limit must be >= 1", name)
	}
	if q.Window <= 0 {
		return fmt.Errorf("%s.window must be positive", name)
	}
	return nil
}

func setQuotaLimit(cfg *Config, op, key string) {
	q := cfg.RateLimit.QuotaFor(op)
	before := q.Limit
	setInt(&q.Limit, key)
	if q.Limit == before {
		return
	}
	if cfg.RateLimit.Quotas == nil {
		cfg.RateLimit.Quotas = make(map[string]ratelimit.Quota)
	}
	cfg.RateLimit.Quotas[op] = q
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
