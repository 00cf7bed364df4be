// Package config loads coursecraft configuration with the hierarchy
// defaults < YAML file < environment.
package config

import (
	"time"

	"github.com/abhisek/coursecraft/internal/llm"
	"github.com/abhisek/coursecraft/internal/orchestrator"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/telemetry"
	"github.com/abhisek/coursecraft/internal/workflow"
)

// Limiter backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config is the root configuration.
type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	DBPath   string `yaml:"db_path"`

	LLM        llm.Config           `yaml:"llm"`
	Generation orchestrator.Options `yaml:"generation"`
	RateLimit  RateLimit            `yaml:"rate_limit"`
	Server     Server               `yaml:"server"`
	Telemetry  telemetry.Config     `yaml:"telemetry"`
	Workflow   Workflow             `yaml:"workflow"`
}

// RateLimit selects and configures the limiter backend.
type RateLimit struct {
	Backend         string        `yaml:"backend"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Redis           Redis         `yaml:"redis"`

	ratelimit.Config `yaml:",inline"`
}

// Redis holds connection settings for the redis limiter backend.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Server configures the HTTP boundary.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`

	// TrustForwardedFor lets X-Forwarded-For pick the client identity.
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`

	IdempotencyTTL     time.Duration `yaml:"idempotency_ttl"`
	IdempotencyMaxCost int64         `yaml:"idempotency_max_cost"`
}

// Workflow configures interactive sessions.
type Workflow struct {
	CelebrationDelay time.Duration `yaml:"celebration_delay"`
}

// Development reports whether debug detail may be exposed.
func (c Config) Development() bool {
	return c.Env == "development"
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	gen := orchestrator.DefaultOptions()
	return Config{
		Env:        "production",
		LogLevel:   "info",
		LLM:        llm.DefaultConfig(),
		Generation: gen,
		RateLimit: RateLimit{
			Backend:         BackendMemory,
			CleanupInterval: 5 * time.Minute,
			Redis:           Redis{Addr: "localhost:6379", Prefix: "coursecraft:rl"},
			Config:          ratelimit.DefaultConfig(),
		},
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout:       writeTimeoutFor(gen),
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			MaxBodyBytes:       1 << 20,
			IdempotencyTTL:     24 * time.Hour,
			IdempotencyMaxCost: 64 << 20,
		},
		Telemetry: telemetry.Config{Exporter: telemetry.ExporterStdout, SampleRatio: 1},
		Workflow:  Workflow{CelebrationDelay: workflow.DefaultCelebrationDelay},
	}
}

// writeHeadroom is how much longer than the slowest phase a response may take
// to write, so a phase timeout still reaches the client as a 408 body.
const writeHeadroom = 30 * time.Second

func writeTimeoutFor(gen orchestrator.Options) time.Duration {
	return max(gen.Outline.Timeout, gen.Content.Timeout) + writeHeadroom
}
