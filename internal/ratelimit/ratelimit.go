// Package ratelimit guards upstream generation calls with per-client,
// per-operation quotas.
//
// Both backends use a fixed window anchored at the first request: the first
// call for a (client, operation) key opens a window of Quota.Window, every
// allowed call consumes one unit, and the window resets when it expires.
// Denied calls do not consume quota.
package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Operation names used by the HTTP boundary and the orchestrator.
const (
	OpGenerateOutline = "generate-outline"
	OpGenerateCourse  = "generate-course"
)

// Quota is a limit per window.
type Quota struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Config maps operations to quotas. Operations without an entry use Default.
type Config struct {
	Default Quota            `yaml:"default"`
	Quotas  map[string]Quota `yaml:"quotas"`
}

// DefaultConfig returns the production quotas.
func DefaultConfig() Config {
	return Config{
		Default: Quota{Limit: 20, Window: time.Hour},
		Quotas: map[string]Quota{
			OpGenerateOutline: {Limit: 20, Window: time.Hour},
			OpGenerateCourse:  {Limit: 5, Window: time.Hour},
		},
	}
}

// QuotaFor returns the quota that applies to op.
func (c Config) QuotaFor(op string) Quota {
	if q, ok := c.Quotas[op]; ok {
		return q
	}
	return c.Default
}

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds. Denied decisions
// always report at least 1.
func (d Decision) RetryAfterSeconds() int {
	s := int(math.Ceil(d.RetryAfter.Seconds()))
	if !d.Allowed && s < 1 {
		s = 1
	}
	return s
}

// Limiter decides whether a client may perform an operation now. Check never
// blocks waiting for quota.
type Limiter interface {
	Check(ctx context.Context, clientID, operation string) Decision
}

// SetHeaders writes the X-RateLimit-* headers for d, plus Retry-After when
// the request was denied.
func SetHeaders(h http.Header, d Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	if !d.Allowed {
		h.Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
	}
}

// Unlimited is a Limiter that allows everything. Used by local CLI runs.
type Unlimited struct{}

func (Unlimited) Check(context.Context, string, string) Decision {
	return Decision{Allowed: true, Limit: math.MaxInt32, Remaining: math.MaxInt32}
}

func key(clientID, operation string) string {
	return clientID + "|" + operation
}
