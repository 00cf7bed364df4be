// Package generation performs a single bounded model call and classifies
// whatever goes wrong into the failure taxonomy.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/coursecraft/internal/failure"
	"github.com/abhisek/coursecraft/internal/llm"
)

// DefaultTimeout bounds a call when Options.Timeout is unset.
const DefaultTimeout = 90 * time.Second

// Options controls one Generate call.
type Options struct {
	System      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// Purpose labels the request in the event log.
	Purpose string
}

// Generator is what the orchestrator depends on.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Client wraps an llm.Provider. It holds no state between calls.
type Client struct {
	provider llm.Provider
	log      zerolog.Logger
}

// NewClient creates a Client backed by p.
func NewClient(p llm.Provider, log zerolog.Logger) *Client {
	return &Client{provider: p, log: log}
}

// Generate sends prompt upstream exactly once under a hard timeout and
// returns the raw text unmodified. Errors are *failure.Failure, except
// when the caller's own context was cancelled: then ctx.Err() is returned
// as is so the caller can tell abandonment from failure.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if opts.Purpose != "" {
		ctx = llm.WithPurpose(ctx, opts.Purpose)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.provider.Generate(callCtx, llm.Request{
		System:      opts.System,
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		JSON:        true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", failure.Timeout(fmt.Errorf("no response within %s: %w", timeout, err))
		}
		return "", classify(err)
	}

	if resp.StopReason == llm.StopMaxTokens {
		c.log.Warn().
			Str("purpose", opts.Purpose).
			Int("max_tokens", opts.MaxTokens).
			Int("output_tokens", resp.Usage.OutputTokens).
			Msg("model output truncated at token limit")
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", failure.ParseFailure("", llm.ErrEmptyResponse)
	}
	return resp.Text, nil
}

// classify maps a provider error onto the failure taxonomy.
func classify(err error) *failure.Failure {
	if f, ok := failure.As(err); ok {
		return f
	}

	var rl *llm.ErrRateLimit
	if errors.As(err, &rl) {
		return failure.RateLimited(rl.RetryAfter)
	}

	var up *llm.ErrUpstream
	if errors.As(err, &up) {
		if up.StatusCode == http.StatusRequestTimeout {
			return failure.Timeout(err)
		}
		return failure.UpstreamError(upstreamMessage(up.StatusCode), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return failure.Timeout(err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failure.Timeout(err)
	}

	if errors.Is(err, llm.ErrEmptyResponse) {
		return failure.ParseFailure("", err)
	}

	var unavail *llm.ErrProviderUnavailable
	if errors.As(err, &unavail) || ne != nil || isConnError(err) {
		return failure.NetworkError(err)
	}

	return failure.UpstreamError("unexpected provider error", err)
}

func isConnError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "no such host", "connection reset", "network is unreachable"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func upstreamMessage(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "provider rejected the credentials"
	case http.StatusNotFound:
		return "provider does not know the configured model"
	}
	return fmt.Sprintf("provider rejected the request (HTTP %d)", status)
}
