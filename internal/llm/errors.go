package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrRateLimit indicates the vendor rejected the request with 429.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the vendor is down or unreachable: a 5xx
// response or a transport failure.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrUpstream is a non-retryable 4xx from the vendor, typically a bad API
// key, an unknown model or a malformed request.
type ErrUpstream struct {
	StatusCode int
	Err        error
}

func (e *ErrUpstream) Error() string {
	return fmt.Sprintf("LLM provider rejected request (HTTP %d): %v", e.StatusCode, e.Err)
}

func (e *ErrUpstream) Unwrap() error { return e.Err }

// ErrEmptyResponse indicates the vendor answered without any text.
var ErrEmptyResponse = errors.New("LLM response contained no text")

// mapStatusError classifies a vendor API error by HTTP status.
func mapStatusError(status int, header http.Header, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{RetryAfter: parseRetryAfter(header), Err: err}
	case status >= 500:
		return &ErrProviderUnavailable{Err: err}
	case status >= 400:
		return &ErrUpstream{StatusCode: status, Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}

// parseRetryAfter reads a Retry-After header in seconds. Returns zero when
// absent or malformed.
func parseRetryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
