// Package failure defines the closed set of classified generation failures
// and how each one is surfaced to users and HTTP clients.
package failure

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// Kind names a failure class.
type Kind string

const (
	KindRateLimited   Kind = "rate_limited"
	KindTimeout       Kind = "timeout"
	KindNetworkError  Kind = "network_error"
	KindUpstreamError Kind = "upstream_error"
	KindParseFailure  Kind = "parse_failure"
	KindSchemaInvalid Kind = "schema_invalid"
	KindInvalidInput  Kind = "invalid_input"
	KindInternalError Kind = "internal_error"
)

// Failure is a classified failure. Only the fields relevant to Kind are set.
type Failure struct {
	Kind Kind

	// RetryAfter is set for KindRateLimited.
	RetryAfter time.Duration
	// RawExcerpt is a bounded excerpt of the model output for KindParseFailure.
	RawExcerpt string
	// Reason names the violated rule for KindSchemaInvalid.
	Reason string
	// Message carries upstream detail for KindUpstreamError.
	Message string
	// Field names the offending input for KindInvalidInput.
	Field string

	Err error
}

func (f *Failure) Error() string {
	var detail string
	switch f.Kind {
	case KindRateLimited:
		detail = fmt.Sprintf("retry after %s", f.RetryAfter)
	case KindParseFailure:
		detail = "response is not parseable JSON"
	case KindSchemaInvalid:
		detail = f.Reason
	case KindUpstreamError:
		detail = f.Message
	case KindInvalidInput:
		detail = f.Field + " " + f.Reason
	}
	msg := string(f.Kind)
	if detail != "" {
		msg += ": " + detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches any *Failure of the same kind, so errors.Is(err, failure.Timeout(nil))
// style checks work without comparing payloads.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Kind == f.Kind
}

func RateLimited(retryAfter time.Duration) *Failure {
	return &Failure{Kind: KindRateLimited, RetryAfter: retryAfter}
}

func Timeout(err error) *Failure {
	return &Failure{Kind: KindTimeout, Err: err}
}

func NetworkError(err error) *Failure {
	return &Failure{Kind: KindNetworkError, Err: err}
}

func UpstreamError(message string, err error) *Failure {
	return &Failure{Kind: KindUpstreamError, Message: message, Err: err}
}

func ParseFailure(rawExcerpt string, err error) *Failure {
	return &Failure{Kind: KindParseFailure, RawExcerpt: rawExcerpt, Err: err}
}

func SchemaInvalid(reason string) *Failure {
	return &Failure{Kind: KindSchemaInvalid, Reason: reason}
}

func InvalidInput(field, reason string) *Failure {
	return &Failure{Kind: KindInvalidInput, Field: field, Reason: reason}
}

func Internal(err error) *Failure {
	return &Failure{Kind: KindInternalError, Err: err}
}

// As extracts a *Failure from err's chain.
func As(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// From classifies err, wrapping anything that is not already a *Failure as
// an internal error.
func From(err error) *Failure {
	if err == nil {
		return nil
	}
	if f, ok := As(err); ok {
		return f
	}
	return Internal(err)
}

// HTTPStatus maps the kind to its response status code.
func (f *Failure) HTTPStatus() int {
	switch f.Kind {
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindNetworkError:
		return http.StatusServiceUnavailable
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the user can usefully trigger another attempt.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindUpstreamError, KindInvalidInput:
		return false
	default:
		return true
	}
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, with a floor of 1
// for rate-limited failures.
func (f *Failure) RetryAfterSeconds() int {
	if f.Kind != KindRateLimited {
		return 0
	}
	s := int(math.Ceil(f.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// UserMessage is the short text shown to end users. It never includes raw
// model output or internal error detail.
func (f *Failure) UserMessage() string {
	switch f.Kind {
	case KindRateLimited:
		return "You've reached the generation limit for now."
	case KindTimeout:
		return "Generating your course took too long."
	case KindNetworkError:
		return "We couldn't reach the course generator."
	case KindUpstreamError:
		return "Course generation is unavailable right now."
	case KindParseFailure, KindSchemaInvalid:
		return "We had trouble generating your course."
	case KindInvalidInput:
		if f.Field != "" {
			return fmt.Sprintf("Missing or invalid %s.", f.Field)
		}
		return "Some of your answers are missing."
	default:
		return "Something went wrong."
	}
}

// Hint is an actionable suggestion that accompanies UserMessage.
func (f *Failure) Hint() string {
	switch f.Kind {
	case KindRateLimited:
		return fmt.Sprintf("Try again in %s.", humanSeconds(f.RetryAfterSeconds()))
	case KindTimeout:
		return "Try again; a shorter time commitment produces a smaller course."
	case KindNetworkError:
		return "Check your connection and try again."
	case KindUpstreamError:
		return "This needs an operator to fix; retrying won't help."
	case KindParseFailure, KindSchemaInvalid:
		return "Try again; each attempt generates a fresh course."
	case KindInvalidInput:
		return "Fill in the missing answer and submit again."
	default:
		return "Try again in a moment."
	}
}

// Debug returns diagnostic detail suitable only for development output.
func (f *Failure) Debug() string {
	switch {
	case f.RawExcerpt != "":
		return f.RawExcerpt
	case f.Reason != "":
		return f.Reason
	case f.Message != "":
		return f.Message
	case f.Err != nil:
		return f.Err.Error()
	}
	return ""
}

func humanSeconds(s int) string {
	if s < 60 {
		return fmt.Sprintf("%ds", s)
	}
	mins := (s + 59) / 60
	switch {
	case mins < 60:
		return fmt.Sprintf("%d min", mins)
	case mins%60 == 0:
		return fmt.Sprintf("%d h", mins/60)
	default:
		return fmt.Sprintf("%d h %d min", mins/60, mins%60)
	}
}
