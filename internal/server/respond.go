package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/abhisek/coursecraft/internal/failure"
	"github.com/abhisek/coursecraft/internal/ratelimit"
)

type errorBody struct {
	Error      string `json:"error"`
	Hint       string `json:"hint,omitempty"`
	Kind       string `json:"kind"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	Field      string `json:"field,omitempty"`
	Debug      string `json:"debug,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeFailure renders f. Technical detail is only included in development.
func (s *Server) writeFailure(w http.ResponseWriter, f *failure.Failure) {
	body := errorBody{
		Error: f.UserMessage(),
		Hint:  f.Hint(),
		Kind:  string(f.Kind),
		Field: f.Field,
	}
	if f.Kind == failure.KindRateLimited {
		body.RetryAfter = f.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}
	if s.opts.Development {
		body.Debug = f.Debug()
	}
	writeJSON(w, f.HTTPStatus(), body)
}

// setRateHeaders writes the limiter headers when the limiter was consulted.
func setRateHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	if d.Limit == 0 {
		return
	}
	ratelimit.SetHeaders(w.Header(), d)
}
