package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/course/coursetest"
	"github.com/abhisek/coursecraft/internal/generation"
	"github.com/abhisek/coursecraft/internal/llm"
	"github.com/abhisek/coursecraft/internal/orchestrator"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/store"
)

type harness struct {
	handler http.Handler
	mock    *llm.MockProvider
	store   *store.Store
}

func newHarness(t *testing.T, quotas ratelimit.Config, dev bool, responses ...llm.MockResponse) *harness {
	t.Helper()
	mock := llm.NewMockProvider(responses...)
	orch := orchestrator.New(ratelimit.NewMemory(quotas), generation.NewClient(mock, zerolog.Nop()), orchestrator.DefaultOptions(), zerolog.Nop())

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idem, err := NewIdempotency(1<<20, time.Hour)
	require.NoError(t, err)
	t.Cleanup(idem.Close)

	srv := New(orch, st.CourseRepo(), idem, Options{Development: dev}, zerolog.Nop())
	return &harness{handler: srv.Handler(), mock: mock, store: st}
}

func fingerprintBody(t *testing.T, extra map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(coursetest.Kubernetes())
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for k, v := range extra {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}

func (h *harness) post(path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", "client-1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGenerateOutline_OK(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false, llm.MockResponse{Text: coursetest.Fenced(coursetest.OutlineJSON)})

	w := h.post("/generate-outline", fingerprintBody(t, nil), nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Outline course.Outline `json:"outline"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, coursetest.Outline(), resp.Outline)
	assert.Equal(t, "20", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "19", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestGenerateOutline_Revision(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false, llm.MockResponse{Text: coursetest.RevisedOutlineJSON})

	body := fingerprintBody(t, map[string]any{
		"previousOutline": coursetest.Outline(),
		"feedback":        "more operations please",
	})
	w := h.post("/generate-outline", body, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, h.mock.LastCall().Prompt, "more operations please")
	assert.Contains(t, h.mock.LastCall().Prompt, "Previous Outline")
}

func TestGenerateOutline_FeedbackWithoutOutline(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false)
	w := h.post("/generate-outline", fingerprintBody(t, map[string]any{"feedback": "x"}), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "previousOutline", decodeError(t, w).Field)
	assert.Equal(t, 0, h.mock.CallCount())
}

func TestGenerateOutline_MissingField(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false)

	w := h.post("/generate-outline", fingerprintBody(t, map[string]any{"priorKnowledge": nil}), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "invalid_input", body.Kind)
	assert.Equal(t, "priorKnowledge", body.Field)
	assert.NotEmpty(t, body.Hint)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"), "invalid input must not consult the limiter")
}

func TestGenerateOutline_MalformedBody(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false)
	w := h.post("/generate-outline", []byte(`{"topic":`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "body", decodeError(t, w).Field)
}

func TestGenerateCourse_OK(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false, llm.MockResponse{Text: coursetest.ContentJSON})

	w := h.post("/generate-course", fingerprintBody(t, map[string]any{"approvedOutline": coursetest.Outline()}), nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Course   course.Content `json:"course"`
		CourseID string         `json:"courseId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Course.Modules, 2)
	require.NotEmpty(t, resp.CourseID)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))

	rec, err := h.store.CourseRepo().Get(context.Background(), resp.CourseID)
	require.NoError(t, err)
	assert.Equal(t, resp.Course, rec.Content)
	assert.Equal(t, "client-1", rec.ClientID)
}

func TestGenerateCourse_RequiresApprovedOutline(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false)

	w := h.post("/generate-course", fingerprintBody(t, nil), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "approvedOutline", decodeError(t, w).Field)

	w = h.post("/generate-course", fingerprintBody(t, map[string]any{"approvedOutline": map[string]any{"title": "T", "modules": []any{}}}), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "approvedOutline", decodeError(t, w).Field)
}

func TestGenerateCourse_ScenarioC(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	var responses []llm.MockResponse
	for i := 0; i < 6; i++ {
		responses = append(responses, llm.MockResponse{Text: coursetest.ContentJSON})
	}
	h := newHarness(t, cfg, false, responses...)
	body := fingerprintBody(t, map[string]any{"approvedOutline": coursetest.Outline()})

	for i := 0; i < 5; i++ {
		w := h.post("/generate-course", body, nil)
		require.Equal(t, http.StatusOK, w.Code, "call %d: %s", i+1, w.Body.String())
	}

	w := h.post("/generate-course", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, "rate_limited", e.Kind)
	assert.Greater(t, e.RetryAfter, 0)
	assert.LessOrEqual(t, e.RetryAfter, 3600)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 5, h.mock.CallCount())
}

func TestGenerateCourse_SchemaInvalidStatusAndDebug(t *testing.T) {
	raw := "Sure! ```json\n{\"title\":\"X\"}\n```"

	t.Run("production hides detail", func(t *testing.T) {
		h := newHarness(t, ratelimit.DefaultConfig(), false, llm.MockResponse{Text: raw})
		w := h.post("/generate-course", fingerprintBody(t, map[string]any{"approvedOutline": coursetest.Outline()}), nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		e := decodeError(t, w)
		assert.Equal(t, "schema_invalid", e.Kind)
		assert.Empty(t, e.Debug)
		assert.NotContains(t, w.Body.String(), "modules:")
	})

	t.Run("development shows detail", func(t *testing.T) {
		h := newHarness(t, ratelimit.DefaultConfig(), true, llm.MockResponse{Text: raw})
		w := h.post("/generate-course", fingerprintBody(t, map[string]any{"approvedOutline": coursetest.Outline()}), nil)

		e := decodeError(t, w)
		assert.Contains(t, e.Debug, "modules")
	})
}

func TestGenerateOutline_StatusByKind(t *testing.T) {
	tests := []struct {
		name   string
		resp   llm.MockResponse
		status int
		kind   string
	}{
		{"network", llm.MockResponse{Err: &llm.ErrProviderUnavailable{}}, http.StatusServiceUnavailable, "network_error"},
		{"upstream", llm.MockResponse{Err: &llm.ErrUpstream{StatusCode: 401}}, http.StatusInternalServerError, "upstream_error"},
		{"vendor limit", llm.MockResponse{Err: &llm.ErrRateLimit{RetryAfter: 30 * time.Second}}, http.StatusTooManyRequests, "rate_limited"},
		{"parse", llm.MockResponse{Text: "I cannot help with that."}, http.StatusInternalServerError, "parse_failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, ratelimit.DefaultConfig(), false, tt.resp)
			w := h.post("/generate-outline", fingerprintBody(t, nil), nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.kind, decodeError(t, w).Kind)
		})
	}
}

func TestGenerateCourse_IdempotentReplay(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false,
		llm.MockResponse{Text: coursetest.ContentJSON},
		llm.MockResponse{Text: coursetest.ContentJSON},
	)
	body := fingerprintBody(t, map[string]any{"approvedOutline": coursetest.Outline()})
	headers := map[string]string{"Idempotency-Key": "abc"}

	first := h.post("/generate-course", body, headers)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := h.post("/generate-course", body, headers)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, h.mock.CallCount(), "replay must not generate again")

	third := h.post("/generate-course", body, nil)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, "3", third.Header().Get("X-RateLimit-Remaining"), "replay must not consume quota")

	mismatch := h.post("/generate-course", fingerprintBody(t, map[string]any{
		"approvedOutline": coursetest.Outline(),
		"topic":           "Docker",
	}), headers)
	assert.Equal(t, http.StatusBadRequest, mismatch.Code)
	assert.Equal(t, "Idempotency-Key", decodeError(t, mismatch).Field)
}

func TestGenerateCourse_ConcurrentDuplicatesShareOneGeneration(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false,
		llm.MockResponse{Text: coursetest.ContentJSON, Delay: 50 * time.Millisecond},
		llm.MockResponse{Text: coursetest.ContentJSON},
	)
	body := fingerprintBody(t, map[string]any{"approvedOutline": coursetest.Outline()})

	var wg sync.WaitGroup
	codes := make([]int, 4)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = h.post("/generate-course", body, map[string]string{"Idempotency-Key": "same"}).Code
		}(i)
	}
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
	assert.Equal(t, 1, h.mock.CallCount())
}

func TestBodyLimit(t *testing.T) {
	h := newHarness(t, ratelimit.DefaultConfig(), false)
	big := `{"topic":"` + strings.Repeat("x", 2<<20) + `"}`
	w := h.post("/generate-outline", []byte(big), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "body", decodeError(t, w).Field)
}

func TestClientID(t *testing.T) {
	tests := []struct {
		name    string
		header  map[string]string
		remote  string
		trusted bool
		want    string
	}{
		{"explicit header", map[string]string{"X-Client-ID": "abc"}, "10.0.0.1:1234", false, "abc"},
		{"remote addr", nil, "10.0.0.1:1234", false, "10.0.0.1"},
		{"forwarded ignored when untrusted", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.1:1234", false, "10.0.0.1"},
		{"forwarded first valid", map[string]string{"X-Forwarded-For": "garbage, 1.2.3.4, 5.6.7.8"}, "10.0.0.1:1234", true, "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientID(r, tt.trusted))
		})
	}
}
