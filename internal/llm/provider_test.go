package llm

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/coursecraft/internal/store"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Text: `{"a":1}`, Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Text: `{"b":2}`, StopReason: StopMaxTokens},
	)

	resp1, err := mock.Generate(context.Background(), Request{Prompt: "first"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp1.Text != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Text)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}
	if resp1.StopReason != StopEnd {
		t.Fatalf("expected stop reason %q, got %q", StopEnd, resp1.StopReason)
	}

	resp2, err := mock.Generate(context.Background(), Request{Prompt: "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp2.StopReason != StopMaxTokens {
		t.Fatalf("expected stop reason %q, got %q", StopMaxTokens, resp2.StopReason)
	}
	if mock.LastCall().Prompt != "second" {
		t.Fatalf("expected last prompt 'second', got %q", mock.LastCall().Prompt)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T", err)
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{RetryAfter: time.Second}})
	_, err := mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T", err)
	}
}

func TestMockProvider_DelayHonoursCancellation(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "{}", Delay: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := mock.Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("mock ignored cancellation")
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}
	ctx = WithPurpose(ctx, PurposeOutline)
	if p := PurposeFrom(ctx); p != PurposeOutline {
		t.Fatalf("expected %q, got %q", PurposeOutline, p)
	}
}

type recordingRepo struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Text: `{"title":"x"}`, Usage: Usage{InputTokens: 7, OutputTokens: 3}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("connection refused")}},
	)
	repo := &recordingRepo{}
	var logs bytes.Buffer
	p := WithLogging(mock, ProviderMock, repo, zerolog.New(&logs))

	ctx := WithPurpose(context.Background(), PurposeContent)
	if _, err := p.Generate(ctx, Request{System: "sys", Prompt: "make a course"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, Request{Prompt: "again"}); err == nil {
		t.Fatal("expected error to pass through")
	}

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.events))
	}
	ok := repo.events[0]
	if !ok.Success || ok.Purpose != PurposeContent || ok.InputTokens != 7 || ok.ResponseBody != `{"title":"x"}` {
		t.Fatalf("unexpected success event: %+v", ok)
	}
	if !strings.Contains(ok.RequestBody, "[system]\nsys") || !strings.Contains(ok.RequestBody, "make a course") {
		t.Fatalf("request body not captured: %q", ok.RequestBody)
	}
	failed := repo.events[1]
	if failed.Success || !strings.Contains(failed.ErrorMessage, "connection refused") {
		t.Fatalf("unexpected failure event: %+v", failed)
	}
	if !strings.Contains(logs.String(), `"purpose":"content"`) {
		t.Fatalf("expected structured log line, got %s", logs.String())
	}
}

func TestLoggingProvider_RepoFailureDoesNotFailRequest(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "{}"})
	repo := &recordingRepo{err: errors.New("disk full")}
	p := WithLogging(mock, ProviderMock, repo, zerolog.Nop())

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("event write failure leaked into request: %v", err)
	}
}

func TestLoggingProvider_NilRepo(t *testing.T) {
	p := WithLogging(NewMockProvider(MockResponse{Text: "{}"}), ProviderMock, nil, zerolog.Nop())
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("expected model 'mock', got %q", p.ModelID())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "sk-test"}}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"gemini with key", Config{Provider: ProviderGemini, Gemini: GeminiConfig{APIKey: "g"}}, false},
		{"openrouter without key", Config{Provider: ProviderOpenRouter}, true},
		{"mock needs no key", Config{Provider: ProviderMock}, false},
		{"unknown provider", Config{Provider: "unknown"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func clearKeyEnv(t *testing.T) {
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestConfig_Discover(t *testing.T) {
	t.Run("prefers configured provider", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("OPENAI_API_KEY", "oa")
		t.Setenv("GEMINI_API_KEY", "gm")
		cfg := DefaultConfig()
		cfg.Provider = ProviderGemini
		if !cfg.Discover() {
			t.Fatal("expected discovery")
		}
		if cfg.Provider != ProviderGemini || cfg.Gemini.APIKey != "gm" {
			t.Fatalf("unexpected config: %+v", cfg)
		}
	})

	t.Run("falls back to first available", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("OPENROUTER_API_KEY", "or")
		cfg := DefaultConfig()
		if !cfg.Discover() {
			t.Fatal("expected discovery")
		}
		if cfg.Provider != ProviderOpenRouter || cfg.OpenRouter.APIKey != "or" {
			t.Fatalf("unexpected config: %+v", cfg)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		clearKeyEnv(t)
		cfg := DefaultConfig()
		if cfg.Discover() {
			t.Fatal("expected no discovery")
		}
	})

	t.Run("explicit key wins", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("OPENAI_API_KEY", "oa")
		cfg := DefaultConfig()
		cfg.Anthropic.APIKey = "explicit"
		if !cfg.Discover() || cfg.Provider != ProviderAnthropic {
			t.Fatalf("explicit key should be kept: %+v", cfg)
		}
	})
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("COURSECRAFT_LLM_PROVIDER", "openai")
	t.Setenv("COURSECRAFT_OPENAI_MODEL", "gpt-4.1")
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Provider != ProviderOpenAI || cfg.OpenAI.Model != "gpt-4.1" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Model() != "gpt-4.1" {
		t.Fatalf("unexpected model %q", cfg.Model())
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderMock}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*LoggingProvider); !ok {
		t.Fatalf("expected logging decorator, got %T", p)
	}

	if _, err := NewProvider(context.Background(), Config{Provider: ProviderAnthropic}, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := NewProvider(context.Background(), Config{Provider: "nope"}, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	if c == nil {
		t.Fatal("expected pricing for gpt-4o-mini")
	}
	if got := c.Cost(1_000_000, 1_000_000); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("expected $0.75, got %v", got)
	}
	if LookupCost("google/gemini-2.5-flash") == nil {
		t.Fatal("expected OpenRouter ID to fall back to bare model")
	}
	if LookupCost("mock") != nil {
		t.Fatal("expected nil for unknown model")
	}
}
