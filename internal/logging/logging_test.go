package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"production", "", zerolog.InfoLevel},
		{"development", "", zerolog.DebugLevel},
		{"production", "warn", zerolog.WarnLevel},
		{"development", "ERROR", zerolog.ErrorLevel},
		{"production", "nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		l := New(tt.env, tt.level, &bytes.Buffer{})
		if l.GetLevel() != tt.want {
			t.Errorf("New(%q, %q) level = %s, want %s", tt.env, tt.level, l.GetLevel(), tt.want)
		}
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New("production", "", &buf)
	l.Info().Str("k", "v").Msg("hello")
	if !strings.Contains(buf.String(), `"k":"v"`) || !strings.Contains(buf.String(), `"message":"hello"`) {
		t.Fatalf("unexpected log line %q", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).With().Str("request_id", "r1").Logger()
	ctx := WithContext(context.Background(), l)

	got := FromContext(ctx, zerolog.Nop())
	got.Info().Msg("x")
	if !strings.Contains(buf.String(), `"request_id":"r1"`) {
		t.Fatalf("expected request-scoped logger, got %q", buf.String())
	}

	fallback := FromContext(context.Background(), zerolog.Nop())
	if fallback.GetLevel() != zerolog.Nop().GetLevel() {
		t.Fatal("expected fallback logger")
	}
}
