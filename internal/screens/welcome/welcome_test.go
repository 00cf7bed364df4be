package welcome

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/coursecraft/internal/router"
	"github.com/abhisek/coursecraft/internal/screen"
)

type stubScreen struct{}

func (s *stubScreen) Init() tea.Cmd                          { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                   { return "onboarding" }
func (s *stubScreen) Title() string                          { return "New Course" }

func newCounted() (*Screen, *int) {
	calls := 0
	return New(func() screen.Screen { calls++; return &stubScreen{} }), &calls
}

func ticks(w *Screen, n int) tea.Cmd {
	var cmd tea.Cmd
	for i := 0; i < n; i++ {
		_, cmd = w.Update(tickMsg(time.Now()))
	}
	return cmd
}

func TestAnimationStopsTicking(t *testing.T) {
	w, _ := newCounted()
	if strings.Contains(w.View(100, 30), "how you learn") {
		t.Fatal("tagline should not show before the banner phase")
	}
	ticks(w, 6)
	if !strings.Contains(w.View(100, 30), "how you learn") {
		t.Fatal("tagline should show after the banner phase")
	}
	if cmd := ticks(w, 20); cmd != nil {
		t.Fatal("ticking should stop once the animation has finished")
	}
	if w.elapsed != totalDur {
		t.Fatalf("elapsed should be capped at %v, got %v", totalDur, w.elapsed)
	}
}

func TestKeypressReplacesOnce(t *testing.T) {
	w, calls := newCounted()
	ticks(w, 3)

	_, cmd := w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd == nil {
		t.Fatal("keypress should transition")
	}
	if msg, ok := cmd().(router.ReplaceScreenMsg); !ok || msg.Screen == nil {
		t.Fatalf("expected ReplaceScreenMsg with a screen, got %#v", msg)
	}
	if _, cmd := w.Update(tea.KeyPressMsg{Code: 'x'}); cmd != nil {
		t.Fatal("second keypress should do nothing")
	}
	if *calls != 1 {
		t.Fatalf("factory should run once, ran %d times", *calls)
	}
}
