package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/coursecraft/internal/screen"
)

type stubScreen struct {
	title   string
	initRan bool
	updates int
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { s.updates++; return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

func TestNavigation(t *testing.T) {
	onboarding := &stubScreen{title: "onboarding"}
	r := New(onboarding)

	outline := &stubScreen{title: "outline"}
	r.Update(PushScreenMsg{Screen: outline})
	if r.Depth() != 2 || r.Active() != outline || !outline.initRan {
		t.Fatalf("push: depth=%d active=%q init=%v", r.Depth(), r.Active().Title(), outline.initRan)
	}

	viewer := &stubScreen{title: "viewer"}
	r.Update(ReplaceScreenMsg{Screen: viewer})
	if r.Depth() != 2 || r.Active() != viewer || !viewer.initRan {
		t.Fatalf("replace: depth=%d active=%q init=%v", r.Depth(), r.Active().Title(), viewer.initRan)
	}

	r.Update(PopScreenMsg{})
	if r.Depth() != 1 || r.Active() != onboarding {
		t.Fatalf("pop: depth=%d active=%q", r.Depth(), r.Active().Title())
	}

	r.Pop()
	if r.Depth() != 1 {
		t.Fatalf("pop at bottom must be a no-op, depth=%d", r.Depth())
	}
}

func TestUpdateForwardsToActive(t *testing.T) {
	bottom := &stubScreen{title: "bottom"}
	top := &stubScreen{title: "top"}
	r := New(bottom)
	r.Push(top)

	r.Update(tea.KeyPressMsg{Code: 'a'})

	if top.updates != 1 || bottom.updates != 0 {
		t.Fatalf("expected only the active screen updated, top=%d bottom=%d", top.updates, bottom.updates)
	}
	if got := r.View(80, 24); got != "top" {
		t.Fatalf("expected active view, got %q", got)
	}
}
