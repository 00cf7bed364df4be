package studio

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/course/coursetest"
	"github.com/abhisek/coursecraft/internal/generation"
	"github.com/abhisek/coursecraft/internal/llm"
	"github.com/abhisek/coursecraft/internal/orchestrator"
	"github.com/abhisek/coursecraft/internal/ratelimit"
	"github.com/abhisek/coursecraft/internal/router"
	"github.com/abhisek/coursecraft/internal/screen"
	"github.com/abhisek/coursecraft/internal/workflow"
)

type stubScreen struct{ fp course.Fingerprint }

func (s *stubScreen) Init() tea.Cmd                          { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                   { return "onboarding" }
func (s *stubScreen) Title() string                          { return "Onboarding" }

type savedCourse struct {
	mu    sync.Mutex
	calls int
	title string
}

func newStudio(t *testing.T, responses ...llm.MockResponse) (*Screen, *savedCourse) {
	t.Helper()
	mock := llm.NewMockProvider(responses...)
	orch := orchestrator.New(ratelimit.NewMemory(ratelimit.DefaultConfig()), generation.NewClient(mock, zerolog.Nop()), orchestrator.DefaultOptions(), zerolog.Nop())
	wf := workflow.New(orch, "tui", workflow.WithCelebrationDelay(10*time.Millisecond))
	t.Cleanup(wf.Close)

	saved := &savedCourse{}
	s := New(wf, coursetest.Kubernetes(), Options{
		Restart: func(fp course.Fingerprint) screen.Screen { return &stubScreen{fp: fp} },
		Save: func(_ course.Fingerprint, c course.Content) (string, error) {
			saved.mu.Lock()
			defer saved.mu.Unlock()
			saved.calls++
			saved.title = c.Title
			return "course-1", nil
		},
	})
	return s, saved
}

// pump applies workflow snapshots until the screen shows want, running any
// follow-up command the way the runtime would. It returns the last message
// those commands produced.
func pump(t *testing.T, s *Screen, want workflow.Step) tea.Msg {
	t.Helper()
	var last tea.Msg
	deadline := time.After(5 * time.Second)
	for s.snap.Step != want || s.snap.Pending {
		ch := make(chan tea.Msg, 1)
		go func() { ch <- s.feed.wait()() }()
		select {
		case msg := <-ch:
			if cmd := s.onSnapshot(workflow.Snapshot(msg.(snapshotMsg))); cmd != nil {
				if out := cmd(); out != nil {
					last = out
					s.Update(out)
				}
			}
		case <-deadline:
			t.Fatalf("screen never reached %s (at %s)", want, s.snap.Step)
		}
	}
	return last
}

func press(s *Screen, key tea.KeyPressMsg) {
	_, cmd := s.Update(key)
	if cmd != nil {
		if out := cmd(); out != nil {
			s.Update(out)
		}
	}
}

func TestStudioHappyPath(t *testing.T) {
	s, saved := newStudio(t,
		llm.MockResponse{Text: coursetest.Fenced(coursetest.OutlineJSON)},
		llm.MockResponse{Text: coursetest.ContentJSON},
	)
	require.NoError(t, s.wf.Start(s.fp))

	pump(t, s, workflow.StepOutlinePreview)
	assert.Equal(t, "Outline", s.Title())
	view := s.View(100, 40)
	assert.Contains(t, view, coursetest.Outline().Title)
	assert.Contains(t, view, "Pods")
	assert.Equal(t, "19/20 left", s.Status())

	press(s, tea.KeyPressMsg{Code: 'a', Text: "a"})
	pump(t, s, workflow.StepPreview)

	assert.Equal(t, "Your Course", s.Title())
	assert.Equal(t, "course-1", s.savedID)
	saved.mu.Lock()
	assert.Equal(t, 1, saved.calls)
	saved.mu.Unlock()
	assert.Contains(t, s.View(100, 200), "Saved as course-1")
}

func TestStudioErrorRetry(t *testing.T) {
	s, _ := newStudio(t,
		llm.MockResponse{Text: "no json here"},
		llm.MockResponse{Text: coursetest.OutlineJSON},
	)
	require.NoError(t, s.wf.Start(s.fp))

	pump(t, s, workflow.StepError)
	assert.Contains(t, s.View(100, 40), "We had trouble generating your course.")

	press(s, tea.KeyPressMsg{Code: 'r', Text: "r"})
	pump(t, s, workflow.StepOutlinePreview)
}

func TestStudioDismissReturnsToOnboarding(t *testing.T) {
	s, _ := newStudio(t, llm.MockResponse{Err: &llm.ErrUpstream{StatusCode: 401}})
	require.NoError(t, s.wf.Start(s.fp))

	pump(t, s, workflow.StepError)
	press(s, tea.KeyPressMsg{Code: 'r', Text: "r"})
	assert.Equal(t, workflow.StepError, s.snap.Step, "non-retryable failure must not retry")
	assert.Contains(t, s.notice, "won't help")

	press(s, tea.KeyPressMsg{Code: 'd', Text: "d"})
	msg := pump(t, s, workflow.StepOnboarding)
	replace, ok := msg.(router.ReplaceScreenMsg)
	require.True(t, ok, "expected ReplaceScreenMsg, got %T", msg)
	assert.Equal(t, "Kubernetes", replace.Screen.(*stubScreen).fp.Topic)
}

func TestStudioEscCancelsGeneration(t *testing.T) {
	s, _ := newStudio(t, llm.MockResponse{Text: coursetest.OutlineJSON, Delay: time.Minute})
	require.NoError(t, s.wf.Start(s.fp))
	require.Eventually(t, func() bool { return s.wf.Snapshot().Pending }, time.Second, time.Millisecond)
	s.onSnapshot(s.wf.Snapshot())
	assert.Contains(t, s.View(100, 40), "Designing a course outline")

	press(s, tea.KeyPressMsg{Code: tea.KeyEscape})

	msg := pump(t, s, workflow.StepOnboarding)
	_, ok := msg.(router.ReplaceScreenMsg)
	assert.True(t, ok, "cancel before the first outline returns to onboarding")
}

func TestStudioRequestChanges(t *testing.T) {
	s, _ := newStudio(t,
		llm.MockResponse{Text: coursetest.OutlineJSON},
		llm.MockResponse{Text: coursetest.RevisedOutlineJSON},
	)
	require.NoError(t, s.wf.Start(s.fp))
	pump(t, s, workflow.StepOutlinePreview)

	press(s, tea.KeyPressMsg{Code: 'c', Text: "c"})
	require.True(t, s.editing)

	press(s, tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.True(t, s.editing, "blank feedback keeps the box open")
	assert.NotEmpty(t, s.notice)

	s.feedback.Model.SetValue("more operations")
	press(s, tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.False(t, s.editing)

	require.Eventually(t, func() bool {
		snap := s.wf.Snapshot()
		return snap.Step == workflow.StepOutlinePreview && !snap.Pending && snap.Outline.Modules[1].Title == "Operations"
	}, 5*time.Second, time.Millisecond)
	s.onSnapshot(s.wf.Snapshot())
	assert.True(t, strings.Contains(s.View(100, 40), "Operations"))
	assert.Equal(t, "more operations", s.snap.Feedback)
}

func TestWindow(t *testing.T) {
	lines := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, lines, window(lines, 3, 10))
	assert.Equal(t, []string{"b", "c"}, window(lines, 1, 2))
	assert.Equal(t, []string{"d", "e"}, window(lines, 9, 2))
}
