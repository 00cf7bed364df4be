// Package studio is the screen that drives a workflow from the first
// outline request to the finished course.
package studio

import (
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/router"
	"github.com/abhisek/coursecraft/internal/screen"
	"github.com/abhisek/coursecraft/internal/ui/components"
	"github.com/abhisek/coursecraft/internal/ui/layout"
	"github.com/abhisek/coursecraft/internal/workflow"
)

// SaveFunc persists a finished course and returns its ID.
type SaveFunc func(fp course.Fingerprint, c course.Content) (string, error)

// Options wires the screen to the rest of the app.
type Options struct {
	// Restart builds the onboarding screen, prefilled with fp, when the
	// learner goes back to change their answers.
	Restart func(fp course.Fingerprint) screen.Screen

	// Save is called once with the finished course. Optional.
	Save SaveFunc
}

// Screen renders the workflow and maps keys to workflow operations.
type Screen struct {
	wf   *workflow.Workflow
	fp   course.Fingerprint
	opts Options
	feed *feed

	snap     workflow.Snapshot
	spinner  spinner.Model
	feedback components.TextInput
	editing  bool
	notice   string
	scroll   int
	height   int
	savedID  string
	saving   bool
	leaving  bool
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.EscapeHandler   = (*Screen)(nil)
	_ screen.StatusProvider  = (*Screen)(nil)
)

// New creates the screen. Init starts the outline phase for fp.
func New(wf *workflow.Workflow, fp course.Fingerprint, opts Options) *Screen {
	s := &Screen{
		wf:       wf,
		fp:       fp,
		opts:     opts,
		feed:     newFeed(),
		snap:     wf.Snapshot(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		feedback: components.NewTextInput("What should change? e.g. more hands-on labs, skip the history", 300),
	}
	wf.Subscribe(s.feed.publish)
	return s
}

func (s *Screen) Title() string {
	switch s.snap.Step {
	case workflow.StepOutlinePreview, workflow.StepGeneratingOutline:
		return "Outline"
	case workflow.StepGeneratingFull, workflow.StepCelebration:
		return "Building Course"
	case workflow.StepPreview:
		return "Your Course"
	case workflow.StepError:
		return "Something went wrong"
	}
	return "New Course"
}

func (s *Screen) Init() tea.Cmd {
	fp := s.fp
	return tea.Batch(
		s.feed.wait(),
		s.spinner.Tick,
		act(func() error { return s.wf.Start(fp) }),
	)
}

// HandlesEscape is true: Esc cancels generation or closes the feedback box.
func (s *Screen) HandlesEscape() bool { return true }

// Status shows the remaining quota for the last phase.
func (s *Screen) Status() string {
	d := s.snap.RateLimit
	if d.Limit == 0 || d.Limit > 1_000_000 {
		return ""
	}
	return fmt.Sprintf("%d/%d left", d.Remaining, d.Limit)
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		return s, tea.Batch(s.onSnapshot(workflow.Snapshot(msg)), s.feed.wait())

	case actionErrMsg:
		s.notice = describe(msg.err)
		return s, nil

	case savedMsg:
		s.saving = false
		if msg.err != nil {
			s.notice = "Could not save the course: " + msg.err.Error()
		} else {
			s.savedID = msg.id
		}
		return s, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.WindowSizeMsg:
		s.height = msg.Height
		return s, nil

	case tea.KeyPressMsg:
		if s.editing {
			return s, s.updateFeedback(msg)
		}
		return s, s.handleKey(msg.String())
	}
	return s, nil
}

func (s *Screen) onSnapshot(snap workflow.Snapshot) tea.Cmd {
	prev := s.snap.Step
	s.snap = snap
	if snap.Step != prev {
		s.notice = ""
		s.scroll = 0
	}

	switch snap.Step {
	case workflow.StepOnboarding:
		// Cancelled or dismissed before the first outline arrived.
		if prev != workflow.StepOnboarding {
			return s.restart()
		}
	case workflow.StepPreview:
		if s.opts.Save != nil && s.savedID == "" && !s.saving && snap.Content != nil && snap.Fingerprint != nil {
			s.saving = true
			save, fp, content := s.opts.Save, *snap.Fingerprint, *snap.Content
			return func() tea.Msg {
				id, err := save(fp, content)
				return savedMsg{id: id, err: err}
			}
		}
	}
	return nil
}

func (s *Screen) handleKey(key string) tea.Cmd {
	switch s.snap.Step {
	case workflow.StepGeneratingOutline, workflow.StepGeneratingFull:
		if key == "esc" {
			return act(s.wf.Cancel)
		}

	case workflow.StepOutlinePreview:
		switch key {
		case "a", "enter":
			return act(s.wf.Approve)
		case "c":
			s.editing = true
			s.notice = ""
			return s.feedback.Init()
		case "esc", "b":
			return s.startOver()
		case "up", "k":
			s.scrollBy(-1)
		case "down", "j":
			s.scrollBy(1)
		}

	case workflow.StepError:
		switch key {
		case "r", "enter":
			if s.snap.Failure != nil && !s.snap.Failure.Retryable() {
				s.notice = "Retrying won't help with this error."
				return nil
			}
			return act(s.wf.Retry)
		case "d", "esc":
			return act(s.wf.Dismiss)
		}

	case workflow.StepPreview:
		switch key {
		case "up", "k":
			s.scrollBy(-1)
		case "down", "j":
			s.scrollBy(1)
		case "pgup":
			s.scrollBy(-s.page())
		case "pgdown", "space":
			s.scrollBy(s.page())
		case "home", "g":
			s.scroll = 0
		case "n":
			return s.startOver()
		case "q":
			return tea.Quit
		}
	}
	return nil
}

func (s *Screen) updateFeedback(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		s.editing = false
		return nil
	case "enter":
		text := s.feedback.Value()
		if strings.TrimSpace(text) == "" {
			s.notice = "Describe what you'd like changed."
			return nil
		}
		s.editing = false
		s.feedback.Reset()
		return act(func() error { return s.wf.RequestChanges(text) })
	}
	var cmd tea.Cmd
	s.feedback, cmd = s.feedback.Update(msg)
	return cmd
}

// startOver resets the workflow and returns to onboarding with the same
// answers.
func (s *Screen) startOver() tea.Cmd {
	if err := s.wf.Reset(); err != nil {
		s.notice = describe(err)
		return nil
	}
	return nil
}

func (s *Screen) restart() tea.Cmd {
	if s.leaving || s.opts.Restart == nil {
		return nil
	}
	s.leaving = true
	next := s.opts.Restart(s.fp)
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (s *Screen) page() int {
	if s.height > 8 {
		return s.height - 6
	}
	return 10
}

func (s *Screen) scrollBy(n int) {
	s.scroll = max(0, s.scroll+n)
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.editing {
		return []layout.KeyHint{{Key: "Enter", Description: "Send feedback"}, {Key: "Esc", Description: "Cancel"}}
	}
	var hints []layout.KeyHint
	switch s.snap.Step {
	case workflow.StepGeneratingOutline, workflow.StepGeneratingFull:
		hints = []layout.KeyHint{{Key: "Esc", Description: "Cancel"}}
	case workflow.StepOutlinePreview:
		hints = []layout.KeyHint{
			{Key: "A", Description: "Approve"},
			{Key: "C", Description: "Request changes"},
			{Key: "B", Description: "Back to questions"},
		}
	case workflow.StepError:
		hints = []layout.KeyHint{{Key: "R", Description: "Retry"}, {Key: "D", Description: "Dismiss"}}
	case workflow.StepPreview:
		hints = []layout.KeyHint{
			{Key: "↑↓", Description: "Scroll"},
			{Key: "N", Description: "New course"},
			{Key: "Q", Description: "Quit"},
		}
	}
	return append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
}

func describe(err error) string {
	switch {
	case errors.Is(err, workflow.ErrBusy):
		return "Still working on the last request."
	case errors.Is(err, workflow.ErrEmptyFeedback):
		return "Describe what you'd like changed."
	case errors.Is(err, workflow.ErrInvalidTransition):
		return "That isn't available right now."
	}
	var fe *course.FieldError
	if errors.As(err, &fe) {
		return fmt.Sprintf("Missing or invalid %s.", fe.Field)
	}
	return err.Error()
}
