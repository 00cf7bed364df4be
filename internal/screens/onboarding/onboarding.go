// Package onboarding collects the learner fingerprint: a topic, the six
// preference questions and optional free-text context.
package onboarding

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/router"
	"github.com/abhisek/coursecraft/internal/screen"
	"github.com/abhisek/coursecraft/internal/ui/components"
	"github.com/abhisek/coursecraft/internal/ui/layout"
	"github.com/abhisek/coursecraft/internal/ui/theme"
)

// Screen walks through topic, questions and context one step at a time.
type Screen struct {
	next      func(course.Fingerprint) screen.Screen
	questions []course.Question

	step    int
	fp      course.Fingerprint
	topic   components.TextInput
	context components.TextInput
	menu    components.Menu
	warning string
	done    bool
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.EscapeHandler   = (*Screen)(nil)
)

// New creates the onboarding screen. next builds the screen shown once the
// fingerprint is complete.
func New(next func(course.Fingerprint) screen.Screen) *Screen {
	return NewWith(course.Fingerprint{}, next)
}

// NewWith starts onboarding with answers already filled in, as when the
// learner starts over with a new topic.
func NewWith(prefill course.Fingerprint, next func(course.Fingerprint) screen.Screen) *Screen {
	s := &Screen{
		next:      next,
		questions: course.Questions(),
		fp:        prefill,
		topic:     components.NewTextInput("e.g. Kubernetes, Sourdough baking, Linear algebra", 120),
		context:   components.NewTextInput("Anything else we should know? (optional)", course.MaxContextRunes),
	}
	s.topic.Model.SetValue(prefill.Topic)
	s.context.Model.SetValue(prefill.Context)
	return s
}

func (s *Screen) totalSteps() int { return len(s.questions) + 2 }

func (s *Screen) contextStep() int { return len(s.questions) + 1 }

func (s *Screen) Title() string { return "New Course" }

func (s *Screen) Init() tea.Cmd {
	return s.topic.Init()
}

func (s *Screen) HandlesEscape() bool { return true }

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case components.MenuSelectedMsg:
		q := s.questions[s.step-1]
		s.fp.Set(q.Field, msg.Item.Value)
		return s, s.goTo(s.step + 1)

	case tea.KeyPressMsg:
		switch msg.String() {
		case "esc":
			if s.step > 0 {
				return s, s.goTo(s.step - 1)
			}
			return s, nil
		case "enter":
			switch s.step {
			case 0:
				topic := strings.TrimSpace(s.topic.Value())
				if topic == "" {
					s.warning = "Tell us what you want to learn."
					return s, nil
				}
				s.fp.Topic = topic
				return s, s.goTo(1)
			case s.contextStep():
				return s, s.finish()
			}
		}
	}

	var cmd tea.Cmd
	switch {
	case s.step == 0:
		s.topic, cmd = s.topic.Update(msg)
	case s.step == s.contextStep():
		s.context, cmd = s.context.Update(msg)
	default:
		s.menu, cmd = s.menu.Update(msg)
	}
	return s, cmd
}

// goTo moves to step i, preparing the menu or input it needs.
func (s *Screen) goTo(i int) tea.Cmd {
	s.step = i
	s.warning = ""
	switch {
	case i == 0:
		return s.topic.Init()
	case i == s.contextStep():
		return s.context.Init()
	}
	q := s.questions[i-1]
	items := make([]components.MenuItem, len(q.Options))
	selected := 0
	current := s.fp.Get(q.Field)
	for j, o := range q.Options {
		items[j] = components.MenuItem{Label: o.Label, Value: o.Value}
		if o.Value == current {
			selected = j
		}
	}
	s.menu = components.NewMenu(items)
	s.menu.Selected = selected
	return nil
}

func (s *Screen) finish() tea.Cmd {
	if s.done {
		return nil
	}
	s.fp.Context = strings.TrimSpace(s.context.Value())
	fp := s.fp.Normalize(time.Now())
	if err := fp.Validate(); err != nil {
		s.warning = err.Error()
		return nil
	}
	s.done = true
	next := s.next(fp)
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

// Fingerprint returns the answers collected so far.
func (s *Screen) Fingerprint() course.Fingerprint { return s.fp }

func (s *Screen) View(width, height int) string {
	var prompt, body string
	switch {
	case s.step == 0:
		prompt = "What do you want to learn?"
		body = s.topic.View()
	case s.step == s.contextStep():
		prompt = "Any context that would help tailor the course?"
		body = s.context.View()
	default:
		prompt = s.questions[s.step-1].Prompt
		body = s.menu.View()
	}

	inner := min(width-8, 72)
	sections := []string{
		components.StepBar{Current: s.step + 1, Total: s.totalSteps(), Width: inner}.View(),
		"",
		theme.Title.Render(prompt),
		"",
		body,
	}
	if s.fp.Topic != "" && s.step > 0 {
		sections = append(sections, "", theme.Hint.Render("Topic: "+s.fp.Topic))
	}
	if s.warning != "" {
		sections = append(sections, "", theme.Failure.Render(s.warning))
	}

	card := theme.Card.Width(inner + 4).Render(strings.Join(sections, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func (s *Screen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Next"}}
	if s.step > 0 && s.step < s.contextStep() {
		hints = []layout.KeyHint{{Key: "↑↓", Description: "Choose"}, {Key: "Enter", Description: "Next"}}
	}
	if s.step == s.contextStep() {
		hints = []layout.KeyHint{{Key: "Enter", Description: "Create outline"}}
	}
	if s.step > 0 {
		hints = append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
	}
	return append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
}
