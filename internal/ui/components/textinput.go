package components

import (
	"strconv"
	"unicode/utf8"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursecraft/internal/ui/theme"
)

// TextInput wraps bubbles/textinput with a rune counter.
type TextInput struct {
	Model    textinput.Model
	MaxRunes int
}

// NewTextInput creates a focused input. maxRunes of zero means unlimited.
func NewTextInput(placeholder string, maxRunes int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if maxRunes > 0 {
		ti.CharLimit = maxRunes
	}
	ti.Focus()
	return TextInput{Model: ti, MaxRunes: maxRunes}
}

func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the input, with a counter when a limit is set.
func (t TextInput) View() string {
	view := t.Model.View()
	if t.MaxRunes > 0 {
		n := utf8.RuneCountInString(t.Model.Value())
		style := lipgloss.NewStyle().Foreground(theme.TextDim)
		if n >= t.MaxRunes {
			style = style.Foreground(theme.Accent)
		}
		view += "\n" + style.Render(strconv.Itoa(n)+"/"+strconv.Itoa(t.MaxRunes))
	}
	return view
}

func (t TextInput) Value() string {
	return t.Model.Value()
}

// Reset clears the input.
func (t *TextInput) Reset() {
	t.Model.SetValue("")
}
