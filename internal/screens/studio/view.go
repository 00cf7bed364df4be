package studio

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursecraft/internal/course"
	"github.com/abhisek/coursecraft/internal/ui/layout"
	"github.com/abhisek/coursecraft/internal/ui/theme"
	"github.com/abhisek/coursecraft/internal/workflow"
)

func (s *Screen) View(width, height int) string {
	inner := max(20, min(width-6, 100))

	var body string
	switch s.snap.Step {
	case workflow.StepOnboarding:
		body = theme.Hint.Render("Starting…")
	case workflow.StepGeneratingOutline:
		msg := fmt.Sprintf("Designing a course outline for %q…", s.fp.Topic)
		if s.snap.IsRegenerating {
			msg = "Revising the outline with your feedback…"
		}
		body = s.waiting(msg, "This usually takes under a minute.")
	case workflow.StepGeneratingFull:
		lessons := 0
		if s.snap.Outline != nil {
			lessons = s.snap.Outline.LessonCount()
		}
		body = s.waiting(
			fmt.Sprintf("Writing %d lessons…", lessons),
			"Full courses take a few minutes. Esc cancels.",
		)
	case workflow.StepOutlinePreview:
		body = s.outlineView(inner, height)
	case workflow.StepCelebration:
		body = celebration(s.snap.Content)
	case workflow.StepPreview:
		body = s.courseView(inner, height)
	case workflow.StepError:
		body = s.errorView(inner)
	}

	if s.notice != "" {
		body += "\n\n" + theme.Failure.Render(s.notice)
	}
	if s.snap.Step == workflow.StepPreview {
		return lipgloss.NewStyle().PaddingLeft(2).Render(body)
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

func (s *Screen) waiting(msg, hint string) string {
	return s.spinner.View() + " " + theme.Body.Render(msg) + "\n\n" + theme.Hint.Render(hint)
}

func (s *Screen) outlineView(width, height int) string {
	o := s.snap.Outline
	if o == nil {
		return ""
	}
	lines := []string{theme.Title.Render(o.Title), ""}
	for i, m := range o.Modules {
		lines = append(lines, theme.ModuleHeading.Render(fmt.Sprintf("%d. %s", i+1, m.Title)))
		for _, l := range m.LessonTitles {
			lines = append(lines, theme.Body.Render("   • "+l))
		}
	}

	footer := []string{"", theme.Hint.Render(fmt.Sprintf("%d modules, %d lessons", len(o.Modules), o.LessonCount()))}
	if s.snap.Feedback != "" {
		footer = append(footer, theme.Hint.Render("Last feedback: "+course.TruncateRunes(s.snap.Feedback, 80)))
	}
	if s.editing {
		footer = append(footer, "", theme.Body.Render("What should change?"), s.feedback.View())
	}

	visible := window(lines, s.scroll, height-len(footer)-6)
	return theme.Card.Width(width).Render(strings.Join(append(visible, footer...), "\n"))
}

func celebration(c *course.Content) string {
	title := "Your course"
	lessons := 0
	if c != nil {
		title = c.Title
		lessons = c.LessonCount()
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		theme.Celebrate.Render("✦  Course ready!  ✦"),
		"",
		theme.Title.Render(title),
		theme.Subtitle.Render(fmt.Sprintf("%d lessons written just for you", lessons)),
	)
}

func (s *Screen) courseView(width, height int) string {
	c := s.snap.Content
	if c == nil {
		return ""
	}
	lines := renderCourse(*c, width)
	if s.savedID != "" {
		lines = append(lines, "", theme.Hint.Render("Saved as "+s.savedID))
	}
	return strings.Join(window(lines, s.scroll, height-1), "\n")
}

func (s *Screen) errorView(width int) string {
	f := s.snap.Failure
	if f == nil {
		return ""
	}
	lines := []string{theme.Failure.Render(f.UserMessage()), "", theme.Body.Render(f.Hint())}
	if !f.Retryable() {
		lines = append(lines, "", theme.Hint.Render("Press D to go back."))
	}
	return theme.ErrorCard.Width(min(width, 70)).Render(strings.Join(lines, "\n"))
}

// renderCourse styles the course markdown line by line: headings, fenced
// diagram blocks and quizzes each get their own style.
func renderCourse(c course.Content, width int) []string {
	var out []string
	inFence := false
	for _, line := range strings.Split(c.Markdown(), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```"):
			inFence = !inFence
			out = append(out, theme.Diagram.Render(trimmed))
		case inFence:
			out = append(out, theme.Diagram.Render(line))
		case strings.HasPrefix(line, "# "):
			out = append(out, theme.Title.Render(strings.TrimPrefix(line, "# ")))
		case strings.HasPrefix(line, "## "):
			out = append(out, theme.ModuleHeading.Render(strings.TrimPrefix(line, "## ")))
		case strings.HasPrefix(line, "### "):
			out = append(out, theme.LessonHeading.Render(strings.TrimPrefix(line, "### ")))
		case strings.HasPrefix(line, ">"):
			out = append(out, theme.Quiz.Render(strings.TrimSpace(strings.TrimPrefix(line, ">"))))
		default:
			out = append(out, strings.Split(layout.Wrap(line, width), "\n")...)
		}
	}
	return out
}

// window returns at most n lines starting at offset, clamping offset so the
// last page stays full.
func window(lines []string, offset, n int) []string {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	offset = min(offset, len(lines)-n)
	return lines[offset : offset+n]
}
