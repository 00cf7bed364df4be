package course

import (
	"fmt"
	"strings"
)

// Markdown renders the course as a single markdown document. Lesson content
// is embedded as-is, so diagram blocks stay fenced.
func (c Content) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Title)
	if c.EstimatedTime != "" {
		fmt.Fprintf(&b, "_Estimated time: %s_\n\n", c.EstimatedTime)
	}
	for i, m := range c.Modules {
		fmt.Fprintf(&b, "## Module %d: %s\n\n", i+1, m.Title)
		if m.Description != "" {
			b.WriteString(m.Description + "\n\n")
		}
		for j, l := range m.Lessons {
			fmt.Fprintf(&b, "### %d.%d %s\n\n", i+1, j+1, l.Title)
			b.WriteString(strings.TrimSpace(l.Content) + "\n\n")
			if l.Quiz != nil && l.Quiz.Question != "" {
				fmt.Fprintf(&b, "> **Quiz:** %s\n", l.Quiz.Question)
				if l.Quiz.Answer != "" {
					fmt.Fprintf(&b, ">\n> **Answer:** %s\n", l.Quiz.Answer)
				}
				b.WriteString("\n")
			}
		}
	}
	if len(c.NextSteps) > 0 {
		b.WriteString("## Next Steps\n\n")
		for _, s := range c.NextSteps {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return b.String()
}

// Markdown renders the outline as a nested list.
func (o Outline) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", o.Title)
	for i, m := range o.Modules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Title)
		for _, l := range m.LessonTitles {
			fmt.Fprintf(&b, "   - %s\n", l)
		}
	}
	return b.String()
}
