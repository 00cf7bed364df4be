package repair

import (
	"fmt"
	"strings"

	"github.com/abhisek/coursecraft/internal/course"
)

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func moduleRef(i int, title string) string {
	if blank(title) {
		return fmt.Sprintf("modules[%d]", i)
	}
	return fmt.Sprintf("modules[%d] %q", i, title)
}

// outlineViolation returns the first structural rule the outline breaks.
func outlineViolation(o *course.Outline) string {
	if blank(o.Title) {
		return "title: is required and must be non-empty"
	}
	if len(o.Modules) == 0 {
		return "modules: is required and must be a non-empty list"
	}
	for i, m := range o.Modules {
		if len(m.LessonTitles) == 0 {
			return moduleRef(i, m.Title) + ": lessons must be a non-empty list"
		}
	}
	return ""
}

// contentViolation returns the first structural rule the course breaks.
func contentViolation(c *course.Content) string {
	if blank(c.Title) {
		return "title: is required and must be non-empty"
	}
	if len(c.Modules) == 0 {
		return "modules: is required and must be a non-empty list"
	}
	for i, m := range c.Modules {
		if len(m.Lessons) == 0 {
			return moduleRef(i, m.Title) + ": lessons must be a non-empty list"
		}
		for j, l := range m.Lessons {
			if blank(l.Content) {
				return fmt.Sprintf("%s lessons[%d] %q: content must be non-empty", moduleRef(i, m.Title), j, l.Title)
			}
		}
	}
	if len(c.NextSteps) == 0 {
		return "next_steps: is required and must be a non-empty list"
	}
	return ""
}
