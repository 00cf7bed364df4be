package course

import "strings"

// Phase is one of the two generation stages.
type Phase string

const (
	PhaseOutline Phase = "outline"
	PhaseContent Phase = "content"
)

// Outline is the lightweight course skeleton produced by the first phase.
type Outline struct {
	Title   string          `json:"title"`
	Modules []ModuleOutline `json:"modules"`
}

// ModuleOutline lists the lesson titles of one module.
type ModuleOutline struct {
	Title        string   `json:"title"`
	LessonTitles []string `json:"lessons"`
}

// LessonCount returns the total number of lessons across modules.
func (o Outline) LessonCount() int {
	n := 0
	for _, m := range o.Modules {
		n += len(m.LessonTitles)
	}
	return n
}

// Clone returns a deep copy of the outline.
func (o Outline) Clone() Outline {
	out := Outline{Title: o.Title, Modules: make([]ModuleOutline, len(o.Modules))}
	for i, m := range o.Modules {
		out.Modules[i] = ModuleOutline{
			Title:        m.Title,
			LessonTitles: append([]string(nil), m.LessonTitles...),
		}
	}
	return out
}

// Content is the fully generated course handed off to persistence.
type Content struct {
	Title         string   `json:"title"`
	EstimatedTime string   `json:"estimated_time"`
	Modules       []Module `json:"modules"`
	NextSteps     []string `json:"next_steps"`
}

// Module is one ordered section of a course.
type Module struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Lessons     []Lesson `json:"lessons"`
}

// Lesson holds markdown-like content that may embed fenced diagram blocks.
type Lesson struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Quiz    *Quiz  `json:"quiz,omitempty"`
}

// Quiz is an optional single check-for-understanding question.
type Quiz struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// LessonCount returns the total number of lessons across modules.
func (c Content) LessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// Outline derives the skeleton of a generated course.
func (c Content) Outline() Outline {
	out := Outline{Title: c.Title, Modules: make([]ModuleOutline, len(c.Modules))}
	for i, m := range c.Modules {
		titles := make([]string, len(m.Lessons))
		for j, l := range m.Lessons {
			titles[j] = l.Title
		}
		out.Modules[i] = ModuleOutline{Title: m.Title, LessonTitles: titles}
	}
	return out
}

// DiagramFence is the fence tag lessons must use for diagrams.
const DiagramFence = "```mermaid"

// DiagramBlocks counts fenced diagram blocks across all lessons.
func (c Content) DiagramBlocks() int {
	n := 0
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			n += strings.Count(l.Content, DiagramFence)
		}
	}
	return n
}
