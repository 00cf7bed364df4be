// Package prompt compiles a learner fingerprint into generation prompts.
// Compilation is pure: no I/O, no errors, and the same inputs always produce
// the same text.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/coursecraft/internal/course"
)

// SystemPrompt is sent as the system message for both phases.
const SystemPrompt = `You are an expert instructional designer who builds personalized, well-structured courses. You always answer with a single JSON object and nothing else.`

// Revision carries a rejected outline and the learner's feedback on it.
type Revision struct {
	PreviousOutline course.Outline
	Feedback        string
}

// Active reports whether r asks for a revision.
func (r *Revision) Active() bool {
	return r != nil && strings.TrimSpace(r.Feedback) != ""
}

// Prompts holds both compiled phase prompts.
type Prompts struct {
	Outline string
	Content string
}

// Compile returns the outline prompt and, when an approved outline is given,
// the content prompt.
func Compile(fp course.Fingerprint, rev *Revision, approved *course.Outline) Prompts {
	p := Prompts{Outline: CompileOutline(fp, rev)}
	if approved != nil {
		p.Content = CompileContent(fp, *approved)
	}
	return p
}

// CompileOutline builds the phase-1 prompt. A revision with blank feedback is
// ignored.
func CompileOutline(fp course.Fingerprint, rev *Revision) string {
	var b strings.Builder

	writeLearner(&b, fp)
	writeGuidance(&b, fp)

	if rev.Active() {
		b.WriteString("\nPrevious Outline (rejected by the learner):\n")
		b.WriteString(marshalOutline(rev.PreviousOutline))
		b.WriteString("\n\nLearner Feedback:\n")
		b.WriteString(strings.TrimSpace(rev.Feedback))
		b.WriteString(`

Revise the outline above to address the feedback. The result must be a revised outline, not a copy of the previous one: change what the feedback asks for and keep what it does not mention.
`)
	}

	b.WriteString(`
Task:
Design a course outline for this learner. List modules in teaching order; for each module give a title and an ordered list of lesson titles. Do not write lesson content yet.

Output Shape:
{"title": "course title", "modules": [{"title": "module title", "lessons": ["lesson title", "lesson title"]}]}
`)
	writeFormatRules(&b, false)

	return b.String()
}

// CompileContent builds the phase-2 prompt for an approved outline.
func CompileContent(fp course.Fingerprint, approved course.Outline) string {
	var b strings.Builder

	writeLearner(&b, fp)
	writeGuidance(&b, fp)

	b.WriteString("\nApproved Outline:\n")
	b.WriteString(marshalOutline(approved))
	b.WriteString(`

Task:
Generate the full course content for each lesson in this exact outline. Preserve every module title, lesson title and their order; do not add, drop, rename or reorder anything. Every module needs a one or two sentence description. Every lesson needs substantial content written for this learner and may include one quiz question with its answer. Finish with a list of concrete next steps.

Output Shape:
{"title": "course title", "estimated_time": "e.g. 2 hours", "modules": [{"title": "...", "description": "...", "lessons": [{"title": "...", "content": "markdown text", "quiz": {"question": "...", "answer": "..."}}]}], "next_steps": ["..."]}
`)
	writeFormatRules(&b, true)

	return b.String()
}

func writeLearner(b *strings.Builder, fp course.Fingerprint) {
	b.WriteString("Learner Profile:\n")
	fmt.Fprintf(b, "Topic: %s\n", strings.TrimSpace(fp.Topic))
	fmt.Fprintf(b, "Learning style: %s\n", valueOrUnset(string(fp.LearningStyle)))
	fmt.Fprintf(b, "Prior knowledge: %s\n", valueOrUnset(string(fp.PriorKnowledge)))
	fmt.Fprintf(b, "Goal: %s\n", valueOrUnset(string(fp.LearningGoal)))
	fmt.Fprintf(b, "Time available: %s\n", valueOrUnset(string(fp.TimeCommitment)))
	fmt.Fprintf(b, "Preferred format: %s\n", valueOrUnset(string(fp.ContentFormat)))
	fmt.Fprintf(b, "Challenge: %s\n", valueOrUnset(string(fp.ChallengePreference)))
	if ctx := course.TruncateRunes(strings.TrimSpace(fp.Context), course.MaxContextRunes); ctx != "" {
		fmt.Fprintf(b, "Additional context from the learner: %s\n", ctx)
	}
}

func writeGuidance(b *strings.Builder, fp course.Fingerprint) {
	b.WriteString("\nGuidance:\n")
	fmt.Fprintf(b, "- Style: %s\n", styleGuidance(fp.LearningStyle))
	fmt.Fprintf(b, "- Level: %s\n", knowledgeGuidance(fp.PriorKnowledge))
	fmt.Fprintf(b, "- Goal: %s\n", goalGuidance(fp.LearningGoal))
	fmt.Fprintf(b, "- Size: %s\n", timeGuidance(fp.TimeCommitment))
	fmt.Fprintf(b, "- Format: %s\n", formatGuidance(fp.ContentFormat))
	fmt.Fprintf(b, "- Difficulty: %s\n", challengeGuidance(fp.ChallengePreference))
}

// ForbiddenArrows are ASCII-art patterns lessons must not use outside
// mermaid blocks.
var ForbiddenArrows = []string{"-->", "==>", "|->", "+--", "<--", "->"}

func writeFormatRules(b *strings.Builder, content bool) {
	b.WriteString(`
Output Rules:
1. Respond with ONLY the JSON object. No prose before or after it, no markdown code fences around it.
2. All strings must be valid JSON strings: escape newlines as \n and escape double quotes.
3. Do not leave trailing commas.
`)
	if !content {
		return
	}
	b.WriteString("4. Diagrams must be mermaid fenced blocks inside lesson content: ```mermaid\\n...\\n```. No other diagram notation.\n")
	fmt.Fprintf(b, "5. Never draw ASCII-art arrows or boxes outside mermaid blocks (forbidden: %s, and box-drawing characters).\n",
		strings.Join(quoteAll(ForbiddenArrows), ", "))
}

func marshalOutline(o course.Outline) string {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		// Outline holds only strings and slices; marshaling cannot fail.
		return o.Title
	}
	return string(data)
}

func valueOrUnset(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unspecified"
	}
	return v
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = `"` + s + `"`
	}
	return out
}
