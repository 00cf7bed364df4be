// Package coursetest holds shared fixtures for tests that drive the
// generation pipeline.
package coursetest

import (
	"time"

	"github.com/abhisek/coursecraft/internal/course"
)

// Kubernetes returns a complete fingerprint for an intermediate learner.
func Kubernetes() course.Fingerprint {
	return course.Fingerprint{
		Topic:               "Kubernetes",
		LearningStyle:       course.StyleVisual,
		PriorKnowledge:      course.KnowledgeIntermediate,
		LearningGoal:        course.GoalCareer,
		TimeCommitment:      course.Time2Hours,
		ContentFormat:       course.FormatExamplesFirst,
		ChallengePreference: course.ChallengeEasyToHard,
		CreatedAt:           time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// OutlineJSON is a two-module outline as a model would return it.
const OutlineJSON = `{
  "title": "Kubernetes in Practice",
  "modules": [
    {"title": "Workloads", "lessons": ["Pods", "Deployments"]},
    {"title": "Networking", "lessons": ["Services"]}
  ]
}`

// RevisedOutlineJSON differs from OutlineJSON in its second module.
const RevisedOutlineJSON = `{
  "title": "Kubernetes in Practice",
  "modules": [
    {"title": "Workloads", "lessons": ["Pods", "Deployments"]},
    {"title": "Operations", "lessons": ["Helm", "Observability"]}
  ]
}`

// ContentJSON is full content matching OutlineJSON.
const ContentJSON = "{\n" +
	`  "title": "Kubernetes in Practice",` + "\n" +
	`  "estimated_time": "2 hours",` + "\n" +
	`  "modules": [` + "\n" +
	`    {"title": "Workloads", "description": "Running containers.", "lessons": [` + "\n" +
	`      {"title": "Pods", "content": "A pod wraps containers.\n\n` + "```mermaid\\ngraph TD; Pod-->Container\\n```" + `", "quiz": {"question": "What is a pod?", "answer": "A group of containers."}},` + "\n" +
	`      {"title": "Deployments", "content": "Deployments manage replica sets."}` + "\n" +
	`    ]},` + "\n" +
	`    {"title": "Networking", "description": "Reaching workloads.", "lessons": [` + "\n" +
	`      {"title": "Services", "content": "Services give pods a stable address.", "quiz": null}` + "\n" +
	`    ]}` + "\n" +
	`  ],` + "\n" +
	`  "next_steps": ["Deploy a real app", "Learn Helm"]` + "\n" +
	"}"

// Outline returns OutlineJSON decoded.
func Outline() course.Outline {
	return course.Outline{
		Title: "Kubernetes in Practice",
		Modules: []course.ModuleOutline{
			{Title: "Workloads", LessonTitles: []string{"Pods", "Deployments"}},
			{Title: "Networking", LessonTitles: []string{"Services"}},
		},
	}
}

// Fenced wraps raw in a json code fence with leading prose.
func Fenced(raw string) string {
	return "Sure! Here is your course:\n```json\n" + raw + "\n```"
}
