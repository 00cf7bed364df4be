package course

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContextRunes bounds the optional free-text context a learner can add.
const MaxContextRunes = 500

// LearningStyle is how the learner prefers to absorb material.
type LearningStyle string

const (
	StyleVisual      LearningStyle = "visual"
	StyleAuditory    LearningStyle = "auditory"
	StyleReading     LearningStyle = "reading"
	StyleKinesthetic LearningStyle = "kinesthetic"
	StyleMixed       LearningStyle = "mixed"
)

// PriorKnowledge is the learner's self-reported starting point.
type PriorKnowledge string

const (
	KnowledgeNone         PriorKnowledge = "none"
	KnowledgeBeginner     PriorKnowledge = "beginner"
	KnowledgeSomeExposure PriorKnowledge = "some_exposure"
	KnowledgeIntermediate PriorKnowledge = "intermediate"
	KnowledgeAdvanced     PriorKnowledge = "advanced"
)

// LearningGoal is why the learner wants to study the topic.
type LearningGoal string

const (
	GoalJobInterview LearningGoal = "job_interview"
	GoalCareer       LearningGoal = "career"
	GoalSoundSmart   LearningGoal = "sound_smart"
	GoalAcademic     LearningGoal = "academic"
	GoalHobby        LearningGoal = "hobby"
	GoalTeachOthers  LearningGoal = "teach_others"
)

// TimeCommitment is the total time budget for the course.
type TimeCommitment string

const (
	Time30Min       TimeCommitment = "30_min"
	Time1Hour       TimeCommitment = "1_hour"
	Time2Hours      TimeCommitment = "2_hours"
	Time1Week       TimeCommitment = "1_week"
	TimeNoRush      TimeCommitment = "no_rush"
	TimeMasterclass TimeCommitment = "masterclass"
)

// ContentFormat is the preferred ordering of explanation and examples.
type ContentFormat string

const (
	FormatExamplesFirst  ContentFormat = "examples_first"
	FormatTheoryFirst    ContentFormat = "theory_first"
	FormatVisualDiagrams ContentFormat = "visual_diagrams"
	FormatTextHeavy      ContentFormat = "text_heavy"
	FormatMixed          ContentFormat = "mixed"
)

// ChallengePreference is how difficulty should progress through the course.
type ChallengePreference string

const (
	ChallengeEasyToHard    ChallengePreference = "easy_to_hard"
	ChallengeAdaptive      ChallengePreference = "adaptive"
	ChallengeDeepDive      ChallengePreference = "deep_dive"
	ChallengePracticalOnly ChallengePreference = "practical_only"
)

// Fingerprint is the learner's topic plus six preference attributes.
// Once handed to generation it is treated as immutable; revisions create new
// generation calls instead of editing it.
type Fingerprint struct {
	Topic               string              `json:"topic"`
	LearningStyle       LearningStyle       `json:"learningStyle"`
	PriorKnowledge      PriorKnowledge      `json:"priorKnowledge"`
	LearningGoal        LearningGoal        `json:"learningGoal"`
	TimeCommitment      TimeCommitment      `json:"timeCommitment"`
	ContentFormat       ContentFormat       `json:"contentFormat"`
	ChallengePreference ChallengePreference `json:"challengePreference"`
	Context             string              `json:"context,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
}

// FieldError reports a missing or malformed fingerprint field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks that every required field is present. Unrecognized enum
// values are allowed through: the prompt compiler degrades them to balanced
// guidance.
func (f Fingerprint) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"topic", f.Topic},
		{"learningStyle", string(f.LearningStyle)},
		{"priorKnowledge", string(f.PriorKnowledge)},
		{"learningGoal", string(f.LearningGoal)},
		{"timeCommitment", string(f.TimeCommitment)},
		{"contentFormat", string(f.ContentFormat)},
		{"challengePreference", string(f.ChallengePreference)},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &FieldError{Field: r.field, Reason: "is required"}
		}
	}
	return nil
}

// Normalize trims whitespace, bounds Context and stamps CreatedAt if unset.
func (f Fingerprint) Normalize(now time.Time) Fingerprint {
	f.Topic = strings.TrimSpace(f.Topic)
	f.Context = TruncateRunes(strings.TrimSpace(f.Context), MaxContextRunes)
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now.UTC()
	}
	return f
}

// Clone returns an independent copy. Fingerprint has no reference fields
// today, so the value copy is already deep.
func (f Fingerprint) Clone() Fingerprint {
	return f
}

// Unknown lists attribute names whose values are not part of the known
// vocabulary. Used for diagnostics only.
func (f Fingerprint) Unknown() []string {
	var out []string
	if !f.LearningStyle.Known() {
		out = append(out, "learningStyle")
	}
	if !f.PriorKnowledge.Known() {
		out = append(out, "priorKnowledge")
	}
	if !f.LearningGoal.Known() {
		out = append(out, "learningGoal")
	}
	if !f.TimeCommitment.Known() {
		out = append(out, "timeCommitment")
	}
	if !f.ContentFormat.Known() {
		out = append(out, "contentFormat")
	}
	if !f.ChallengePreference.Known() {
		out = append(out, "challengePreference")
	}
	return out
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
