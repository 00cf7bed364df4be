package course

// Known reports whether s is one of the defined learning styles.
func (s LearningStyle) Known() bool {
	switch s {
	case StyleVisual, StyleAuditory, StyleReading, StyleKinesthetic, StyleMixed:
		return true
	}
	return false
}

// Known reports whether k is one of the defined knowledge levels.
func (k PriorKnowledge) Known() bool {
	switch k {
	case KnowledgeNone, KnowledgeBeginner, KnowledgeSomeExposure, KnowledgeIntermediate, KnowledgeAdvanced:
		return true
	}
	return false
}

// Known reports whether g is one of the defined goals.
func (g LearningGoal) Known() bool {
	switch g {
	case GoalJobInterview, GoalCareer, GoalSoundSmart, GoalAcademic, GoalHobby, GoalTeachOthers:
		return true
	}
	return false
}

// Known reports whether t is one of the defined time budgets.
func (t TimeCommitment) Known() bool {
	switch t {
	case Time30Min, Time1Hour, Time2Hours, Time1Week, TimeNoRush, TimeMasterclass:
		return true
	}
	return false
}

// Known reports whether f is one of the defined content formats.
func (f ContentFormat) Known() bool {
	switch f {
	case FormatExamplesFirst, FormatTheoryFirst, FormatVisualDiagrams, FormatTextHeavy, FormatMixed:
		return true
	}
	return false
}

// Known reports whether c is one of the defined challenge preferences.
func (c ChallengePreference) Known() bool {
	switch c {
	case ChallengeEasyToHard, ChallengeAdaptive, ChallengeDeepDive, ChallengePracticalOnly:
		return true
	}
	return false
}

// Option is a selectable answer for one onboarding question.
type Option struct {
	Value string
	Label string
}

// Question is one step of the onboarding Q&A.
type Question struct {
	Field   string
	Prompt  string
	Options []Option
}

// Questions returns the six preference questions in the order the
// onboarding flow asks them.
func Questions() []Question {
	return []Question{
		{
			Field:  "learningStyle",
			Prompt: "How do you learn best?",
			Options: []Option{
				{string(StyleVisual), "Visual: diagrams and pictures"},
				{string(StyleAuditory), "Auditory: explained like a conversation"},
				{string(StyleReading), "Reading: clear written explanations"},
				{string(StyleKinesthetic), "Hands-on: learn by doing"},
				{string(StyleMixed), "A bit of everything"},
			},
		},
		{
			Field:  "priorKnowledge",
			Prompt: "How much do you already know?",
			Options: []Option{
				{string(KnowledgeNone), "Nothing at all"},
				{string(KnowledgeBeginner), "Just the basics"},
				{string(KnowledgeSomeExposure), "I've played with it a little"},
				{string(KnowledgeIntermediate), "I use it regularly"},
				{string(KnowledgeAdvanced), "I'm already pretty deep"},
			},
		},
		{
			Field:  "learningGoal",
			Prompt: "Why are you learning this?",
			Options: []Option{
				{string(GoalJobInterview), "Preparing for a job interview"},
				{string(GoalCareer), "Growing my career"},
				{string(GoalSoundSmart), "To hold my own in conversations"},
				{string(GoalAcademic), "For school or research"},
				{string(GoalHobby), "Just for fun"},
				{string(GoalTeachOthers), "So I can teach others"},
			},
		},
		{
			Field:  "timeCommitment",
			Prompt: "How much time do you have?",
			Options: []Option{
				{string(Time30Min), "30 minutes"},
				{string(Time1Hour), "About an hour"},
				{string(Time2Hours), "A couple of hours"},
				{string(Time1Week), "A week of evenings"},
				{string(TimeNoRush), "No rush"},
				{string(TimeMasterclass), "Give me the masterclass"},
			},
		},
		{
			Field:  "contentFormat",
			Prompt: "How should lessons be laid out?",
			Options: []Option{
				{string(FormatExamplesFirst), "Examples first"},
				{string(FormatTheoryFirst), "Theory first"},
				{string(FormatVisualDiagrams), "Lots of diagrams"},
				{string(FormatTextHeavy), "Detailed text"},
				{string(FormatMixed), "Mix it up"},
			},
		},
		{
			Field:  "challengePreference",
			Prompt: "How should the difficulty ramp?",
			Options: []Option{
				{string(ChallengeEasyToHard), "Start easy, get harder"},
				{string(ChallengeAdaptive), "Adapt to me"},
				{string(ChallengeDeepDive), "Go deep from the start"},
				{string(ChallengePracticalOnly), "Practical skills only"},
			},
		},
	}
}

// Set assigns value to the fingerprint attribute named by field. It returns
// false for an unknown field name.
func (f *Fingerprint) Set(field, value string) bool {
	switch field {
	case "topic":
		f.Topic = value
	case "learningStyle":
		f.LearningStyle = LearningStyle(value)
	case "priorKnowledge":
		f.PriorKnowledge = PriorKnowledge(value)
	case "learningGoal":
		f.LearningGoal = LearningGoal(value)
	case "timeCommitment":
		f.TimeCommitment = TimeCommitment(value)
	case "contentFormat":
		f.ContentFormat = ContentFormat(value)
	case "challengePreference":
		f.ChallengePreference = ChallengePreference(value)
	case "context":
		f.Context = value
	default:
		return false
	}
	return true
}

// Get returns the attribute named by field as a string, or "" for an
// unknown field name.
func (f Fingerprint) Get(field string) string {
	switch field {
	case "topic":
		return f.Topic
	case "learningStyle":
		return string(f.LearningStyle)
	case "priorKnowledge":
		return string(f.PriorKnowledge)
	case "learningGoal":
		return string(f.LearningGoal)
	case "timeCommitment":
		return string(f.TimeCommitment)
	case "contentFormat":
		return string(f.ContentFormat)
	case "challengePreference":
		return string(f.ChallengePreference)
	case "context":
		return f.Context
	}
	return ""
}
