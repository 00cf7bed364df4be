package prompt

import "github.com/abhisek/coursecraft/internal/course"

// Fallback guidance used whenever an attribute carries a value this build
// does not recognize.
const (
	fallbackStyle     = "Balance the presentation: mix short explanations, a concrete example and a simple diagram where it genuinely helps."
	fallbackKnowledge = "Assume a curious adult with general background. Define jargon on first use and build up gradually."
	fallbackGoal      = "Aim for solid, well-rounded understanding the learner can apply and explain."
	fallbackTime      = "Keep the course moderately sized: 3 to 4 modules with 2 to 3 lessons each."
	fallbackFormat    = "Alternate between explanation and example; adapt the order to whatever makes each lesson clearest."
	fallbackChallenge = "Adapt difficulty gradually, checking understanding before moving on."
)

func styleGuidance(s course.LearningStyle) string {
	switch s {
	case course.StyleVisual:
		return "The learner thinks in pictures. Use mermaid diagrams for processes, hierarchies and relationships, and describe spatial structure explicitly."
	case course.StyleAuditory:
		return "The learner prefers to be talked through ideas. Write conversationally, as if explaining out loud, and use analogies and verbal mnemonics."
	case course.StyleReading:
		return "The learner likes well-structured prose. Use clear headings, precise definitions and short summaries at the end of each lesson."
	case course.StyleKinesthetic:
		return "The learner learns by doing. Every lesson should include a hands-on exercise, a step-by-step walkthrough or something to try immediately."
	case course.StyleMixed:
		return fallbackStyle
	default:
		return fallbackStyle
	}
}

func knowledgeGuidance(k course.PriorKnowledge) string {
	switch k {
	case course.KnowledgeNone:
		return "The learner is starting from zero. Avoid all unexplained jargon, start from first principles and use everyday analogies."
	case course.KnowledgeBeginner:
		return "The learner knows the basic vocabulary. Briefly recap fundamentals, then move into core concepts at a steady pace."
	case course.KnowledgeSomeExposure:
		return "The learner has dabbled. Skip the absolute basics, fill in the gaps in their mental model and connect the pieces they already know."
	case course.KnowledgeIntermediate:
		return "The learner uses this regularly. Skip introductions, focus on deeper mechanics, trade-offs and common pitfalls."
	case course.KnowledgeAdvanced:
		return "The learner is already experienced. Focus on edge cases, internals, advanced patterns and expert-level nuance."
	default:
		return fallbackKnowledge
	}
}

func goalGuidance(g course.LearningGoal) string {
	switch g {
	case course.GoalJobInterview:
		return "The learner is preparing for an interview. Emphasize commonly asked questions, crisp definitions and how to explain trade-offs out loud."
	case course.GoalCareer:
		return "The learner wants to grow professionally. Emphasize real-world application, industry practice and skills that transfer to the job."
	case course.GoalSoundSmart:
		return "The learner wants conversational fluency. Emphasize key ideas, memorable facts and the big picture over implementation detail."
	case course.GoalAcademic:
		return "The learner studies formally. Emphasize rigor, correct terminology, theory and how ideas relate to the wider field."
	case course.GoalHobby:
		return "The learner is here for fun. Keep it light and engaging, favor interesting stories and satisfying small wins."
	case course.GoalTeachOthers:
		return "The learner will teach this. Emphasize clear mental models, common misconceptions and ways to explain each idea simply."
	default:
		return fallbackGoal
	}
}

func timeGuidance(t course.TimeCommitment) string {
	switch t {
	case course.Time30Min:
		return "The learner has about 30 minutes. Produce exactly 2 modules with 2 short lessons each and focus only on essentials."
	case course.Time1Hour:
		return "The learner has about an hour. Produce 2 to 3 modules with 2 lessons each."
	case course.Time2Hours:
		return "The learner has a couple of hours. Produce 3 to 4 modules with 2 to 3 lessons each."
	case course.Time1Week:
		return "The learner has a week of evenings. Produce 4 to 5 modules with 3 lessons each, building toward a small project."
	case course.TimeNoRush:
		return "The learner has no deadline. Produce 5 to 6 modules with 3 to 4 lessons each and cover the topic thoroughly."
	case course.TimeMasterclass:
		return "The learner wants a masterclass. Produce 6 to 8 modules with 3 to 4 lessons each, from foundations to expert material."
	default:
		return fallbackTime
	}
}

func formatGuidance(f course.ContentFormat) string {
	switch f {
	case course.FormatExamplesFirst:
		return "Open every lesson with a concrete example, then generalize to the underlying concept."
	case course.FormatTheoryFirst:
		return "Open every lesson with the concept and its reasoning, then illustrate with examples."
	case course.FormatVisualDiagrams:
		return "Include at least one mermaid diagram per module and refer to it in the surrounding text."
	case course.FormatTextHeavy:
		return "Favor thorough written explanation. Use diagrams sparingly and only where text alone is unclear."
	case course.FormatMixed:
		return fallbackFormat
	default:
		return fallbackFormat
	}
}

func challengeGuidance(c course.ChallengePreference) string {
	switch c {
	case course.ChallengeEasyToHard:
		return "Start with easy wins and increase difficulty steadily from module to module."
	case course.ChallengeAdaptive:
		return fallbackChallenge
	case course.ChallengeDeepDive:
		return "Go deep early. The learner prefers depth over gentle ramp-up and is comfortable with dense material."
	case course.ChallengePracticalOnly:
		return "Skip theory that has no practical use. Every lesson should end with something the learner can apply."
	default:
		return fallbackChallenge
	}
}
