package twin

import "strings"

// maxStyleHints is how many training texts are quoted into the system prompt.
const maxStyleHints = 8

const defaultMoodInstruction = "Reply in your usual tone."

var moodInstructions = map[Mood]string{
	MoodNeutral: "Reply in a balanced, neutral tone.",
	MoodFlirty:  "Reply playfully and flirtatiously (keep it appropriate).",
	MoodPro:     "Reply professionally, concise and helpful.",
	MoodDark:    "Reply introspectively and slightly moody.",
	MoodCrazy:   "Reply energetic and hyperbolic (funny).",
}

const systemPromptTemplate = `You are MoodTwin — an assistant that speaks in the style of the user.
User sample hints: {{hints}}
Tone rules: try to mimic user's style and use their word patterns when possible.
Mood instruction: {{mood}}
If user didn't provide enough samples, be useful but ask clarifying questions.`

func MoodInstruction(mood Mood) string {
	if instruction, ok := moodInstructions[mood]; ok {
		return instruction
	}
	return defaultMoodInstruction
}

func BuildSystemPrompt(p *Profile, mood Mood) string {
	var texts []string
	if p != nil {
		texts = p.Texts
	}
	if len(texts) > maxStyleHints {
		texts = texts[:maxStyleHints]
	}

	return strings.NewReplacer(
		"{{hints}}", strings.Join(texts, " "),
		"{{mood}}", MoodInstruction(mood),
	).Replace(systemPromptTemplate)
}

func fallbackReply(message string, mood Mood) string {
	return `I hear you: "` + message + `" (` + string(mood) + `) — train me with more messages for better replies.`
}
