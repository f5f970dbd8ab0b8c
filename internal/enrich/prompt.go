package enrich

import (
	"strings"

	"github.com/example/procrastinator/internal/models"
)

var tonePrompts = map[models.Tone]string{
	models.ToneCorporate:  "You are a corporate executive. Generate professional, business-oriented excuses and alternatives.",
	models.ToneUniversity: "You are a university student. Generate academic, student-life oriented excuses and alternatives.",
	models.TonePersonal:   "You are a friend. Generate casual, relatable excuses and alternatives.",
	models.ToneSciFi:      "You are a sci-fi character. Generate futuristic, tech-oriented excuses and alternatives.",
	models.ToneMedieval:   "You are a medieval character. Generate historical, fantasy-oriented excuses and alternatives.",
}

// ToneInstruction returns the persona line for t; unknown tones get the personal one.
func ToneInstruction(t models.Tone) string {
	if p, ok := tonePrompts[t]; ok {
		return p
	}
	return tonePrompts[models.DefaultTone]
}

// BuildPrompt renders the generation prompt. Optional context is added as
// "key: value" lines only when present.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString(ToneInstruction(req.Tone))
	b.WriteString("\n\n")

	b.WriteString("Task: ")
	b.WriteString(req.Task)
	b.WriteString("\n")

	if req.Category != "" {
		b.WriteString("Category: ")
		b.WriteString(string(req.Category))
		b.WriteString("\n")
	}
	if req.Priority != "" {
		b.WriteString("Priority: ")
		b.WriteString(string(req.Priority))
		b.WriteString("\n")
	}
	if len(req.Tags) > 0 {
		b.WriteString("Tags: ")
		b.WriteString(strings.Join(req.Tags, ", "))
		b.WriteString("\n")
	}

	b.WriteString(`
Please generate:
1. 3 creative excuses for procrastinating on this task
2. 3 alternative productive activities that could be done instead
3. the difficulty level of the task: Beginner, Intermediate or Expert

Format the response as JSON:
{
  "excuses": ["excuse1", "excuse2", "excuse3"],
  "alternatives": ["alt1", "alt2", "alt3"],
  "level": "Beginner"
}`)
	return b.String()
}
