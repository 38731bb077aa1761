package triage

import (
	"fmt"
	"strings"

	"github.com/linnemanlabs/sahayak/internal/symptom"
)

const (
	AdvisorMaxTokens   = 1000
	AdvisorTemperature = 0.3
)

// responseSchema is shown to the model and used to validate what it returns.
const responseSchema = `{
  "type": "object",
  "required": ["severity_level", "ai_explanation", "guidance_bangla", "guidance_english"],
  "properties": {
    "severity_level": {"type": "string", "enum": ["emergency", "moderate", "mild"]},
    "ai_explanation": {"type": "string", "minLength": 1},
    "guidance_bangla": {"type": "string", "minLength": 1},
    "guidance_english": {"type": "string", "minLength": 1}
  }
}`

// responseExample is the shape the model is asked to produce.
const responseExample = `{
  "severity_level": "emergency" | "moderate" | "mild",
  "ai_explanation": "explanation in Bangla and English",
  "guidance_bangla": "step-by-step guidance in simple Bangla",
  "guidance_english": "step-by-step guidance in simple English"
}`

func buildSystemPrompt() string {
	return `You are a medical triage assistant for rural Bangladesh. You sort reported symptoms into an urgency level and give simple first-step guidance to community health workers and patients with low literacy.

Respond with ONLY a JSON object, no markdown and no extra text.`
}

func buildPrompt(catalog *symptom.Catalog, emergencyIDs []string, reports []SymptomReport, p Patient) string {
	var b strings.Builder

	b.WriteString("Patient information:\n")
	fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	gender := p.Gender
	if gender == "" {
		gender = "unknown"
	}
	fmt.Fprintf(&b, "- Gender: %s\n", gender)
	fmt.Fprintf(&b, "- Overall duration: %s\n", p.Duration)

	b.WriteString("\nReported symptoms:\n")
	if len(reports) == 0 {
		b.WriteString("- none\n")
	}
	for _, r := range reports {
		name := r.ID
		if s, ok := catalog.Lookup(r.ID); ok {
			name = fmt.Sprintf("%s (%s)", s.NameEN, s.NameBN)
		}
		if r.Duration != "" {
			fmt.Fprintf(&b, "- %s, duration: %s\n", name, ParseDuration(r.Duration))
			continue
		}
		fmt.Fprintf(&b, "- %s\n", name)
	}

	b.WriteString("\nRespond with this JSON structure:\n")
	b.WriteString(responseExample)

	b.WriteString("\n\nRules:\n")
	fmt.Fprintf(&b, "1. These symptoms are ALWAYS emergency: %s\n", strings.Join(emergencyIDs, ", "))
	fmt.Fprintf(&b, "2. Be more cautious for children under %d and adults over %d\n", YoungAge, OldAge)
	b.WriteString("3. Use simple language that a person with little education can follow\n")
	b.WriteString("4. NEVER diagnose a disease or prescribe specific medicines\n")
	b.WriteString("5. For emergencies, ALWAYS recommend going to the nearest hospital\n")
	b.WriteString("6. End both guidance texts with a note that this is not medical advice\n")

	return b.String()
}
