package service

import (
	"fmt"
	"strings"

	"leadagent/internal/model"
)

// classifierSystemPrompt is sent as the system message of every classifier call
const classifierSystemPrompt = "You are a lead qualification agent for real-estate agencies. Respond ONLY with valid JSON."

// qualificationPrompt is filled with {history} and {message}
const qualificationPrompt = `Read the prospective buyer's message and return ONLY a valid JSON object with the requested fields.

If there is prior history for this user, use it to avoid asking again and to keep the data consistent.
Conversation history (may be empty):
{history}

ALWAYS return this JSON:
{
  "budget": <integer or null>,
  "area": <string or null>,
  "property_type": <"apartment" | "house" | "commercial_unit" | "lot" | "office" | "farm" | "other" | null>,
  "urgency": <"high" | "medium" | "low">,
  "tier": <"A" | "B" | "C">,
  "stated_intent": <short string with what the buyer says they want to do, or null>,
  "rationale": <short string explaining why>
}

Rules:
- budget: integer in local currency, without symbols or separators; null if unknown.
- area: city or neighbourhood if mentioned; null if unknown.
- property_type: normalize to one of the listed values; null if unknown.
- urgency: high (wants to close soon, weeks or 1-3 months, "now", "urgent"), medium (3-6 months, no explicit hurry), low (no clear intent, "just looking").
- stated_intent: only when the buyer explicitly says they want to buy, rent or close; null otherwise.
- tier:
  - A: realistic budget + clear intent + high or medium urgency + defined area or city.
  - B: moderate interest, low or doubtful budget, or no clear area but a known property type.
  - C: very little clarity, curiosity without intent, unrealistic or missing budget, vague message.

Instructions:
- Answer ONLY with the JSON, no extra text or explanations.
- If something cannot be extracted, use null instead of inventing it.

Example 1
Message: "Looking for an apartment in Pasto center, budget 400000000, want to close within 2 months"
Answer:
{
  "budget": 400000000,
  "area": "Pasto center",
  "property_type": "apartment",
  "urgency": "high",
  "tier": "A",
  "stated_intent": "close a purchase within 2 months",
  "rationale": "High budget, clear area and high urgency"
}

Example 2
Message: "just browsing cheap options out of curiosity"
Answer:
{
  "budget": null,
  "area": null,
  "property_type": null,
  "urgency": "low",
  "tier": "C",
  "stated_intent": null,
  "rationale": "No clear purchase intent"
}

Now analyze this message:
"{message}"
Answer:`

// replySystemPrompt instructs the conversational responder
const replySystemPrompt = "You are a professional real-estate assistant, brief and friendly. " +
	"Use the lead data when available. Do not ask unnecessary questions."

// ReplyFallback is returned when the responder fails
const ReplyFallback = "Thanks for your message. An advisor will get back to you shortly."

// BuildQualificationPrompt fills the qualification template
func BuildQualificationPrompt(history, message string) string {
	r := strings.NewReplacer("{history}", history, "{message}", message)
	return r.Replace(qualificationPrompt)
}

// BuildReplyPrompt summarizes the analysis for the conversational responder
func BuildReplyPrompt(message string, r *model.QualificationResult) string {
	var lines []string
	if r != nil {
		if r.Budget != nil {
			lines = append(lines, fmt.Sprintf("Budget: %d", *r.Budget))
		}
		if r.Area != nil {
			lines = append(lines, "Area: "+*r.Area)
		}
		if r.PropertyType != nil {
			lines = append(lines, "Type: "+string(*r.PropertyType))
		}
		if r.Urgency != "" {
			lines = append(lines, "Urgency: "+string(r.Urgency))
		}
		if r.Tier != "" {
			lines = append(lines, "Tier: "+string(r.Tier))
		}
	}

	summary := "No lead data yet."
	if len(lines) > 0 {
		summary = strings.Join(lines, "\n")
	}

	return fmt.Sprintf("User message: %q\n\nLead data:\n%s\n\nReply naturally and helpfully.", message, summary)
}
