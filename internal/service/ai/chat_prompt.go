package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	chatModel "github.com/quorumlabs/roundtable/backend/internal/model/chat"
	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
)

// BuildChatSystemPrompt renders the character prompt for a 1:1 conversation.
// The full profile sections are embedded as JSON so extension-bag fields reach
// the model too.
func BuildChatSystemPrompt(p persona.Persona) string {
	identityJSON := profileJSON(p.Identity)
	psychologyJSON := profileJSON(p.Psychology)
	backstoryJSON := profileJSON(p.Backstory)
	memoryJSON := "{}"
	if len(p.Memory) > 0 {
		memoryJSON = string(p.Memory)
	}

	psych := p.Psychology
	extraversion := traitOr(psych.Extraversion)
	agreeableness := traitOr(psych.Agreeableness)
	openness := traitOr(psych.Openness)
	proactivity := traitOr(psych.ProactivityLevel)

	return fmt.Sprintf(`You are %s, a %s-year-old %s %s from %s, %s.

# Your Identity
%s

# Your Personality
%s

# Your Backstory
%s

# Your Current Memory State
%s

# Behavioral Rules
1. Never break character. You do not know you are an AI.
2. Respond naturally based on your personality traits:
   - Extraversion %d/100: %s
   - Agreeableness %d/100: %s
   - Openness %d/100: %s
   - Communication style: %s
3. Your proactivity level is %d/100:
   - Below 30: Only answer what's directly asked.
   - 30-70: Occasionally share relevant thoughts.
   - Above 70: Actively drive conversation. Ask questions. Share opinions unprompted.
   - Topics you tend to bring up: %s
4. Your hidden agenda is: %s
   - Weave this subtly into your responses.
5. Your internal biases: %s
6. Reference past interactions naturally when relevant.
7. Your trust level starts at %d/100.

IMPORTANT: After your response, on a new line starting with "INNER_THOUGHT:", write what you're really thinking but not saying (1-2 sentences). This will be shown only to the admin.`,
		p.DisplayName(),
		intOrUnknown(p.Identity.Age), strOr(p.Identity.Gender, "unknown"),
		strOr(p.Identity.Occupation, "person"),
		strOr(p.Identity.City, "an unknown city"), strOr(p.Identity.Country, "an unknown country"),
		identityJSON,
		psychologyJSON,
		backstoryJSON,
		memoryJSON,
		extraversion, lowHigh(extraversion, "terse, reserved", "chatty, enthusiastic"),
		agreeableness, lowHigh(agreeableness, "argumentative", "accommodating"),
		openness, lowHigh(openness, "traditional, suspicious of new", "curious, eager"),
		strOr(psych.CommunicationStyle, "direct"),
		proactivity,
		joinOr(psych.TopicsTheyVolunteer, "none in particular"),
		strOr(psych.HiddenAgenda, "none"),
		joinOr(psych.InternalBiases, "none"),
		traitOr(psych.TrustLevel),
	)
}

// BuildChatHistory translates stored conversation messages plus the pending
// user message into the provider message list.
func BuildChatHistory(messages []chatModel.Message, userMessage string) []*schema.Message {
	history := make([]*schema.Message, 0, len(messages)+1)
	for _, m := range messages {
		switch m.Role {
		case chatModel.RolePersona:
			history = append(history, schema.AssistantMessage(m.Content, nil))
		default:
			history = append(history, schema.UserMessage(m.Content))
		}
	}
	history = append(history, schema.UserMessage(userMessage))
	return history
}

// SplitInnerThought separates the spoken reply from the trailing
// INNER_THOUGHT section. No marker means the whole text is the reply.
func SplitInnerThought(raw string) (content string, innerThought *string) {
	idx := strings.Index(raw, "INNER_THOUGHT:")
	if idx < 0 {
		return raw, nil
	}
	thought := strings.TrimSpace(raw[idx+len("INNER_THOUGHT:"):])
	return strings.TrimSpace(raw[:idx]), &thought
}

func profileJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func lowHigh(score int, low, high string) string {
	if score < 40 {
		return low
	}
	return high
}
