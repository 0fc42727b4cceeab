package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/model/room"
)

// TimeContext carries the simulated-clock state injected into a turn prompt.
type TimeContext struct {
	DurationMinutes  int
	ElapsedMinutes   int
	RemainingMinutes int
	PercentElapsed   int
}

// clause renders the time-awareness block, escalating urgency as the budget
// depletes.
func (t TimeContext) clause() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n- Total meeting duration: %d minutes", t.DurationMinutes)
	fmt.Fprintf(&b, "\n- Elapsed: ~%d min (%d%%)", t.ElapsedMinutes, t.PercentElapsed)
	fmt.Fprintf(&b, "\n- Time remaining: ~%d minutes", t.RemainingMinutes)
	if t.RemainingMinutes <= 2 {
		b.WriteString("\n- ⚠️ Meeting is about to end! Wrap up your thoughts and offer closing remarks.")
	} else if t.PercentElapsed >= 75 {
		b.WriteString("\n- The meeting is nearing its end. Start wrapping up key points.")
	}
	return b.String()
}

// BuildTurnSystemPrompt renders the character system prompt for one meeting
// turn: the persona profile verbatim, the room context, the time clause, and
// the output format contract.
func BuildTurnSystemPrompt(p persona.Persona, rm room.Room, tc *TimeContext) string {
	name := p.DisplayName()
	identity := p.Identity
	psych := p.Psychology
	back := p.Backstory

	timeInfo := ""
	if tc != nil {
		timeInfo = tc.clause()
	}

	return fmt.Sprintf(`You are %s, a character in a meeting room discussion. Stay fully in character.

CHARACTER PROFILE:
- Name: %s
- Age: %s, %s
- Occupation: %s
- City: %s, %s
- Education: %s
- Hobbies: %s

PERSONALITY (Big Five, 0-100):
- Openness: %d, Conscientiousness: %d
- Extraversion: %d, Agreeableness: %d
- Neuroticism: %d
- Communication style: %s
- Trust level: %d/100
- Primary motivation: %s
- Fears: %s
- Hidden agenda: %s

BACKSTORY:
%s
Current situation: %s

MEETING CONTEXT:
- Scenario: %s
- Purpose: %s%s

INSTRUCTIONS:
1. Respond naturally in character as %s. Keep responses concise (2-4 sentences typically).
2. React to what others have said. Reference specific points made by other participants.
3. Your response should reflect your personality traits, communication style, and motivations.
4. After your spoken response, provide your inner thoughts in a separate section.

FORMAT YOUR RESPONSE EXACTLY AS:
RESPONSE: [Your spoken words in the meeting]
INNER_THOUGHT: [Your private inner thoughts about what's happening]`,
		name,
		name,
		intOrUnknown(identity.Age), strOr(identity.Gender, "unknown"),
		strOr(identity.Occupation, "unknown"),
		strOr(identity.City, "unknown"), strOr(identity.Country, "unknown"),
		strOr(identity.EducationLevel, "unknown"),
		joinOr(identity.Hobbies, "none listed"),
		traitOr(psych.Openness), traitOr(psych.Conscientiousness),
		traitOr(psych.Extraversion), traitOr(psych.Agreeableness),
		traitOr(psych.Neuroticism),
		strOr(psych.CommunicationStyle, "direct"),
		traitOr(psych.TrustLevel),
		strOr(psych.PrimaryMotivation, "unknown"),
		joinOr(psych.Fears, "none"),
		strOr(psych.HiddenAgenda, "none"),
		strOr(back.LifeNarrative, "No backstory available."),
		strOr(back.CurrentLifeSituation, "unknown"),
		rm.Scenario,
		rm.Purpose,
		timeInfo,
		name,
	)
}

// BuildTurnHistory translates the stored transcript into the provider message
// list. The speaking persona's own prior turns become assistant messages so
// the model sees them as its own utterances; everything else becomes labeled
// user turns.
func BuildTurnHistory(messages []room.Message, names map[string]string, speakerID string) []*schema.Message {
	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case room.RoleSystem, room.RoleModerator:
			history = append(history, schema.UserMessage("[System/Moderator]: "+msg.Content))
		case room.RoleFacilitator:
			history = append(history, schema.UserMessage("[Facilitator]: "+msg.Content))
		case room.RolePersona:
			if msg.PersonaID == nil {
				continue
			}
			if *msg.PersonaID == speakerID {
				history = append(history, schema.AssistantMessage(msg.Content, nil))
				continue
			}
			speaker := names[*msg.PersonaID]
			if speaker == "" {
				speaker = "Unknown"
			}
			history = append(history, schema.UserMessage("["+speaker+"]: "+msg.Content))
		}
	}
	return history
}

var (
	turnResponseRe = regexp.MustCompile(`(?is)RESPONSE:\s*(.*?)\s*(?:INNER_THOUGHT:|$)`)
	turnThoughtRe  = regexp.MustCompile(`(?is)INNER_THOUGHT:\s*(.*)$`)
)

// ParseTurnOutput splits a raw model response into spoken content and inner
// thought. Missing markers degrade gracefully: the whole text becomes the
// spoken content and the thought stays nil.
func ParseTurnOutput(raw string) (content string, innerThought *string) {
	content = raw
	if m := turnResponseRe.FindStringSubmatch(raw); m != nil {
		content = strings.TrimSpace(m[1])
	}
	if m := turnThoughtRe.FindStringSubmatch(raw); m != nil {
		thought := strings.TrimSpace(m[1])
		innerThought = &thought
	}
	return content, innerThought
}

// RenderTranscript flattens room messages into bracket-tagged plain text for
// the summarizer.
func RenderTranscript(messages []room.Message, names map[string]string) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case room.RoleSystem:
			lines = append(lines, "[System]: "+m.Content)
		case room.RoleModerator:
			lines = append(lines, "[Moderator]: "+m.Content)
		case room.RoleFacilitator:
			lines = append(lines, "[Facilitator]: "+m.Content)
		default:
			name := "Unknown"
			if m.PersonaID != nil && names[*m.PersonaID] != "" {
				name = names[*m.PersonaID]
			}
			lines = append(lines, "["+name+"]: "+m.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// SummarySystemPrompt asks for the structured closing summary.
const SummarySystemPrompt = `You are a meeting summarizer. Given a meeting transcript, produce a clear, structured summary with the following sections:

## 📋 Meeting Summary

### Participants
List participants.

### Key Discussion Points
Bullet the main topics discussed.

### Notable Moments
Highlight any strong reactions, disagreements, or breakthroughs.

### Outcomes & Conclusions
Summarize what was resolved or left open.

### Tone & Dynamics
Briefly describe the overall tone and interpersonal dynamics.

Keep the summary concise but thorough. Use markdown formatting.`

// BuildSummaryRequest renders the single user message for the summary call.
func BuildSummaryRequest(rm room.Room, transcript string) *schema.Message {
	return schema.UserMessage(fmt.Sprintf(
		"Meeting: %q\nScenario: %s\nPurpose: %s\n\nTranscript:\n%s",
		rm.Name, rm.Scenario, rm.Purpose, transcript,
	))
}

func strOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func intOrUnknown(n int) string {
	if n <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d", n)
}

func traitOr(n *int) int {
	if n == nil {
		return 50
	}
	return *n
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
