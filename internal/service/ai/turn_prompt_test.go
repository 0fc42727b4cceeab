package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/model/room"
)

func TestParseTurnOutputWithMarkers(t *testing.T) {
	raw := "RESPONSE: I think we should wait.\nINNER_THOUGHT: They have no idea what this costs."

	content, thought := ParseTurnOutput(raw)
	require.Equal(t, "I think we should wait.", content)
	require.NotNil(t, thought)
	require.Equal(t, "They have no idea what this costs.", *thought)
}

func TestParseTurnOutputCaseInsensitiveMultiline(t *testing.T) {
	raw := "response:  First point.\nSecond point.\ninner_thought: hmm\nstill thinking"

	content, thought := ParseTurnOutput(raw)
	require.Equal(t, "First point.\nSecond point.", content)
	require.NotNil(t, thought)
	require.Equal(t, "hmm\nstill thinking", *thought)
}

func TestParseTurnOutputWithoutMarkers(t *testing.T) {
	raw := "Just plain prose without any structure."

	content, thought := ParseTurnOutput(raw)
	require.Equal(t, raw, content)
	require.Nil(t, thought)
}

func TestParseTurnOutputResponseOnly(t *testing.T) {
	content, thought := ParseTurnOutput("RESPONSE: Fine by me.")
	require.Equal(t, "Fine by me.", content)
	require.Nil(t, thought)
}

func TestBuildTurnHistoryRoleTranslation(t *testing.T) {
	self := "p-self"
	other := "p-other"
	messages := []room.Message{
		{Role: room.RoleSystem, Content: "Meeting started"},
		{Role: room.RoleModerator, Content: "Stay on topic"},
		{Role: room.RoleFacilitator, Content: "Thoughts?"},
		{Role: room.RolePersona, PersonaID: &other, Content: "I disagree."},
		{Role: room.RolePersona, PersonaID: &self, Content: "Noted."},
	}
	names := map[string]string{other: "Maya Okafor"}

	history := BuildTurnHistory(messages, names, self)
	require.Len(t, history, 5)
	require.Equal(t, "[System/Moderator]: Meeting started", history[0].Content)
	require.Equal(t, "[System/Moderator]: Stay on topic", history[1].Content)
	require.Equal(t, "[Facilitator]: Thoughts?", history[2].Content)
	require.Equal(t, "[Maya Okafor]: I disagree.", history[3].Content)

	// The speaker's own turns come back as assistant messages, verbatim.
	require.Equal(t, "Noted.", history[4].Content)
	require.Equal(t, "assistant", string(history[4].Role))
	require.Equal(t, "user", string(history[3].Role))
}

func TestTimeClauseEscalation(t *testing.T) {
	relaxed := TimeContext{DurationMinutes: 60, ElapsedMinutes: 10, RemainingMinutes: 50, PercentElapsed: 17}
	require.NotContains(t, relaxed.clause(), "wrapping up")
	require.NotContains(t, relaxed.clause(), "about to end")

	nearingEnd := TimeContext{DurationMinutes: 60, ElapsedMinutes: 48, RemainingMinutes: 12, PercentElapsed: 80}
	require.Contains(t, nearingEnd.clause(), "Start wrapping up key points.")

	almostOver := TimeContext{DurationMinutes: 60, ElapsedMinutes: 58, RemainingMinutes: 2, PercentElapsed: 97}
	require.Contains(t, almostOver.clause(), "⚠️ Meeting is about to end!")
}

func TestBuildTurnSystemPromptDefaults(t *testing.T) {
	p := persona.Persona{ID: "p1", Identity: persona.Identity{FirstName: "Maya"}}
	rm := room.Room{Scenario: "Budget review", Purpose: "Cut costs"}

	prompt := BuildTurnSystemPrompt(p, rm, nil)
	require.Contains(t, prompt, "You are Maya,")
	require.Contains(t, prompt, "Scenario: Budget review")
	require.Contains(t, prompt, "Purpose: Cut costs")

	// Unspecified traits render as the neutral midpoint.
	require.Contains(t, prompt, "Openness: 50")
	require.Contains(t, prompt, "Trust level: 50/100")
	require.NotContains(t, prompt, "Total meeting duration")
}

func TestRenderTranscript(t *testing.T) {
	pid := "p1"
	messages := []room.Message{
		{Role: room.RoleSystem, Content: "started"},
		{Role: room.RoleModerator, Content: "directive"},
		{Role: room.RolePersona, PersonaID: &pid, Content: "hello"},
		{Role: room.RolePersona, Content: "orphan"},
	}

	got := RenderTranscript(messages, map[string]string{pid: "Maya"})
	want := strings.Join([]string{
		"[System]: started",
		"[Moderator]: directive",
		"[Maya]: hello",
		"[Unknown]: orphan",
	}, "\n")
	require.Equal(t, want, got)
}

func TestBuildSummaryRequest(t *testing.T) {
	rm := room.Room{Name: "Standup", Scenario: "Daily sync", Purpose: "Status"}
	msg := BuildSummaryRequest(rm, "[Maya]: hi")
	require.Equal(t, "Meeting: \"Standup\"\nScenario: Daily sync\nPurpose: Status\n\nTranscript:\n[Maya]: hi", msg.Content)
}
