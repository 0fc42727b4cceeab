package meeting_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/roundtable/backend/internal/config"
	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/model/room"
	"github.com/quorumlabs/roundtable/backend/internal/service/meeting"
	"github.com/quorumlabs/roundtable/backend/internal/store"
)

type stubProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	systems []string
}

func (p *stubProvider) Complete(_ context.Context, system string, _ []*schema.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.systems = append(p.systems, system)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testPersona(id, first string) persona.Persona {
	return persona.Persona{ID: id, Identity: persona.Identity{FirstName: first}}
}

type testEnv struct {
	svc   *meeting.Service
	store *store.MemoryStore
	clock *fakeClock
	prov  *stubProvider
}

func newTestEnv(t *testing.T, cfg config.MeetingConfig) *testEnv {
	t.Helper()
	st := store.NewMemoryStore([]persona.Persona{
		testPersona("pa-1111", "Ada"),
		testPersona("pb-2222", "Blaise"),
		testPersona("pc-3333", "Curie"),
	})
	clock := newFakeClock()
	prov := &stubProvider{reply: "RESPONSE: Let's begin.\nINNER_THOUGHT: I hope this goes well."}
	svc := meeting.NewService(st, prov, cfg, meeting.WithNow(clock.Now))
	return &testEnv{svc: svc, store: st, clock: clock, prov: prov}
}

func (e *testEnv) createRoom(t *testing.T, durationMinutes int, personaIDs ...string) room.Room {
	t.Helper()
	ctx := context.Background()
	rm := room.Room{
		Name:            "Q3 planning",
		Scenario:        "Quarterly planning session",
		Purpose:         "Agree on priorities",
		Status:          room.StatusPending,
		UserRole:        room.UserRoleModerator,
		DurationMinutes: durationMinutes,
	}
	require.NoError(t, e.store.Rooms().Create(ctx, &rm))
	for _, id := range personaIDs {
		require.NoError(t, e.store.Participants().Add(ctx, &room.Participant{RoomID: rm.ID, PersonaID: id}))
	}
	return rm
}

func (e *testEnv) action(t *testing.T, roomID string, req meeting.ActionRequest) meeting.Result {
	t.Helper()
	res, err := e.svc.HandleAction(context.Background(), roomID, req)
	require.NoError(t, err)
	return res
}

func (e *testEnv) start(t *testing.T, roomID string) {
	t.Helper()
	res := e.action(t, roomID, meeting.ActionRequest{Action: meeting.ActionStart})
	require.True(t, res.OK)
}

func (e *testEnv) messages(t *testing.T, roomID string) []room.Message {
	t.Helper()
	msgs, err := e.store.Messages().ListByRoom(context.Background(), roomID, 0)
	require.NoError(t, err)
	return msgs
}

func TestStartTransitionsAndBanner(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")

	env.start(t, rm.ID)

	got, err := env.store.Rooms().Get(context.Background(), rm.ID)
	require.NoError(t, err)
	require.Equal(t, room.StatusActive, got.Status)
	require.NotNil(t, got.StartedAt)
	require.Equal(t, env.clock.Now(), *got.StartedAt)

	msgs := env.messages(t, rm.ID)
	require.Len(t, msgs, 1)
	require.Equal(t, room.RoleSystem, msgs[0].Role)
	require.Equal(t,
		"**Meeting Started** (Duration: 30 min)\n\n**Scenario:** Quarterly planning session\n\n**Purpose:** Agree on priorities",
		msgs[0].Content)
}

func TestStartTwiceRejected(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")
	env.start(t, rm.ID)

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionStart})
	require.False(t, res.OK)
	require.Equal(t, meeting.KindPrecondition, res.Kind)
	require.Equal(t, "room has already been started", res.Error)

	// The rejected action must not touch the transcript.
	require.Len(t, env.messages(t, rm.ID), 1)
}

func TestPauseResumeCycle(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionPause})
	require.False(t, res.OK)
	require.Equal(t, meeting.KindPrecondition, res.Kind)

	env.start(t, rm.ID)
	res = env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionPause})
	require.True(t, res.OK)

	res = env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionPause})
	require.False(t, res.OK)
	require.Equal(t, "room is not active", res.Error)

	res = env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionResume})
	require.True(t, res.OK)

	msgs := env.messages(t, rm.ID)
	require.Equal(t, "⏸️ Meeting paused by moderator.", msgs[1].Content)
	require.Equal(t, "▶️ Meeting resumed.", msgs[2].Content)
}

func TestEndGeneratesSummary(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	env.prov.reply = "## 📋 Meeting Summary\n\nEveryone agreed."
	rm := env.createRoom(t, 30, "pa-1111")
	env.start(t, rm.ID)

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionEnd})
	require.True(t, res.OK)
	require.True(t, res.Ended)

	got, err := env.store.Rooms().Get(context.Background(), rm.ID)
	require.NoError(t, err)
	require.Equal(t, room.StatusEnded, got.Status)
	require.NotNil(t, got.EndedAt)

	msgs := env.messages(t, rm.ID)
	last := msgs[len(msgs)-1]
	require.Equal(t, room.RoleSystem, last.Role)
	require.Equal(t, "🏁 **Meeting Ended**\n\n## 📋 Meeting Summary\n\nEveryone agreed.", last.Content)
}

func TestEndSummaryFallbackOnProviderError(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")
	env.start(t, rm.ID)
	env.prov.err = errors.New("upstream exploded")

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionEnd})
	require.True(t, res.OK)
	require.True(t, res.Ended)

	msgs := env.messages(t, rm.ID)
	require.Equal(t, "🏁 Meeting ended.", msgs[len(msgs)-1].Content)
}

func TestEndOnPendingRejected(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionEnd})
	require.False(t, res.OK)
	require.Equal(t, meeting.KindPrecondition, res.Kind)
}

func TestRoundRobinRotation(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 60, "pa-1111", "pb-2222", "pc-3333")
	env.start(t, rm.ID)

	var speakers []string
	for i := 0; i < 6; i++ {
		res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
		require.True(t, res.OK, "turn %d failed: %s", i, res.Error)
		require.NotNil(t, res.Message)
		require.NotNil(t, res.Message.PersonaID)
		speakers = append(speakers, *res.Message.PersonaID)
	}

	want := []string{"pa-1111", "pb-2222", "pc-3333", "pa-1111", "pb-2222", "pc-3333"}
	require.Equal(t, want, speakers)
}

func TestTurnParsesResponseAndThought(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 60, "pa-1111")
	env.start(t, rm.ID)

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.True(t, res.OK)
	require.Equal(t, "Ada", res.PersonaName)
	require.Equal(t, "Let's begin.", res.Message.Content)
	require.NotNil(t, res.Message.InnerThought)
	require.Equal(t, "I hope this goes well.", *res.Message.InnerThought)
}

func TestRotationSurvivesRemovalOfLastSpeaker(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 60, "pa-1111", "pb-2222", "pc-3333")
	env.start(t, rm.ID)

	// Two turns seat the anchor on pb-2222.
	for i := 0; i < 2; i++ {
		res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
		require.True(t, res.OK)
	}

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionRemovePersona, PersonaID: "pb-2222"})
	require.True(t, res.OK)

	// The removed speaker's turns are invisible to the anchor, so the last
	// visible persona message is Ada's and the rotation continues with Curie.
	res = env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.True(t, res.OK)
	require.Equal(t, "pc-3333", *res.Message.PersonaID)

	msgs := env.messages(t, rm.ID)
	var removalNotice bool
	for _, m := range msgs {
		if m.Content == "🚪 Blaise has been removed from the meeting." {
			removalNotice = true
		}
	}
	require.True(t, removalNotice)
}

func TestRemovePersonaRequiresID(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")
	env.start(t, rm.ID)

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionRemovePersona})
	require.False(t, res.OK)
	require.Equal(t, "personaId is required", res.Error)
}

func TestRemovePersonaOnEndedRoomRejected(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")
	env.start(t, rm.ID)
	env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionEnd})

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionRemovePersona, PersonaID: "pa-1111"})
	require.False(t, res.OK)
	require.Equal(t, "room has ended", res.Error)
}

func TestDirectiveWorksInAnyStatus(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionDirective, Message: "Focus on budget."})
	require.True(t, res.OK)

	msgs := env.messages(t, rm.ID)
	require.Len(t, msgs, 1)
	require.Equal(t, room.RoleModerator, msgs[0].Role)
	require.Equal(t, "Focus on budget.", msgs[0].Content)
}

func TestFacilitatorMessageTriggersTurn(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 60, "pa-1111", "pb-2222")
	env.start(t, rm.ID)

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionFacilitatorMessage, Message: "What do you all think?"})
	require.True(t, res.OK)
	require.NotNil(t, res.Message)
	require.Equal(t, room.RolePersona, res.Message.Role)

	msgs := env.messages(t, rm.ID)
	require.Equal(t, room.RoleFacilitator, msgs[len(msgs)-2].Role)
	require.Equal(t, "What do you all think?", msgs[len(msgs)-2].Content)
	require.Equal(t, room.RolePersona, msgs[len(msgs)-1].Role)
}

func TestFacilitatorMessageRequiresActiveRoom(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionFacilitatorMessage, Message: "hello"})
	require.False(t, res.OK)
	require.Equal(t, "room is not active", res.Error)
	require.Empty(t, env.messages(t, rm.ID))
}

func TestNextTurnOnInactiveRoom(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.False(t, res.OK)
	require.Equal(t, meeting.KindPrecondition, res.Kind)
	require.Equal(t, "room is not active", res.Error)
}

func TestNextTurnWithoutParticipants(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30)
	env.start(t, rm.ID)

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.False(t, res.OK)
	require.Equal(t, meeting.KindNotFound, res.Kind)
	require.Equal(t, "no participants in room", res.Error)
}

func TestRoomNotFound(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})

	res := env.action(t, "no-such-room", meeting.ActionRequest{Action: meeting.ActionStart})
	require.False(t, res.OK)
	require.Equal(t, meeting.KindNotFound, res.Kind)
	require.Equal(t, "room not found", res.Error)
}

func TestUnknownActionRejected(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 30, "pa-1111")

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: "explode"})
	require.False(t, res.OK)
	require.Equal(t, "unknown action", res.Error)
}

func TestProviderRateLimitSurfaces429(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 60, "pa-1111")
	env.start(t, rm.ID)
	env.prov.err = errors.New("request failed with status 429")

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.False(t, res.OK)
	require.Equal(t, meeting.KindRateLimited, res.Kind)
	require.Equal(t, "Rate limited. Please wait a moment.", res.Error)

	// Failed generations persist nothing.
	require.Len(t, env.messages(t, rm.ID), 1)
}

func TestProviderQuotaSurfaces402(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{})
	rm := env.createRoom(t, 60, "pa-1111")
	env.start(t, rm.ID)
	env.prov.err = errors.New("insufficient balance for account")

	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.False(t, res.OK)
	require.Equal(t, meeting.KindQuotaExhausted, res.Kind)
	require.Equal(t, "AI credits exhausted. Please add funds.", res.Error)
}

func TestNilProviderReportsUpstream(t *testing.T) {
	st := store.NewMemoryStore([]persona.Persona{testPersona("pa-1111", "Ada")})
	clock := newFakeClock()
	svc := meeting.NewService(st, nil, config.MeetingConfig{}, meeting.WithNow(clock.Now))

	ctx := context.Background()
	rm := room.Room{Name: "r", Scenario: "s", Purpose: "p", Status: room.StatusActive, DurationMinutes: 30}
	now := clock.Now()
	rm.StartedAt = &now
	require.NoError(t, st.Rooms().Create(ctx, &rm))
	require.NoError(t, st.Participants().Add(ctx, &room.Participant{RoomID: rm.ID, PersonaID: "pa-1111"}))

	res, err := svc.HandleAction(ctx, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, meeting.KindUpstream, res.Kind)
}

func TestExpiryAtAcceleratedDeadline(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{TimeMultiplier: 6})
	rm := env.createRoom(t, 30, "pa-1111")
	env.start(t, rm.ID)

	// 30 simulated minutes at 6x pass after 5 wall-clock minutes.
	env.clock.Advance(4*time.Minute + 59*time.Second)
	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.True(t, res.OK, "turn just before the deadline must still run")

	env.clock.Advance(1 * time.Second)
	res = env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.False(t, res.OK)
	require.True(t, res.Ended)
	require.Equal(t, "Meeting duration expired", res.Error)

	got, err := env.store.Rooms().Get(context.Background(), rm.ID)
	require.NoError(t, err)
	require.Equal(t, room.StatusEnded, got.Status)

	msgs := env.messages(t, rm.ID)
	var expiryNotice bool
	for _, m := range msgs {
		if m.Content == "⏰ Meeting duration has expired." {
			expiryNotice = true
		}
	}
	require.True(t, expiryNotice)
}

func TestPauseDoesNotStopClockByDefault(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{TimeMultiplier: 6})
	rm := env.createRoom(t, 30, "pa-1111")
	env.start(t, rm.ID)

	env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionPause})
	env.clock.Advance(10 * time.Minute)
	env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionResume})

	// The meeting clock kept running through the pause, so the budget is gone.
	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.False(t, res.OK)
	require.True(t, res.Ended)
}

func TestPauseStopsClockWhenConfigured(t *testing.T) {
	env := newTestEnv(t, config.MeetingConfig{TimeMultiplier: 6, PauseStopsClock: true})
	rm := env.createRoom(t, 30, "pa-1111")
	env.start(t, rm.ID)

	env.clock.Advance(2 * time.Minute)
	env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionPause})
	env.clock.Advance(10 * time.Minute)
	env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionResume})

	// Only 2 wall-clock minutes count: 12 simulated minutes of a 30 minute
	// budget, so the meeting keeps going.
	res := env.action(t, rm.ID, meeting.ActionRequest{Action: meeting.ActionNextTurn})
	require.True(t, res.OK, "expected active meeting, got: %s", res.Error)
}
