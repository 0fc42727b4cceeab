package meeting

import (
	"context"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/model/room"
	"github.com/quorumlabs/roundtable/backend/internal/service/ai"
)

// timeBudget is the accelerated-clock state of a running meeting. Simulated
// elapsed time is wall-clock elapsed since start multiplied by the
// acceleration factor; pausing does not stop the clock unless
// PauseStopsClock is set (the reference behavior lets the meeting clock run
// through pauses).
type timeBudget struct {
	durationMinutes  int
	elapsedMinutes   int
	remainingMinutes int
	percentElapsed   int
	expired          bool
}

func (s *Service) timeBudget(rm room.Room) (timeBudget, bool) {
	if rm.StartedAt == nil || rm.DurationMinutes <= 0 {
		return timeBudget{}, false
	}
	realElapsed := s.now().Sub(*rm.StartedAt)
	if s.cfg.PauseStopsClock {
		realElapsed -= time.Duration(rm.PausedForMs) * time.Millisecond
		if rm.PausedAt != nil {
			realElapsed -= s.now().Sub(*rm.PausedAt)
		}
		if realElapsed < 0 {
			realElapsed = 0
		}
	}
	simulated := realElapsed * time.Duration(s.cfg.TimeMultiplier)
	duration := time.Duration(rm.DurationMinutes) * time.Minute

	elapsedMin := int(simulated / time.Minute)
	remaining := rm.DurationMinutes - elapsedMin
	if remaining < 0 {
		remaining = 0
	}
	pct := int(math.Round(float64(elapsedMin) / float64(rm.DurationMinutes) * 100))

	return timeBudget{
		durationMinutes:  rm.DurationMinutes,
		elapsedMinutes:   elapsedMin,
		remainingMinutes: remaining,
		percentElapsed:   pct,
		expired:          simulated >= duration,
	}, true
}

// expireIfOver checks the time budget and, when exhausted, performs the
// expiry transition: expiry notice, summary, ended status, summary message.
// The returned bool reports whether the meeting expired.
func (s *Service) expireIfOver(ctx context.Context, rm *room.Room) (Result, bool, error) {
	budget, ok := s.timeBudget(*rm)
	if !ok || !budget.expired {
		return Result{}, false, nil
	}
	if err := s.appendSystem(ctx, rm.ID, "⏰ Meeting duration has expired."); err != nil {
		return Result{}, true, err
	}
	summary := s.generateSummary(ctx, *rm, " (Time Expired)")
	now := s.now()
	rm.Status = room.StatusEnded
	rm.EndedAt = &now
	if err := s.store.Rooms().Update(ctx, rm); err != nil {
		return Result{}, true, err
	}
	if err := s.appendSystem(ctx, rm.ID, summary); err != nil {
		return Result{}, true, err
	}
	log.Info().Str("room", rm.ID).Msg("meeting ended by time expiry")
	return Result{OK: false, Ended: true, Error: "Meeting duration expired"}, true, nil
}

// generateTurn picks the next speaker round-robin and asks them to speak.
func (s *Service) generateTurn(ctx context.Context, rm room.Room) (Result, error) {
	participants, err := s.store.Participants().ListActive(ctx, rm.ID)
	if err != nil {
		return Result{}, err
	}
	if len(participants) == 0 {
		return failure(KindNotFound, "no participants in room"), nil
	}

	// Stable seating order: persona ids sorted lexicographically.
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.PersonaID)
	}
	sort.Strings(ids)

	history, err := s.store.Messages().ListByRoom(ctx, rm.ID, s.cfg.HistoryLimit)
	if err != nil {
		return Result{}, err
	}

	nextID := nextSpeaker(history, ids)

	personas, err := s.store.Personas().GetMany(ctx, ids)
	if err != nil {
		return Result{}, err
	}
	names := make(map[string]string, len(personas))
	var speaker *persona.Persona
	for i := range personas {
		names[personas[i].ID] = personas[i].DisplayName()
		if personas[i].ID == nextID {
			speaker = &personas[i]
		}
	}
	if speaker == nil {
		return failure(KindNotFound, "persona not found"), nil
	}

	if s.provider == nil {
		return failure(KindUpstream, ai.ErrNotConfigured.Error()), nil
	}

	var tc *ai.TimeContext
	if budget, ok := s.timeBudget(rm); ok {
		tc = &ai.TimeContext{
			DurationMinutes:  budget.durationMinutes,
			ElapsedMinutes:   budget.elapsedMinutes,
			RemainingMinutes: budget.remainingMinutes,
			PercentElapsed:   budget.percentElapsed,
		}
	}

	systemPrompt := ai.BuildTurnSystemPrompt(*speaker, rm, tc)
	promptHistory := ai.BuildTurnHistory(history, names, speaker.ID)

	raw, err := s.provider.Complete(ctx, systemPrompt, promptHistory)
	if err != nil {
		log.Warn().Err(err).Str("room", rm.ID).Str("persona", speaker.ID).Msg("turn generation failed")
		return providerFailure(err), nil
	}

	// Generate-then-save: nothing is persisted when the provider fails.
	content, innerThought := ai.ParseTurnOutput(raw)
	msg := &room.Message{
		RoomID:       rm.ID,
		PersonaID:    &speaker.ID,
		Role:         room.RolePersona,
		Content:      content,
		InnerThought: innerThought,
		CreatedAt:    s.now(),
	}
	if err := s.store.Messages().Append(ctx, msg); err != nil {
		return Result{}, err
	}

	log.Info().Str("room", rm.ID).Str("persona", speaker.ID).Int64("seq", msg.Seq).Msg("persona turn generated")
	return Result{OK: true, Message: msg, PersonaName: names[speaker.ID]}, nil
}

// nextSpeaker anchors the rotation on the most recent persona message from a
// still-active participant; removed participants are invisible here, so the
// rotation stays intact when the prior speaker has since been removed.
func nextSpeaker(history []room.Message, ids []string) string {
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role == room.RolePersona && m.PersonaID != nil && slices.Contains(ids, *m.PersonaID) {
			last = *m.PersonaID
			break
		}
	}
	if last == "" {
		return ids[0]
	}
	idx := slices.Index(ids, last)
	return ids[(idx+1)%len(ids)]
}
