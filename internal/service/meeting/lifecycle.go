package meeting

import (
	"context"
	"errors"
	"fmt"

	"github.com/quorumlabs/roundtable/backend/internal/model/room"
	"github.com/quorumlabs/roundtable/backend/internal/store"
)

// Lifecycle transitions. Invalid transitions are rejected before any state
// is touched, so a disallowed action never mutates the room or transcript.

func (s *Service) start(ctx context.Context, rm room.Room) (Result, error) {
	if rm.Status != room.StatusPending {
		return failure(KindPrecondition, "room has already been started"), nil
	}
	now := s.now()
	rm.Status = room.StatusActive
	rm.StartedAt = &now
	if err := s.store.Rooms().Update(ctx, &rm); err != nil {
		return Result{}, err
	}
	banner := fmt.Sprintf("**Meeting Started** (Duration: %d min)\n\n**Scenario:** %s\n\n**Purpose:** %s",
		rm.DurationMinutes, rm.Scenario, rm.Purpose)
	if err := s.appendSystem(ctx, rm.ID, banner); err != nil {
		return Result{}, err
	}
	return Result{OK: true}, nil
}

func (s *Service) pause(ctx context.Context, rm room.Room) (Result, error) {
	if rm.Status != room.StatusActive {
		return failure(KindPrecondition, "room is not active"), nil
	}
	rm.Status = room.StatusPaused
	if s.cfg.PauseStopsClock {
		now := s.now()
		rm.PausedAt = &now
	}
	if err := s.store.Rooms().Update(ctx, &rm); err != nil {
		return Result{}, err
	}
	if err := s.appendSystem(ctx, rm.ID, "⏸️ Meeting paused by moderator."); err != nil {
		return Result{}, err
	}
	return Result{OK: true}, nil
}

func (s *Service) resume(ctx context.Context, rm room.Room) (Result, error) {
	if rm.Status != room.StatusPaused {
		return failure(KindPrecondition, "room is not paused"), nil
	}
	rm.Status = room.StatusActive
	if rm.PausedAt != nil {
		rm.PausedForMs += s.now().Sub(*rm.PausedAt).Milliseconds()
		rm.PausedAt = nil
	}
	if err := s.store.Rooms().Update(ctx, &rm); err != nil {
		return Result{}, err
	}
	if err := s.appendSystem(ctx, rm.ID, "▶️ Meeting resumed."); err != nil {
		return Result{}, err
	}
	return Result{OK: true}, nil
}

func (s *Service) end(ctx context.Context, rm room.Room) (Result, error) {
	if !rm.Status.CanTransition(room.StatusEnded) {
		return failure(KindPrecondition, "room is not active or paused"), nil
	}
	// Summary first: it must see the room pre-transition, and its failure
	// must never block the transition itself.
	summary := s.generateSummary(ctx, rm, "")
	now := s.now()
	rm.Status = room.StatusEnded
	rm.EndedAt = &now
	if err := s.store.Rooms().Update(ctx, &rm); err != nil {
		return Result{}, err
	}
	if err := s.appendSystem(ctx, rm.ID, summary); err != nil {
		return Result{}, err
	}
	return Result{OK: true, Ended: true}, nil
}

func (s *Service) removePersona(ctx context.Context, rm room.Room, personaID string) (Result, error) {
	if rm.Status == room.StatusEnded {
		return failure(KindPrecondition, "room has ended"), nil
	}
	if personaID == "" {
		return failure(KindPrecondition, "personaId is required"), nil
	}
	if err := s.store.Participants().Remove(ctx, rm.ID, personaID, s.now()); err != nil {
		return Result{}, err
	}
	name := "A persona"
	if p, err := s.store.Personas().Get(ctx, personaID); err == nil && p.Identity.FirstName != "" {
		name = p.Identity.FirstName
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Result{}, err
	}
	if err := s.appendSystem(ctx, rm.ID, fmt.Sprintf("🚪 %s has been removed from the meeting.", name)); err != nil {
		return Result{}, err
	}
	return Result{OK: true}, nil
}

func (s *Service) directive(ctx context.Context, rm room.Room, message string) (Result, error) {
	if message == "" {
		return failure(KindPrecondition, "message is required"), nil
	}
	err := s.store.Messages().Append(ctx, &room.Message{
		RoomID:    rm.ID,
		Role:      room.RoleModerator,
		Content:   message,
		CreatedAt: s.now(),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{OK: true}, nil
}

func (s *Service) facilitatorMessage(ctx context.Context, rm room.Room, message string) (Result, error) {
	if rm.Status != room.StatusActive {
		return failure(KindPrecondition, "room is not active"), nil
	}
	if message == "" {
		return failure(KindPrecondition, "message is required"), nil
	}
	if res, expired, err := s.expireIfOver(ctx, &rm); expired || err != nil {
		return res, err
	}
	err := s.store.Messages().Append(ctx, &room.Message{
		RoomID:    rm.ID,
		Role:      room.RoleFacilitator,
		Content:   message,
		CreatedAt: s.now(),
	})
	if err != nil {
		return Result{}, err
	}
	// The facilitator's message counts as a turn: a persona responds to it
	// immediately.
	return s.generateTurn(ctx, rm)
}

func (s *Service) nextTurn(ctx context.Context, rm room.Room) (Result, error) {
	if rm.Status != room.StatusActive {
		return failure(KindPrecondition, "room is not active"), nil
	}
	if res, expired, err := s.expireIfOver(ctx, &rm); expired || err != nil {
		return res, err
	}
	return s.generateTurn(ctx, rm)
}
