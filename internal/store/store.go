package store

import (
	"context"
	"errors"
	"time"

	"github.com/quorumlabs/roundtable/backend/internal/model/chat"
	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/model/room"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store aggregates the persistence surface consumed by the services. All
// cross-call orchestration state lives here; services hold nothing in memory
// between requests.
type Store interface {
	Rooms() RoomStore
	Participants() ParticipantStore
	Messages() MessageStore
	Personas() PersonaStore
	Conversations() ConversationStore
}

// RoomStore persists meeting rooms.
type RoomStore interface {
	Create(ctx context.Context, r *room.Room) error
	Get(ctx context.Context, id string) (room.Room, error)
	Update(ctx context.Context, r *room.Room) error
	List(ctx context.Context) ([]room.Room, error)
}

// ParticipantStore tracks which personas are seated in a room. Removal is
// soft-delete only.
type ParticipantStore interface {
	Add(ctx context.Context, p *room.Participant) error
	// ListByRoom returns every participant ever seated, removed included.
	ListByRoom(ctx context.Context, roomID string) ([]room.Participant, error)
	// ListActive returns participants whose RemovedAt is unset.
	ListActive(ctx context.Context, roomID string) ([]room.Participant, error)
	// Remove soft-removes the persona's active seat; removing an already
	// removed or unknown persona is a no-op.
	Remove(ctx context.Context, roomID, personaID string, at time.Time) error
}

// MessageStore is the append-only room transcript. Append assigns ID,
// CreatedAt, and a per-room monotonic Seq.
type MessageStore interface {
	Append(ctx context.Context, m *room.Message) error
	// ListByRoom returns the most recent limit messages in transcript order
	// (Seq ascending). limit <= 0 means no cap.
	ListByRoom(ctx context.Context, roomID string, limit int) ([]room.Message, error)
}

// PersonaStore persists persona profiles.
type PersonaStore interface {
	Create(ctx context.Context, p *persona.Persona) error
	Get(ctx context.Context, id string) (persona.Persona, error)
	GetMany(ctx context.Context, ids []string) ([]persona.Persona, error)
	List(ctx context.Context) ([]persona.Persona, error)
	Update(ctx context.Context, p *persona.Persona) error
}

// ConversationStore persists 1:1 persona conversations.
type ConversationStore interface {
	Create(ctx context.Context, c *chat.Conversation) error
	Get(ctx context.Context, id string) (chat.Conversation, error)
	AppendMessage(ctx context.Context, m *chat.Message) error
	// ListMessages returns the most recent limit messages in Seq order.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error)
}
