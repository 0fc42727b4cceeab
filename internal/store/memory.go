package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quorumlabs/roundtable/backend/internal/model/chat"
	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/model/room"
)

// MemoryStore implements Store with in-process maps, suitable for tests and
// database-less development.
type MemoryStore struct {
	mu sync.RWMutex

	rooms         map[string]room.Room
	participants  map[string][]room.Participant // keyed by room id
	messages      map[string][]room.Message     // keyed by room id
	messageSeq    map[string]int64              // per-room monotonic counter
	personas      map[string]persona.Persona
	conversations map[string]chat.Conversation
	chatMessages  map[string][]chat.Message
	chatSeq       map[string]int64
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(seed []persona.Persona) *MemoryStore {
	s := &MemoryStore{
		rooms:         make(map[string]room.Room),
		participants:  make(map[string][]room.Participant),
		messages:      make(map[string][]room.Message),
		messageSeq:    make(map[string]int64),
		personas:      make(map[string]persona.Persona),
		conversations: make(map[string]chat.Conversation),
		chatMessages:  make(map[string][]chat.Message),
		chatSeq:       make(map[string]int64),
	}
	for _, p := range seed {
		s.personas[p.ID] = p
	}
	return s
}

func (s *MemoryStore) Rooms() RoomStore                 { return (*memoryRooms)(s) }
func (s *MemoryStore) Participants() ParticipantStore   { return (*memoryParticipants)(s) }
func (s *MemoryStore) Messages() MessageStore           { return (*memoryMessages)(s) }
func (s *MemoryStore) Personas() PersonaStore           { return (*memoryPersonas)(s) }
func (s *MemoryStore) Conversations() ConversationStore { return (*memoryConversations)(s) }

type memoryRooms MemoryStore

func (s *memoryRooms) Create(_ context.Context, r *room.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.rooms[r.ID] = *r
	return nil
}

func (s *memoryRooms) Get(_ context.Context, id string) (room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return room.Room{}, ErrNotFound
	}
	return r, nil
}

func (s *memoryRooms) Update(_ context.Context, r *room.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.ID]; !ok {
		return ErrNotFound
	}
	s.rooms[r.ID] = *r
	return nil
}

func (s *memoryRooms) List(_ context.Context) ([]room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]room.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memoryParticipants MemoryStore

func (s *memoryParticipants) Add(_ context.Context, p *room.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.AdmittedAt.IsZero() {
		p.AdmittedAt = time.Now().UTC()
	}
	s.participants[p.RoomID] = append(s.participants[p.RoomID], *p)
	return nil
}

func (s *memoryParticipants) ListByRoom(_ context.Context, roomID string) ([]room.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]room.Participant(nil), s.participants[roomID]...), nil
}

func (s *memoryParticipants) ListActive(_ context.Context, roomID string) ([]room.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []room.Participant
	for _, p := range s.participants[roomID] {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memoryParticipants) Remove(_ context.Context, roomID, personaID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.participants[roomID]
	for i := range list {
		if list[i].PersonaID == personaID && list[i].Active() {
			removedAt := at
			list[i].RemovedAt = &removedAt
		}
	}
	return nil
}

type memoryMessages MemoryStore

func (s *memoryMessages) Append(_ context.Context, m *room.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.messageSeq[m.RoomID]++
	m.Seq = s.messageSeq[m.RoomID]
	s.messages[m.RoomID] = append(s.messages[m.RoomID], *m)
	return nil
}

func (s *memoryMessages) ListByRoom(_ context.Context, roomID string, limit int) ([]room.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[roomID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]room.Message(nil), msgs...), nil
}

type memoryPersonas MemoryStore

func (s *memoryPersonas) Create(_ context.Context, p *persona.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.personas[p.ID] = *p
	return nil
}

func (s *memoryPersonas) Get(_ context.Context, id string) (persona.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personas[id]
	if !ok {
		return persona.Persona{}, ErrNotFound
	}
	return p, nil
}

func (s *memoryPersonas) GetMany(_ context.Context, ids []string) ([]persona.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]persona.Persona, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.personas[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memoryPersonas) List(_ context.Context) ([]persona.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]persona.Persona, 0, len(s.personas))
	for _, p := range s.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryPersonas) Update(_ context.Context, p *persona.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.personas[p.ID]; !ok {
		return ErrNotFound
	}
	s.personas[p.ID] = *p
	return nil
}

type memoryConversations MemoryStore

func (s *memoryConversations) Create(_ context.Context, c *chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}
	s.conversations[c.ID] = *c
	return nil
}

func (s *memoryConversations) Get(_ context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, ErrNotFound
	}
	return c, nil
}

func (s *memoryConversations) AppendMessage(_ context.Context, m *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[m.ConversationID]; !ok {
		return ErrNotFound
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.chatSeq[m.ConversationID]++
	m.Seq = s.chatSeq[m.ConversationID]
	s.chatMessages[m.ConversationID] = append(s.chatMessages[m.ConversationID], *m)
	return nil
}

func (s *memoryConversations) ListMessages(_ context.Context, conversationID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.chatMessages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]chat.Message(nil), msgs...), nil
}
