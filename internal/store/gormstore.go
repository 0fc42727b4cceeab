package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/quorumlabs/roundtable/backend/internal/model/chat"
	"github.com/quorumlabs/roundtable/backend/internal/model/persona"
	"github.com/quorumlabs/roundtable/backend/internal/model/room"
)

// GormStore implements Store on Postgres via GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore connects to Postgres and migrates the schema.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&room.Room{},
		&room.Participant{},
		&room.Message{},
		&persona.Persona{},
		&chat.Conversation{},
		&chat.Message{},
	); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Rooms() RoomStore                 { return &gormRooms{db: s.db} }
func (s *GormStore) Participants() ParticipantStore   { return &gormParticipants{db: s.db} }
func (s *GormStore) Messages() MessageStore           { return &gormMessages{db: s.db} }
func (s *GormStore) Personas() PersonaStore           { return &gormPersonas{db: s.db} }
func (s *GormStore) Conversations() ConversationStore { return &gormConversations{db: s.db} }

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type gormRooms struct{ db *gorm.DB }

func (s *gormRooms) Create(ctx context.Context, r *room.Room) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *gormRooms) Get(ctx context.Context, id string) (room.Room, error) {
	var r room.Room
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	return r, translateErr(err)
}

func (s *gormRooms) Update(ctx context.Context, r *room.Room) error {
	// Save writes all fields so cleared pointers (PausedAt) persist as NULL.
	return s.db.WithContext(ctx).Save(r).Error
}

func (s *gormRooms) List(ctx context.Context) ([]room.Room, error) {
	var out []room.Room
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error
	return out, err
}

type gormParticipants struct{ db *gorm.DB }

func (s *gormParticipants) Add(ctx context.Context, p *room.Participant) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.AdmittedAt.IsZero() {
		p.AdmittedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormParticipants) ListByRoom(ctx context.Context, roomID string) ([]room.Participant, error) {
	var out []room.Participant
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("admitted_at ASC").
		Find(&out).Error
	return out, err
}

func (s *gormParticipants) ListActive(ctx context.Context, roomID string) ([]room.Participant, error) {
	var out []room.Participant
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND removed_at IS NULL", roomID).
		Order("admitted_at ASC").
		Find(&out).Error
	return out, err
}

func (s *gormParticipants) Remove(ctx context.Context, roomID, personaID string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&room.Participant{}).
		Where("room_id = ? AND persona_id = ? AND removed_at IS NULL", roomID, personaID).
		Update("removed_at", at).Error
}

type gormMessages struct{ db *gorm.DB }

func (s *gormMessages) Append(ctx context.Context, m *room.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	// Seq is assigned inside a transaction so transcript order never depends
	// on wall-clock resolution or commit reordering.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&room.Message{}).
			Where("room_id = ?", m.RoomID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		m.Seq = maxSeq + 1
		return tx.Create(m).Error
	})
}

func (s *gormMessages) ListByRoom(ctx context.Context, roomID string, limit int) ([]room.Message, error) {
	q := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []room.Message
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	reverseMessages(out)
	return out, nil
}

func reverseMessages[T any](msgs []T) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

type gormPersonas struct{ db *gorm.DB }

func (s *gormPersonas) Create(ctx context.Context, p *persona.Persona) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormPersonas) Get(ctx context.Context, id string) (persona.Persona, error) {
	var p persona.Persona
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return p, translateErr(err)
}

func (s *gormPersonas) GetMany(ctx context.Context, ids []string) ([]persona.Persona, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []persona.Persona
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (s *gormPersonas) List(ctx context.Context) ([]persona.Persona, error) {
	var out []persona.Persona
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (s *gormPersonas) Update(ctx context.Context, p *persona.Persona) error {
	return s.db.WithContext(ctx).Save(p).Error
}

type gormConversations struct{ db *gorm.DB }

func (s *gormConversations) Create(ctx context.Context, c *chat.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *gormConversations) Get(ctx context.Context, id string) (chat.Conversation, error) {
	var c chat.Conversation
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return c, translateErr(err)
}

func (s *gormConversations) AppendMessage(ctx context.Context, m *chat.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&chat.Message{}).
			Where("conversation_id = ?", m.ConversationID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		m.Seq = maxSeq + 1
		return tx.Create(m).Error
	})
}

func (s *gormConversations) ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	q := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []chat.Message
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	reverseMessages(out)
	return out, nil
}
