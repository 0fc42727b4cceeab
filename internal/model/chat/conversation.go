package chat

import "time"

// Conversation is a 1:1 session between the user and a single persona,
// separate from meeting rooms.
type Conversation struct {
	ID        string     `json:"id" gorm:"primaryKey;type:uuid"`
	PersonaID string     `json:"personaId" gorm:"index;type:uuid"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

const (
	ConversationActive = "active"
	ConversationEnded  = "ended"
)
