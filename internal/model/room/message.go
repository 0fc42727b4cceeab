package room

import "time"

// Role identifies who authored a room message.
type Role string

const (
	RoleSystem      Role = "system"
	RolePersona     Role = "persona"
	RoleFacilitator Role = "facilitator"
	RoleModerator   Role = "moderator"
)

// Message is one entry in a room's append-only transcript.
//
// Seq is assigned by the store, monotonically increasing per room in insert
// order, and is the authoritative transcript order. Only persona messages
// carry a PersonaID and may carry an InnerThought.
type Message struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	RoomID       string    `json:"roomId" gorm:"index:idx_room_seq,priority:1"`
	PersonaID    *string   `json:"personaId,omitempty" gorm:"type:uuid"`
	Role         Role      `json:"role"`
	Content      string    `json:"content"`
	InnerThought *string   `json:"innerThought,omitempty"`
	Seq          int64     `json:"seq" gorm:"index:idx_room_seq,priority:2"`
	CreatedAt    time.Time `json:"createdAt"`
}
