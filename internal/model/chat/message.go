package chat

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser    Role = "user"
	RolePersona Role = "persona"
)

// Message is one entry in a conversation's history. Seq is assigned by the
// store in insert order, per conversation.
type Message struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	ConversationID string    `json:"conversationId" gorm:"index:idx_conv_seq,priority:1;type:uuid"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	InnerThought   *string   `json:"innerThought,omitempty"`
	Seq            int64     `json:"seq" gorm:"index:idx_conv_seq,priority:2"`
	CreatedAt      time.Time `json:"createdAt"`
}
