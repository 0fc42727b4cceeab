package room

import "time"

// Participant seats a persona in a room. Removal is soft-delete only so the
// turn-order history stays intact.
type Participant struct {
	ID         string     `json:"id" gorm:"primaryKey;type:uuid"`
	RoomID     string     `json:"roomId" gorm:"index"`
	PersonaID  string     `json:"personaId" gorm:"index"`
	AdmittedAt time.Time  `json:"admittedAt"`
	RemovedAt  *time.Time `json:"removedAt,omitempty"`
}

// Active reports whether the participant is still seated.
func (p Participant) Active() bool {
	return p.RemovedAt == nil
}
