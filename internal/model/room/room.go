package room

import "time"

// Status tracks the meeting lifecycle. Rooms only move forward except for
// the pause/resume cycle; ended is terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

// UserRole is the seat the human caller occupies in the room.
type UserRole string

const (
	UserRoleObserver    UserRole = "observer"
	UserRoleModerator   UserRole = "moderator"
	UserRoleFacilitator UserRole = "facilitator"
)

// Room is a container for a multi-persona simulated meeting.
//
// StartedAt is set exactly once, on the first start transition, and never
// cleared. PausedAt and PausedForMs are only maintained when the service is
// configured to stop the meeting clock while paused.
type Room struct {
	ID              string     `json:"id" gorm:"primaryKey;type:uuid"`
	Name            string     `json:"name"`
	Scenario        string     `json:"scenario"`
	Purpose         string     `json:"purpose"`
	Status          Status     `json:"status" gorm:"index"`
	UserRole        UserRole   `json:"userRole"`
	DurationMinutes int        `json:"durationMinutes"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	PausedAt        *time.Time `json:"-"`
	PausedForMs     int64      `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// CanTransition reports whether moving from the current status to the target
// is a legal lifecycle edge.
func (s Status) CanTransition(to Status) bool {
	switch to {
	case StatusActive:
		return s == StatusPending || s == StatusPaused
	case StatusPaused:
		return s == StatusActive
	case StatusEnded:
		return s == StatusActive || s == StatusPaused
	default:
		return false
	}
}
