package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationPreferences holds the per-user toggles for secondary delivery
// channels. The in-app feed is authoritative and never gated.
type NotificationPreferences struct {
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Email         bool      `json:"email" db:"email"`
	TicketUpdates bool      `json:"ticket_updates" db:"ticket_updates"`
	Announcements bool      `json:"announcements" db:"announcements"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences returns the documented defaults used when a user has no
// stored preferences: mail and ticket updates on, announcements off.
func DefaultPreferences(userID uuid.UUID) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:        userID,
		Email:         true,
		TicketUpdates: true,
		Announcements: false,
	}
}

// UpdatePreferencesRequest replaces a user's preferences wholesale.
type UpdatePreferencesRequest struct {
	Email         *bool `json:"email" binding:"required"`
	TicketUpdates *bool `json:"ticket_updates" binding:"required"`
	Announcements *bool `json:"announcements" binding:"required"`
}
