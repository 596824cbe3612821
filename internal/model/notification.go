package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeTicketCreated  NotificationType = "ticket_created"
	NotificationTypeTicketUpdated  NotificationType = "ticket_updated"
	NotificationTypeTicketAssigned NotificationType = "ticket_assigned"
	NotificationTypeTicketResolved NotificationType = "ticket_resolved"
	NotificationTypeCommentAdded   NotificationType = "comment_added"
	NotificationTypeSystem         NotificationType = "system"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeTicketCreated,
		NotificationTypeTicketUpdated,
		NotificationTypeTicketAssigned,
		NotificationTypeTicketResolved,
		NotificationTypeCommentAdded,
		NotificationTypeSystem:
		return true
	}
	return false
}

// TicketRelated reports whether notifications of this type reference a
// ticket. System notifications do not.
func (t NotificationType) TicketRelated() bool {
	return t != NotificationTypeSystem
}

// Notification is a durable, per-recipient record. Group fan-out is always
// realized as N independent rows, never as one row addressed to a group.
// Message text is finalized at creation time and never re-rendered.
type Notification struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	RecipientID   uuid.UUID        `json:"recipient_id" db:"recipient_id"`
	Message       string           `json:"message" db:"message"`
	Type          NotificationType `json:"notification_type" db:"notification_type"`
	TicketID      *uuid.UUID       `json:"ticket_id,omitempty" db:"ticket_id"`
	RelatedUserID *uuid.UUID       `json:"related_user_id,omitempty" db:"related_user_id"`
	IsRead        bool             `json:"is_read" db:"is_read"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// Tuple is one resolved (recipient, message, type) triple, the unit of
// fan-out handed from the resolver to the dispatcher.
type Tuple struct {
	RecipientID   uuid.UUID
	Message       string
	Type          NotificationType
	TicketID      *uuid.UUID
	TicketTitle   string
	RelatedUserID *uuid.UUID
	ActorName     string
}
