package email

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
)

type Service interface {
	// SendNotification delivers one resolved tuple over mail. Best effort:
	// callers log failures and move on, nothing retries.
	SendNotification(ctx context.Context, to string, tuple model.Tuple) error
	SendCustom(ctx context.Context, to string, subject string, body string) error
}

// Subject builds the mail subject from the notification type and ticket
// title, mirroring the in-app message framing.
func Subject(t model.NotificationType, ticketTitle string) string {
	switch t {
	case model.NotificationTypeTicketCreated:
		return "New ticket: " + ticketTitle
	case model.NotificationTypeTicketAssigned:
		return "Ticket assigned to you: " + ticketTitle
	case model.NotificationTypeTicketResolved:
		return "Ticket resolved: " + ticketTitle
	case model.NotificationTypeCommentAdded:
		return "New comment on: " + ticketTitle
	case model.NotificationTypeSystem:
		return "Announcement"
	default:
		return "Ticket updated: " + ticketTitle
	}
}

// TicketLink returns the link back to the ticket, or "" for system
// notifications that reference none.
func TicketLink(baseURL string, ticketID *uuid.UUID) string {
	if ticketID == nil || baseURL == "" {
		return ""
	}
	return baseURL + "/" + ticketID.String()
}
