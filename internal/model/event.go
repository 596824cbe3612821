package model

import (
	"github.com/google/uuid"
)

type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketUpdated  EventType = "ticket_updated"
	EventCommentAdded   EventType = "comment_added"
	EventTicketResolved EventType = "ticket_resolved"
)

// TicketEvent is an immutable snapshot of a ticket lifecycle occurrence,
// emitted by the ticket layer. Recipient resolution operates only on this
// snapshot and never re-fetches ticket state, so resolution stays
// deterministic for a given event.
type TicketEvent struct {
	Type               EventType  `json:"type" binding:"required,eventtype"`
	TicketID           uuid.UUID  `json:"ticket_id" binding:"required"`
	Title              string     `json:"title" binding:"required"`
	RequesterID        uuid.UUID  `json:"requester_id" binding:"required"`
	AssigneeID         *uuid.UUID `json:"assignee_id,omitempty"`
	PreviousAssigneeID *uuid.UUID `json:"previous_assignee_id,omitempty"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	ActorID            uuid.UUID  `json:"actor_id" binding:"required"`
	ActorName          string     `json:"actor_name"`
}

// Reassignment reports whether the event carries an assignee hand-off.
func (e *TicketEvent) Reassignment() bool {
	return e.Type == EventTicketUpdated && e.PreviousAssigneeID != nil
}
