package resolver

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-api/internal/model"
)

// Directory is the slice of the account system the resolver needs: the
// current admin set for ticket-created fan-out.
type Directory interface {
	ListAdmins(ctx context.Context) ([]*model.User, error)
}

// Resolver maps a ticket lifecycle event to the deduplicated set of
// (recipient, message, type) tuples. It is side-effect free and operates
// only on the event snapshot plus the admin directory; it never re-fetches
// ticket state.
type Resolver struct {
	directory Directory
	logger    zerolog.Logger
}

func NewResolver(directory Directory, logger zerolog.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		logger:    logger,
	}
}

// Resolve computes the recipient tuples for an event. Malformed events
// produce no tuples and a warning, never an error: a missing notification is
// recoverable, a failed ticket action is not.
func (r *Resolver) Resolve(ctx context.Context, event *model.TicketEvent) []model.Tuple {
	if err := validateEvent(event); err != nil {
		r.logger.Warn().Err(err).Interface("event", event).Msg("skipping malformed event")
		return nil
	}

	var tuples []model.Tuple
	switch event.Type {
	case model.EventTicketCreated:
		tuples = r.resolveCreated(ctx, event)
	case model.EventTicketUpdated:
		tuples = r.resolveUpdated(event)
	case model.EventCommentAdded:
		tuples = r.resolveCommented(event)
	case model.EventTicketResolved:
		tuples = r.resolveResolved(event)
	default:
		r.logger.Warn().Str("type", string(event.Type)).Msg("skipping unknown event type")
		return nil
	}

	return dedup(tuples)
}

func (r *Resolver) resolveCreated(ctx context.Context, event *model.TicketEvent) []model.Tuple {
	tuples := []model.Tuple{
		newTuple(event, event.RequesterID,
			"Your ticket '"+event.Title+"' has been created",
			model.NotificationTypeTicketCreated),
	}

	if event.AssigneeID != nil {
		tuples = append(tuples, newTuple(event, *event.AssigneeID,
			"You have been assigned ticket '"+event.Title+"'",
			model.NotificationTypeTicketAssigned))
	}

	// Admin fan-out failure is isolated: the requester and assignee tuples
	// above are emitted regardless.
	admins, err := r.directory.ListAdmins(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Str("ticket_id", event.TicketID.String()).
			Msg("admin fan-out failed, notifying requester and assignee only")
		return tuples
	}

	for _, admin := range admins {
		tuples = append(tuples, newTuple(event, admin.ID,
			"New ticket created: '"+event.Title+"'",
			model.NotificationTypeTicketCreated))
	}
	return tuples
}

func (r *Resolver) resolveUpdated(event *model.TicketEvent) []model.Tuple {
	if event.Reassignment() {
		return r.resolveReassigned(event)
	}

	var tuples []model.Tuple
	if event.RequesterID != event.ActorID {
		tuples = append(tuples, newTuple(event, event.RequesterID,
			"Ticket '"+event.Title+"' has been updated",
			model.NotificationTypeTicketUpdated))
	}
	if event.AssigneeID != nil && *event.AssigneeID != event.ActorID {
		tuples = append(tuples, newTuple(event, *event.AssigneeID,
			"Ticket '"+event.Title+"' has been updated",
			model.NotificationTypeTicketUpdated))
	}
	return tuples
}

// resolveReassigned gives the old and new assignee materially different
// messages; they are not duplicates of each other or of the requester's
// generic update.
func (r *Resolver) resolveReassigned(event *model.TicketEvent) []model.Tuple {
	var tuples []model.Tuple

	if event.AssigneeID != nil && *event.AssigneeID != event.ActorID {
		tuples = append(tuples, newTuple(event, *event.AssigneeID,
			"You have been assigned ticket '"+event.Title+"'",
			model.NotificationTypeTicketAssigned))
	}
	if *event.PreviousAssigneeID != event.ActorID {
		tuples = append(tuples, newTuple(event, *event.PreviousAssigneeID,
			"You are no longer assigned to ticket '"+event.Title+"'",
			model.NotificationTypeTicketUpdated))
	}
	if event.RequesterID != event.ActorID {
		tuples = append(tuples, newTuple(event, event.RequesterID,
			"Ticket '"+event.Title+"' has been updated",
			model.NotificationTypeTicketUpdated))
	}
	return tuples
}

func (r *Resolver) resolveCommented(event *model.TicketEvent) []model.Tuple {
	var tuples []model.Tuple
	message := "New comment on ticket '" + event.Title + "'"

	if event.RequesterID != event.ActorID {
		tuples = append(tuples, newTuple(event, event.RequesterID, message,
			model.NotificationTypeCommentAdded))
	}
	if event.AssigneeID != nil && *event.AssigneeID != event.ActorID {
		tuples = append(tuples, newTuple(event, *event.AssigneeID, message,
			model.NotificationTypeCommentAdded))
	}
	return tuples
}

func (r *Resolver) resolveResolved(event *model.TicketEvent) []model.Tuple {
	var tuples []model.Tuple

	if event.RequesterID != event.ActorID {
		tuples = append(tuples, newTuple(event, event.RequesterID,
			"Your ticket '"+event.Title+"' has been resolved",
			model.NotificationTypeTicketResolved))
	}

	// The resolving actor gets a receipt, not an alert. This is the one
	// intentional exception to actor self-exclusion.
	tuples = append(tuples, newTuple(event, event.ActorID,
		"You resolved ticket '"+event.Title+"'",
		model.NotificationTypeTicketResolved))

	return tuples
}

func newTuple(event *model.TicketEvent, recipientID uuid.UUID, message string, t model.NotificationType) model.Tuple {
	ticketID := event.TicketID
	actorID := event.ActorID
	return model.Tuple{
		RecipientID:   recipientID,
		Message:       message,
		Type:          t,
		TicketID:      &ticketID,
		TicketTitle:   event.Title,
		RelatedUserID: &actorID,
		ActorName:     event.ActorName,
	}
}

// dedup collapses tuples only when recipient, message and type all match;
// distinct messages for the same recipient carry different information and
// are all kept.
func dedup(tuples []model.Tuple) []model.Tuple {
	type key struct {
		recipient uuid.UUID
		message   string
		t         model.NotificationType
	}

	seen := make(map[key]struct{}, len(tuples))
	out := tuples[:0]
	for _, tuple := range tuples {
		k := key{tuple.RecipientID, tuple.Message, tuple.Type}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, tuple)
	}
	return out
}

func validateEvent(event *model.TicketEvent) error {
	if event == nil {
		return errMissing("event")
	}
	if event.TicketID == uuid.Nil {
		return errMissing("ticket id")
	}
	if event.Title == "" {
		return errMissing("title")
	}
	if event.RequesterID == uuid.Nil {
		return errMissing("requester id")
	}
	if event.ActorID == uuid.Nil {
		return errMissing("actor id")
	}
	return nil
}

type missingFieldError string

func (e missingFieldError) Error() string {
	return "missing required event field: " + string(e)
}

func errMissing(field string) error {
	return missingFieldError(field)
}
