package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-api/internal/model"
)

type fakeDirectory struct {
	listAdminsFn func(ctx context.Context) ([]*model.User, error)
}

func (f *fakeDirectory) ListAdmins(ctx context.Context) ([]*model.User, error) {
	return f.listAdminsFn(ctx)
}

func admins(ids ...uuid.UUID) *fakeDirectory {
	return &fakeDirectory{
		listAdminsFn: func(ctx context.Context) ([]*model.User, error) {
			users := make([]*model.User, len(ids))
			for i, id := range ids {
				users[i] = &model.User{ID: id, Role: model.UserRoleAdmin}
			}
			return users, nil
		},
	}
}

func newTestResolver(dir Directory) *Resolver {
	return NewResolver(dir, zerolog.Nop())
}

func recipients(tuples []model.Tuple) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, tuple := range tuples {
		out[tuple.RecipientID]++
	}
	return out
}

func TestResolveCreatedWithoutAssignee(t *testing.T) {
	requester := uuid.New()
	admin1, admin2 := uuid.New(), uuid.New()

	r := newTestResolver(admins(admin1, admin2))
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketCreated,
		TicketID:    uuid.New(),
		Title:       "Printer on fire",
		RequesterID: requester,
		ActorID:     requester,
	})

	require.Len(t, tuples, 3)
	got := recipients(tuples)
	assert.Equal(t, 1, got[requester])
	assert.Equal(t, 1, got[admin1])
	assert.Equal(t, 1, got[admin2])
	for _, tuple := range tuples {
		assert.NotEqual(t, model.NotificationTypeTicketAssigned, tuple.Type)
	}
}

func TestResolveCreatedWithAssignee(t *testing.T) {
	requester := uuid.New()
	assignee := uuid.New()
	admin := uuid.New()

	r := newTestResolver(admins(admin))
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketCreated,
		TicketID:    uuid.New(),
		Title:       "VPN down",
		RequesterID: requester,
		AssigneeID:  &assignee,
		ActorID:     requester,
	})

	require.Len(t, tuples, 3)

	byRecipient := make(map[uuid.UUID]model.Tuple)
	for _, tuple := range tuples {
		byRecipient[tuple.RecipientID] = tuple
	}
	assert.Equal(t, "Your ticket 'VPN down' has been created", byRecipient[requester].Message)
	assert.Equal(t, model.NotificationTypeTicketAssigned, byRecipient[assignee].Type)
	assert.Equal(t, "You have been assigned ticket 'VPN down'", byRecipient[assignee].Message)
	assert.Equal(t, "New ticket created: 'VPN down'", byRecipient[admin].Message)
}

func TestResolveCreatedAdminLookupFailure(t *testing.T) {
	requester := uuid.New()
	assignee := uuid.New()

	dir := &fakeDirectory{
		listAdminsFn: func(ctx context.Context) ([]*model.User, error) {
			return nil, errors.New("directory unavailable")
		},
	}

	r := newTestResolver(dir)
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketCreated,
		TicketID:    uuid.New(),
		Title:       "Laptop request",
		RequesterID: requester,
		AssigneeID:  &assignee,
		ActorID:     requester,
	})

	// Requester and assignee still notified when the admin fan-out fails.
	require.Len(t, tuples, 2)
	got := recipients(tuples)
	assert.Equal(t, 1, got[requester])
	assert.Equal(t, 1, got[assignee])
}

func TestResolveUpdatedExcludesActor(t *testing.T) {
	requester := uuid.New()
	assignee := uuid.New()

	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketUpdated,
		TicketID:    uuid.New(),
		Title:       "Slow wifi",
		RequesterID: requester,
		AssigneeID:  &assignee,
		ActorID:     assignee,
	})

	require.Len(t, tuples, 1)
	assert.Equal(t, requester, tuples[0].RecipientID)
	assert.Equal(t, model.NotificationTypeTicketUpdated, tuples[0].Type)
}

func TestResolveUpdatedRequesterIsAssignee(t *testing.T) {
	user := uuid.New()
	actor := uuid.New()

	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketUpdated,
		TicketID:    uuid.New(),
		Title:       "Access request",
		RequesterID: user,
		AssigneeID:  &user,
		ActorID:     actor,
	})

	// Same recipient, same message, same type: one tuple, not two.
	require.Len(t, tuples, 1)
	assert.Equal(t, user, tuples[0].RecipientID)
}

func TestResolveReassignment(t *testing.T) {
	requester := uuid.New()
	previous := uuid.New()
	next := uuid.New()
	actor := uuid.New()

	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:               model.EventTicketUpdated,
		TicketID:           uuid.New(),
		Title:              "Broken monitor",
		RequesterID:        requester,
		AssigneeID:         &next,
		PreviousAssigneeID: &previous,
		ActorID:            actor,
	})

	require.Len(t, tuples, 3)
	byRecipient := make(map[uuid.UUID]model.Tuple)
	for _, tuple := range tuples {
		byRecipient[tuple.RecipientID] = tuple
	}
	assert.Equal(t, "You have been assigned ticket 'Broken monitor'", byRecipient[next].Message)
	assert.Equal(t, "You are no longer assigned to ticket 'Broken monitor'", byRecipient[previous].Message)
	assert.Equal(t, "Ticket 'Broken monitor' has been updated", byRecipient[requester].Message)
}

func TestResolveReassignmentByRequesterToSelf(t *testing.T) {
	previous := uuid.New()
	actor := uuid.New()

	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:               model.EventTicketUpdated,
		TicketID:           uuid.New(),
		Title:              "Keyboard replacement",
		RequesterID:        actor,
		AssigneeID:         &actor,
		PreviousAssigneeID: &previous,
		ActorID:            actor,
	})

	// The actor took the ticket over themselves: only the previous assignee
	// has anything to learn.
	require.Len(t, tuples, 1)
	assert.Equal(t, previous, tuples[0].RecipientID)
	assert.Equal(t, "You are no longer assigned to ticket 'Keyboard replacement'", tuples[0].Message)
}

func TestResolveCommentByOnlyParticipant(t *testing.T) {
	user := uuid.New()

	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventCommentAdded,
		TicketID:    uuid.New(),
		Title:       "Self-serve ticket",
		RequesterID: user,
		AssigneeID:  &user,
		ActorID:     user,
	})

	assert.Empty(t, tuples)
}

func TestResolveCommentNotifiesParticipants(t *testing.T) {
	requester := uuid.New()
	assignee := uuid.New()

	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventCommentAdded,
		TicketID:    uuid.New(),
		Title:       "Billing question",
		RequesterID: requester,
		AssigneeID:  &assignee,
		ActorID:     assignee,
	})

	require.Len(t, tuples, 1)
	assert.Equal(t, requester, tuples[0].RecipientID)
	assert.Equal(t, "New comment on ticket 'Billing question'", tuples[0].Message)
}

func TestResolveResolvedNotifiesRequesterAndActor(t *testing.T) {
	requester := uuid.New()
	actor := uuid.New()

	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketResolved,
		TicketID:    uuid.New(),
		Title:       "Password reset",
		RequesterID: requester,
		ActorID:     actor,
	})

	require.Len(t, tuples, 2)
	byRecipient := make(map[uuid.UUID]model.Tuple)
	for _, tuple := range tuples {
		byRecipient[tuple.RecipientID] = tuple
	}
	assert.Equal(t, "Your ticket 'Password reset' has been resolved", byRecipient[requester].Message)
	assert.Equal(t, "You resolved ticket 'Password reset'", byRecipient[actor].Message)
}

func TestResolveResolvedByRequester(t *testing.T) {
	user := uuid.New()

	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketResolved,
		TicketID:    uuid.New(),
		Title:       "Fixed myself",
		RequesterID: user,
		ActorID:     user,
	})

	// Just the receipt.
	require.Len(t, tuples, 1)
	assert.Equal(t, "You resolved ticket 'Fixed myself'", tuples[0].Message)
}

func TestResolveMalformedEvent(t *testing.T) {
	r := newTestResolver(admins())

	assert.Nil(t, r.Resolve(context.Background(), nil))
	assert.Nil(t, r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketCreated,
		Title:       "No ticket id",
		RequesterID: uuid.New(),
		ActorID:     uuid.New(),
	}))
	assert.Nil(t, r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketCreated,
		TicketID:    uuid.New(),
		RequesterID: uuid.New(),
		ActorID:     uuid.New(),
	}))
}

func TestResolveUnknownEventType(t *testing.T) {
	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventType("ticket_escalated"),
		TicketID:    uuid.New(),
		Title:       "Escalation",
		RequesterID: uuid.New(),
		ActorID:     uuid.New(),
	})
	assert.Nil(t, tuples)
}

func TestResolveTupleCarriesEventContext(t *testing.T) {
	requester := uuid.New()
	actor := uuid.New()
	ticketID := uuid.New()

	r := newTestResolver(admins())
	tuples := r.Resolve(context.Background(), &model.TicketEvent{
		Type:        model.EventTicketResolved,
		TicketID:    ticketID,
		Title:       "Context check",
		RequesterID: requester,
		ActorID:     actor,
		ActorName:   "Dana",
	})

	require.NotEmpty(t, tuples)
	for _, tuple := range tuples {
		require.NotNil(t, tuple.TicketID)
		assert.Equal(t, ticketID, *tuple.TicketID)
		require.NotNil(t, tuple.RelatedUserID)
		assert.Equal(t, actor, *tuple.RelatedUserID)
		assert.Equal(t, "Dana", tuple.ActorName)
	}
}
