package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/messaging"
)

// Service is the notification feed exposed to the presentation layer. The
// store is the single source of truth for read state and unread counts;
// clients may cache a view of it but must backfill on reconnect.
type Service interface {
	List(ctx context.Context, recipientID uuid.UUID, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

// ListParams configures feed pagination.
type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps a page of the feed and the cursor for the next page
// ("" when the page was not full).
type ListResult struct {
	Items  []*model.Notification `json:"items"`
	Cursor string                `json:"cursor,omitempty"`
}

type service struct {
	repo   repository.NotificationRepository
	broker messaging.Broker
	logger zerolog.Logger
}

func NewService(repo repository.NotificationRepository, broker messaging.Broker, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		broker: broker,
		logger: logger,
	}
}

func (s *service) List(ctx context.Context, recipientID uuid.UUID, params ListParams) (*ListResult, error) {
	if recipientID == uuid.Nil {
		return nil, errors.NewBadRequest("recipient id is required", nil)
	}

	opts := model.ListOptions{
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := model.ParseCursor(params.Cursor)
		if err != nil {
			return nil, errors.NewBadRequest("invalid cursor", err)
		}
		opts.Cursor = cursor
	}

	items, err := s.repo.ListByRecipient(ctx, recipientID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	result := &ListResult{Items: items}
	if len(items) == opts.NormalizedLimit() {
		last := items[len(items)-1]
		result.Cursor = model.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return result, nil
}

// MarkRead is idempotent: marking an already-read notification succeeds
// without changing anything. Only a notification the caller does not own (or
// that does not exist) is an error.
func (s *service) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	if id == uuid.Nil || recipientID == uuid.Nil {
		return errors.NewBadRequest("notification id and recipient id are required", nil)
	}

	result, err := s.repo.MarkRead(ctx, id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !result.Found {
		return errors.NewNotFound("notification", nil)
	}

	// Other connected clients learn about the read flip over the live
	// channel; the no-op repeat of an already-read row pushes nothing.
	if result.Updated {
		n, err := s.repo.Get(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("notification_id", id.String()).
				Msg("marked read but could not load row for live push")
			return nil
		}
		s.publish(ctx, n)
	}
	return nil
}

// MarkAllRead is idempotent; calling it with nothing unread returns zero and
// succeeds.
func (s *service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, errors.NewBadRequest("recipient id is required", nil)
	}

	updated, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	for _, n := range updated {
		s.publish(ctx, n)
	}
	return int64(len(updated)), nil
}

func (s *service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if recipientID == uuid.Nil {
		return 0, errors.NewBadRequest("recipient id is required", nil)
	}

	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// publish pushes one updated row to the recipient's live channel. Best
// effort: the mark has already committed and disconnected clients recover
// via backfill.
func (s *service) publish(ctx context.Context, n *model.Notification) {
	channel := messaging.RecipientChannel(n.RecipientID)
	if err := s.broker.Publish(ctx, channel, n); err != nil {
		s.logger.Warn().Err(err).Str("channel", channel).
			Msg("live push of read transition failed")
	}
}
