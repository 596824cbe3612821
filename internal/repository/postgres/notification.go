package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/errors"
)

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
        INSERT INTO notifications (
            id, recipient_id, message, notification_type,
            ticket_id, related_user_id, is_read, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		n.ID,
		n.RecipientID,
		n.Message,
		n.Type,
		n.TicketID,
		n.RelatedUserID,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	query := `SELECT * FROM notifications WHERE id = $1`
	if err := r.GetDB().GetContext(ctx, &n, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("notification", err)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, opts model.ListOptions) ([]*model.Notification, error) {
	query := `
        SELECT * FROM notifications
        WHERE recipient_id = $1
    `
	args := []interface{}{recipientID}

	if opts.UnreadOnly {
		query += " AND is_read = false"
	}

	if opts.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", len(args)+1, len(args)+2)
		args = append(args, opts.Cursor.CreatedAt, opts.Cursor.ID)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args)+1)
	args = append(args, opts.NormalizedLimit())

	var notifications []*model.Notification
	if err := r.GetDB().SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead only transitions is_read false->true; a read row is never reset.
// The ownership check is part of the WHERE clause so a caller can never mark
// someone else's notification.
func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (model.MarkResult, error) {
	query := `
        UPDATE notifications
        SET is_read = true
        WHERE id = $1 AND recipient_id = $2 AND is_read = false
    `

	result, err := r.GetDB().ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return model.MarkResult{}, fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return model.MarkResult{}, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return model.MarkResult{Found: true, Updated: true}, nil
	}

	// Nothing updated: either already read (idempotent no-op) or not ours.
	var count int64
	countQuery := `SELECT count(*) FROM notifications WHERE id = $1 AND recipient_id = $2`
	if err := r.GetDB().GetContext(ctx, &count, countQuery, id, recipientID); err != nil {
		return model.MarkResult{}, fmt.Errorf("failed to check notification ownership: %w", err)
	}
	return model.MarkResult{Found: count > 0}, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	query := `
        UPDATE notifications
        SET is_read = true
        WHERE recipient_id = $1 AND is_read = false
        RETURNING *
    `

	var updated []*model.Notification
	if err := r.GetDB().SelectContext(ctx, &updated, query, recipientID); err != nil {
		return nil, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return updated, nil
}

// CountUnread derives the unread count from row state; there is no separate
// counter column.
func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT count(*) FROM notifications WHERE recipient_id = $1 AND is_read = false`
	if err := r.GetDB().GetContext(ctx, &count, query, recipientID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
        DELETE FROM notifications
        WHERE is_read = true AND created_at < $1
    `

	result, err := r.GetDB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete read notifications: %w", err)
	}
	return result.RowsAffected()
}
