package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
)

// All repository interfaces in one file
type (
	// NotificationRepository is the authoritative store for notification
	// rows. Creation is per-recipient independent: callers issue one Create
	// per tuple and failures never roll back sibling writes.
	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		ListByRecipient(ctx context.Context, recipientID uuid.UUID, opts model.ListOptions) ([]*model.Notification, error)
		// MarkRead flips is_read for a row owned by recipientID. Returns
		// whether the row exists and whether this call changed it.
		MarkRead(ctx context.Context, id, recipientID uuid.UUID) (model.MarkResult, error)
		// MarkAllRead flips every unread row and returns the rows it
		// changed, so callers can push the transitions to live clients.
		MarkAllRead(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error)
		CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
		// DeleteReadBefore removes read rows created before cutoff. Unread
		// rows are never aged out.
		DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// PreferenceRepository stores per-user channel toggles. A missing row
	// means "use defaults", not "all off".
	PreferenceRepository interface {
		Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error)
		Upsert(ctx context.Context, prefs *model.NotificationPreferences) error
	}

	// UserRepository is a read-only view of the directory owned by the
	// account system.
	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		ListAdmins(ctx context.Context) ([]*model.User, error)
	}
)
