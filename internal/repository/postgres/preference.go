package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/errors"
)

type preferenceRepository struct {
	BaseRepository
}

func NewPreferenceRepository(base BaseRepository) repository.PreferenceRepository {
	return &preferenceRepository{base}
}

func (r *preferenceRepository) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error) {
	var prefs model.NotificationPreferences
	query := `SELECT * FROM notification_preferences WHERE user_id = $1`
	if err := r.GetDB().GetContext(ctx, &prefs, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("preferences", err)
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &prefs, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, prefs *model.NotificationPreferences) error {
	query := `
        INSERT INTO notification_preferences (
            user_id, email, ticket_updates, announcements, updated_at
        ) VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO UPDATE SET
            email = EXCLUDED.email,
            ticket_updates = EXCLUDED.ticket_updates,
            announcements = EXCLUDED.announcements,
            updated_at = EXCLUDED.updated_at
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		prefs.UserID,
		prefs.Email,
		prefs.TicketUpdates,
		prefs.Announcements,
		prefs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}
