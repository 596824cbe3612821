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

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	query := `SELECT id, email, name, role FROM users WHERE id = $1`
	if err := r.GetDB().GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	query := `SELECT id, email, name, role FROM users WHERE role = $1 ORDER BY name`
	if err := r.GetDB().SelectContext(ctx, &users, query, model.UserRoleAdmin); err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return users, nil
}
