package preference

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/errors"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Service is the preference store. Precedence is fixed: a stored value wins;
// no stored value means the documented defaults, never "all off".
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error)
	Update(ctx context.Context, userID uuid.UUID, req *model.UpdatePreferencesRequest) (*model.NotificationPreferences, error)
}

type service struct {
	repo  repository.PreferenceRepository
	cache *gocache.Cache
}

func NewService(repo repository.PreferenceRepository) Service {
	return &service{
		repo:  repo,
		cache: gocache.New(cacheTTL, cacheCleanup),
	}
}

// Get returns the stored preferences, or the defaults when the user has
// none. The defaults are not persisted on read; a row appears only once the
// user updates something.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreferences, error) {
	if userID == uuid.Nil {
		return nil, errors.NewBadRequest("user id is required", nil)
	}

	if cached, ok := s.cache.Get(userID.String()); ok {
		prefs := cached.(model.NotificationPreferences)
		return &prefs, nil
	}

	prefs, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			prefs = model.DefaultPreferences(userID)
		} else {
			return nil, fmt.Errorf("failed to get preferences: %w", err)
		}
	}

	s.cache.Set(userID.String(), *prefs, cacheTTL)
	return prefs, nil
}

// Update replaces the user's preferences wholesale.
func (s *service) Update(ctx context.Context, userID uuid.UUID, req *model.UpdatePreferencesRequest) (*model.NotificationPreferences, error) {
	if userID == uuid.Nil {
		return nil, errors.NewBadRequest("user id is required", nil)
	}
	if req == nil || req.Email == nil || req.TicketUpdates == nil || req.Announcements == nil {
		return nil, errors.NewBadRequest("all preference fields are required", nil)
	}

	prefs := &model.NotificationPreferences{
		UserID:        userID,
		Email:         *req.Email,
		TicketUpdates: *req.TicketUpdates,
		Announcements: *req.Announcements,
		UpdatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Upsert(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	s.cache.Set(userID.String(), *prefs, cacheTTL)
	return prefs, nil
}
