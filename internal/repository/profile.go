// Package repository implements the data access layer over the backend API.
package repository

import (
	"context"

	"glasswing/internal/backend"
	"glasswing/internal/cache"
	"glasswing/internal/models"
	"glasswing/internal/observability"
)

// ProfileRepository defines remote operations on the profiles table.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	Search(ctx context.Context, query string, limit int) ([]models.Profile, error)
	Update(ctx context.Context, id string, patch map[string]any) error
	SetFollowCounts(ctx context.Context, id string, followers, following int) error
}

type profileRepository struct {
	api *backend.Client
	log *observability.TableLogger
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(api *backend.Client) ProfileRepository {
	return &profileRepository{
		api: api,
		log: observability.NewTableLogger("profiles"),
	}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := r.api.From("profiles").Select("*").Eq("id", id).Single(ctx, &profile)
	if err != nil {
		if backend.IsNoRows(err) {
			return nil, models.NewNotFoundError("profile", id)
		}
		r.log.LogError(ctx, err, "get_by_id")
		return nil, models.NewRemoteError("profile fetch", err)
	}
	return &profile, nil
}

func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	key := cache.ProfileKey(username)

	err := cache.Aside(ctx, key, &profile, cache.ProfileTTL, func() error {
		err := r.api.From("profiles").Select("*").Eq("username", username).Single(ctx, &profile)
		if err != nil {
			if backend.IsNoRows(err) {
				return models.NewNotFoundError("profile", username)
			}
			r.log.LogError(ctx, err, "get_by_username")
			return models.NewRemoteError("profile fetch", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Search(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	profiles := []models.Profile{}
	pattern := "*" + query + "*"
	err := r.api.From("profiles").
		Select("*").
		Or("username.ilike."+pattern+",full_name.ilike."+pattern).
		Limit(limit).
		Get(ctx, &profiles)
	if err != nil {
		r.log.LogError(ctx, err, "search")
		return nil, models.NewRemoteError("profile search", err)
	}
	return profiles, nil
}

func (r *profileRepository) Update(ctx context.Context, id string, patch map[string]any) error {
	if err := r.api.From("profiles").Eq("id", id).Update(ctx, patch); err != nil {
		r.log.LogError(ctx, err, "update")
		return models.NewRemoteError("profile update", err)
	}
	r.log.LogOp(ctx, "update", map[string]any{"id": id})
	// Username-keyed cache entries age out via ProfileTTL; callers re-fetch
	// the canonical row after an update rather than trusting the merge.
	return nil
}

func (r *profileRepository) SetFollowCounts(ctx context.Context, id string, followers, following int) error {
	patch := map[string]any{"followers": followers, "following": following}
	if err := r.api.From("profiles").Eq("id", id).Update(ctx, patch); err != nil {
		r.log.LogError(ctx, err, "set_follow_counts")
		return models.NewRemoteError("profile counter update", err)
	}
	return nil
}
