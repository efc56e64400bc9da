package repository

import (
	"context"

	"glasswing/internal/backend"
	"glasswing/internal/models"
	"glasswing/internal/observability"
)

// RelationshipRepository defines remote operations on the
// user_relationships follow-edge table. At most one row exists per ordered
// (follower_id, following_id) pair; self-follows are the backend's to
// reject.
type RelationshipRepository interface {
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	// Add inserts the follow edge, reporting whether a row was actually
	// inserted. A uniqueness violation means already-following.
	Add(ctx context.Context, followerID, followingID string) (inserted bool, err error)
	Remove(ctx context.Context, followerID, followingID string) error
	CountFollowers(ctx context.Context, userID string) (int, error)
	CountFollowing(ctx context.Context, userID string) (int, error)
}

type relationshipRepository struct {
	api *backend.Client
	log *observability.TableLogger
}

// NewRelationshipRepository returns a new RelationshipRepository implementation.
func NewRelationshipRepository(api *backend.Client) RelationshipRepository {
	return &relationshipRepository{
		api: api,
		log: observability.NewTableLogger("user_relationships"),
	}
}

func (r *relationshipRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	n, err := r.api.From("user_relationships").
		Eq("follower_id", followerID).
		Eq("following_id", followingID).
		Count(ctx)
	if err != nil {
		r.log.LogError(ctx, err, "exists")
		return false, models.NewRemoteError("follow check", err)
	}
	return n > 0, nil
}

func (r *relationshipRepository) Add(ctx context.Context, followerID, followingID string) (bool, error) {
	row := models.Relationship{FollowerID: followerID, FollowingID: followingID}
	err := r.api.From("user_relationships").Insert(ctx, row, nil)
	if err != nil {
		if backend.IsUniqueViolation(err) {
			return false, nil
		}
		r.log.LogError(ctx, err, "add")
		return false, models.NewRemoteError("follow insert", err)
	}
	r.log.LogOp(ctx, "add", map[string]any{"follower_id": followerID, "following_id": followingID})
	return true, nil
}

func (r *relationshipRepository) Remove(ctx context.Context, followerID, followingID string) error {
	err := r.api.From("user_relationships").
		Eq("follower_id", followerID).
		Eq("following_id", followingID).
		Delete(ctx)
	if err != nil {
		r.log.LogError(ctx, err, "remove")
		return models.NewRemoteError("follow delete", err)
	}
	r.log.LogOp(ctx, "remove", map[string]any{"follower_id": followerID, "following_id": followingID})
	return nil
}

func (r *relationshipRepository) CountFollowers(ctx context.Context, userID string) (int, error) {
	n, err := r.api.From("user_relationships").Eq("following_id", userID).Count(ctx)
	if err != nil {
		r.log.LogError(ctx, err, "count_followers")
		return 0, models.NewRemoteError("follower count", err)
	}
	return n, nil
}

func (r *relationshipRepository) CountFollowing(ctx context.Context, userID string) (int, error) {
	n, err := r.api.From("user_relationships").Eq("follower_id", userID).Count(ctx)
	if err != nil {
		r.log.LogError(ctx, err, "count_following")
		return 0, models.NewRemoteError("following count", err)
	}
	return n, nil
}
