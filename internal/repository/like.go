package repository

import (
	"context"

	"glasswing/internal/backend"
	"glasswing/internal/models"
	"glasswing/internal/observability"
)

// LikeRepository defines remote operations on the post_likes relationship
// table. At most one row exists per (post_id, user_id).
type LikeRepository interface {
	Exists(ctx context.Context, postID, userID string) (bool, error)
	// Add inserts the like row. It reports whether a row was actually
	// inserted: a uniqueness violation means the edge already existed and
	// is not an error.
	Add(ctx context.Context, postID, userID string) (inserted bool, err error)
	Remove(ctx context.Context, postID, userID string) error
	CountForPost(ctx context.Context, postID string) (int, error)
	ListPostIDsByUser(ctx context.Context, userID string) ([]string, error)
}

type likeRepository struct {
	api *backend.Client
	log *observability.TableLogger
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(api *backend.Client) LikeRepository {
	return &likeRepository{
		api: api,
		log: observability.NewTableLogger("post_likes"),
	}
}

func (r *likeRepository) Exists(ctx context.Context, postID, userID string) (bool, error) {
	n, err := r.api.From("post_likes").
		Eq("post_id", postID).
		Eq("user_id", userID).
		Count(ctx)
	if err != nil {
		r.log.LogError(ctx, err, "exists")
		return false, models.NewRemoteError("like check", err)
	}
	return n > 0, nil
}

func (r *likeRepository) Add(ctx context.Context, postID, userID string) (bool, error) {
	row := models.Like{PostID: postID, UserID: userID}
	err := r.api.From("post_likes").Insert(ctx, row, nil)
	if err != nil {
		if backend.IsUniqueViolation(err) {
			return false, nil
		}
		r.log.LogError(ctx, err, "add")
		return false, models.NewRemoteError("like insert", err)
	}
	r.log.LogOp(ctx, "add", map[string]any{"post_id": postID, "user_id": userID})
	return true, nil
}

func (r *likeRepository) Remove(ctx context.Context, postID, userID string) error {
	err := r.api.From("post_likes").
		Eq("post_id", postID).
		Eq("user_id", userID).
		Delete(ctx)
	if err != nil {
		r.log.LogError(ctx, err, "remove")
		return models.NewRemoteError("like delete", err)
	}
	r.log.LogOp(ctx, "remove", map[string]any{"post_id": postID, "user_id": userID})
	return nil
}

func (r *likeRepository) CountForPost(ctx context.Context, postID string) (int, error) {
	n, err := r.api.From("post_likes").Eq("post_id", postID).Count(ctx)
	if err != nil {
		r.log.LogError(ctx, err, "count_for_post")
		return 0, models.NewRemoteError("like count", err)
	}
	return n, nil
}

func (r *likeRepository) ListPostIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows := []models.Like{}
	err := r.api.From("post_likes").
		Select("post_id,user_id").
		Eq("user_id", userID).
		Get(ctx, &rows)
	if err != nil {
		r.log.LogError(ctx, err, "list_by_user")
		return nil, models.NewRemoteError("like list", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PostID)
	}
	return ids, nil
}
