package repository

import (
	"context"
	"time"

	"glasswing/internal/backend"
	"glasswing/internal/models"
	"glasswing/internal/observability"
)

// postColumns selects post rows joined with the owning profile.
const postColumns = "*, profile:profiles(*)"

// FeedCursor is a keyset position in the feed: the boundary row's
// created_at with its id as tie-breaker, so rows sharing a timestamp are
// never skipped between pages.
type FeedCursor struct {
	CreatedAt time.Time
	ID        string
}

// Zero reports whether the cursor points at the top of the feed.
func (c FeedCursor) Zero() bool {
	return c.CreatedAt.IsZero()
}

// PostRepository defines remote operations on the posts table.
type PostRepository interface {
	Feed(ctx context.Context, cursor FeedCursor, limit int) ([]models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
	ListMediaByUser(ctx context.Context, userID string) ([]models.Post, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	Search(ctx context.Context, query string, limit int) ([]models.Post, error)
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	SetLikeCount(ctx context.Context, id string, likes int) error
}

type postRepository struct {
	api *backend.Client
	log *observability.TableLogger
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(api *backend.Client) PostRepository {
	return &postRepository{
		api: api,
		log: observability.NewTableLogger("posts"),
	}
}

// Feed returns posts strictly before cursor, newest first, joined with
// the owning profile. A zero cursor starts from the top. The walk orders
// and filters on (created_at, id) so a page boundary falling inside a
// burst of same-timestamp posts loses nothing.
func (r *postRepository) Feed(ctx context.Context, cursor FeedCursor, limit int) ([]models.Post, error) {
	posts := []models.Post{}
	q := r.api.From("posts").
		Select(postColumns).
		Order("created_at", true).
		Order("id", true).
		Limit(limit)
	if !cursor.Zero() {
		ts := cursor.CreatedAt.UTC().Format(time.RFC3339Nano)
		if cursor.ID != "" {
			q = q.Or("created_at.lt." + ts + ",and(created_at.eq." + ts + ",id.lt." + cursor.ID + ")")
		} else {
			q = q.Lt("created_at", ts)
		}
	}
	if err := q.Get(ctx, &posts); err != nil {
		r.log.LogError(ctx, err, "feed")
		return nil, models.NewRemoteError("feed fetch", err)
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.api.From("posts").
		Select(postColumns).
		Eq("user_id", userID).
		Order("created_at", true).
		Get(ctx, &posts)
	if err != nil {
		r.log.LogError(ctx, err, "list_by_user")
		return nil, models.NewRemoteError("post list", err)
	}
	return posts, nil
}

// ListMediaByUser returns the user's posts carrying at least one image or
// a video.
func (r *postRepository) ListMediaByUser(ctx context.Context, userID string) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.api.From("posts").
		Select(postColumns).
		Eq("user_id", userID).
		Or("images.neq.{},video.not.is.null").
		Order("created_at", true).
		Get(ctx, &posts)
	if err != nil {
		r.log.LogError(ctx, err, "list_media_by_user")
		return nil, models.NewRemoteError("media list", err)
	}
	return posts, nil
}

// GetByIDs fetches posts by id set. An empty set short-circuits to an
// empty result without issuing a request; an empty filter would otherwise
// degenerate into a fetch-everything query.
func (r *postRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	posts := []models.Post{}
	err := r.api.From("posts").
		Select(postColumns).
		In("id", ids).
		Order("created_at", true).
		Get(ctx, &posts)
	if err != nil {
		r.log.LogError(ctx, err, "get_by_ids")
		return nil, models.NewRemoteError("post fetch", err)
	}
	return posts, nil
}

func (r *postRepository) Search(ctx context.Context, query string, limit int) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.api.From("posts").
		Select(postColumns).
		Ilike("text", "*"+query+"*").
		Order("created_at", true).
		Limit(limit).
		Get(ctx, &posts)
	if err != nil {
		r.log.LogError(ctx, err, "search")
		return nil, models.NewRemoteError("post search", err)
	}
	return posts, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	row := map[string]any{
		"user_id":    post.UserID,
		"text":       post.Text,
		"images":     post.Images,
		"video":      post.Video,
		"is_private": post.IsPrivate,
	}
	var created models.Post
	if err := r.api.From("posts").Insert(ctx, row, &created); err != nil {
		r.log.LogError(ctx, err, "create")
		return nil, models.NewRemoteError("post create", err)
	}
	r.log.LogOp(ctx, "create", map[string]any{"id": created.ID, "user_id": created.UserID})
	return &created, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	if err := r.api.From("posts").Eq("id", id).Delete(ctx); err != nil {
		r.log.LogError(ctx, err, "delete")
		return models.NewRemoteError("post delete", err)
	}
	r.log.LogOp(ctx, "delete", map[string]any{"id": id})
	return nil
}

func (r *postRepository) SetLikeCount(ctx context.Context, id string, likes int) error {
	if err := r.api.From("posts").Eq("id", id).Update(ctx, map[string]any{"likes": likes}); err != nil {
		r.log.LogError(ctx, err, "set_like_count")
		return models.NewRemoteError("post counter update", err)
	}
	return nil
}
