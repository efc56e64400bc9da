package repository

import (
	"context"

	"glasswing/internal/backend"
	"glasswing/internal/models"
	"glasswing/internal/observability"
)

// NotificationRepository defines remote operations on the notifications table.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type notificationRepository struct {
	api *backend.Client
	log *observability.TableLogger
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(api *backend.Client) NotificationRepository {
	return &notificationRepository{
		api: api,
		log: observability.NewTableLogger("notifications"),
	}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	row := map[string]any{
		"user_id":      n.UserID,
		"type":         n.Type,
		"initiator_id": n.InitiatorID,
		"content_id":   n.ContentID,
		"is_read":      false,
	}
	if err := r.api.From("notifications").Insert(ctx, row, nil); err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewRemoteError("notification create", err)
	}
	r.log.LogOp(ctx, "create", map[string]any{"user_id": n.UserID, "type": n.Type})
	return nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := r.api.From("notifications").
		Select("*, initiator:profiles!initiator_id(*)").
		Eq("user_id", userID).
		Order("created_at", true).
		Limit(limit).
		Get(ctx, &notifications)
	if err != nil {
		r.log.LogError(ctx, err, "list_for_user")
		return nil, models.NewRemoteError("notification list", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	err := r.api.From("notifications").
		Eq("user_id", userID).
		Eq("is_read", "false").
		Update(ctx, map[string]any{"is_read": true})
	if err != nil {
		r.log.LogError(ctx, err, "mark_all_read")
		return models.NewRemoteError("notification update", err)
	}
	return nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := r.api.From("notifications").
		Eq("user_id", userID).
		Eq("is_read", "false").
		Count(ctx)
	if err != nil {
		r.log.LogError(ctx, err, "count_unread")
		return 0, models.NewRemoteError("notification count", err)
	}
	return n, nil
}
