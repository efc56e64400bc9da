package service

import (
	"context"

	"glasswing/internal/models"
	"glasswing/internal/repository"
)

// NotificationService lists and bulk-acknowledges the actor's notifications.
type NotificationService struct {
	notifications repository.NotificationRepository
	actor         Actor
	limit         int
}

// NewNotificationService returns a NotificationService.
func NewNotificationService(notifications repository.NotificationRepository, actor Actor) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		actor:         actor,
		limit:         50,
	}
}

// List returns the actor's notifications, newest first, with the
// initiating profile joined.
func (s *NotificationService) List(ctx context.Context) ([]models.Notification, error) {
	identity := s.actor.Identity()
	if identity == nil {
		return nil, models.NewAuthRequiredError("view notifications")
	}
	return s.notifications.ListForUser(ctx, identity.ID, s.limit)
}

// MarkAllRead flags every unread notification as read in one bulk update.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	identity := s.actor.Identity()
	if identity == nil {
		return models.NewAuthRequiredError("update notifications")
	}
	return s.notifications.MarkAllRead(ctx, identity.ID)
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	identity := s.actor.Identity()
	if identity == nil {
		return 0, nil
	}
	return s.notifications.CountUnread(ctx, identity.ID)
}
