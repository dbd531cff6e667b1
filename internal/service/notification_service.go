package service

import (
	"context"
	"log/slog"

	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/repository"
)

type NotificationService interface {
	ListNotifications(ctx context.Context, userID int64) ([]*models.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

type NotificationServiceImpl struct {
	store  repository.Store
	logger *slog.Logger
}

func NewNotificationService(store repository.Store, logger *slog.Logger) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		store:  store,
		logger: logger,
	}
}

func (s *NotificationServiceImpl) ListNotifications(ctx context.Context, userID int64) ([]*models.Notification, error) {
	notifications, err := s.store.Notifications().ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list notifications",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}
	return notifications, nil
}

// MarkAllRead flips every unread notification of the user to read and
// returns how many changed.
func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	updated, err := s.store.Notifications().MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("failed to mark notifications as read",
			"user_id", userID,
			"error", err.Error(),
		)
		return 0, err
	}
	s.logger.Debug("notifications marked as read",
		"user_id", userID,
		"updated", updated,
	)
	return updated, nil
}
