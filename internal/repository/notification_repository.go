package repository

import (
	"context"
	"fmt"

	"github.com/riteshkumar/core-ledger/internal/models"
)

type PostgresNotificationRepository struct {
	db dbtx
}

func NewNotificationRepository(db dbtx) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	query := `INSERT INTO notifications (user_id, title, message, is_read)
		VALUES ($1, $2, $3, $4)
		RETURNING id, timestamp`

	err := r.db.QueryRowContext(ctx, query,
		notification.UserID,
		notification.Title,
		notification.Message,
		notification.IsRead,
	).Scan(&notification.ID, &notification.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Notification, error) {
	query := `SELECT id, user_id, title, message, is_read, timestamp
		FROM notifications
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications by user ID: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over notifications: %w", err)
	}
	return notifications, nil
}

// MarkAllRead flips every unread notification of the user in one statement.
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected after marking notifications read: %w", err)
	}
	return rowsAffected, nil
}
