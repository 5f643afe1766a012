package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/goal-guardian/internal/model"
)

// UnreadNotifications returns the account's unread notifications, newest
// first.
func (s *SQLiteStore) UnreadNotifications(
	ctx context.Context,
	accountID string,
) ([]model.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, kind, message, created_at, read_at
		FROM notifications
		WHERE account_id = ? AND read_at IS NULL
		ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}

	notifications := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := r.toModel()
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// MarkNotificationRead stamps read_at. Marking an already read notification
// is a no-op.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = ? WHERE id = ? AND read_at IS NULL",
		encodeTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	var count int
	if err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE id = ?", id); err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}
