package repository

import (
	"context"

	notificationdomain "github.com/smallbiznis/kograph/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() notificationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *notificationdomain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (id, user_id, title, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.CreatedAt,
	).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]notificationdomain.Notification, error) {
	var rows []notificationdomain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, title, message, created_at FROM notifications
		 WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
