package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	UserID    string    `gorm:"column:user_id;type:text;not null;index" json:"user_id"`
	Title     string    `gorm:"type:text;not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

type Service interface {
	Create(ctx context.Context, userID, title, message string) (*Notification, error)
	// CreateTx writes inside the caller's transaction; the caller announces
	// the change after commit.
	CreateTx(ctx context.Context, tx *gorm.DB, userID, title, message string) (*Notification, error)
	Announce(ctx context.Context, n *Notification)
	ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]Notification, error)
}

var (
	ErrInvalidUser  = errors.New("invalid_request")
	ErrEmptyMessage = errors.New("message_required")
)
