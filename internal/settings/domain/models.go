package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type UserSettings struct {
	UserID        string    `gorm:"primaryKey;column:user_id;type:text" json:"user_id"`
	DefaultAmount int64     `gorm:"column:default_amount;not null" json:"default_amount"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (UserSettings) TableName() string { return "user_settings" }

type Service interface {
	// GetDefaultAmount falls back to the policy default when the user never
	// saved one.
	GetDefaultAmount(ctx context.Context, userID string) (int64, error)
	SetDefaultAmount(ctx context.Context, userID string, amount int64) error
}

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, userID string) (*UserSettings, error)
	Upsert(ctx context.Context, db *gorm.DB, settings *UserSettings) error
}

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidUser   = errors.New("invalid_request")
)
