package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResponse, error)
	FindByID(ctx context.Context, id string) (*Checkout, error)
	// MarkPaidTx moves a pending checkout to paid inside tx. It reports false
	// when another delivery already did.
	MarkPaidTx(ctx context.Context, tx *gorm.DB, id string, eventID string) (bool, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]Checkout, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, checkout *Checkout) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Checkout, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id string, eventID string, paidAt time.Time) (int64, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]Checkout, error)
}

var (
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidUser        = errors.New("invalid_request")
	ErrInvalidKind        = errors.New("invalid_kind")
	ErrMissingDonationURL = errors.New("missing_saweria_url")
	ErrNotFound           = errors.New("checkout_not_found")
)
