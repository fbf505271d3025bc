package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Verifier turns a bearer token into the identity subject.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type Service interface {
	ResolveUserID(ctx context.Context, token string) (string, error)
	Profile(ctx context.Context, userID string) (*Profile, error)
	ProfileTx(ctx context.Context, tx *gorm.DB, userID string) (*Profile, error)
	SetWithdrawBlocked(ctx context.Context, tx *gorm.DB, userID string, blocked bool) error
	ListProfiles(ctx context.Context, limit int) ([]Profile, error)
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Profile, error)
	UpsertWithdrawBlocked(ctx context.Context, db *gorm.DB, profile *Profile) error
	List(ctx context.Context, db *gorm.DB, limit int) ([]Profile, error)
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidUser  = errors.New("invalid_request")
)
