package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	List(ctx context.Context, userID string) ([]Response, error)
	Create(ctx context.Context, userID string, name string) (*SecretResponse, error)
	// Validate resolves a presented key to its active record.
	Validate(ctx context.Context, token string) (*APIKey, error)
	// Revoke is first-wins: repeating it, or naming a key owned by someone
	// else, succeeds without effect.
	Revoke(ctx context.Context, keyID string, ownerUserID string) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByHash(ctx context.Context, db *gorm.DB, hash string) (*APIKey, error)
	Revoke(ctx context.Context, db *gorm.DB, keyID, userID string, at time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, userID string) ([]APIKey, error)
}

type Response struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeyPrefix string     `json:"key_prefix"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type SecretResponse struct {
	APIKey    string `json:"apiKey"`
	ID        string `json:"id"`
	KeyPrefix string `json:"keyPrefix"`
}

var (
	ErrMissingAPIKey = errors.New("missing_api_key")
	ErrInvalidAPIKey = errors.New("invalid_api_key")
	ErrInvalidUser   = errors.New("invalid_request")
	ErrInvalidKeyID  = errors.New("invalid_key_id")
)
