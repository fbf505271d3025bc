package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
	// ListAmounts returns the stored amounts of a user as text, exactly as the
	// driver hands them back.
	ListAmounts(ctx context.Context, db *gorm.DB, userID string) ([]string, error)
	ListAmountsByUser(ctx context.Context, db *gorm.DB, userIDs []string) (map[string][]string, error)
	List(ctx context.Context, db *gorm.DB, userID string, limit int) ([]LedgerEntry, error)
}
