package domain

import (
	"context"

	"gorm.io/gorm"
)

type Service interface {
	// AppendEntry writes one entry in its own transaction. It does not look at
	// the balance; callers validate first.
	AppendEntry(ctx context.Context, req AppendRequest) (*LedgerEntry, error)
	// AppendEntryTx writes one entry inside the caller's transaction.
	AppendEntryTx(ctx context.Context, tx *gorm.DB, req AppendRequest) (*LedgerEntry, error)
	// ComputeBalance sums every entry of the user. The balance is never
	// stored.
	ComputeBalance(ctx context.Context, userID string) (int64, error)
	ComputeBalanceTx(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
	Balances(ctx context.Context, userIDs []string) (map[string]int64, error)
	ListEntries(ctx context.Context, userID string, limit int) ([]LedgerEntry, error)
}
