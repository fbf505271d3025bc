package repository

import (
	"context"
	"database/sql"

	ledgerdomain "github.com/smallbiznis/kograph/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *ledgerdomain.LedgerEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (id, user_id, checkout_id, entry_type, amount, meta, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.CheckoutID,
		entry.EntryType,
		entry.Amount,
		entry.Meta,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListAmounts(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	rows, err := db.WithContext(ctx).Raw(
		`SELECT amount FROM ledger_entries WHERE user_id = ?`,
		userID,
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var amounts []string
	for rows.Next() {
		var amount sql.NullString
		if err := rows.Scan(&amount); err != nil {
			return nil, err
		}
		amounts = append(amounts, amount.String)
	}
	return amounts, rows.Err()
}

func (r *repo) ListAmountsByUser(ctx context.Context, db *gorm.DB, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := db.WithContext(ctx).Raw(
		`SELECT user_id, amount FROM ledger_entries WHERE user_id IN ?`,
		userIDs,
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID string
			amount sql.NullString
		)
		if err := rows.Scan(&userID, &amount); err != nil {
			return nil, err
		}
		out[userID] = append(out[userID], amount.String)
	}
	return out, rows.Err()
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userID string, limit int) ([]ledgerdomain.LedgerEntry, error) {
	var entries []ledgerdomain.LedgerEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, checkout_id, entry_type, amount, meta, created_at
		 FROM ledger_entries WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID,
		limit,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
