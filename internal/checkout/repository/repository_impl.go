package repository

import (
	"context"
	"time"

	checkoutdomain "github.com/smallbiznis/kograph/internal/checkout/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() checkoutdomain.Repository {
	return &repo{}
}

const selectColumns = `id, user_id, api_key_id, kind, amount, description, status, external_event_id, created_at, paid_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, checkout *checkoutdomain.Checkout) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO checkouts (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		checkout.ID,
		checkout.UserID,
		checkout.APIKeyID,
		checkout.Kind,
		checkout.Amount,
		checkout.Description,
		checkout.Status,
		checkout.ExternalEventID,
		checkout.CreatedAt,
		checkout.PaidAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*checkoutdomain.Checkout, error) {
	var checkout checkoutdomain.Checkout
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM checkouts WHERE id = ? LIMIT 1`,
		id,
	).Scan(&checkout).Error
	if err != nil {
		return nil, err
	}
	if checkout.ID == "" {
		return nil, nil
	}
	return &checkout, nil
}

// MarkPaid only matches a pending row; zero rows means the transition already
// happened.
func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id string, eventID string, paidAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE checkouts
		 SET status = ?, paid_at = ?, external_event_id = ?
		 WHERE id = ? AND status = ?`,
		checkoutdomain.StatusPaid,
		paidAt,
		eventID,
		id,
		checkoutdomain.StatusPending,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]checkoutdomain.Checkout, error) {
	var checkouts []checkoutdomain.Checkout
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM checkouts
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID,
		limit,
	).Scan(&checkouts).Error
	if err != nil {
		return nil, err
	}
	return checkouts, nil
}
