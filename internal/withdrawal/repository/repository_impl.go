package repository

import (
	"context"
	"time"

	withdrawaldomain "github.com/smallbiznis/kograph/internal/withdrawal/domain"
	"github.com/smallbiznis/kograph/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() withdrawaldomain.Repository {
	return &repo{}
}

const selectColumns = `id, user_id, amount, status, note, created_at, updated_at, paid_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, w *withdrawaldomain.Withdrawal) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO withdrawals (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID,
		w.UserID,
		w.Amount,
		w.Status,
		w.Note,
		w.CreatedAt,
		w.UpdatedAt,
		w.PaidAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*withdrawaldomain.Withdrawal, error) {
	var w withdrawaldomain.Withdrawal
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM withdrawals WHERE id = ? LIMIT 1`,
		id,
	).Scan(&w).Error
	if err != nil {
		return nil, err
	}
	if w.ID == "" {
		return nil, nil
	}
	return &w, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id string, from, to withdrawaldomain.Status, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE withdrawals SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		at,
		id,
		from,
	)
	return result.RowsAffected, result.Error
}

// MarkPaid only matches an approved row that was never paid.
func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id string, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE withdrawals
		 SET status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND paid_at IS NULL`,
		withdrawaldomain.StatusPaid,
		at,
		at,
		id,
		withdrawaldomain.StatusApproved,
	)
	return result.RowsAffected, result.Error
}

// LockUser takes a transaction scoped advisory lock on PostgreSQL. Other
// dialects rely on the caller's serialization.
func (r *repo) LockUser(ctx context.Context, tx *gorm.DB, userID string) error {
	if !db.IsPostgres(tx) {
		return nil
	}
	return tx.WithContext(ctx).Exec(
		`SELECT pg_advisory_xact_lock(hashtextextended(?, 0))`,
		"withdrawal:"+userID,
	).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]withdrawaldomain.Withdrawal, error) {
	var rows []withdrawaldomain.Withdrawal
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM withdrawals
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status withdrawaldomain.Status, limit int) ([]withdrawaldomain.Withdrawal, error) {
	query := db.WithContext(ctx).Model(&withdrawaldomain.Withdrawal{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []withdrawaldomain.Withdrawal
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
