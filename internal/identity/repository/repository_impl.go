package repository

import (
	"context"

	identitydomain "github.com/smallbiznis/kograph/internal/identity/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() identitydomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*identitydomain.Profile, error) {
	var profile identitydomain.Profile
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, role, is_withdraw_blocked, created_at
		 FROM profiles WHERE id = ? LIMIT 1`,
		id,
	).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == "" {
		return nil, nil
	}
	return &profile, nil
}

// UpsertWithdrawBlocked only touches the block flag of an existing row.
func (r *repo) UpsertWithdrawBlocked(ctx context.Context, db *gorm.DB, profile *identitydomain.Profile) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_withdraw_blocked"}),
	}).Create(profile).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit int) ([]identitydomain.Profile, error) {
	var profiles []identitydomain.Profile
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, role, is_withdraw_blocked, created_at
		 FROM profiles ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	).Scan(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
