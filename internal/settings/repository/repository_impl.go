package repository

import (
	"context"

	settingsdomain "github.com/smallbiznis/kograph/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() settingsdomain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, userID string) (*settingsdomain.UserSettings, error) {
	var settings settingsdomain.UserSettings
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, default_amount, updated_at FROM user_settings WHERE user_id = ? LIMIT 1`,
		userID,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.UserID == "" {
		return nil, nil
	}
	return &settings, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, settings *settingsdomain.UserSettings) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"default_amount", "updated_at"}),
	}).Create(settings).Error
}
