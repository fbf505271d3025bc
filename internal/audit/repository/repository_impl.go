package repository

import (
	"context"
	"strings"

	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() auditdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *auditdomain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (id, actor_user_id, subject_user_id, action, ip, user_agent, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActorUserID,
		entry.SubjectUserID,
		entry.Action,
		entry.IP,
		entry.UserAgent,
		entry.Details,
		entry.CreatedAt,
	).Error
}

// List returns newest rows first. Snowflake ids grow with time, so the id
// doubles as the page cursor.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&auditdomain.AuditLog{})
	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if filter.Before > 0 {
		stmt = stmt.Where("id < ?", filter.Before)
	}

	var logs []auditdomain.AuditLog
	err := stmt.Order("id DESC").Limit(filter.Limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
