package domain

import "time"

type APIKey struct {
	ID        string     `gorm:"primaryKey;type:text"`
	UserID    string     `gorm:"type:text;not null"`
	Name      string     `gorm:"type:text;not null"`
	KeyPrefix string     `gorm:"type:text;not null"`
	KeyHash   string     `gorm:"type:text;not null;uniqueIndex"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"not null"`
}

func (APIKey) TableName() string { return "api_keys" }

func (k APIKey) Revoked() bool { return k.RevokedAt != nil }
