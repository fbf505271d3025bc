package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// NormalizeRole maps anything that is not an explicit admin to RoleUser.
func NormalizeRole(raw string) Role {
	if Role(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Profile is owned by the identity provider; only the role and the
// withdraw-block flag matter here.
type Profile struct {
	ID                string    `gorm:"primaryKey;type:text" json:"id"`
	Email             *string   `gorm:"type:text" json:"email"`
	Role              Role      `gorm:"type:text;not null" json:"role"`
	IsWithdrawBlocked bool      `gorm:"column:is_withdraw_blocked;not null" json:"is_withdraw_blocked"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }
