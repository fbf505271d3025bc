package domain

import "time"

type Status string

const (
	StatusRequested Status = "requested"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPaid      Status = "paid"
)

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusRequested, StatusApproved, StatusRejected, StatusPaid:
		return s, true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusPaid
}

type Withdrawal struct {
	ID        string     `gorm:"primaryKey;type:text" json:"id"`
	UserID    string     `gorm:"type:text;not null;index" json:"user_id"`
	Amount    int64      `gorm:"not null" json:"amount"`
	Status    Status     `gorm:"type:text;not null" json:"status"`
	Note      *string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
	PaidAt    *time.Time `gorm:"column:paid_at" json:"paid_at"`
}

func (Withdrawal) TableName() string { return "withdrawals" }

type RequestInput struct {
	UserID string
	Amount int64
	Note   string
}

type UpdateStatusInput struct {
	ActorUserID string
	ID          string
	Status      string
}
