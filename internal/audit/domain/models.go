package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Action string

const (
	ActionCheckoutCreated              Action = "checkout_created"
	ActionCheckoutCreatedAPI           Action = "checkout_created_api"
	ActionCheckoutPaid                 Action = "checkout_paid"
	ActionWithdrawalRequested          Action = "withdrawal_requested"
	ActionWithdrawalApproved           Action = "withdrawal_approved"
	ActionWithdrawalRejected           Action = "withdrawal_rejected"
	ActionWithdrawalPaid               Action = "withdrawal_paid"
	ActionAPIKeyCreated                Action = "api_key_created"
	ActionAPIKeyRevoked                Action = "api_key_revoked"
	ActionSettingsDefaultAmountUpdated Action = "settings_default_amount_updated"
	ActionUserWithdrawBlocked          Action = "user_withdraw_blocked"
	ActionUserWithdrawUnblocked        Action = "user_withdraw_unblocked"
	ActionUserWarned                   Action = "user_warned"
)

// AuditLog is append-only.
type AuditLog struct {
	ID            int64          `gorm:"primaryKey" json:"id,string"`
	ActorUserID   *string        `gorm:"column:actor_user_id;type:text" json:"actor_user_id"`
	SubjectUserID *string        `gorm:"column:subject_user_id;type:text" json:"subject_user_id"`
	Action        Action         `gorm:"type:text;not null" json:"action"`
	IP            *string        `gorm:"column:ip;type:text" json:"ip"`
	UserAgent     *string        `gorm:"column:user_agent;type:text" json:"user_agent"`
	Details       datatypes.JSON `gorm:"type:jsonb;not null" json:"details"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Event is what callers hand to the recorder.
type Event struct {
	Action        Action
	ActorUserID   string
	SubjectUserID string
	Details       Details
}

type ListFilter struct {
	Action string
	Before int64
	Limit  int
}

type ListRequest struct {
	Action    string
	PageToken string
	PageSize  int
}
