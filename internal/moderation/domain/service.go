package domain

import (
	"context"
	"errors"
	"time"
)

type Action string

const (
	ActionBlockWithdraw   Action = "block_withdraw"
	ActionUnblockWithdraw Action = "unblock_withdraw"
	ActionWarn            Action = "warn"
)

// WarningTitle is the title of the notification a warned user receives.
const WarningTitle = "Peringatan Admin"

type ActInput struct {
	ActorUserID string
	UserID      string
	Action      string
	Message     string
}

type UserSummary struct {
	ID                string    `json:"id"`
	Email             *string   `json:"email"`
	Role              string    `json:"role"`
	IsWithdrawBlocked bool      `json:"is_withdraw_blocked"`
	CreatedAt         time.Time `json:"created_at"`
	Balance           int64     `json:"balance"`
}

type Service interface {
	Act(ctx context.Context, in ActInput) error
	ListUsers(ctx context.Context) ([]UserSummary, error)
}

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrUnknownAction   = errors.New("unknown_action")
	ErrMessageRequired = errors.New("message_required")
)
