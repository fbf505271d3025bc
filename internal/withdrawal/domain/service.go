package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	// Request reserves the amount against the caller's balance.
	Request(ctx context.Context, in RequestInput) (*Withdrawal, error)
	UpdateStatus(ctx context.Context, in UpdateStatusInput) error
	ListRecent(ctx context.Context, userID string, limit int) ([]Withdrawal, error)
	ListForAdmin(ctx context.Context, status string, limit int) ([]Withdrawal, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, w *Withdrawal) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Withdrawal, error)
	// Transition moves a row from one status to another and returns the rows
	// affected.
	Transition(ctx context.Context, db *gorm.DB, id string, from, to Status, at time.Time) (int64, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id string, at time.Time) (int64, error)
	LockUser(ctx context.Context, db *gorm.DB, userID string) error
	ListByUser(ctx context.Context, db *gorm.DB, userID string, limit int) ([]Withdrawal, error)
	List(ctx context.Context, db *gorm.DB, status Status, limit int) ([]Withdrawal, error)
}

var (
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrAmountStep          = errors.New("amount_must_be_multiple_of_1000")
	ErrWithdrawalBlocked   = errors.New("withdrawal_blocked")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrMustBeApproved      = errors.New("must_be_approved")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidUser         = errors.New("invalid_request")
	ErrInProgress          = errors.New("withdrawal_in_progress")
)
