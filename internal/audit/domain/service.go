package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/kograph/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	Record(ctx context.Context, event Event) error
	// RecordTx writes the event inside the caller's transaction so it commits
	// or rolls back together with the transition it describes.
	RecordTx(ctx context.Context, tx *gorm.DB, event Event) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

type ListResponse struct {
	Rows     []AuditLog          `json:"rows"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidDetails   = errors.New("invalid_details")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
