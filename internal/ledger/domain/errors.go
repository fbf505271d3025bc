package domain

import "errors"

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidEntryType = errors.New("invalid_entry_type")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidMeta      = errors.New("invalid_meta")
)
