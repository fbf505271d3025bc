package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type EntryType string

const (
	// EntryTypeTopup credits the net amount of a paid checkout.
	EntryTypeTopup EntryType = "topup"
	// EntryTypeWithdrawalRequest reserves funds when a withdrawal is requested.
	EntryTypeWithdrawalRequest EntryType = "withdrawal_request"
	// EntryTypeWithdrawal realizes the payout of a paid withdrawal.
	EntryTypeWithdrawal EntryType = "withdrawal"
	// EntryTypeWithdrawalReversal releases a reservation when the withdrawal is
	// rejected or its payout is realized.
	EntryTypeWithdrawalReversal EntryType = "withdrawal_reversal"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeTopup, EntryTypeWithdrawalRequest, EntryTypeWithdrawal, EntryTypeWithdrawalReversal:
		return true
	default:
		return false
	}
}

// Credit reports whether entries of this type carry a positive amount.
func (t EntryType) Credit() bool {
	return t == EntryTypeTopup || t == EntryTypeWithdrawalReversal
}

// LedgerEntry is immutable once written.
type LedgerEntry struct {
	ID         int64          `gorm:"primaryKey" json:"id,string"`
	UserID     string         `gorm:"column:user_id;type:text;not null;index" json:"user_id"`
	CheckoutID *string        `gorm:"column:checkout_id;type:text" json:"checkout_id,omitempty"`
	EntryType  EntryType      `gorm:"column:entry_type;type:text;not null" json:"entry_type"`
	Amount     int64          `gorm:"not null" json:"amount"`
	Meta       datatypes.JSON `gorm:"type:jsonb;not null" json:"meta"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// Meta is the typed payload attached to an entry. Each variant belongs to
// exactly one set of entry types.
type Meta interface {
	accepts(EntryType) bool
}

type TopupMeta struct {
	AmountRaw    string `json:"amount_raw"`
	Cut          string `json:"cut"`
	DonatorName  string `json:"donator_name"`
	DonatorEmail string `json:"donator_email"`
	Message      string `json:"message,omitempty"`
	EventID      string `json:"event_id"`
}

func (TopupMeta) accepts(t EntryType) bool { return t == EntryTypeTopup }

type WithdrawalMeta struct {
	WithdrawalID string `json:"withdrawal_id"`
	Reason       string `json:"reason,omitempty"`
}

func (WithdrawalMeta) accepts(t EntryType) bool {
	return t == EntryTypeWithdrawalRequest || t == EntryTypeWithdrawal || t == EntryTypeWithdrawalReversal
}

// DecodeMeta returns the typed payload of an entry.
func DecodeMeta(entryType EntryType, raw []byte) (Meta, error) {
	switch entryType {
	case EntryTypeTopup:
		var m TopupMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case EntryTypeWithdrawalRequest, EntryTypeWithdrawal, EntryTypeWithdrawalReversal:
		var m WithdrawalMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown entry type %q", entryType)
	}
}

type AppendRequest struct {
	UserID     string
	CheckoutID *string
	EntryType  EntryType
	Amount     int64
	Meta       Meta
}

func MetaAccepts(m Meta, t EntryType) bool {
	return m != nil && m.accepts(t)
}
