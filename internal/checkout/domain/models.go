package domain

import "time"

type Kind string

const (
	KindWeb Kind = "web"
	KindAPI Kind = "api"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Checkout is a pending payment request. The processor echoes MessagePrefix
// plus the id back in the donation message.
type Checkout struct {
	ID              string     `gorm:"primaryKey;type:text" json:"id"`
	UserID          string     `gorm:"type:text;not null;index" json:"user_id"`
	APIKeyID        *string    `gorm:"column:api_key_id;type:text" json:"api_key_id"`
	Kind            Kind       `gorm:"type:text;not null" json:"kind"`
	Amount          int64      `gorm:"not null" json:"amount"`
	Description     *string    `gorm:"type:text" json:"description"`
	Status          Status     `gorm:"type:text;not null" json:"status"`
	ExternalEventID *string    `gorm:"column:external_event_id;type:text" json:"external_event_id"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	PaidAt          *time.Time `gorm:"column:paid_at" json:"paid_at"`
}

func (Checkout) TableName() string { return "checkouts" }

const MessagePrefix = "KO:"

// Message is the correlation text the payer includes in the donation.
func Message(checkoutID string) string {
	return MessagePrefix + checkoutID
}

type CreateRequest struct {
	UserID      string
	Amount      int64
	Description string
	Kind        Kind
	APIKeyID    string
}

type CreateResponse struct {
	CheckoutID  string `json:"checkoutId"`
	DonationURL string `json:"donationUrl"`
	Message     string `json:"message"`
}
