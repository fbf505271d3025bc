package domain

import (
	"context"
	"errors"
	"net/http"
)

const (
	ProviderSaweria = "saweria"

	OutcomeCredited  = "credited"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
)

// PaymentEvent is the canonical donation parsed from a verified delivery.
type PaymentEvent struct {
	Provider     string
	EventID      string
	CheckoutID   string
	AmountRaw    string
	Cut          string
	Net          int64
	DonatorName  string
	DonatorEmail string
	Message      string
}

type Result struct {
	CheckoutID string
	Outcome    string
}

type Service interface {
	// HandleWebhook verifies and applies one processor delivery. Replays of an
	// already applied delivery succeed without side effects.
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (*Result, error)
}

var (
	ErrMissingStreamKey    = errors.New("missing_stream_key")
	ErrMissingSignature    = errors.New("missing_signature")
	ErrInvalidSignature    = errors.New("bad_signature")
	ErrInvalidPayload      = errors.New("invalid_payload")
	ErrMissingCheckoutCode = errors.New("missing_checkout_code")
)
