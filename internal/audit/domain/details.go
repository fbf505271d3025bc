package domain

import (
	"encoding/json"
	"fmt"
)

// Details is the typed payload of an audit event. Each variant is valid for a
// fixed set of actions.
type Details interface {
	accepts(Action) bool
}

func DetailsAccept(d Details, a Action) bool {
	return d != nil && d.accepts(a)
}

type CheckoutCreatedDetails struct {
	CheckoutID string `json:"checkout_id"`
	Amount     int64  `json:"amount"`
	Kind       string `json:"kind"`
	APIKeyID   string `json:"api_key_id,omitempty"`
}

func (CheckoutCreatedDetails) accepts(a Action) bool {
	return a == ActionCheckoutCreated || a == ActionCheckoutCreatedAPI
}

type CheckoutPaidDetails struct {
	CheckoutID string `json:"checkout_id"`
	EventID    string `json:"event_id"`
	AmountRaw  string `json:"amount_raw"`
	Net        int64  `json:"net"`
}

func (CheckoutPaidDetails) accepts(a Action) bool { return a == ActionCheckoutPaid }

type WithdrawalDetails struct {
	WithdrawalID string `json:"withdrawal_id"`
	Amount       int64  `json:"amount"`
}

func (WithdrawalDetails) accepts(a Action) bool {
	switch a {
	case ActionWithdrawalRequested, ActionWithdrawalApproved, ActionWithdrawalRejected, ActionWithdrawalPaid:
		return true
	}
	return false
}

type APIKeyCreatedDetails struct {
	APIKeyID  string `json:"api_key_id"`
	Name      string `json:"name"`
	KeyPrefix string `json:"key_prefix"`
}

func (APIKeyCreatedDetails) accepts(a Action) bool { return a == ActionAPIKeyCreated }

type APIKeyRevokedDetails struct {
	APIKeyID string `json:"api_key_id"`
}

func (APIKeyRevokedDetails) accepts(a Action) bool { return a == ActionAPIKeyRevoked }

type DefaultAmountDetails struct {
	DefaultAmount int64 `json:"default_amount"`
}

func (DefaultAmountDetails) accepts(a Action) bool { return a == ActionSettingsDefaultAmountUpdated }

type WithdrawBlockDetails struct {
	Reason string `json:"reason,omitempty"`
}

func (WithdrawBlockDetails) accepts(a Action) bool {
	return a == ActionUserWithdrawBlocked || a == ActionUserWithdrawUnblocked
}

type WarningDetails struct {
	Message string `json:"message"`
}

func (WarningDetails) accepts(a Action) bool { return a == ActionUserWarned }

// DecodeDetails returns the typed payload stored for an action.
func DecodeDetails(action Action, raw []byte) (Details, error) {
	var target Details
	switch action {
	case ActionCheckoutCreated, ActionCheckoutCreatedAPI:
		target = &CheckoutCreatedDetails{}
	case ActionCheckoutPaid:
		target = &CheckoutPaidDetails{}
	case ActionWithdrawalRequested, ActionWithdrawalApproved, ActionWithdrawalRejected, ActionWithdrawalPaid:
		target = &WithdrawalDetails{}
	case ActionAPIKeyCreated:
		target = &APIKeyCreatedDetails{}
	case ActionAPIKeyRevoked:
		target = &APIKeyRevokedDetails{}
	case ActionSettingsDefaultAmountUpdated:
		target = &DefaultAmountDetails{}
	case ActionUserWithdrawBlocked, ActionUserWithdrawUnblocked:
		target = &WithdrawBlockDetails{}
	case ActionUserWarned:
		target = &WarningDetails{}
	default:
		return nil, fmt.Errorf("unknown audit action %q", action)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	return target, nil
}
