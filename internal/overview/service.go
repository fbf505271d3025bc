// Package overview assembles the dashboard snapshot of a single user.
package overview

import (
	"context"
	"strings"

	apikeydomain "github.com/smallbiznis/kograph/internal/apikey/domain"
	checkoutdomain "github.com/smallbiznis/kograph/internal/checkout/domain"
	"github.com/smallbiznis/kograph/internal/config"
	ledgerdomain "github.com/smallbiznis/kograph/internal/ledger/domain"
	settingsdomain "github.com/smallbiznis/kograph/internal/settings/domain"
	withdrawaldomain "github.com/smallbiznis/kograph/internal/withdrawal/domain"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

var Module = fx.Module("overview.service",
	fx.Provide(NewService),
)

type Overview struct {
	Balance       int64                         `json:"balance"`
	DefaultAmount int64                         `json:"defaultAmount"`
	APIKeys       []apikeydomain.Response       `json:"apiKeys"`
	Checkouts     []checkoutdomain.Checkout     `json:"checkouts"`
	Withdrawals   []withdrawaldomain.Withdrawal `json:"withdrawals"`
}

type Params struct {
	fx.In

	LedgerSvc     ledgerdomain.Service
	SettingsSvc   settingsdomain.Service
	APIKeySvc     apikeydomain.Service
	CheckoutSvc   checkoutdomain.Service
	WithdrawalSvc withdrawaldomain.Service
	Policy        *config.PolicyHolder `optional:"true"`
}

type Service struct {
	ledgerSvc     ledgerdomain.Service
	settingsSvc   settingsdomain.Service
	apiKeySvc     apikeydomain.Service
	checkoutSvc   checkoutdomain.Service
	withdrawalSvc withdrawaldomain.Service
	policy        *config.PolicyHolder
}

func NewService(p Params) *Service {
	return &Service{
		ledgerSvc:     p.LedgerSvc,
		settingsSvc:   p.SettingsSvc,
		apiKeySvc:     p.APIKeySvc,
		checkoutSvc:   p.CheckoutSvc,
		withdrawalSvc: p.WithdrawalSvc,
		policy:        p.Policy,
	}
}

// Get reads the five parts concurrently; any failure fails the snapshot.
func (s *Service) Get(ctx context.Context, userID string) (*Overview, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ledgerdomain.ErrInvalidUser
	}
	limit := s.policy.Get().Lists.Overview

	out := &Overview{
		APIKeys:     []apikeydomain.Response{},
		Checkouts:   []checkoutdomain.Checkout{},
		Withdrawals: []withdrawaldomain.Withdrawal{},
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		balance, err := s.ledgerSvc.ComputeBalance(gctx, userID)
		out.Balance = balance
		return err
	})
	g.Go(func() error {
		amount, err := s.settingsSvc.GetDefaultAmount(gctx, userID)
		out.DefaultAmount = amount
		return err
	})
	g.Go(func() error {
		keys, err := s.apiKeySvc.List(gctx, userID)
		if len(keys) > 0 {
			out.APIKeys = keys
		}
		return err
	})
	g.Go(func() error {
		rows, err := s.checkoutSvc.ListRecent(gctx, userID, limit)
		if len(rows) > 0 {
			out.Checkouts = rows
		}
		return err
	})
	g.Go(func() error {
		rows, err := s.withdrawalSvc.ListRecent(gctx, userID, limit)
		if len(rows) > 0 {
			out.Withdrawals = rows
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
