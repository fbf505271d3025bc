package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/changefeed"
	checkoutdomain "github.com/smallbiznis/kograph/internal/checkout/domain"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	obsmetrics "github.com/smallbiznis/kograph/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Repo       checkoutdomain.Repository
	AuditSvc   auditdomain.Service
	Clock      clock.Clock
	Policy     *config.PolicyHolder `optional:"true"`
	ObsMetrics *obsmetrics.Metrics  `optional:"true"`
	Notifier   changefeed.Notifier  `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	donationURL string
	repo        checkoutdomain.Repository
	auditSvc    auditdomain.Service
	clock       clock.Clock
	policy      *config.PolicyHolder
	metrics     *obsmetrics.Metrics
	notifier    changefeed.Notifier
}

func NewService(p Params) checkoutdomain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = changefeed.Noop{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("checkout.service"),
		donationURL: strings.TrimSpace(p.Cfg.Saweria.DonationURL),
		repo:        p.Repo,
		auditSvc:    p.AuditSvc,
		clock:       p.Clock,
		policy:      p.Policy,
		metrics:     p.ObsMetrics,
		notifier:    notifier,
	}
}

func (s *Service) Create(ctx context.Context, req checkoutdomain.CreateRequest) (*checkoutdomain.CreateResponse, error) {
	if s.donationURL == "" {
		return nil, checkoutdomain.ErrMissingDonationURL
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, checkoutdomain.ErrInvalidUser
	}
	if req.Kind != checkoutdomain.KindWeb && req.Kind != checkoutdomain.KindAPI {
		return nil, checkoutdomain.ErrInvalidKind
	}

	policy := s.policy.Get().Checkout
	if req.Amount < policy.MinAmount {
		return nil, checkoutdomain.ErrInvalidAmount
	}

	checkout := &checkoutdomain.Checkout{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        req.Kind,
		Amount:      req.Amount,
		Description: description(req.Description, policy.DescriptionMaxLength),
		Status:      checkoutdomain.StatusPending,
		CreatedAt:   s.clock.Now(),
	}

	action := auditdomain.ActionCheckoutCreated
	details := auditdomain.CheckoutCreatedDetails{
		CheckoutID: checkout.ID,
		Amount:     checkout.Amount,
		Kind:       string(checkout.Kind),
	}
	if req.Kind == checkoutdomain.KindAPI {
		apiKeyID := strings.TrimSpace(req.APIKeyID)
		if apiKeyID != "" {
			checkout.APIKeyID = &apiKeyID
		}
		action = auditdomain.ActionCheckoutCreatedAPI
		details.APIKeyID = apiKeyID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, checkout); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Event{
			Action:        action,
			ActorUserID:   userID,
			SubjectUserID: userID,
			Details:       details,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCheckoutCreated(ctx, string(checkout.Kind))
	s.notifier.Notify(ctx, changefeed.Change{
		Table:  changefeed.TableCheckouts,
		Op:     changefeed.OpInsert,
		ID:     checkout.ID,
		UserID: checkout.UserID,
		At:     checkout.CreatedAt,
	})

	s.log.Info("checkout created",
		zap.String("checkout_id", checkout.ID),
		zap.String("kind", string(checkout.Kind)),
		zap.Int64("amount", checkout.Amount),
	)

	return &checkoutdomain.CreateResponse{
		CheckoutID:  checkout.ID,
		DonationURL: s.donationURL,
		Message:     checkoutdomain.Message(checkout.ID),
	}, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*checkoutdomain.Checkout, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, checkoutdomain.ErrNotFound
	}
	checkout, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if checkout == nil {
		return nil, checkoutdomain.ErrNotFound
	}
	return checkout, nil
}

func (s *Service) MarkPaidTx(ctx context.Context, tx *gorm.DB, id string, eventID string) (bool, error) {
	rows, err := s.repo.MarkPaid(ctx, tx, id, eventID, s.clock.Now())
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Service) ListRecent(ctx context.Context, userID string, limit int) ([]checkoutdomain.Checkout, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, checkoutdomain.ErrInvalidUser
	}
	if limit <= 0 {
		limit = s.policy.Get().Lists.Overview
	}
	return s.repo.ListByUser(ctx, s.db, userID, limit)
}

// description trims and caps the free text; empty becomes NULL.
func description(raw string, max int) *string {
	value := strings.TrimSpace(raw)
	if max > 0 && utf8.RuneCountInString(value) > max {
		value = string([]rune(value)[:max])
	}
	if value == "" {
		return nil
	}
	return &value
}
