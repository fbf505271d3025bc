package service

import (
	"context"
	"strings"

	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	settingsdomain "github.com/smallbiznis/kograph/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     settingsdomain.Repository
	AuditSvc auditdomain.Service
	Clock    clock.Clock
	Policy   *config.PolicyHolder `optional:"true"`
	Notifier changefeed.Notifier  `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     settingsdomain.Repository
	auditSvc auditdomain.Service
	clock    clock.Clock
	policy   *config.PolicyHolder
	notifier changefeed.Notifier
}

func NewService(p Params) settingsdomain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = changefeed.Noop{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settings.service"),
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		clock:    p.Clock,
		policy:   p.Policy,
		notifier: notifier,
	}
}

func (s *Service) GetDefaultAmount(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, settingsdomain.ErrInvalidUser
	}
	settings, err := s.repo.Find(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if settings == nil {
		return s.policy.Get().Checkout.DefaultAmount, nil
	}
	return settings.DefaultAmount, nil
}

func (s *Service) SetDefaultAmount(ctx context.Context, userID string, amount int64) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return settingsdomain.ErrInvalidUser
	}
	if amount < s.policy.Get().Checkout.MinAmount {
		return settingsdomain.ErrInvalidAmount
	}

	settings := &settingsdomain.UserSettings{
		UserID:        userID,
		DefaultAmount: amount,
		UpdatedAt:     s.clock.Now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, settings); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Event{
			Action:        auditdomain.ActionSettingsDefaultAmountUpdated,
			ActorUserID:   userID,
			SubjectUserID: userID,
			Details:       auditdomain.DefaultAmountDetails{DefaultAmount: amount},
		})
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, changefeed.Change{
		Table:  changefeed.TableUserSettings,
		Op:     changefeed.OpUpdate,
		ID:     userID,
		UserID: userID,
		At:     settings.UpdatedAt,
	})
	return nil
}
