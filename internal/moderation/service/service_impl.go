package service

import (
	"context"
	"strings"

	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	identitydomain "github.com/smallbiznis/kograph/internal/identity/domain"
	ledgerdomain "github.com/smallbiznis/kograph/internal/ledger/domain"
	moderationdomain "github.com/smallbiznis/kograph/internal/moderation/domain"
	notificationdomain "github.com/smallbiznis/kograph/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	IdentitySvc     identitydomain.Service
	LedgerSvc       ledgerdomain.Service
	NotificationSvc notificationdomain.Service
	AuditSvc        auditdomain.Service
	Clock           clock.Clock
	Policy          *config.PolicyHolder `optional:"true"`
	Notifier        changefeed.Notifier  `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	identitySvc     identitydomain.Service
	ledgerSvc       ledgerdomain.Service
	notificationSvc notificationdomain.Service
	auditSvc        auditdomain.Service
	clock           clock.Clock
	policy          *config.PolicyHolder
	notifier        changefeed.Notifier
}

func NewService(p Params) moderationdomain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = changefeed.Noop{}
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("moderation.service"),
		identitySvc:     p.IdentitySvc,
		ledgerSvc:       p.LedgerSvc,
		notificationSvc: p.NotificationSvc,
		auditSvc:        p.AuditSvc,
		clock:           p.Clock,
		policy:          p.Policy,
		notifier:        notifier,
	}
}

func (s *Service) Act(ctx context.Context, in moderationdomain.ActInput) error {
	userID := strings.TrimSpace(in.UserID)
	action := moderationdomain.Action(strings.TrimSpace(in.Action))
	if userID == "" || action == "" {
		return moderationdomain.ErrInvalidRequest
	}
	message := strings.TrimSpace(in.Message)

	switch action {
	case moderationdomain.ActionBlockWithdraw:
		return s.setWithdrawBlocked(ctx, in.ActorUserID, userID, true, message)
	case moderationdomain.ActionUnblockWithdraw:
		return s.setWithdrawBlocked(ctx, in.ActorUserID, userID, false, message)
	case moderationdomain.ActionWarn:
		if message == "" {
			return moderationdomain.ErrMessageRequired
		}
		return s.warn(ctx, in.ActorUserID, userID, message)
	default:
		return moderationdomain.ErrUnknownAction
	}
}

func (s *Service) setWithdrawBlocked(ctx context.Context, actorID, userID string, blocked bool, reason string) error {
	action := auditdomain.ActionUserWithdrawUnblocked
	if blocked {
		action = auditdomain.ActionUserWithdrawBlocked
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.identitySvc.SetWithdrawBlocked(ctx, tx, userID, blocked); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Event{
			Action:        action,
			ActorUserID:   actorID,
			SubjectUserID: userID,
			Details:       auditdomain.WithdrawBlockDetails{Reason: reason},
		})
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, changefeed.Change{
		Table:  changefeed.TableProfiles,
		Op:     changefeed.OpUpdate,
		ID:     userID,
		UserID: userID,
		At:     s.clock.Now(),
	})
	s.log.Info("withdraw block changed",
		zap.String("user_id", userID),
		zap.Bool("blocked", blocked),
		zap.String("actor_user_id", actorID),
	)
	return nil
}

func (s *Service) warn(ctx context.Context, actorID, userID, message string) error {
	var n *notificationdomain.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = s.notificationSvc.CreateTx(ctx, tx, userID, moderationdomain.WarningTitle, message)
		if err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Event{
			Action:        auditdomain.ActionUserWarned,
			ActorUserID:   actorID,
			SubjectUserID: userID,
			Details:       auditdomain.WarningDetails{Message: message},
		})
	})
	if err != nil {
		return err
	}

	s.notificationSvc.Announce(ctx, n)
	s.log.Info("user warned", zap.String("user_id", userID), zap.String("actor_user_id", actorID))
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]moderationdomain.UserSummary, error) {
	profiles, err := s.identitySvc.ListProfiles(ctx, s.policy.Get().Lists.AdminUsers)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	balances, err := s.ledgerSvc.Balances(ctx, ids)
	if err != nil {
		return nil, err
	}

	users := make([]moderationdomain.UserSummary, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, moderationdomain.UserSummary{
			ID:                p.ID,
			Email:             p.Email,
			Role:              string(p.Role),
			IsWithdrawBlocked: p.IsWithdrawBlocked,
			CreatedAt:         p.CreatedAt,
			Balance:           balances[p.ID],
		})
	}
	return users, nil
}
