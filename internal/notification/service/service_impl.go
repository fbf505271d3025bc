package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	notificationdomain "github.com/smallbiznis/kograph/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     notificationdomain.Repository
	Clock    clock.Clock
	Policy   *config.PolicyHolder `optional:"true"`
	Notifier changefeed.Notifier  `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     notificationdomain.Repository
	clock    clock.Clock
	policy   *config.PolicyHolder
	notifier changefeed.Notifier
}

func NewService(p Params) notificationdomain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = changefeed.Noop{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("notification.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    p.Clock,
		policy:   p.Policy,
		notifier: notifier,
	}
}

func (s *Service) Create(ctx context.Context, userID, title, message string) (*notificationdomain.Notification, error) {
	n, err := s.CreateTx(ctx, s.db, userID, title, message)
	if err != nil {
		return nil, err
	}
	s.Announce(ctx, n)
	return n, nil
}

func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, userID, title, message string) (*notificationdomain.Notification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, notificationdomain.ErrInvalidUser
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, notificationdomain.ErrEmptyMessage
	}

	n := &notificationdomain.Notification{
		ID:        s.genID.Generate().Int64(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Message:   message,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Announce publishes a committed notification to the change feed.
func (s *Service) Announce(ctx context.Context, n *notificationdomain.Notification) {
	if n == nil {
		return
	}
	s.notifier.Notify(ctx, changefeed.Change{
		Table:  changefeed.TableNotifications,
		Op:     changefeed.OpInsert,
		ID:     strconv.FormatInt(n.ID, 10),
		UserID: n.UserID,
		At:     n.CreatedAt,
	})
}

func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]notificationdomain.Notification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, notificationdomain.ErrInvalidUser
	}
	if limit <= 0 {
		limit = s.policy.Get().Lists.Overview
	}
	return s.repo.ListByUser(ctx, s.db, userID, limit)
}
