package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	ledgerdomain "github.com/smallbiznis/kograph/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/kograph/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       ledgerdomain.Repository
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Notifier   changefeed.Notifier `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     ledgerdomain.Repository
	clock    clock.Clock
	metrics  *obsmetrics.Metrics
	notifier changefeed.Notifier
}

func NewService(p Params) ledgerdomain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = changefeed.Noop{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ledger.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    p.Clock,
		metrics:  p.ObsMetrics,
		notifier: notifier,
	}
}

func (s *Service) AppendEntry(ctx context.Context, req ledgerdomain.AppendRequest) (*ledgerdomain.LedgerEntry, error) {
	var entry *ledgerdomain.LedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.AppendEntryTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLedgerEntry(ctx, string(entry.EntryType))
	s.notifier.Notify(ctx, changefeed.Change{
		Table:  changefeed.TableLedgerEntries,
		Op:     changefeed.OpInsert,
		ID:     strconv.FormatInt(entry.ID, 10),
		UserID: entry.UserID,
		At:     entry.CreatedAt,
	})
	return entry, nil
}

// AppendEntryTx leaves metrics and change notification to the caller, which
// knows when the surrounding transaction commits.
func (s *Service) AppendEntryTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.AppendRequest) (*ledgerdomain.LedgerEntry, error) {
	entry, err := s.buildEntry(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) buildEntry(req ledgerdomain.AppendRequest) (*ledgerdomain.LedgerEntry, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, ledgerdomain.ErrInvalidUser
	}
	if !req.EntryType.Valid() {
		return nil, ledgerdomain.ErrInvalidEntryType
	}
	if (req.EntryType.Credit() && req.Amount < 0) || (!req.EntryType.Credit() && req.Amount > 0) {
		return nil, ledgerdomain.ErrInvalidAmount
	}

	meta := datatypes.JSON("{}")
	if req.Meta != nil {
		if !ledgerdomain.MetaAccepts(req.Meta, req.EntryType) {
			return nil, ledgerdomain.ErrInvalidMeta
		}
		raw, err := json.Marshal(req.Meta)
		if err != nil {
			return nil, err
		}
		meta = datatypes.JSON(raw)
	}

	return &ledgerdomain.LedgerEntry{
		ID:         s.genID.Generate().Int64(),
		UserID:     userID,
		CheckoutID: req.CheckoutID,
		EntryType:  req.EntryType,
		Amount:     req.Amount,
		Meta:       meta,
		CreatedAt:  s.clock.Now(),
	}, nil
}

func (s *Service) ComputeBalance(ctx context.Context, userID string) (int64, error) {
	return s.ComputeBalanceTx(ctx, s.db, userID)
}

func (s *Service) ComputeBalanceTx(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ledgerdomain.ErrInvalidUser
	}
	amounts, err := s.repo.ListAmounts(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	return ledgerdomain.SumAmounts(amounts), nil
}

func (s *Service) Balances(ctx context.Context, userIDs []string) (map[string]int64, error) {
	byUser, err := s.repo.ListAmountsByUser(ctx, s.db, userIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(userIDs))
	for _, id := range userIDs {
		out[id] = ledgerdomain.SumAmounts(byUser[id])
	}
	return out, nil
}

func (s *Service) ListEntries(ctx context.Context, userID string, limit int) ([]ledgerdomain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, s.db, strings.TrimSpace(userID), limit)
}
