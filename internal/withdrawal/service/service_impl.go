package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	identitydomain "github.com/smallbiznis/kograph/internal/identity/domain"
	ledgerdomain "github.com/smallbiznis/kograph/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/kograph/internal/observability/metrics"
	"github.com/smallbiznis/kograph/internal/ratelimit"
	withdrawaldomain "github.com/smallbiznis/kograph/internal/withdrawal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        withdrawaldomain.Repository
	LedgerSvc   ledgerdomain.Service
	AuditSvc    auditdomain.Service
	IdentitySvc identitydomain.Service
	Clock       clock.Clock
	Policy      *config.PolicyHolder `optional:"true"`
	Limiter     *ratelimit.Limiter   `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics  `optional:"true"`
	Notifier    changefeed.Notifier  `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        withdrawaldomain.Repository
	ledgerSvc   ledgerdomain.Service
	auditSvc    auditdomain.Service
	identitySvc identitydomain.Service
	clock       clock.Clock
	policy      *config.PolicyHolder
	limiter     *ratelimit.Limiter
	metrics     *obsmetrics.Metrics
	notifier    changefeed.Notifier
}

func NewService(p Params) withdrawaldomain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = changefeed.Noop{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("withdrawal.service"),
		repo:        p.Repo,
		ledgerSvc:   p.LedgerSvc,
		auditSvc:    p.AuditSvc,
		identitySvc: p.IdentitySvc,
		clock:       p.Clock,
		policy:      p.Policy,
		limiter:     p.Limiter,
		metrics:     p.ObsMetrics,
		notifier:    notifier,
	}
}

func (s *Service) Request(ctx context.Context, in withdrawaldomain.RequestInput) (*withdrawaldomain.Withdrawal, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, withdrawaldomain.ErrInvalidUser
	}

	policy := s.policy.Get().Withdrawal
	if in.Amount <= 0 {
		return nil, withdrawaldomain.ErrInvalidAmount
	}
	if in.Amount%policy.Step != 0 {
		return nil, withdrawaldomain.ErrAmountStep
	}

	profile, err := s.identitySvc.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.IsWithdrawBlocked {
		return nil, withdrawaldomain.ErrWithdrawalBlocked
	}

	release, err := s.limiter.LockWithdrawal(ctx, userID)
	if err != nil {
		if errors.Is(err, ratelimit.ErrLockUnavailable) {
			return nil, withdrawaldomain.ErrInProgress
		}
		return nil, err
	}
	defer release()

	now := s.clock.Now()
	w := &withdrawaldomain.Withdrawal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    in.Amount,
		Status:    withdrawaldomain.StatusRequested,
		Note:      note(in.Note, policy.NoteMaxLength),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var entry *ledgerdomain.LedgerEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.LockUser(ctx, tx, userID); err != nil {
			return err
		}

		balance, err := s.ledgerSvc.ComputeBalanceTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if balance < w.Amount {
			return withdrawaldomain.ErrInsufficientBalance
		}

		if err := s.repo.Insert(ctx, tx, w); err != nil {
			return err
		}
		entry, err = s.ledgerSvc.AppendEntryTx(ctx, tx, ledgerdomain.AppendRequest{
			UserID:    userID,
			EntryType: ledgerdomain.EntryTypeWithdrawalRequest,
			Amount:    -w.Amount,
			Meta:      ledgerdomain.WithdrawalMeta{WithdrawalID: w.ID},
		})
		if err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Event{
			Action:        auditdomain.ActionWithdrawalRequested,
			ActorUserID:   userID,
			SubjectUserID: userID,
			Details:       auditdomain.WithdrawalDetails{WithdrawalID: w.ID, Amount: w.Amount},
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, w, changefeed.OpInsert, entry)
	s.log.Info("withdrawal requested",
		zap.String("withdrawal_id", w.ID),
		zap.String("user_id", userID),
		zap.Int64("amount", w.Amount),
	)
	return w, nil
}

func (s *Service) UpdateStatus(ctx context.Context, in withdrawaldomain.UpdateStatusInput) error {
	target, ok := withdrawaldomain.ParseStatus(strings.TrimSpace(in.Status))
	if !ok || target == withdrawaldomain.StatusRequested {
		return withdrawaldomain.ErrInvalidStatus
	}
	id := strings.TrimSpace(in.ID)
	if _, err := uuid.Parse(id); err != nil {
		return withdrawaldomain.ErrNotFound
	}

	var (
		current *withdrawaldomain.Withdrawal
		entries []*ledgerdomain.LedgerEntry
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		current, err = s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return withdrawaldomain.ErrNotFound
		}

		switch target {
		case withdrawaldomain.StatusApproved:
			changed, err = s.approve(ctx, tx, current)
		case withdrawaldomain.StatusRejected:
			changed, entries, err = s.reject(ctx, tx, current)
		case withdrawaldomain.StatusPaid:
			changed, entries, err = s.pay(ctx, tx, current)
		}
		if err != nil || !changed {
			return err
		}

		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Event{
			Action:        transitionAction(target),
			ActorUserID:   strings.TrimSpace(in.ActorUserID),
			SubjectUserID: current.UserID,
			Details:       auditdomain.WithdrawalDetails{WithdrawalID: current.ID, Amount: current.Amount},
		})
	})
	if err != nil {
		return err
	}
	if !changed {
		s.log.Debug("withdrawal already paid", zap.String("withdrawal_id", id))
		return nil
	}

	current.Status = target
	s.afterCommit(ctx, current, changefeed.OpUpdate, entries...)
	s.log.Info("withdrawal status updated",
		zap.String("withdrawal_id", current.ID),
		zap.String("status", string(target)),
		zap.String("actor_user_id", in.ActorUserID),
	)
	return nil
}

func (s *Service) approve(ctx context.Context, tx *gorm.DB, w *withdrawaldomain.Withdrawal) (bool, error) {
	if w.Status != withdrawaldomain.StatusRequested {
		return false, withdrawaldomain.ErrInvalidTransition
	}
	rows, err := s.repo.Transition(ctx, tx, w.ID, withdrawaldomain.StatusRequested, withdrawaldomain.StatusApproved, s.clock.Now())
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, withdrawaldomain.ErrInvalidTransition
	}
	return true, nil
}

// reject releases the reservation made at request time.
func (s *Service) reject(ctx context.Context, tx *gorm.DB, w *withdrawaldomain.Withdrawal) (bool, []*ledgerdomain.LedgerEntry, error) {
	if w.Status != withdrawaldomain.StatusRequested {
		return false, nil, withdrawaldomain.ErrInvalidTransition
	}
	rows, err := s.repo.Transition(ctx, tx, w.ID, withdrawaldomain.StatusRequested, withdrawaldomain.StatusRejected, s.clock.Now())
	if err != nil {
		return false, nil, err
	}
	if rows == 0 {
		return false, nil, withdrawaldomain.ErrInvalidTransition
	}

	entry, err := s.ledgerSvc.AppendEntryTx(ctx, tx, ledgerdomain.AppendRequest{
		UserID:    w.UserID,
		EntryType: ledgerdomain.EntryTypeWithdrawalReversal,
		Amount:    w.Amount,
		Meta:      ledgerdomain.WithdrawalMeta{WithdrawalID: w.ID, Reason: string(withdrawaldomain.StatusRejected)},
	})
	if err != nil {
		return false, nil, err
	}
	return true, []*ledgerdomain.LedgerEntry{entry}, nil
}

// pay swaps the reservation for the realized payout, so the net effect of a
// paid withdrawal stays a single debit of its amount.
func (s *Service) pay(ctx context.Context, tx *gorm.DB, w *withdrawaldomain.Withdrawal) (bool, []*ledgerdomain.LedgerEntry, error) {
	if w.Status == withdrawaldomain.StatusPaid || w.PaidAt != nil {
		return false, nil, nil
	}
	if w.Status != withdrawaldomain.StatusApproved {
		return false, nil, withdrawaldomain.ErrMustBeApproved
	}
	rows, err := s.repo.MarkPaid(ctx, tx, w.ID, s.clock.Now())
	if err != nil {
		return false, nil, err
	}
	if rows == 0 {
		return false, nil, nil
	}

	reversal, err := s.ledgerSvc.AppendEntryTx(ctx, tx, ledgerdomain.AppendRequest{
		UserID:    w.UserID,
		EntryType: ledgerdomain.EntryTypeWithdrawalReversal,
		Amount:    w.Amount,
		Meta:      ledgerdomain.WithdrawalMeta{WithdrawalID: w.ID, Reason: string(withdrawaldomain.StatusPaid)},
	})
	if err != nil {
		return false, nil, err
	}
	payout, err := s.ledgerSvc.AppendEntryTx(ctx, tx, ledgerdomain.AppendRequest{
		UserID:    w.UserID,
		EntryType: ledgerdomain.EntryTypeWithdrawal,
		Amount:    -w.Amount,
		Meta:      ledgerdomain.WithdrawalMeta{WithdrawalID: w.ID},
	})
	if err != nil {
		return false, nil, err
	}
	return true, []*ledgerdomain.LedgerEntry{reversal, payout}, nil
}

func (s *Service) ListRecent(ctx context.Context, userID string, limit int) ([]withdrawaldomain.Withdrawal, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, withdrawaldomain.ErrInvalidUser
	}
	if limit <= 0 {
		limit = s.policy.Get().Lists.Overview
	}
	return s.repo.ListByUser(ctx, s.db, userID, limit)
}

func (s *Service) ListForAdmin(ctx context.Context, status string, limit int) ([]withdrawaldomain.Withdrawal, error) {
	var filter withdrawaldomain.Status
	if raw := strings.TrimSpace(status); raw != "" {
		parsed, ok := withdrawaldomain.ParseStatus(raw)
		if !ok {
			return nil, withdrawaldomain.ErrInvalidStatus
		}
		filter = parsed
	}
	if limit <= 0 {
		limit = s.policy.Get().Lists.AdminWithdrawals
	}
	return s.repo.List(ctx, s.db, filter, limit)
}

func (s *Service) afterCommit(ctx context.Context, w *withdrawaldomain.Withdrawal, op string, entries ...*ledgerdomain.LedgerEntry) {
	s.metrics.RecordWithdrawalTransition(ctx, string(w.Status))
	s.notifier.Notify(ctx, changefeed.Change{
		Table:  changefeed.TableWithdrawals,
		Op:     op,
		ID:     w.ID,
		UserID: w.UserID,
		At:     s.clock.Now(),
	})
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		s.metrics.RecordLedgerEntry(ctx, string(entry.EntryType))
		s.notifier.Notify(ctx, changefeed.Change{
			Table:  changefeed.TableLedgerEntries,
			Op:     changefeed.OpInsert,
			ID:     strconv.FormatInt(entry.ID, 10),
			UserID: entry.UserID,
			At:     entry.CreatedAt,
		})
	}
}

func transitionAction(status withdrawaldomain.Status) auditdomain.Action {
	switch status {
	case withdrawaldomain.StatusApproved:
		return auditdomain.ActionWithdrawalApproved
	case withdrawaldomain.StatusRejected:
		return auditdomain.ActionWithdrawalRejected
	default:
		return auditdomain.ActionWithdrawalPaid
	}
}

func note(raw string, max int) *string {
	value := strings.TrimSpace(raw)
	if max > 0 && utf8.RuneCountInString(value) > max {
		value = string([]rune(value)[:max])
	}
	if value == "" {
		return nil
	}
	return &value
}
