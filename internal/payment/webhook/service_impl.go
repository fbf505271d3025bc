package webhook

import (
	"context"
	"net/http"
	"strconv"

	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/audit/masking"
	"github.com/smallbiznis/kograph/internal/changefeed"
	checkoutdomain "github.com/smallbiznis/kograph/internal/checkout/domain"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	ledgerdomain "github.com/smallbiznis/kograph/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/kograph/internal/observability/metrics"
	"github.com/smallbiznis/kograph/internal/payment/adapters/saweria"
	paymentdomain "github.com/smallbiznis/kograph/internal/payment/domain"
	"github.com/smallbiznis/kograph/pkg/db"
	"github.com/smallbiznis/kograph/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	CheckoutSvc checkoutdomain.Service
	LedgerSvc   ledgerdomain.Service
	AuditSvc    auditdomain.Service
	Clock       clock.Clock
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
	Notifier    changefeed.Notifier `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	streamKey   string
	checkoutSvc checkoutdomain.Service
	ledgerSvc   ledgerdomain.Service
	auditSvc    auditdomain.Service
	clock       clock.Clock
	metrics     *obsmetrics.Metrics
	notifier    changefeed.Notifier
}

func NewService(p Params) paymentdomain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = changefeed.Noop{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.webhook"),
		streamKey:   p.Cfg.Saweria.StreamKey,
		checkoutSvc: p.CheckoutSvc,
		ledgerSvc:   p.LedgerSvc,
		auditSvc:    p.AuditSvc,
		clock:       p.Clock,
		metrics:     p.ObsMetrics,
		notifier:    notifier,
	}
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.Result, error) {
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	log := s.log.With(zap.String("correlation_id", cid), zap.String("provider", paymentdomain.ProviderSaweria))

	result, err := s.handle(ctx, log, payload, headers)
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, paymentdomain.ProviderSaweria, paymentdomain.OutcomeRejected)
		log.Warn("webhook rejected", zap.Error(err))
		return nil, err
	}
	s.metrics.RecordWebhookEvent(ctx, paymentdomain.ProviderSaweria, result.Outcome)
	log.Info("webhook processed",
		zap.String("checkout_id", result.CheckoutID),
		zap.String("outcome", result.Outcome),
	)
	return result, nil
}

func (s *Service) handle(ctx context.Context, log *zap.Logger, payload []byte, headers http.Header) (*paymentdomain.Result, error) {
	adapter, err := saweria.New(s.streamKey)
	if err != nil {
		return nil, err
	}
	signature, err := saweria.SignatureFrom(headers)
	if err != nil {
		return nil, err
	}
	body, err := adapter.Decode(payload)
	if err != nil {
		return nil, err
	}
	if err := adapter.Verify(body, signature); err != nil {
		return nil, err
	}
	event, err := adapter.Parse(body)
	if err != nil {
		return nil, err
	}
	log.Debug("webhook verified",
		zap.String("event_id", event.EventID),
		zap.String("donator_email", masking.MaskEmail(event.DonatorEmail)),
	)

	checkout, err := s.checkoutSvc.FindByID(ctx, event.CheckoutID)
	if err != nil {
		return nil, err
	}
	duplicate := &paymentdomain.Result{CheckoutID: checkout.ID, Outcome: paymentdomain.OutcomeDuplicate}
	if checkout.Status == checkoutdomain.StatusPaid {
		return duplicate, nil
	}

	var entry *ledgerdomain.LedgerEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.checkoutSvc.MarkPaidTx(ctx, tx, checkout.ID, event.EventID)
		if err != nil {
			return err
		}
		if !updated {
			return nil
		}

		checkoutID := checkout.ID
		entry, err = s.ledgerSvc.AppendEntryTx(ctx, tx, ledgerdomain.AppendRequest{
			UserID:     checkout.UserID,
			CheckoutID: &checkoutID,
			EntryType:  ledgerdomain.EntryTypeTopup,
			Amount:     event.Net,
			Meta: ledgerdomain.TopupMeta{
				AmountRaw:    event.AmountRaw,
				Cut:          event.Cut,
				DonatorName:  event.DonatorName,
				DonatorEmail: event.DonatorEmail,
				Message:      event.Message,
				EventID:      event.EventID,
			},
		})
		if err != nil {
			return err
		}

		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Event{
			Action:        auditdomain.ActionCheckoutPaid,
			ActorUserID:   checkout.UserID,
			SubjectUserID: checkout.UserID,
			Details: auditdomain.CheckoutPaidDetails{
				CheckoutID: checkout.ID,
				EventID:    event.EventID,
				AmountRaw:  event.AmountRaw,
				Net:        event.Net,
			},
		})
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			log.Info("topup already recorded", zap.String("checkout_id", checkout.ID))
			return duplicate, nil
		}
		return nil, err
	}
	if entry == nil {
		return duplicate, nil
	}

	now := s.clock.Now()
	s.metrics.RecordLedgerEntry(ctx, string(entry.EntryType))
	s.notifier.Notify(ctx, changefeed.Change{
		Table:  changefeed.TableCheckouts,
		Op:     changefeed.OpUpdate,
		ID:     checkout.ID,
		UserID: checkout.UserID,
		At:     now,
	})
	s.notifier.Notify(ctx, changefeed.Change{
		Table:  changefeed.TableLedgerEntries,
		Op:     changefeed.OpInsert,
		ID:     strconv.FormatInt(entry.ID, 10),
		UserID: checkout.UserID,
		At:     entry.CreatedAt,
	})

	return &paymentdomain.Result{CheckoutID: checkout.ID, Outcome: paymentdomain.OutcomeCredited}, nil
}
