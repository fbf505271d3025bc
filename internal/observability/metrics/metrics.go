package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the domain counters. A nil *Metrics is valid and records
// nothing, so services can take it as an optional dependency.
type Metrics struct {
	ledgerEntries         metric.Int64Counter
	checkouts             metric.Int64Counter
	webhookEvents         metric.Int64Counter
	withdrawalTransitions metric.Int64Counter
	rateLimitDenied       metric.Int64Counter
}

// NewProvider installs the global meter provider. When export is disabled a
// noop provider is used.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}
	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "kograph"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.ledgerEntries, err = meter.Int64Counter("kograph_ledger_entries_total"); err != nil {
		return nil, err
	}
	if m.checkouts, err = meter.Int64Counter("kograph_checkouts_total"); err != nil {
		return nil, err
	}
	if m.webhookEvents, err = meter.Int64Counter("kograph_webhook_events_total"); err != nil {
		return nil, err
	}
	if m.withdrawalTransitions, err = meter.Int64Counter("kograph_withdrawal_transitions_total"); err != nil {
		return nil, err
	}
	if m.rateLimitDenied, err = meter.Int64Counter("kograph_rate_limit_denied_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) RecordLedgerEntry(ctx context.Context, entryType string) {
	if m == nil {
		return
	}
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(
		FilterAttributes(attribute.String("entry_type", entryType))...,
	))
}

func (m *Metrics) RecordCheckoutCreated(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.checkouts.Add(ctx, 1, metric.WithAttributes(
		FilterAttributes(attribute.String("kind", kind))...,
	))
}

// RecordWebhookEvent counts processor callbacks by outcome (credited,
// duplicate, rejected reason code).
func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(
		FilterAttributes(
			attribute.String("provider", provider),
			attribute.String("outcome", outcome),
		)...,
	))
}

func (m *Metrics) RecordWithdrawalTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.withdrawalTransitions.Add(ctx, 1, metric.WithAttributes(
		FilterAttributes(attribute.String("status", status))...,
	))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(
		FilterAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("reason", reason),
		)...,
	))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// User ids, checkout ids and emails must never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"entry_type": {},
	"kind":       {},
	"provider":   {},
	"outcome":    {},
	"status":     {},
	"endpoint":   {},
	"reason":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
