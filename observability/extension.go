// Package observability provides a metrics extension for streamswap that
// records lifecycle event counts and traded volume via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/plugin"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnStreamCreated   = (*MetricsExtension)(nil)
	_ plugin.OnStreamSynced    = (*MetricsExtension)(nil)
	_ plugin.OnStreamPaused    = (*MetricsExtension)(nil)
	_ plugin.OnStreamResumed   = (*MetricsExtension)(nil)
	_ plugin.OnStreamCancelled = (*MetricsExtension)(nil)
	_ plugin.OnStreamFinalized = (*MetricsExtension)(nil)
	_ plugin.OnSubscribed      = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawn       = (*MetricsExtension)(nil)
	_ plugin.OnStreamExited    = (*MetricsExtension)(nil)
	_ plugin.OnCancelledExit   = (*MetricsExtension)(nil)
	_ plugin.OnOperatorUpdated = (*MetricsExtension)(nil)
	_ plugin.OnParamsUpdated   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a streamswap plugin to track stream activity.
type MetricsExtension struct {
	factory MetricFactory

	// Stream metrics
	StreamCreated   Counter
	StreamSynced    Counter
	StreamPaused    Counter
	StreamResumed   Counter
	StreamCancelled Counter
	StreamFinalized Counter

	// Distribution metrics
	OutDistributed Histogram
	InSpent        Histogram

	// Position metrics
	Subscribed      Counter
	SubscribeAmount Histogram
	Withdrawn       Counter
	WithdrawAmount  Histogram
	Exited          Counter
	CancelledExits  Counter
	OperatorUpdates Counter

	// Settlement metrics
	TransfersEmitted Counter
	TransferAmount   Histogram

	// Protocol metrics
	ParamsUpdated Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Stream metrics
		StreamCreated:   factory.Counter("streamswap.stream.created"),
		StreamSynced:    factory.Counter("streamswap.stream.synced"),
		StreamPaused:    factory.Counter("streamswap.stream.paused"),
		StreamResumed:   factory.Counter("streamswap.stream.resumed"),
		StreamCancelled: factory.Counter("streamswap.stream.cancelled"),
		StreamFinalized: factory.Counter("streamswap.stream.finalized"),

		// Distribution metrics
		OutDistributed: factory.Histogram("streamswap.sync.out_distributed"),
		InSpent:        factory.Histogram("streamswap.sync.in_spent"),

		// Position metrics
		Subscribed:      factory.Counter("streamswap.position.subscribed"),
		SubscribeAmount: factory.Histogram("streamswap.position.subscribe_amount"),
		Withdrawn:       factory.Counter("streamswap.position.withdrawn"),
		WithdrawAmount:  factory.Histogram("streamswap.position.withdraw_amount"),
		Exited:          factory.Counter("streamswap.position.exited"),
		CancelledExits:  factory.Counter("streamswap.position.cancelled_exit"),
		OperatorUpdates: factory.Counter("streamswap.position.operator_updated"),

		// Settlement metrics
		TransfersEmitted: factory.Counter("streamswap.transfer.emitted"),
		TransferAmount:   factory.Histogram("streamswap.transfer.amount"),

		// Protocol metrics
		ParamsUpdated: factory.Counter("streamswap.params.updated"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (m *MetricsExtension) OnStreamCreated(_ context.Context, _ *stream.Stream) error {
	m.StreamCreated.Inc()
	return nil
}

// OnStreamSynced implements plugin.OnStreamSynced.
func (m *MetricsExtension) OnStreamSynced(_ context.Context, _ *stream.Stream, tick stream.Tick) error {
	m.StreamSynced.Inc()
	m.OutDistributed.Observe(toFloat(tick.Distributed))
	m.InSpent.Observe(toFloat(tick.Spent))
	return nil
}

// OnStreamPaused implements plugin.OnStreamPaused.
func (m *MetricsExtension) OnStreamPaused(_ context.Context, _ *stream.Stream) error {
	m.StreamPaused.Inc()
	return nil
}

// OnStreamResumed implements plugin.OnStreamResumed.
func (m *MetricsExtension) OnStreamResumed(_ context.Context, _ *stream.Stream) error {
	m.StreamResumed.Inc()
	return nil
}

// OnStreamCancelled implements plugin.OnStreamCancelled.
func (m *MetricsExtension) OnStreamCancelled(_ context.Context, _ *stream.Stream, ts []*transfer.Transfer) error {
	m.StreamCancelled.Inc()
	m.observeTransfers(ts)
	return nil
}

// OnStreamFinalized implements plugin.OnStreamFinalized.
func (m *MetricsExtension) OnStreamFinalized(_ context.Context, _ *stream.Stream, ts []*transfer.Transfer) error {
	m.StreamFinalized.Inc()
	m.observeTransfers(ts)
	return nil
}

// ──────────────────────────────────────────────────
// Position hooks
// ──────────────────────────────────────────────────

// OnSubscribed implements plugin.OnSubscribed.
func (m *MetricsExtension) OnSubscribed(_ context.Context, _ *stream.Stream, _ *position.Position, amount types.Amount) error {
	m.Subscribed.Inc()
	m.SubscribeAmount.Observe(toFloat(amount))
	return nil
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (m *MetricsExtension) OnWithdrawn(_ context.Context, _ *stream.Stream, _ *position.Position, amount types.Amount) error {
	m.Withdrawn.Inc()
	m.WithdrawAmount.Observe(toFloat(amount))
	return nil
}

// OnStreamExited implements plugin.OnStreamExited.
func (m *MetricsExtension) OnStreamExited(_ context.Context, _ *stream.Stream, _ *position.Position, ts []*transfer.Transfer) error {
	m.Exited.Inc()
	m.observeTransfers(ts)
	return nil
}

// OnCancelledExit implements plugin.OnCancelledExit.
func (m *MetricsExtension) OnCancelledExit(_ context.Context, _ *stream.Stream, _ *position.Position, ts []*transfer.Transfer) error {
	m.CancelledExits.Inc()
	m.observeTransfers(ts)
	return nil
}

// OnOperatorUpdated implements plugin.OnOperatorUpdated.
func (m *MetricsExtension) OnOperatorUpdated(_ context.Context, _ *position.Position) error {
	m.OperatorUpdates.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Protocol hooks
// ──────────────────────────────────────────────────

// OnParamsUpdated implements plugin.OnParamsUpdated.
func (m *MetricsExtension) OnParamsUpdated(_ context.Context, _, _ *factory.Params) error {
	m.ParamsUpdated.Inc()
	return nil
}

func (m *MetricsExtension) observeTransfers(ts []*transfer.Transfer) {
	m.TransfersEmitted.Add(float64(len(ts)))
	for _, t := range ts {
		m.TransferAmount.Observe(toFloat(t.Coin.Amount))
	}
}

// toFloat converts an amount for metric observation. Precision loss above
// 2^53 is acceptable here.
func toFloat(a types.Amount) float64 {
	return types.DecFromAmount(a).Decimal().InexactFloat64()
}
