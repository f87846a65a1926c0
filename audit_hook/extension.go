// Package audithook bridges stream and position lifecycle events to an
// audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/plugin"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnStreamCreated   = (*Extension)(nil)
	_ plugin.OnStreamPaused    = (*Extension)(nil)
	_ plugin.OnStreamResumed   = (*Extension)(nil)
	_ plugin.OnStreamCancelled = (*Extension)(nil)
	_ plugin.OnStreamFinalized = (*Extension)(nil)
	_ plugin.OnSubscribed      = (*Extension)(nil)
	_ plugin.OnWithdrawn       = (*Extension)(nil)
	_ plugin.OnStreamExited    = (*Extension)(nil)
	_ plugin.OnCancelledExit   = (*Extension)(nil)
	_ plugin.OnOperatorUpdated = (*Extension)(nil)
	_ plugin.OnParamsUpdated   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges streamswap lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (e *Extension) OnStreamCreated(ctx context.Context, s *stream.Stream) error {
	return e.record(ctx, ActionStreamCreated, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryStream, nil,
		"name", s.Name,
		"treasury", s.Treasury,
		"out_supply", s.OutSupply.String()+s.OutDenom,
		"in_denom", s.InDenom,
		"start_time", s.StartTime,
		"end_time", s.EndTime,
	)
}

// OnStreamPaused implements plugin.OnStreamPaused.
func (e *Extension) OnStreamPaused(ctx context.Context, s *stream.Stream) error {
	return e.record(ctx, ActionStreamPaused, SeverityWarning, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryGovernance, nil,
		"pause_date", s.PauseDate,
	)
}

// OnStreamResumed implements plugin.OnStreamResumed.
func (e *Extension) OnStreamResumed(ctx context.Context, s *stream.Stream) error {
	return e.record(ctx, ActionStreamResumed, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryGovernance, nil,
		"end_time", s.EndTime,
	)
}

// OnStreamCancelled implements plugin.OnStreamCancelled.
func (e *Extension) OnStreamCancelled(ctx context.Context, s *stream.Stream, ts []*transfer.Transfer) error {
	return e.record(ctx, ActionStreamCancelled, SeverityWarning, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryGovernance, nil,
		"refunded", totalOf(ts),
	)
}

// OnStreamFinalized implements plugin.OnStreamFinalized.
func (e *Extension) OnStreamFinalized(ctx context.Context, s *stream.Stream, ts []*transfer.Transfer) error {
	return e.record(ctx, ActionStreamFinalized, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamID(s), CategorySettlement, nil,
		"treasury", s.Treasury,
		"spent_in", s.SpentIn.String(),
		"paid", totalOf(ts),
	)
}

// ──────────────────────────────────────────────────
// Position hooks
// ──────────────────────────────────────────────────

// OnSubscribed implements plugin.OnSubscribed.
func (e *Extension) OnSubscribed(ctx context.Context, s *stream.Stream, p *position.Position, amount types.Amount) error {
	return e.record(ctx, ActionPositionSubscribed, SeverityInfo, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategoryTrading, nil,
		"stream_id", s.ID,
		"owner", p.Owner,
		"amount", amount.String()+s.InDenom,
	)
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (e *Extension) OnWithdrawn(ctx context.Context, s *stream.Stream, p *position.Position, amount types.Amount) error {
	return e.record(ctx, ActionPositionWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategoryTrading, nil,
		"stream_id", s.ID,
		"owner", p.Owner,
		"amount", amount.String()+s.InDenom,
	)
}

// OnStreamExited implements plugin.OnStreamExited.
func (e *Extension) OnStreamExited(ctx context.Context, s *stream.Stream, p *position.Position, ts []*transfer.Transfer) error {
	return e.record(ctx, ActionPositionExited, SeverityInfo, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategorySettlement, nil,
		"stream_id", s.ID,
		"owner", p.Owner,
		"paid", totalOf(ts),
	)
}

// OnCancelledExit implements plugin.OnCancelledExit.
func (e *Extension) OnCancelledExit(ctx context.Context, s *stream.Stream, p *position.Position, ts []*transfer.Transfer) error {
	return e.record(ctx, ActionPositionCancelledExit, SeverityInfo, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategorySettlement, nil,
		"stream_id", s.ID,
		"owner", p.Owner,
		"refunded", totalOf(ts),
	)
}

// OnOperatorUpdated implements plugin.OnOperatorUpdated.
func (e *Extension) OnOperatorUpdated(ctx context.Context, p *position.Position) error {
	return e.record(ctx, ActionPositionOperatorUpdated, SeverityWarning, OutcomeSuccess,
		ResourcePosition, p.ID.String(), CategoryAccess, nil,
		"stream_id", p.StreamID,
		"owner", p.Owner,
		"operator", p.Operator,
	)
}

// ──────────────────────────────────────────────────
// Protocol hooks
// ──────────────────────────────────────────────────

// OnParamsUpdated implements plugin.OnParamsUpdated.
func (e *Extension) OnParamsUpdated(ctx context.Context, oldParams, newParams *factory.Params) error {
	return e.record(ctx, ActionParamsUpdated, SeverityCritical, OutcomeSuccess,
		ResourceParams, "", CategoryGovernance, nil,
		"old_exit_fee", oldParams.ExitFeePercent.String(),
		"new_exit_fee", newParams.ExitFeePercent.String(),
		"old_creation_fee", oldParams.StreamCreationFee.String(),
		"new_creation_fee", newParams.StreamCreationFee.String(),
		"protocol_admin", newParams.ProtocolAdmin,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func streamID(s *stream.Stream) string {
	return strconv.FormatUint(s.ID, 10)
}

// totalOf formats the coins moved by ts, e.g. "198in,2out".
func totalOf(ts []*transfer.Transfer) string {
	coins := make([]types.Coin, len(ts))
	for i, t := range ts {
		coins[i] = t.Coin
	}
	total, err := types.NewCoins(coins...)
	if err != nil {
		return fmt.Sprintf("%d transfers", len(ts))
	}
	return total.String()
}
