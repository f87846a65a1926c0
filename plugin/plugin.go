// Package plugin provides an extensible plugin system for streamswap.
// Plugins can hook into stream and position lifecycle events to extend
// functionality.
package plugin

import (
	"context"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/payment"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated is called after a stream is created.
type OnStreamCreated interface {
	Plugin
	OnStreamCreated(ctx context.Context, s *stream.Stream) error
}

// OnStreamSynced is called after a sync advanced a stream's index.
type OnStreamSynced interface {
	Plugin
	OnStreamSynced(ctx context.Context, s *stream.Stream, tick stream.Tick) error
}

// OnStreamPaused is called after a stream is paused.
type OnStreamPaused interface {
	Plugin
	OnStreamPaused(ctx context.Context, s *stream.Stream) error
}

// OnStreamResumed is called after a paused stream is resumed.
type OnStreamResumed interface {
	Plugin
	OnStreamResumed(ctx context.Context, s *stream.Stream) error
}

// OnStreamCancelled is called after a stream is cancelled, by an admin or
// because its threshold was not reached.
type OnStreamCancelled interface {
	Plugin
	OnStreamCancelled(ctx context.Context, s *stream.Stream, transfers []*transfer.Transfer) error
}

// OnStreamFinalized is called after the treasury collected a stream's revenue.
type OnStreamFinalized interface {
	Plugin
	OnStreamFinalized(ctx context.Context, s *stream.Stream, transfers []*transfer.Transfer) error
}

// ──────────────────────────────────────────────────
// Position hooks
// ──────────────────────────────────────────────────

// OnSubscribed is called after input was deposited into a position.
type OnSubscribed interface {
	Plugin
	OnSubscribed(ctx context.Context, s *stream.Stream, p *position.Position, amount types.Amount) error
}

// OnWithdrawn is called after unspent input was withdrawn from a position.
type OnWithdrawn interface {
	Plugin
	OnWithdrawn(ctx context.Context, s *stream.Stream, p *position.Position, amount types.Amount) error
}

// OnPositionSynced is called after an explicit position update.
type OnPositionSynced interface {
	Plugin
	OnPositionSynced(ctx context.Context, p *position.Position, res position.SyncResult) error
}

// OnOperatorUpdated is called after a position's operator changed.
type OnOperatorUpdated interface {
	Plugin
	OnOperatorUpdated(ctx context.Context, p *position.Position) error
}

// OnStreamExited is called after a buyer exited a finished stream.
type OnStreamExited interface {
	Plugin
	OnStreamExited(ctx context.Context, s *stream.Stream, p *position.Position, transfers []*transfer.Transfer) error
}

// OnCancelledExit is called after a buyer recovered input from a cancelled
// stream.
type OnCancelledExit interface {
	Plugin
	OnCancelledExit(ctx context.Context, s *stream.Stream, p *position.Position, transfers []*transfer.Transfer) error
}

// ──────────────────────────────────────────────────
// Protocol hooks
// ──────────────────────────────────────────────────

// OnParamsUpdated is called after the protocol parameters changed.
type OnParamsUpdated interface {
	Plugin
	OnParamsUpdated(ctx context.Context, oldParams, newParams *factory.Params) error
}

// ──────────────────────────────────────────────────
// Fee calculators
// ──────────────────────────────────────────────────

// FeeCalculator replaces the percentage exit fee applied at finalization.
// The first registered calculator wins.
type FeeCalculator interface {
	Plugin
	payment.FeeCalculator
}
