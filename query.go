package streamswap

import (
	"context"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// Pagination bounds for list queries.
const (
	DefaultLimit = 10
	MaxLimit     = 30
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Queries read stored state only. They never sync a stream, so a stream's
// figures are as of its LastUpdated.

// Params returns the protocol parameters.
func (e *Engine) Params(ctx context.Context) (*factory.Params, error) {
	p, err := e.params(ctx)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Stream returns a stream by id.
func (e *Engine) Stream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	return e.store.GetStream(ctx, streamID)
}

// ListStreams returns streams in id order after startAfter.
func (e *Engine) ListStreams(ctx context.Context, startAfter uint64, limit int) ([]*stream.Stream, error) {
	return e.store.ListStreams(ctx, stream.ListOpts{
		StartAfter: startAfter,
		Limit:      clampLimit(limit),
	})
}

// Position returns owner's position in a stream.
func (e *Engine) Position(ctx context.Context, streamID uint64, owner string) (*position.Position, error) {
	return e.store.GetPosition(ctx, streamID, owner)
}

// ListPositions returns a stream's positions in owner order after startAfter.
func (e *Engine) ListPositions(ctx context.Context, streamID uint64, startAfter string, limit int) ([]*position.Position, error) {
	if _, err := e.store.GetStream(ctx, streamID); err != nil {
		return nil, err
	}
	return e.store.ListPositions(ctx, streamID, position.ListOpts{
		StartAfter: startAfter,
		Limit:      clampLimit(limit),
	})
}

// AveragePrice returns the input spent per output unit distributed over the
// stream's life so far. It is a reporting figure only.
func (e *Engine) AveragePrice(ctx context.Context, streamID uint64) (types.Dec, error) {
	s, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return types.ZeroDec, err
	}
	return s.AveragePrice()
}

// LastStreamedPrice returns the price of the stream's most recent
// distribution step.
func (e *Engine) LastStreamedPrice(ctx context.Context, streamID uint64) (types.Dec, error) {
	s, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return types.ZeroDec, err
	}
	return s.CurrentStreamedPrice, nil
}

// Threshold returns the stream's threshold. Zero means it has none.
func (e *Engine) Threshold(ctx context.Context, streamID uint64) (types.Amount, error) {
	s, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return types.ZeroAmount, err
	}
	return s.Threshold, nil
}

// ListTransfers returns the transfers a stream instructed, oldest first.
func (e *Engine) ListTransfers(ctx context.Context, streamID uint64, offset, limit int) ([]*transfer.Transfer, error) {
	if offset < 0 {
		offset = 0
	}
	return e.store.ListTransfers(ctx, streamID, transfer.ListOpts{
		Offset: offset,
		Limit:  clampLimit(limit),
	})
}
