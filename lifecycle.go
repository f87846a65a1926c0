package streamswap

import (
	"context"
	"fmt"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/threshold"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// ──────────────────────────────────────────────────
// Stream maintenance
// ──────────────────────────────────────────────────

// UpdateStream syncs a stream to the current instant. Anyone may call it.
func (e *Engine) UpdateStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	o, err := e.run(ctx, streamID, func(*op) error { return nil })
	if err != nil {
		return nil, err
	}
	return o.stream, nil
}

// FinalizeStreamMsg settles an ended stream.
type FinalizeStreamMsg struct {
	StreamID uint64
	Sender   string
	// NewTreasury redirects the revenue. Only the current treasury may set it.
	NewTreasury string
}

// FinalizeStream sends the input raised, net of the exit fee, to the
// treasury and returns undistributed output to it, together with the
// rounding dust no buyer can claim. Anyone may call it once the stream
// ended with its threshold reached.
func (e *Engine) FinalizeStream(ctx context.Context, msg FinalizeStreamMsg) (*Result, error) {
	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		s := o.stream
		switch {
		case s.Status == stream.StatusFinalized:
			return ErrStreamAlreadyFinalized
		case s.Status == stream.StatusCancelled:
			return ErrStreamCancelled
		case s.Status == stream.StatusPaused:
			return ErrStreamPaused
		case !s.HasEnded(o.now):
			return ErrStreamNotEnded
		}
		if err := threshold.ErrorIfNotReached(s); err != nil {
			return err
		}

		if msg.NewTreasury != "" {
			if msg.Sender != s.Treasury {
				return fmt.Errorf("%w: only the treasury may redirect revenue", ErrUnauthorized)
			}
			s.Treasury = msg.NewTreasury
		}
		if err := s.Finalize(); err != nil {
			return err
		}

		revenue, fee, err := o.engine.feeCalculator(o.params).Split(s.SpentIn)
		if err != nil {
			return err
		}
		o.pay(transfer.KindRevenue, s.Treasury, s.InDenom, revenue)
		o.pay(transfer.KindExitFee, o.params.FeeCollector, s.InDenom, fee)
		dust, err := o.unclaimableOutput()
		if err != nil {
			return err
		}
		refund, err := s.OutRemaining.Add(dust)
		if err != nil {
			return err
		}
		o.pay(transfer.KindRefund, s.Treasury, s.OutDenom, refund)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("stream finalized",
		"stream_id", msg.StreamID,
		"treasury", o.stream.Treasury,
		"spent_in", o.stream.SpentIn.String(),
	)
	e.plugins.EmitStreamFinalized(ctx, o.stream, o.cs.Transfers)
	return o.result(nil), nil
}

// finalizePageSize bounds each position page read while finalizing.
const finalizePageSize = 100

// unclaimableOutput returns the distributed output no position will ever
// receive. Buyers are paid whole units and the fraction each one carries is
// dropped on exit, so the distributed total can exceed what positions are
// owed by up to one unit per position. Each position is synced on a copy
// against the ended stream to find what it is owed.
func (o *op) unclaimableOutput() (types.Amount, error) {
	s := o.stream
	distributed, err := s.Distributed()
	if err != nil {
		return types.ZeroAmount, err
	}

	owed := types.ZeroAmount
	opts := position.ListOpts{Limit: finalizePageSize}
	for {
		page, err := o.engine.store.ListPositions(o.ctx, s.ID, opts)
		if err != nil {
			return types.ZeroAmount, err
		}
		for _, p := range page {
			if _, err := p.Sync(s); err != nil {
				return types.ZeroAmount, err
			}
			if owed, err = owed.Add(p.Purchased); err != nil {
				return types.ZeroAmount, err
			}
		}
		if len(page) < finalizePageSize {
			break
		}
		opts.StartAfter = page[len(page)-1].Owner
	}

	return distributed.Sub(owed)
}

// CancelStreamWithThreshold cancels an ended stream whose threshold was not
// reached, returning the output supply to the treasury. Anyone may call it.
func (e *Engine) CancelStreamWithThreshold(ctx context.Context, streamID uint64) (*Result, error) {
	o, err := e.run(ctx, streamID, func(o *op) error {
		s := o.stream
		switch {
		case s.Status == stream.StatusCancelled:
			return ErrStreamIsCancelled
		case s.Status == stream.StatusFinalized:
			return ErrStreamFinalized
		case s.Status == stream.StatusPaused:
			return ErrStreamPaused
		case !s.HasEnded(o.now):
			return ErrStreamNotEnded
		}
		if err := threshold.ErrorIfReached(s); err != nil {
			return err
		}
		return o.cancel()
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("stream cancelled",
		"stream_id", streamID,
		"reason", "threshold not reached",
	)
	e.plugins.EmitStreamCancelled(ctx, o.stream, o.cs.Transfers)
	return o.result(nil), nil
}

func (o *op) cancel() error {
	s := o.stream
	if err := s.Cancel(); err != nil {
		return err
	}
	o.pay(transfer.KindRefund, s.Treasury, s.OutDenom, s.OutSupply)
	return nil
}

// ──────────────────────────────────────────────────
// Administration
// ──────────────────────────────────────────────────

// AdminMsg addresses a stream for an administrative operation.
type AdminMsg struct {
	StreamID uint64
	Sender   string
}

func (o *op) requireAdmin(sender string) error {
	if !o.params.IsAdmin(sender) {
		return fmt.Errorf("%w: %s is not the protocol admin", ErrUnauthorized, sender)
	}
	return nil
}

// PauseStream freezes a stream that has not ended. Distribution stops until
// it is resumed.
func (e *Engine) PauseStream(ctx context.Context, msg AdminMsg) (*Result, error) {
	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		if err := o.requireAdmin(msg.Sender); err != nil {
			return err
		}
		s := o.stream
		switch {
		case s.Status == stream.StatusPaused:
			return ErrStreamAlreadyPaused
		case s.Status == stream.StatusCancelled:
			return ErrStreamCancelled
		case s.Status == stream.StatusFinalized:
			return ErrStreamFinalized
		case s.HasEnded(o.now):
			return ErrStreamEnded
		}
		return s.Pause(o.now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("stream paused", "stream_id", msg.StreamID, "by", msg.Sender)
	e.plugins.EmitStreamPaused(ctx, o.stream)
	return o.result(nil), nil
}

// ResumeStream unfreezes a paused stream, shifting its schedule by the time
// it spent paused.
func (e *Engine) ResumeStream(ctx context.Context, msg AdminMsg) (*Result, error) {
	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		if err := o.requireAdmin(msg.Sender); err != nil {
			return err
		}
		s := o.stream
		switch s.Status {
		case stream.StatusCancelled:
			return ErrStreamCancelled
		case stream.StatusPaused:
		default:
			return ErrStreamNotPaused
		}
		return s.Resume(o.now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("stream resumed",
		"stream_id", msg.StreamID,
		"by", msg.Sender,
		"end_time", o.stream.EndTime,
	)
	e.plugins.EmitStreamResumed(ctx, o.stream)
	return o.result(nil), nil
}

// CancelStream cancels a stream that has not ended, or a paused one, and
// returns the output supply to the treasury. Buyers recover their deposits
// with ExitCancelled.
func (e *Engine) CancelStream(ctx context.Context, msg AdminMsg) (*Result, error) {
	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		if err := o.requireAdmin(msg.Sender); err != nil {
			return err
		}
		s := o.stream
		switch {
		case s.Status == stream.StatusCancelled:
			return ErrStreamIsCancelled
		case s.Status == stream.StatusFinalized:
			return ErrStreamFinalized
		case s.Status != stream.StatusPaused && s.HasEnded(o.now):
			return ErrStreamEnded
		}
		return o.cancel()
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("stream cancelled", "stream_id", msg.StreamID, "by", msg.Sender)
	e.plugins.EmitStreamCancelled(ctx, o.stream, o.cs.Transfers)
	return o.result(nil), nil
}

// UpdateParams applies a partial parameter change. Only the protocol admin
// may call it.
func (e *Engine) UpdateParams(ctx context.Context, sender string, update factory.Update) (*factory.Params, error) {
	e.paramsMu.Lock()
	defer e.paramsMu.Unlock()

	current, err := e.params(ctx)
	if err != nil {
		return nil, err
	}
	if sender == "" || sender != current.ProtocolAdmin {
		return nil, fmt.Errorf("%w: %s is not the protocol admin", ErrUnauthorized, sender)
	}

	next := current.Apply(update)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = e.now()
	if err := e.store.SaveParams(ctx, &next); err != nil {
		return nil, err
	}

	e.logger.Info("params updated", "by", sender)
	e.plugins.EmitParamsUpdated(ctx, &current, &next)
	return &next, nil
}
