package streamswap

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/streamswap/payment"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/threshold"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// SubscribeMsg deposits input into a position.
type SubscribeMsg struct {
	StreamID uint64
	Sender   string
	// Funds must be a single coin of the stream's in denom.
	Funds types.Coins
	// OperatorTarget is the position owner when acting on someone else's
	// behalf. Defaults to Sender.
	OperatorTarget string
	// Operator is set on a newly opened position.
	Operator string
}

// WithdrawMsg takes unspent input back out of a position.
type WithdrawMsg struct {
	StreamID       uint64
	Sender         string
	OperatorTarget string
	// Cap is the amount to withdraw. Nil withdraws the whole balance.
	Cap *types.Amount
}

// PositionMsg addresses a position for update and exit operations.
type PositionMsg struct {
	StreamID       uint64
	Sender         string
	OperatorTarget string
}

func (m PositionMsg) owner() string { return firstNonEmpty(m.OperatorTarget, m.Sender) }

// Subscribe deposits the attached input into the sender's position, or the
// target's when the sender is its operator. Shares are minted at the
// stream's current input-per-share rate.
func (e *Engine) Subscribe(ctx context.Context, msg SubscribeMsg) (*Result, error) {
	owner := firstNonEmpty(msg.OperatorTarget, msg.Sender)
	var (
		pos    *position.Position
		amount types.Amount
	)

	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		s := o.stream
		if err := subscribable(s, o.now); err != nil {
			return err
		}

		var err error
		if amount, err = payment.MustPay(msg.Funds, s.InDenom); err != nil {
			return err
		}

		pos, _, err = o.position(owner, msg.Sender)
		switch {
		case IsNotFound(err):
			if owner != msg.Sender {
				return fmt.Errorf("%w: %s cannot open a position for %s", ErrNoOperatorTarget, msg.Sender, owner)
			}
			pos = position.New(s.ID, owner, msg.Operator, s.DistIndex, o.now)
		case err != nil:
			return err
		case pos.Exited():
			return ErrPositionExited
		}

		shares, err := s.SharesFor(amount, false)
		if err != nil {
			return err
		}
		if shares.IsZero() {
			return invalid("funds", ErrZeroAmount, "%s mints no shares", amount)
		}
		if pos.InBalance, err = pos.InBalance.Add(amount); err != nil {
			return err
		}
		if pos.Shares, err = pos.Shares.Add(shares); err != nil {
			return err
		}
		if s.InSupply, err = s.InSupply.Add(amount); err != nil {
			return err
		}
		if s.Shares, err = s.Shares.Add(shares); err != nil {
			return err
		}

		o.cs.Positions = append(o.cs.Positions, pos)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("subscribed",
		"stream_id", msg.StreamID,
		"owner", owner,
		"amount", amount.String(),
	)
	e.plugins.EmitSubscribed(ctx, o.stream, pos, amount)
	return o.result(pos), nil
}

func subscribable(s *stream.Stream, now time.Time) error {
	switch s.Status {
	case stream.StatusPaused:
		return ErrStreamPaused
	case stream.StatusCancelled:
		return ErrStreamCancelled
	case stream.StatusFinalized:
		return ErrStreamFinalized
	}
	if s.HasEnded(now) {
		return ErrStreamEnded
	}
	return nil
}

// Withdraw returns unspent input from a position to its owner. It is
// allowed while the stream runs or is paused.
func (e *Engine) Withdraw(ctx context.Context, msg WithdrawMsg) (*Result, error) {
	return e.withdraw(ctx, msg, false)
}

// WithdrawPaused is Withdraw restricted to paused streams.
func (e *Engine) WithdrawPaused(ctx context.Context, msg WithdrawMsg) (*Result, error) {
	return e.withdraw(ctx, msg, true)
}

func (e *Engine) withdraw(ctx context.Context, msg WithdrawMsg, pausedOnly bool) (*Result, error) {
	owner := firstNonEmpty(msg.OperatorTarget, msg.Sender)
	var (
		pos      *position.Position
		withdraw types.Amount
	)

	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		s := o.stream
		switch {
		case s.Status == stream.StatusFinalized:
			return ErrStreamFinalized
		case s.Status == stream.StatusCancelled:
			return ErrStreamCancelled
		case pausedOnly && s.Status != stream.StatusPaused:
			return ErrStreamNotPaused
		case s.Status != stream.StatusPaused && s.HasEnded(o.now):
			return ErrStreamEnded
		}

		var err error
		if pos, _, err = o.position(owner, msg.Sender); err != nil {
			return err
		}

		withdraw = pos.InBalance
		if msg.Cap != nil {
			withdraw = *msg.Cap
		}
		if withdraw.IsZero() {
			return invalid("cap", ErrZeroAmount, "nothing to withdraw")
		}
		if withdraw.GT(pos.InBalance) {
			return fmt.Errorf("%w: %s > %s", ErrWithdrawExceeds, withdraw, pos.InBalance)
		}

		burned := pos.Shares
		if !withdraw.Equal(pos.InBalance) {
			if burned, err = s.SharesFor(withdraw, true); err != nil {
				return err
			}
			burned = types.MinAmount(burned, pos.Shares)
		}

		if pos.InBalance, err = pos.InBalance.Sub(withdraw); err != nil {
			return err
		}
		if pos.Shares, err = pos.Shares.Sub(burned); err != nil {
			return err
		}
		if s.InSupply, err = s.InSupply.Sub(withdraw); err != nil {
			return err
		}
		if s.Shares, err = s.Shares.Sub(burned); err != nil {
			return err
		}

		o.cs.Positions = append(o.cs.Positions, pos)
		o.pay(transfer.KindWithdraw, pos.Owner, s.InDenom, withdraw)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("withdrawn",
		"stream_id", msg.StreamID,
		"owner", owner,
		"amount", withdraw.String(),
	)
	e.plugins.EmitWithdrawn(ctx, o.stream, pos, withdraw)
	return o.result(pos), nil
}

// UpdatePosition syncs a position against its stream.
func (e *Engine) UpdatePosition(ctx context.Context, msg PositionMsg) (*Result, error) {
	var (
		pos *position.Position
		res position.SyncResult
	)

	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		if o.stream.Status == stream.StatusCancelled {
			return ErrStreamCancelled
		}
		var err error
		if pos, res, err = o.position(msg.owner(), msg.Sender); err != nil {
			return err
		}
		o.cs.Positions = append(o.cs.Positions, pos)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitPositionSynced(ctx, pos, res)
	return o.result(pos), nil
}

// UpdateOperatorMsg sets or clears the operator of the sender's position.
type UpdateOperatorMsg struct {
	StreamID uint64
	Sender   string
	// NewOperator replaces the operator. Empty clears it.
	NewOperator string
}

// UpdateOperator changes who may act on the sender's position. Only the
// owner may do this.
func (e *Engine) UpdateOperator(ctx context.Context, msg UpdateOperatorMsg) (*Result, error) {
	var pos *position.Position

	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		if msg.NewOperator != "" && msg.NewOperator == msg.Sender {
			return invalid("new_operator", ErrInvalidOperator, "owner cannot be its own operator")
		}
		var err error
		if pos, _, err = o.position(msg.Sender, msg.Sender); err != nil {
			return err
		}
		pos.Operator = msg.NewOperator
		o.cs.Positions = append(o.cs.Positions, pos)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitOperatorUpdated(ctx, pos)
	return o.result(pos), nil
}

// ExitStream pays out a position's purchased output once the stream ended
// and closes the position. Any unspent input dust is returned with it.
func (e *Engine) ExitStream(ctx context.Context, msg PositionMsg) (*Result, error) {
	var pos *position.Position

	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		s := o.stream
		switch {
		case s.Status == stream.StatusPaused:
			return ErrStreamPaused
		case s.Status == stream.StatusCancelled:
			return ErrStreamCancelled
		case !s.HasEnded(o.now):
			return ErrStreamNotEnded
		}
		if err := threshold.ErrorIfNotReached(s); err != nil {
			return err
		}

		var err error
		if pos, _, err = o.position(msg.owner(), msg.Sender); err != nil {
			return err
		}
		if pos.Exited() {
			return ErrPositionExited
		}
		if s.Shares, err = s.Shares.Sub(pos.Shares); err != nil {
			return err
		}
		if s.InSupply, err = s.InSupply.Sub(pos.InBalance); err != nil {
			return err
		}

		o.pay(transfer.KindExit, pos.Owner, s.OutDenom, pos.Purchased)
		o.pay(transfer.KindWithdraw, pos.Owner, s.InDenom, pos.InBalance)
		pos.Close(o.now)
		o.cs.Positions = append(o.cs.Positions, pos)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("stream exited",
		"stream_id", msg.StreamID,
		"owner", pos.Owner,
		"purchased", pos.Purchased.String(),
	)
	e.plugins.EmitStreamExited(ctx, o.stream, pos, o.cs.Transfers)
	return o.result(pos), nil
}

// ExitCancelled returns a position's whole deposit, spent and unspent, from
// a cancelled stream or from an ended stream whose threshold was missed.
func (e *Engine) ExitCancelled(ctx context.Context, msg PositionMsg) (*Result, error) {
	var pos *position.Position

	o, err := e.run(ctx, msg.StreamID, func(o *op) error {
		s := o.stream
		if s.Status != stream.StatusCancelled {
			if !s.HasEnded(o.now) {
				return ErrStreamNotCancelled
			}
			if err := threshold.ErrorIfReached(s); err != nil {
				return err
			}
		}

		var err error
		if pos, _, err = o.position(msg.owner(), msg.Sender); err != nil {
			return err
		}
		if pos.Exited() {
			return ErrPositionExited
		}

		refund, err := pos.InBalance.Add(pos.Spent)
		if err != nil {
			return err
		}
		if s.Shares, err = s.Shares.Sub(pos.Shares); err != nil {
			return err
		}
		if err := s.ReleaseDeposit(refund, pos.InBalance); err != nil {
			return err
		}

		o.pay(transfer.KindExitCancelled, pos.Owner, s.InDenom, refund)
		pos.Close(o.now)
		o.cs.Positions = append(o.cs.Positions, pos)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("cancelled stream exited",
		"stream_id", msg.StreamID,
		"owner", pos.Owner,
	)
	e.plugins.EmitCancelledExit(ctx, o.stream, pos, o.cs.Transfers)
	return o.result(pos), nil
}
