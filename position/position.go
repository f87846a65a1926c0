// Package position defines a buyer's stake in a stream and the algorithm
// that reconciles it against the stream's distribution index.
package position

import (
	"context"
	"time"

	"github.com/xraph/streamswap/id"
	"github.com/xraph/streamswap/types"
)

// Position is one owner's accounting state in one stream. It is keyed by
// (StreamID, Owner). Exited positions are zeroed and kept with ExitDate set.
type Position struct {
	types.Entity

	ID       id.PositionID `json:"id"`
	StreamID uint64        `json:"stream_id"`
	Owner    string        `json:"owner"`
	Operator string        `json:"operator,omitempty"`

	InBalance types.Amount `json:"in_balance"`
	Shares    types.Amount `json:"shares"`
	Index     types.Dec    `json:"index"`

	Purchased       types.Amount `json:"purchased"`
	PendingPurchase types.Dec    `json:"pending_purchase"`
	Spent           types.Amount `json:"spent"`

	LastUpdated time.Time `json:"last_updated"`
	ExitDate    time.Time `json:"exit_date,omitempty"`
}

// New opens an empty position whose index starts at the stream's current
// index, so it does not share in distribution that already happened.
func New(streamID uint64, owner, operator string, index types.Dec, at time.Time) *Position {
	return &Position{
		Entity:          types.NewEntity(at),
		ID:              id.NewPositionID(),
		StreamID:        streamID,
		Owner:           owner,
		Operator:        operator,
		Index:           index,
		PendingPurchase: types.ZeroDec,
		LastUpdated:     at.UTC(),
	}
}

// Clone returns a copy that can be mutated without touching p.
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}

// Exited reports whether the position was closed by an exit.
func (p *Position) Exited() bool { return !p.ExitDate.IsZero() }

// CanAct reports whether sender may act on the position.
func (p *Position) CanAct(sender string) bool {
	return sender == p.Owner || (p.Operator != "" && sender == p.Operator)
}

// Close zeroes the balances that an exit paid out. Purchased and Spent stay
// as lifetime totals.
func (p *Position) Close(at time.Time) {
	p.InBalance = types.ZeroAmount
	p.Shares = types.ZeroAmount
	p.PendingPurchase = types.ZeroDec
	p.ExitDate = at.UTC()
	p.Touch(at)
}

// ListOpts configures position listing. Positions are returned in owner order.
type ListOpts struct {
	// StartAfter skips owners lower than or equal to it.
	StartAfter string
	Limit      int
}

// Store defines the persistence contract for positions.
type Store interface {
	GetPosition(ctx context.Context, streamID uint64, owner string) (*Position, error)
	ListPositions(ctx context.Context, streamID uint64, opts ListOpts) ([]*Position, error)
	UpsertPosition(ctx context.Context, p *Position) error
}
