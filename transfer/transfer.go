// Package transfer records the token movements the engine instructs. The
// engine never holds balances itself; every payout, refund and fee is
// emitted as a Transfer for the host to settle.
package transfer

import (
	"context"
	"time"

	"github.com/xraph/streamswap/id"
	"github.com/xraph/streamswap/types"
)

// Kind classifies why tokens moved.
type Kind string

const (
	KindCreationFee   Kind = "creation_fee"
	KindWithdraw      Kind = "withdraw"
	KindExit          Kind = "exit"
	KindExitCancelled Kind = "exit_cancelled"
	KindRevenue       Kind = "revenue"
	KindExitFee       Kind = "exit_fee"
	KindRefund        Kind = "refund"
)

// Transfer is one instructed payment out of the engine's custody.
type Transfer struct {
	ID        id.TransferID `json:"id"`
	StreamID  uint64        `json:"stream_id"`
	Kind      Kind          `json:"kind"`
	Recipient string        `json:"recipient"`
	Coin      types.Coin    `json:"coin"`
	CreatedAt time.Time     `json:"created_at"`
}

// New returns a transfer with a fresh id.
func New(streamID uint64, kind Kind, recipient string, coin types.Coin, at time.Time) *Transfer {
	return &Transfer{
		ID:        id.NewTransferID(),
		StreamID:  streamID,
		Kind:      kind,
		Recipient: recipient,
		Coin:      coin,
		CreatedAt: at.UTC(),
	}
}

// ListOpts configures transfer listing. Transfers are returned oldest first.
type ListOpts struct {
	Limit  int
	Offset int
}

// Store defines the persistence contract for transfers.
type Store interface {
	CreateTransfers(ctx context.Context, ts []*Transfer) error
	ListTransfers(ctx context.Context, streamID uint64, opts ListOpts) ([]*Transfer, error)
}
