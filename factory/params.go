// Package factory holds the protocol-wide parameters that govern stream
// creation and settlement.
package factory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/streamswap/types"
)

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("factory: invalid params")

// Params are the protocol parameters. They are updated only by the
// protocol admin.
type Params struct {
	MinStreamDuration     time.Duration `json:"min_stream_duration"`
	MinDurationUntilStart time.Duration `json:"min_duration_until_start"`
	AcceptedInDenom       string        `json:"accepted_in_denom"`
	StreamCreationFee     types.Coin    `json:"stream_creation_fee"`
	ExitFeePercent        types.Dec     `json:"exit_fee_percent"`
	FeeCollector          string        `json:"fee_collector"`
	ProtocolAdmin         string        `json:"protocol_admin"`
	Governance            string        `json:"governance,omitempty"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// DefaultParams returns the parameters a fresh deployment starts with.
func DefaultParams() Params {
	return Params{
		MinStreamDuration:     time.Hour,
		MinDurationUntilStart: time.Hour,
		AcceptedInDenom:       "uusd",
		StreamCreationFee:     types.NewCoin("uusd", types.NewAmount(100)),
		ExitFeePercent:        types.MustDec("0.01"),
		FeeCollector:          "collector",
		ProtocolAdmin:         "admin",
	}
}

// Validate checks the invariants every stored parameter set holds.
func (p Params) Validate() error {
	switch {
	case p.MinStreamDuration <= 0:
		return fmt.Errorf("%w: min_stream_duration must be positive", ErrInvalidParams)
	case p.MinDurationUntilStart < 0:
		return fmt.Errorf("%w: min_duration_until_start cannot be negative", ErrInvalidParams)
	case p.AcceptedInDenom == "":
		return fmt.Errorf("%w: accepted_in_denom is required", ErrInvalidParams)
	case p.StreamCreationFee.Denom == "" || p.StreamCreationFee.Amount.IsZero():
		return fmt.Errorf("%w: stream_creation_fee must be a positive coin", ErrInvalidParams)
	case p.ExitFeePercent.Cmp(types.OneDec) >= 0:
		return fmt.Errorf("%w: exit_fee_percent must be below 1", ErrInvalidParams)
	case p.FeeCollector == "":
		return fmt.Errorf("%w: fee_collector is required", ErrInvalidParams)
	case p.ProtocolAdmin == "":
		return fmt.Errorf("%w: protocol_admin is required", ErrInvalidParams)
	}
	return nil
}

// IsAdmin reports whether sender may run admin operations. Governance, when
// configured, holds the same rights as the protocol admin.
func (p Params) IsAdmin(sender string) bool {
	if sender == "" {
		return false
	}
	return sender == p.ProtocolAdmin || (p.Governance != "" && sender == p.Governance)
}

// Update is a partial parameter change. Nil fields are left as they are.
type Update struct {
	MinStreamDuration     *time.Duration
	MinDurationUntilStart *time.Duration
	AcceptedInDenom       *string
	StreamCreationFee     *types.Coin
	ExitFeePercent        *types.Dec
	FeeCollector          *string
	ProtocolAdmin         *string
	Governance            *string
}

// Apply returns p with u applied. The result is not validated.
func (p Params) Apply(u Update) Params {
	if u.MinStreamDuration != nil {
		p.MinStreamDuration = *u.MinStreamDuration
	}
	if u.MinDurationUntilStart != nil {
		p.MinDurationUntilStart = *u.MinDurationUntilStart
	}
	if u.AcceptedInDenom != nil {
		p.AcceptedInDenom = *u.AcceptedInDenom
	}
	if u.StreamCreationFee != nil {
		p.StreamCreationFee = *u.StreamCreationFee
	}
	if u.ExitFeePercent != nil {
		p.ExitFeePercent = *u.ExitFeePercent
	}
	if u.FeeCollector != nil {
		p.FeeCollector = *u.FeeCollector
	}
	if u.ProtocolAdmin != nil {
		p.ProtocolAdmin = *u.ProtocolAdmin
	}
	if u.Governance != nil {
		p.Governance = *u.Governance
	}
	return p
}

// Store defines the persistence contract for parameters and the stream
// id sequence.
type Store interface {
	// GetParams returns the stored parameters or an error satisfying
	// streamswap.IsNotFound when none were saved yet.
	GetParams(ctx context.Context) (*Params, error)
	SaveParams(ctx context.Context, p *Params) error
	// NextStreamID allocates stream ids sequentially from 1.
	NextStreamID(ctx context.Context) (uint64, error)
}
