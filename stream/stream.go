// Package stream defines the stream record, its lifecycle state machine and
// the time integration that advances its distribution index.
package stream

import (
	"time"

	"github.com/xraph/streamswap/types"
)

// Stream is a seller's committed output supply being sold continuously
// between StartTime and EndTime.
//
// InSupply is the unspent input pool: it grows on subscribe and shrinks as
// distribution consumes it (moving into SpentIn) or buyers withdraw.
// The total raised so far is InSupply + SpentIn.
type Stream struct {
	types.Entity

	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Treasury    string `json:"treasury"`
	StreamAdmin string `json:"stream_admin"`

	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	LastUpdated time.Time `json:"last_updated"`

	OutDenom     string       `json:"out_denom"`
	OutSupply    types.Amount `json:"out_supply"`
	OutRemaining types.Amount `json:"out_remaining"`

	InDenom  string       `json:"in_denom"`
	InSupply types.Amount `json:"in_supply"`
	SpentIn  types.Amount `json:"spent_in"`

	Shares    types.Amount `json:"shares"`
	DistIndex types.Dec    `json:"dist_index"`

	CurrentStreamedPrice types.Dec    `json:"current_streamed_price"`
	Threshold            types.Amount `json:"threshold"`

	Status    Status    `json:"status"`
	PauseDate time.Time `json:"pause_date,omitempty"`
}

// Config holds the creator supplied fields of a new stream.
type Config struct {
	Name        string
	URL         string
	Treasury    string
	StreamAdmin string
	InDenom     string
	OutDenom    string
	OutSupply   types.Amount
	Threshold   types.Amount
	StartTime   time.Time
	EndTime     time.Time
}

// New returns a Waiting stream. Distribution is integrated from StartTime.
func New(streamID uint64, cfg Config, now time.Time) *Stream {
	return &Stream{
		Entity:       types.NewEntity(now),
		ID:           streamID,
		Name:         cfg.Name,
		URL:          cfg.URL,
		Treasury:     cfg.Treasury,
		StreamAdmin:  cfg.StreamAdmin,
		StartTime:    cfg.StartTime.UTC(),
		EndTime:      cfg.EndTime.UTC(),
		LastUpdated:  cfg.StartTime.UTC(),
		OutDenom:     cfg.OutDenom,
		OutSupply:    cfg.OutSupply,
		OutRemaining: cfg.OutSupply,
		InDenom:      cfg.InDenom,
		Threshold:    cfg.Threshold,
		Status:       StatusWaiting,
	}
}

// Clone returns a copy that can be mutated without touching s.
func (s *Stream) Clone() *Stream {
	cp := *s
	return &cp
}

// HasEnded reports whether the schedule is over at now.
func (s *Stream) HasEnded(now time.Time) bool {
	return !now.Before(s.EndTime)
}

// TotalRaised returns all input received and not withdrawn.
func (s *Stream) TotalRaised() (types.Amount, error) {
	return s.InSupply.Add(s.SpentIn)
}

// Distributed returns the output already moved out of OutRemaining.
func (s *Stream) Distributed() (types.Amount, error) {
	return s.OutSupply.Sub(s.OutRemaining)
}

// ReleaseDeposit takes a whole deposit out of the input pool when a buyer
// leaves with everything they put in. unspent is drawn from InSupply first
// and the rest from SpentIn. Positions floor their unspent balance, so their
// spent totals can run ahead of SpentIn; whatever SpentIn cannot cover comes
// out of InSupply. It fails only when amount exceeds the whole pool.
func (s *Stream) ReleaseDeposit(amount, unspent types.Amount) error {
	fromSupply := types.MinAmount(types.MinAmount(unspent, amount), s.InSupply)
	rest, err := amount.Sub(fromSupply)
	if err != nil {
		return err
	}
	fromSpent := types.MinAmount(rest, s.SpentIn)
	residue, err := rest.Sub(fromSpent)
	if err != nil {
		return err
	}
	if fromSupply, err = fromSupply.Add(residue); err != nil {
		return err
	}

	inSupply, err := s.InSupply.Sub(fromSupply)
	if err != nil {
		return err
	}
	spentIn, err := s.SpentIn.Sub(fromSpent)
	if err != nil {
		return err
	}
	s.InSupply, s.SpentIn = inSupply, spentIn
	return nil
}

// AveragePrice returns spent input per distributed output unit, or zero
// when nothing has been distributed yet.
func (s *Stream) AveragePrice() (types.Dec, error) {
	out, err := s.Distributed()
	if err != nil {
		return types.ZeroDec, err
	}
	if out.IsZero() {
		return types.ZeroDec, nil
	}
	return types.DecFromRatio(s.SpentIn, out)
}

// SharesFor converts an input amount into stream shares at the current
// input-per-share rate. The first subscriber gets one share per unit.
func (s *Stream) SharesFor(amountIn types.Amount, roundUp bool) (types.Amount, error) {
	if s.Shares.IsZero() || amountIn.IsZero() || s.InSupply.IsZero() {
		return amountIn, nil
	}
	if roundUp {
		return amountIn.MulRatioCeil(s.Shares, s.InSupply)
	}
	return amountIn.MulRatioFloor(s.Shares, s.InSupply)
}
