package stream

import (
	"fmt"
	"time"

	"github.com/xraph/streamswap/types"
)

// Tick describes one integration step of the distribution.
type Tick struct {
	// Fraction of the remaining schedule that elapsed during the step.
	Fraction types.Dec
	// Distributed is the output moved out of OutRemaining.
	Distributed types.Amount
	// Spent is the input moved from InSupply into SpentIn.
	Spent types.Amount
}

// Sync integrates the distribution from LastUpdated up to now (clamped to
// EndTime). Remaining output and unspent input both decay linearly to zero
// at EndTime: each step consumes the elapsed share of the time still left,
// so any partition of the schedule ends in the same place.
//
// Paused, cancelled and finalized streams are frozen. On error s is left
// unchanged.
func (s *Stream) Sync(now time.Time) (Tick, error) {
	tick := Tick{Fraction: types.ZeroDec}

	switch s.Status {
	case StatusPaused, StatusCancelled, StatusFinalized:
		return tick, nil
	}

	t := now.UTC()
	if t.After(s.EndTime) {
		t = s.EndTime
	}
	// LastUpdated never precedes StartTime, which also covers t < StartTime.
	if !t.After(s.LastUpdated) {
		return tick, nil
	}

	fraction, err := types.DecFromInt64Ratio(
		int64(t.Sub(s.LastUpdated)),
		int64(s.EndTime.Sub(s.LastUpdated)),
	)
	if err != nil {
		return tick, fmt.Errorf("stream %d: elapsed fraction: %w", s.ID, err)
	}
	tick.Fraction = fraction

	if !s.Shares.IsZero() && !fraction.IsZero() {
		next, err := s.integrate(fraction, &tick)
		if err != nil {
			return Tick{Fraction: types.ZeroDec}, fmt.Errorf("stream %d: sync: %w", s.ID, err)
		}
		*s = next
	}

	s.LastUpdated = t
	return tick, nil
}

func (s *Stream) integrate(fraction types.Dec, tick *Tick) (Stream, error) {
	next := *s

	newOut, err := fraction.MulAmountFloor(s.OutRemaining)
	if err != nil {
		return next, err
	}
	spent, err := fraction.MulAmountFloor(s.InSupply)
	if err != nil {
		return next, err
	}

	if next.SpentIn, err = s.SpentIn.Add(spent); err != nil {
		return next, err
	}
	if next.InSupply, err = s.InSupply.Sub(spent); err != nil {
		return next, err
	}

	if !newOut.IsZero() {
		if next.OutRemaining, err = s.OutRemaining.Sub(newOut); err != nil {
			return next, err
		}
		perShare, err := types.DecFromRatio(newOut, s.Shares)
		if err != nil {
			return next, err
		}
		if next.DistIndex, err = s.DistIndex.Add(perShare); err != nil {
			return next, err
		}
		if next.CurrentStreamedPrice, err = types.DecFromRatio(spent, newOut); err != nil {
			return next, err
		}
	}

	tick.Distributed = newOut
	tick.Spent = spent
	return next, nil
}
