package position

import (
	"fmt"

	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/types"
)

// SyncResult is what a single position sync credited.
type SyncResult struct {
	Purchased types.Amount
	Spent     types.Amount
}

// Sync brings p current against a freshly synced stream.
//
// Output owed is shares times the index delta plus the carried fraction;
// whole units go to Purchased and the remainder stays in PendingPurchase.
// The unspent balance is this position's pro-rata slice of the stream's
// unspent pool, so the result does not depend on how often either side
// was synced. On error p is left unchanged.
func (p *Position) Sync(s *stream.Stream) (SyncResult, error) {
	var res SyncResult

	next, err := p.sync(s, &res)
	if err != nil {
		return SyncResult{}, fmt.Errorf("position %s/%s: sync: %w", p.Owner, p.ID, err)
	}
	*p = next
	return res, nil
}

func (p *Position) sync(s *stream.Stream, res *SyncResult) (Position, error) {
	next := *p

	delta, err := s.DistIndex.Sub(p.Index)
	if err != nil {
		return next, err
	}

	if !s.Shares.IsZero() {
		owed, err := delta.MulAmount(p.Shares)
		if err != nil {
			return next, err
		}
		if owed, err = owed.Add(p.PendingPurchase); err != nil {
			return next, err
		}
		whole, frac, err := owed.Split()
		if err != nil {
			return next, err
		}
		if next.Purchased, err = p.Purchased.Add(whole); err != nil {
			return next, err
		}
		next.PendingPurchase = frac
		res.Purchased = whole

		remaining, err := s.InSupply.MulRatioFloor(p.Shares, s.Shares)
		if err != nil {
			return next, err
		}
		remaining = types.MinAmount(remaining, p.InBalance)
		spent, err := p.InBalance.Sub(remaining)
		if err != nil {
			return next, err
		}
		if next.Spent, err = p.Spent.Add(spent); err != nil {
			return next, err
		}
		next.InBalance = remaining
		res.Spent = spent
	}

	next.Index = s.DistIndex
	next.LastUpdated = s.LastUpdated
	return next, nil
}
