package position_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/types"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStream(supply uint64) *stream.Stream {
	s := stream.New(1, stream.Config{
		Name:      "sync test",
		Treasury:  "treasury",
		InDenom:   "in",
		OutDenom:  "out",
		OutSupply: types.NewAmount(supply),
		StartTime: start,
		EndTime:   start.Add(100 * time.Second),
	}, start)
	s.Status = stream.StatusActive
	return s
}

// subscribe mirrors what the engine does on a deposit.
func subscribe(t *testing.T, s *stream.Stream, p *position.Position, amount uint64) {
	t.Helper()
	in := types.NewAmount(amount)
	shares, err := s.SharesFor(in, false)
	require.NoError(t, err)

	p.InBalance, err = p.InBalance.Add(in)
	require.NoError(t, err)
	p.Shares, err = p.Shares.Add(shares)
	require.NoError(t, err)
	s.InSupply, err = s.InSupply.Add(in)
	require.NoError(t, err)
	s.Shares, err = s.Shares.Add(shares)
	require.NoError(t, err)
}

func TestEarlierBuyerGetsMore(t *testing.T) {
	s := newStream(1000)

	a := position.New(s.ID, "alice", "", s.DistIndex, start)
	subscribe(t, s, a, 100)

	mid := start.Add(50 * time.Second)
	_, err := s.Sync(mid)
	require.NoError(t, err)
	b := position.New(s.ID, "bob", "", s.DistIndex, mid)
	subscribe(t, s, b, 100)
	assert.Equal(t, "200", b.Shares.String(), "late buyer is diluted by spent input")

	_, err = s.Sync(s.EndTime)
	require.NoError(t, err)
	_, err = a.Sync(s)
	require.NoError(t, err)
	_, err = b.Sync(s)
	require.NoError(t, err)

	assert.Equal(t, "666", a.Purchased.String())
	assert.Equal(t, "333", b.Purchased.String())
	assert.True(t, a.Purchased.GT(b.Purchased))
	assert.True(t, s.OutRemaining.IsZero())

	total := types.DecFromAmount(a.Purchased)
	total, err = total.Add(types.DecFromAmount(b.Purchased))
	require.NoError(t, err)
	total, err = total.Add(a.PendingPurchase)
	require.NoError(t, err)
	total, err = total.Add(b.PendingPurchase)
	require.NoError(t, err)

	assert.True(t, total.Cmp(types.MustDec("1000")) <= 0, "allocated %s exceeds supply", total)
	assert.True(t, total.Cmp(types.MustDec("999.999999999999")) > 0, "allocated %s lost value", total)

	// All input is spent at the end.
	assert.True(t, a.InBalance.IsZero())
	assert.True(t, b.InBalance.IsZero())
	assert.Equal(t, "100", a.Spent.String())
	assert.Equal(t, "100", b.Spent.String())
}

func TestPendingPurchaseCarriesFractions(t *testing.T) {
	s := newStream(10)
	p := position.New(s.ID, "carol", "", s.DistIndex, start)
	subscribe(t, s, p, 3)

	for i := 1; i <= 10; i++ {
		_, err := s.Sync(start.Add(time.Duration(i*10) * time.Second))
		require.NoError(t, err)
		_, err = p.Sync(s)
		require.NoError(t, err)
		assert.True(t, p.PendingPurchase.Cmp(types.OneDec) < 0)
	}

	owed, err := types.DecFromAmount(p.Purchased).Add(p.PendingPurchase)
	require.NoError(t, err)
	assert.True(t, owed.Cmp(types.MustDec("10")) <= 0)
	assert.True(t, owed.Cmp(types.MustDec("9.99999999999999")) > 0, "carry lost value: %s", owed)
	assert.True(t, p.Purchased.Cmp(types.NewAmount(9)) >= 0)
}

func TestSyncIsIdempotent(t *testing.T) {
	s := newStream(1000)
	p := position.New(s.ID, "dave", "", s.DistIndex, start)
	subscribe(t, s, p, 50)

	_, err := s.Sync(start.Add(33 * time.Second))
	require.NoError(t, err)
	_, err = p.Sync(s)
	require.NoError(t, err)
	first := *p

	res, err := p.Sync(s)
	require.NoError(t, err)
	assert.True(t, res.Purchased.IsZero())
	assert.True(t, res.Spent.IsZero())
	assert.True(t, first.Purchased.Equal(p.Purchased))
	assert.True(t, first.PendingPurchase.Equal(p.PendingPurchase))
	assert.True(t, first.InBalance.Equal(p.InBalance))
	assert.True(t, first.Spent.Equal(p.Spent))
	assert.True(t, first.Index.Equal(p.Index))
	assert.Equal(t, first.LastUpdated, p.LastUpdated)
}

func TestSyncRejectsPositionAheadOfStream(t *testing.T) {
	s := newStream(1000)
	p := position.New(s.ID, "eve", "", types.MustDec("1"), start)
	before := *p

	_, err := p.Sync(s)
	require.ErrorIs(t, err, types.ErrUnderflow)
	assert.Equal(t, before, *p)
}

func TestCanAct(t *testing.T) {
	p := position.New(1, "owner", "", types.ZeroDec, start)
	assert.True(t, p.CanAct("owner"))
	assert.False(t, p.CanAct("operator"))
	assert.False(t, p.CanAct(""))

	p.Operator = "operator"
	assert.True(t, p.CanAct("operator"))
}

func TestClose(t *testing.T) {
	p := position.New(1, "owner", "", types.ZeroDec, start)
	p.InBalance = types.NewAmount(5)
	p.Shares = types.NewAmount(5)
	p.Purchased = types.NewAmount(10)

	p.Close(start.Add(time.Hour))
	assert.True(t, p.Exited())
	assert.True(t, p.InBalance.IsZero())
	assert.True(t, p.Shares.IsZero())
	assert.Equal(t, "10", p.Purchased.String())
}
