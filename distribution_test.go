package streamswap_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

func TestTwoBuyersScenario(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()

	h.at(0)
	h.subscribe(streamID, "alice", 100)

	h.at(50)
	res := h.subscribe(streamID, "bob", 100)
	assert.Equal(t, "200", res.Position.Shares.String())
	assert.Equal(t, "500", res.Stream.OutRemaining.String())

	h.at(100)
	a := h.exit(streamID, "alice")
	b := h.exit(streamID, "bob")

	assert.Equal(t, "666", paid(a.Transfers, transfer.KindExit, "out"))
	assert.Equal(t, "333", paid(b.Transfers, transfer.KindExit, "out"))
	assert.Equal(t, "0", paid(a.Transfers, transfer.KindWithdraw, "in"))
	assert.Equal(t, "0", paid(b.Transfers, transfer.KindWithdraw, "in"))

	fin, err := h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID, Sender: "anyone"})
	require.NoError(t, err)
	assert.Equal(t, stream.StatusFinalized, fin.Stream.Status)
	assert.Equal(t, "198", paid(fin.Transfers, transfer.KindRevenue, "in"))
	assert.Equal(t, "2", paid(fin.Transfers, transfer.KindExitFee, "in"))
	// 666 + 333 leaves one unit of rounding dust for the treasury.
	assert.Equal(t, "1", paid(fin.Transfers, transfer.KindRefund, "out"))
	for _, xfer := range fin.Transfers {
		if xfer.Kind == transfer.KindRevenue {
			assert.Equal(t, "treasury", xfer.Recipient)
		}
		if xfer.Kind == transfer.KindExitFee {
			assert.Equal(t, "collector", xfer.Recipient)
		}
	}

	_, err = h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID, Sender: "anyone"})
	assert.ErrorIs(t, err, streamswap.ErrStreamAlreadyFinalized)
	assert.True(t, streamswap.IsState(err))
}

func TestConservation(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()

	deposits := map[string]uint64{"alice": 70, "bob": 130, "carol": 55, "dave": 9}
	offsets := map[string]int{"alice": 0, "bob": 13, "carol": 41, "dave": 88}
	for _, owner := range []string{"alice", "bob", "carol", "dave"} {
		h.at(offsets[owner])
		h.subscribe(streamID, owner, deposits[owner])
	}

	h.at(60)
	w, err := h.engine.Withdraw(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "bob", Cap: ptr(types.NewAmount(20))})
	require.NoError(t, err)
	all := w.Transfers

	h.at(100)
	for _, owner := range []string{"alice", "bob", "carol", "dave"} {
		all = append(all, h.exit(streamID, owner).Transfers...)
	}
	fin, err := h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID})
	require.NoError(t, err)
	all = append(all, fin.Transfers...)

	ts, err := h.engine.ListTransfers(h.ctx, streamID, 0, streamswap.MaxLimit)
	require.NoError(t, err)
	require.NotEmpty(t, ts)

	// Output: exits plus the treasury refund account for the whole supply,
	// rounding dust included.
	assert.Equal(t, "1000", sum(t, all, "out").String())

	// Input: every deposited unit leaves exactly once.
	assert.Equal(t, "264", sum(t, all, "in").String())
}

func TestFinalizeBeforeExitsReturnsRoundingDust(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()

	h.at(0)
	h.subscribe(streamID, "alice", 100)
	h.at(50)
	h.subscribe(streamID, "bob", 100)

	h.at(100)
	fin, err := h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID})
	require.NoError(t, err)
	assert.Equal(t, "1", paid(fin.Transfers, transfer.KindRefund, "out"))
	assert.True(t, fin.Stream.OutRemaining.IsZero())

	// Finalizing does not touch the stored positions.
	p, err := h.engine.Position(h.ctx, streamID, "alice")
	require.NoError(t, err)
	assert.True(t, p.Purchased.IsZero())

	all := fin.Transfers
	all = append(all, h.exit(streamID, "alice").Transfers...)
	all = append(all, h.exit(streamID, "bob").Transfers...)
	assert.Equal(t, "666", paid(all, transfer.KindExit, "out"))
	assert.Equal(t, "1000", sum(t, all, "out").String())
}

func TestIdempotentAtFixedInstant(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()
	h.at(0)
	h.subscribe(streamID, "alice", 100)

	h.at(37)
	first, err := h.engine.UpdateStream(h.ctx, streamID)
	require.NoError(t, err)
	second, err := h.engine.UpdateStream(h.ctx, streamID)
	require.NoError(t, err)

	assert.True(t, first.DistIndex.Equal(second.DistIndex))
	assert.True(t, first.OutRemaining.Equal(second.OutRemaining))
	assert.True(t, first.InSupply.Equal(second.InSupply))
	assert.Equal(t, first.LastUpdated, second.LastUpdated)

	p1, err := h.engine.UpdatePosition(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "alice"})
	require.NoError(t, err)
	p2, err := h.engine.UpdatePosition(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "alice"})
	require.NoError(t, err)
	assert.True(t, p1.Position.Purchased.Equal(p2.Position.Purchased))
	assert.True(t, p1.Position.PendingPurchase.Equal(p2.Position.PendingPurchase))
	assert.True(t, p1.Position.InBalance.Equal(p2.Position.InBalance))
}

func TestSyncFrequencyDoesNotChangeOutcome(t *testing.T) {
	coarse := newHarness(t)
	fine := newHarness(t)

	for _, h := range []*harness{coarse, fine} {
		streamID := h.create()
		h.at(0)
		h.subscribe(streamID, "alice", 100)
	}
	for i := 1; i < 100; i++ {
		fine.at(i)
		_, err := fine.engine.UpdateStream(fine.ctx, 1)
		require.NoError(t, err)
	}

	coarse.at(100)
	fine.at(100)
	a := coarse.exit(1, "alice")
	b := fine.exit(1, "alice")
	assert.Equal(t, paid(a.Transfers, transfer.KindExit, "out"), paid(b.Transfers, transfer.KindExit, "out"))
	assert.Equal(t, "1000", paid(a.Transfers, transfer.KindExit, "out"))
}

func TestIndexIsMonotonic(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()
	h.at(0)
	h.subscribe(streamID, "alice", 100)

	prev := types.ZeroDec
	for i := 5; i <= 100; i += 5 {
		h.at(i)
		if i == 50 {
			h.subscribe(streamID, "bob", 40)
		}
		s, err := h.engine.UpdateStream(h.ctx, streamID)
		require.NoError(t, err)
		assert.True(t, s.DistIndex.Cmp(prev) >= 0)
		prev = s.DistIndex
	}
}

func TestPauseResumeConservesSupply(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()
	h.at(0)
	h.subscribe(streamID, "alice", 100)

	h.at(25)
	paused, err := h.engine.PauseStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "admin"})
	require.NoError(t, err)
	assert.Equal(t, stream.StatusPaused, paused.Stream.Status)
	assert.Equal(t, "750", paused.Stream.OutRemaining.String())

	_, err = h.engine.PauseStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "admin"})
	assert.ErrorIs(t, err, streamswap.ErrStreamAlreadyPaused)

	h.at(60)
	frozen, err := h.engine.UpdateStream(h.ctx, streamID)
	require.NoError(t, err)
	assert.True(t, frozen.DistIndex.Equal(paused.Stream.DistIndex))

	_, err = h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{StreamID: streamID, Sender: "bob", Funds: coins(t, coin("in", 1))})
	assert.ErrorIs(t, err, streamswap.ErrStreamPaused)

	h.at(75)
	resumed, err := h.engine.ResumeStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "gov"})
	require.NoError(t, err)
	assert.Equal(t, stream.StatusActive, resumed.Stream.Status)
	assert.Equal(t, h.end.Add(50*time.Second), resumed.Stream.EndTime)

	h.at(100)
	_, err = h.engine.ExitStream(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "alice"})
	assert.ErrorIs(t, err, streamswap.ErrStreamNotEnded)

	h.at(150)
	res := h.exit(streamID, "alice")
	assert.Equal(t, "1000", paid(res.Transfers, transfer.KindExit, "out"))
}

func TestWithdrawPaused(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()
	h.at(0)
	h.subscribe(streamID, "alice", 100)

	h.at(40)
	_, err := h.engine.WithdrawPaused(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "alice"})
	assert.ErrorIs(t, err, streamswap.ErrStreamNotPaused)

	_, err = h.engine.PauseStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "admin"})
	require.NoError(t, err)

	h.at(70)
	res, err := h.engine.WithdrawPaused(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "60", paid(res.Transfers, transfer.KindWithdraw, "in"))
	assert.True(t, res.Position.InBalance.IsZero())
	assert.True(t, res.Stream.Shares.IsZero())
	assert.Equal(t, "400", res.Position.Purchased.String())
}

func ptr[T any](v T) *T { return &v }

func sum(t *testing.T, ts []*transfer.Transfer, denom string) types.Amount {
	t.Helper()
	total := types.ZeroAmount
	for _, xfer := range ts {
		if xfer.Coin.Denom != denom {
			continue
		}
		var err error
		total, err = total.Add(xfer.Coin.Amount)
		require.NoError(t, err)
	}
	return total
}
