package streamswap_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/payment"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/threshold"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

func TestCreateStreamValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *harness, m *streamswap.CreateStreamMsg)
		want   error
		kind   streamswap.Kind
	}{
		{"name too short", func(_ *harness, m *streamswap.CreateStreamMsg) { m.Name = "a" }, streamswap.ErrInvalidName, streamswap.KindValidation},
		{"name bad char", func(_ *harness, m *streamswap.CreateStreamMsg) { m.Name = "bad~name" }, streamswap.ErrInvalidName, streamswap.KindValidation},
		{"url too short", func(_ *harness, m *streamswap.CreateStreamMsg) { m.URL = "https://x" }, streamswap.ErrInvalidURL, streamswap.KindValidation},
		{"url bad char", func(_ *harness, m *streamswap.CreateStreamMsg) { m.URL = "https://exa mple.com" }, streamswap.ErrInvalidURL, streamswap.KindValidation},
		{"in denom not accepted", func(_ *harness, m *streamswap.CreateStreamMsg) { m.InDenom = "other" }, streamswap.ErrInDenomNotAccepted, streamswap.KindValidation},
		{"same denom", func(_ *harness, m *streamswap.CreateStreamMsg) { m.OutDenom = "in" }, streamswap.ErrSameDenom, streamswap.KindValidation},
		{"zero supply", func(_ *harness, m *streamswap.CreateStreamMsg) { m.OutSupply = types.ZeroAmount }, streamswap.ErrZeroOutSupply, streamswap.KindValidation},
		{"zero threshold", func(_ *harness, m *streamswap.CreateStreamMsg) { m.Threshold = ptr(types.ZeroAmount) }, threshold.ErrZero, streamswap.KindValidation},
		{"end equals start", func(_ *harness, m *streamswap.CreateStreamMsg) { m.EndTime = m.StartTime }, streamswap.ErrStreamInvalidEndTime, streamswap.KindValidation},
		{"end before start", func(_ *harness, m *streamswap.CreateStreamMsg) { m.EndTime = m.StartTime.Add(-time.Second) }, streamswap.ErrStreamInvalidEndTime, streamswap.KindValidation},
		{"start in the past", func(h *harness, m *streamswap.CreateStreamMsg) {
			m.StartTime = t0.Add(-time.Second)
			m.EndTime = m.StartTime.Add(200 * time.Second)
		}, streamswap.ErrInvalidStartTime, streamswap.KindValidation},
		{"duration too short", func(_ *harness, m *streamswap.CreateStreamMsg) { m.EndTime = m.StartTime.Add(99 * time.Second) }, streamswap.ErrDurationTooShort, streamswap.KindValidation},
		{"starts too soon", func(_ *harness, m *streamswap.CreateStreamMsg) {
			m.StartTime = t0.Add(5 * time.Second)
			m.EndTime = m.StartTime.Add(100 * time.Second)
		}, streamswap.ErrStartsTooSoon, streamswap.KindValidation},
		{"missing creation fee", func(h *harness, m *streamswap.CreateStreamMsg) { m.Funds = coins(h.t, coin("out", 1000)) }, nil, streamswap.KindPayment},
		{"short supply", func(h *harness, m *streamswap.CreateStreamMsg) { m.Funds = coins(h.t, coin("fee", 100), coin("out", 999)) }, nil, streamswap.KindPayment},
		{"extra funds", func(h *harness, m *streamswap.CreateStreamMsg) {
			m.Funds = coins(h.t, coin("fee", 100), coin("out", 1000), coin("in", 1))
		}, nil, streamswap.KindPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			msg := h.createMsg()
			tt.mutate(h, &msg)

			_, err := h.engine.CreateStream(h.ctx, msg)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Equal(t, tt.kind, streamswap.KindOf(err))

			// No id was consumed by the failed attempt.
			assert.Equal(t, uint64(1), h.create())
		})
	}
}

func TestCreateStreamMergesSameDenomFee(t *testing.T) {
	h := newHarness(t)
	fee := types.NewCoin("out", types.NewAmount(10))
	_, err := h.engine.UpdateParams(h.ctx, "admin", factory.Update{StreamCreationFee: &fee})
	require.NoError(t, err)

	res, err := h.engine.CreateStream(h.ctx, func() streamswap.CreateStreamMsg {
		m := h.createMsg()
		m.Funds = coins(t, coin("out", 1010))
		return m
	}())
	require.NoError(t, err)
	require.Len(t, res.Transfers, 1)
	assert.Equal(t, transfer.KindCreationFee, res.Transfers[0].Kind)
	assert.Equal(t, "collector", res.Transfers[0].Recipient)
	assert.Equal(t, "10out", res.Transfers[0].Coin.String())
}

func TestCreateStreamDefaults(t *testing.T) {
	h := newHarness(t)
	res, err := h.engine.CreateStream(h.ctx, func() streamswap.CreateStreamMsg {
		m := h.createMsg()
		m.Treasury = ""
		m.URL = ""
		return m
	}())
	require.NoError(t, err)

	s := res.Stream
	assert.Equal(t, uint64(1), s.ID)
	assert.Equal(t, "seller", s.Treasury)
	assert.Equal(t, "seller", s.StreamAdmin)
	assert.Equal(t, stream.StatusWaiting, s.Status)
	assert.Equal(t, "1000", s.OutRemaining.String())
	assert.Equal(t, uint64(2), h.create())
}

func TestSubscribeRules(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()

	// Subscribing before the start is allowed.
	res := h.subscribe(streamID, "alice", 10)
	assert.Equal(t, stream.StatusWaiting, res.Stream.Status)

	_, err := h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{StreamID: streamID, Sender: "bob", Funds: coins(t, coin("x", 5))})
	assert.True(t, streamswap.IsPayment(err))
	_, err = h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{StreamID: streamID, Sender: "bob"})
	assert.ErrorIs(t, err, payment.ErrNoFunds)

	_, err = h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{StreamID: 42, Sender: "bob", Funds: coins(t, coin("in", 5))})
	assert.True(t, streamswap.IsNotFound(err))

	h.at(100)
	_, err = h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{StreamID: streamID, Sender: "bob", Funds: coins(t, coin("in", 5))})
	assert.ErrorIs(t, err, streamswap.ErrStreamEnded)
	assert.True(t, streamswap.IsState(err))
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()
	h.at(0)
	h.subscribe(streamID, "alice", 100)

	h.at(50)
	_, err := h.engine.Withdraw(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "alice", Cap: ptr(types.NewAmount(80))})
	assert.ErrorIs(t, err, streamswap.ErrWithdrawExceeds)
	assert.True(t, streamswap.IsState(err))

	stored, err := h.engine.Position(h.ctx, streamID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "100", stored.InBalance.String(), "failed withdraw left the balance unchanged")

	_, err = h.engine.Withdraw(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "alice", Cap: ptr(types.ZeroAmount)})
	assert.True(t, streamswap.IsValidation(err))

	res, err := h.engine.Withdraw(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "alice", Cap: ptr(types.NewAmount(20))})
	require.NoError(t, err)
	assert.Equal(t, "30", res.Position.InBalance.String())
	assert.Equal(t, "60", res.Position.Shares.String())
	assert.Equal(t, "60", res.Stream.Shares.String())
	assert.Equal(t, "30", res.Stream.InSupply.String())
	assert.Equal(t, "20", paid(res.Transfers, transfer.KindWithdraw, "in"))

	res, err = h.engine.Withdraw(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "alice"})
	require.NoError(t, err)
	assert.True(t, res.Position.InBalance.IsZero())
	assert.True(t, res.Position.Shares.IsZero())
	assert.True(t, res.Stream.Shares.IsZero())

	_, err = h.engine.Withdraw(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "nobody"})
	assert.True(t, streamswap.IsNotFound(err))
}

func TestOperators(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()
	h.at(0)

	_, err := h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{
		StreamID: streamID, Sender: "bob", OperatorTarget: "alice", Funds: coins(t, coin("in", 10)),
	})
	assert.ErrorIs(t, err, streamswap.ErrNoOperatorTarget)
	assert.True(t, streamswap.IsAuthorization(err))

	_, err = h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{
		StreamID: streamID, Sender: "alice", Operator: "bob", Funds: coins(t, coin("in", 100)),
	})
	require.NoError(t, err)

	res, err := h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{
		StreamID: streamID, Sender: "bob", OperatorTarget: "alice", Funds: coins(t, coin("in", 50)),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Position.Owner)
	assert.Equal(t, "150", res.Position.InBalance.String())

	_, err = h.engine.Withdraw(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "carol", OperatorTarget: "alice"})
	assert.True(t, streamswap.IsAuthorization(err))

	w, err := h.engine.Withdraw(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "bob", OperatorTarget: "alice", Cap: ptr(types.NewAmount(5))})
	require.NoError(t, err)
	assert.Equal(t, "alice", w.Transfers[0].Recipient, "withdrawals always pay the owner")

	_, err = h.engine.UpdateOperator(h.ctx, streamswap.UpdateOperatorMsg{StreamID: streamID, Sender: "alice", NewOperator: "alice"})
	assert.True(t, streamswap.IsValidation(err))

	op, err := h.engine.UpdateOperator(h.ctx, streamswap.UpdateOperatorMsg{StreamID: streamID, Sender: "alice"})
	require.NoError(t, err)
	assert.Empty(t, op.Position.Operator)

	_, err = h.engine.UpdatePosition(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "bob", OperatorTarget: "alice"})
	assert.ErrorIs(t, err, streamswap.ErrUnauthorized)
}

func TestThresholdNotReached(t *testing.T) {
	h := newHarness(t)
	streamID := h.create(func(m *streamswap.CreateStreamMsg) { m.Threshold = ptr(types.NewAmount(500)) })

	h.at(0)
	h.subscribe(streamID, "alice", 100)
	h.at(50)
	h.subscribe(streamID, "bob", 100)

	_, err := h.engine.CancelStreamWithThreshold(h.ctx, streamID)
	assert.ErrorIs(t, err, streamswap.ErrStreamNotEnded)

	h.at(100)
	_, err = h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID, Sender: "treasury"})
	assert.ErrorIs(t, err, threshold.ErrNotReached)
	assert.True(t, streamswap.IsState(err))

	_, err = h.engine.ExitStream(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "alice"})
	assert.ErrorIs(t, err, threshold.ErrNotReached)

	// Buyers may leave before anyone cancels.
	a, err := h.engine.ExitCancelled(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "100", paid(a.Transfers, transfer.KindExitCancelled, "in"))

	c, err := h.engine.CancelStreamWithThreshold(h.ctx, streamID)
	require.NoError(t, err)
	assert.Equal(t, stream.StatusCancelled, c.Stream.Status)
	assert.Equal(t, "1000", paid(c.Transfers, transfer.KindRefund, "out"))

	_, err = h.engine.CancelStreamWithThreshold(h.ctx, streamID)
	assert.ErrorIs(t, err, streamswap.ErrStreamIsCancelled)

	b, err := h.engine.ExitCancelled(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "100", paid(b.Transfers, transfer.KindExitCancelled, "in"))
	assert.True(t, b.Stream.Shares.IsZero())
	assert.True(t, b.Stream.SpentIn.IsZero())
	assert.True(t, b.Stream.InSupply.IsZero())

	_, err = h.engine.ExitCancelled(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "bob"})
	assert.ErrorIs(t, err, streamswap.ErrPositionExited)
}

func TestThresholdReached(t *testing.T) {
	h := newHarness(t)
	streamID := h.create(func(m *streamswap.CreateStreamMsg) { m.Threshold = ptr(types.NewAmount(150)) })
	h.at(0)
	h.subscribe(streamID, "alice", 200)

	h.at(100)
	_, err := h.engine.CancelStreamWithThreshold(h.ctx, streamID)
	assert.ErrorIs(t, err, threshold.ErrReached)
	_, err = h.engine.ExitCancelled(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "alice"})
	assert.ErrorIs(t, err, threshold.ErrReached)

	h.exit(streamID, "alice")
	_, err = h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID})
	require.NoError(t, err)
}

func TestAdminCancel(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()
	h.at(0)
	h.subscribe(streamID, "alice", 100)

	h.at(50)
	_, err := h.engine.CancelStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "mallory"})
	assert.True(t, streamswap.IsAuthorization(err))

	_, err = h.engine.ExitCancelled(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "alice"})
	assert.ErrorIs(t, err, streamswap.ErrStreamNotCancelled)

	res, err := h.engine.CancelStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "admin"})
	require.NoError(t, err)
	assert.Equal(t, stream.StatusCancelled, res.Stream.Status)
	require.Len(t, res.Transfers, 1)
	assert.Equal(t, "treasury", res.Transfers[0].Recipient)
	assert.Equal(t, "1000out", res.Transfers[0].Coin.String())

	_, err = h.engine.CancelStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "admin"})
	assert.ErrorIs(t, err, streamswap.ErrStreamIsCancelled)
	_, err = h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{StreamID: streamID, Sender: "alice", Funds: coins(t, coin("in", 1))})
	assert.ErrorIs(t, err, streamswap.ErrStreamCancelled)
	_, err = h.engine.Withdraw(h.ctx, streamswap.WithdrawMsg{StreamID: streamID, Sender: "alice"})
	assert.ErrorIs(t, err, streamswap.ErrStreamCancelled)
	_, err = h.engine.UpdatePosition(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "alice"})
	assert.ErrorIs(t, err, streamswap.ErrStreamCancelled)
	_, err = h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID})
	assert.ErrorIs(t, err, streamswap.ErrStreamCancelled)

	h.at(200)
	exit, err := h.engine.ExitCancelled(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "100", paid(exit.Transfers, transfer.KindExitCancelled, "in"))
	assert.True(t, exit.Position.Exited())
}

func TestCancelAfterPartialSyncRefundsEveryBuyer(t *testing.T) {
	type deposit struct {
		owner  string
		at     int
		amount uint64
	}
	tests := []struct {
		name     string
		deposits []deposit
		syncAt   []int
		cancelAt int
	}{
		{
			name:     "unit deposits",
			deposits: []deposit{{"a", 0, 1}, {"b", 0, 1}, {"c", 0, 1}},
			syncAt:   []int{50},
			cancelAt: 50,
		},
		{
			name:     "staggered deposits",
			deposits: []deposit{{"alice", 0, 7}, {"bob", 13, 11}, {"carol", 29, 13}, {"dave", 29, 1}},
			syncAt:   []int{33, 61},
			cancelAt: 70,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			streamID := h.create()

			for _, d := range tt.deposits {
				h.at(d.at)
				h.subscribe(streamID, d.owner, d.amount)
				checkInputPool(t, h, streamID)
			}
			for _, at := range tt.syncAt {
				h.at(at)
				for _, d := range tt.deposits {
					_, err := h.engine.UpdatePosition(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: d.owner})
					require.NoError(t, err)
					checkInputPool(t, h, streamID)
				}
			}

			h.at(tt.cancelAt)
			_, err := h.engine.CancelStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "admin"})
			require.NoError(t, err)
			checkInputPool(t, h, streamID)

			var last *streamswap.Result
			for _, d := range tt.deposits {
				last, err = h.engine.ExitCancelled(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: d.owner})
				require.NoError(t, err, "exit %s", d.owner)
				assert.Equal(t, types.NewAmount(d.amount).String(), paid(last.Transfers, transfer.KindExitCancelled, "in"), d.owner)
				checkInputPool(t, h, streamID)
			}

			assert.True(t, last.Stream.InSupply.IsZero())
			assert.True(t, last.Stream.SpentIn.IsZero())
			assert.True(t, last.Stream.Shares.IsZero())
		})
	}
}

// checkInputPool asserts the stream still holds exactly the deposits its
// open positions can reclaim.
func checkInputPool(t *testing.T, h *harness, streamID uint64) {
	t.Helper()

	s, err := h.engine.Stream(h.ctx, streamID)
	require.NoError(t, err)
	ps, err := h.engine.ListPositions(h.ctx, streamID, "", streamswap.MaxLimit)
	require.NoError(t, err)

	owed := types.ZeroAmount
	for _, p := range ps {
		if p.Exited() {
			continue
		}
		deposit, err := p.InBalance.Add(p.Spent)
		require.NoError(t, err)
		owed, err = owed.Add(deposit)
		require.NoError(t, err)
	}
	pool, err := s.TotalRaised()
	require.NoError(t, err)
	assert.Equal(t, owed.String(), pool.String(), "open deposits vs in_supply + spent_in")
}

func TestAdminCancelAfterEnd(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()

	h.at(100)
	_, err := h.engine.CancelStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "admin"})
	assert.ErrorIs(t, err, streamswap.ErrStreamEnded)
	_, err = h.engine.PauseStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "admin"})
	assert.ErrorIs(t, err, streamswap.ErrStreamEnded)
}

func TestFinalizeStream(t *testing.T) {
	h := newHarness(t, streamswap.WithFeeCalculator(payment.PercentFee{Rate: types.MustDec("0.1")}))
	streamID := h.create()

	h.at(0)
	h.subscribe(streamID, "alice", 100)

	h.at(60)
	_, err := h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID})
	assert.ErrorIs(t, err, streamswap.ErrStreamNotEnded)

	h.at(100)
	_, err = h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID, Sender: "alice", NewTreasury: "alice"})
	assert.True(t, streamswap.IsAuthorization(err))

	res, err := h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID, Sender: "treasury", NewTreasury: "vault"})
	require.NoError(t, err)
	assert.Equal(t, "vault", res.Stream.Treasury)
	assert.Equal(t, "90", paid(res.Transfers, transfer.KindRevenue, "in"))
	assert.Equal(t, "10", paid(res.Transfers, transfer.KindExitFee, "in"))

	// Exits still work after finalization.
	exit := h.exit(streamID, "alice")
	assert.Equal(t, "1000", paid(exit.Transfers, transfer.KindExit, "out"))
}

func TestFinalizeRefundsUnsoldSupply(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()

	h.at(100)
	res, err := h.engine.FinalizeStream(h.ctx, streamswap.FinalizeStreamMsg{StreamID: streamID})
	require.NoError(t, err)
	assert.Equal(t, "1000", paid(res.Transfers, transfer.KindRefund, "out"))
	assert.Equal(t, "0", paid(res.Transfers, transfer.KindRevenue, "in"))
}

func TestAdminAuthorization(t *testing.T) {
	h := newHarness(t)
	streamID := h.create()
	h.at(10)

	for _, call := range []func(streamswap.AdminMsg) (*streamswap.Result, error){
		func(m streamswap.AdminMsg) (*streamswap.Result, error) { return h.engine.PauseStream(h.ctx, m) },
		func(m streamswap.AdminMsg) (*streamswap.Result, error) { return h.engine.ResumeStream(h.ctx, m) },
		func(m streamswap.AdminMsg) (*streamswap.Result, error) { return h.engine.CancelStream(h.ctx, m) },
	} {
		_, err := call(streamswap.AdminMsg{StreamID: streamID, Sender: "seller"})
		assert.True(t, streamswap.IsAuthorization(err), "got %v", err)
	}

	_, err := h.engine.ResumeStream(h.ctx, streamswap.AdminMsg{StreamID: streamID, Sender: "admin"})
	assert.ErrorIs(t, err, streamswap.ErrStreamNotPaused)
}

func TestUpdateParams(t *testing.T) {
	h := newHarness(t)

	rate := types.MustDec("0.05")
	_, err := h.engine.UpdateParams(h.ctx, "gov", factory.Update{ExitFeePercent: &rate})
	assert.True(t, streamswap.IsAuthorization(err))

	p, err := h.engine.UpdateParams(h.ctx, "admin", factory.Update{ExitFeePercent: &rate})
	require.NoError(t, err)
	assert.True(t, p.ExitFeePercent.Equal(rate))
	assert.Equal(t, t0, p.UpdatedAt)

	stored, err := h.engine.Params(h.ctx)
	require.NoError(t, err)
	assert.True(t, stored.ExitFeePercent.Equal(rate))

	one := types.OneDec
	_, err = h.engine.UpdateParams(h.ctx, "admin", factory.Update{ExitFeePercent: &one})
	assert.ErrorIs(t, err, factory.ErrInvalidParams)
	assert.True(t, streamswap.IsValidation(err))
}
