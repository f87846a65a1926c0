package streamswap_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/store/memory"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func testParams() factory.Params {
	return factory.Params{
		MinStreamDuration:     100 * time.Second,
		MinDurationUntilStart: 10 * time.Second,
		AcceptedInDenom:       "in",
		StreamCreationFee:     types.NewCoin("fee", types.NewAmount(100)),
		ExitFeePercent:        types.MustDec("0.01"),
		FeeCollector:          "collector",
		ProtocolAdmin:         "admin",
		Governance:            "gov",
	}
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	clock  *fakeClock
	store  *memory.Store
	engine *streamswap.Engine
	start  time.Time
	end    time.Time
}

func newHarness(t *testing.T, opts ...streamswap.Option) *harness {
	t.Helper()

	h := &harness{
		t:     t,
		ctx:   context.Background(),
		clock: &fakeClock{now: t0},
		store: memory.New(),
		start: t0.Add(time.Minute),
		end:   t0.Add(time.Minute + 100*time.Second),
	}
	opts = append([]streamswap.Option{
		streamswap.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		streamswap.WithClock(h.clock.Now),
		streamswap.WithDefaultParams(testParams()),
	}, opts...)
	h.engine = streamswap.New(h.store, opts...)
	require.NoError(t, h.engine.Start(h.ctx))
	t.Cleanup(func() { _ = h.engine.Stop() })
	return h
}

// at moves the clock to the stream start plus offset seconds.
func (h *harness) at(offset int) {
	h.clock.Set(h.start.Add(time.Duration(offset) * time.Second))
}

func coins(t *testing.T, cs ...types.Coin) types.Coins {
	t.Helper()
	out, err := types.NewCoins(cs...)
	require.NoError(t, err)
	return out
}

func coin(denom string, n uint64) types.Coin {
	return types.NewCoin(denom, types.NewAmount(n))
}

func (h *harness) createMsg() streamswap.CreateStreamMsg {
	return streamswap.CreateStreamMsg{
		Sender:    "seller",
		Funds:     coins(h.t, coin("fee", 100), coin("out", 1000)),
		Name:      "Test stream",
		URL:       "https://example.com/sale",
		Treasury:  "treasury",
		InDenom:   "in",
		OutDenom:  "out",
		OutSupply: types.NewAmount(1000),
		StartTime: h.start,
		EndTime:   h.end,
	}
}

func (h *harness) create(mutate ...func(*streamswap.CreateStreamMsg)) uint64 {
	h.t.Helper()
	msg := h.createMsg()
	for _, fn := range mutate {
		fn(&msg)
	}
	res, err := h.engine.CreateStream(h.ctx, msg)
	require.NoError(h.t, err)
	return res.Stream.ID
}

func (h *harness) subscribe(streamID uint64, owner string, amount uint64) *streamswap.Result {
	h.t.Helper()
	res, err := h.engine.Subscribe(h.ctx, streamswap.SubscribeMsg{
		StreamID: streamID,
		Sender:   owner,
		Funds:    coins(h.t, coin("in", amount)),
	})
	require.NoError(h.t, err)
	return res
}

func (h *harness) exit(streamID uint64, owner string) *streamswap.Result {
	h.t.Helper()
	res, err := h.engine.ExitStream(h.ctx, streamswap.PositionMsg{StreamID: streamID, Sender: owner})
	require.NoError(h.t, err)
	return res
}

// paid sums the transfers of kind in denom.
func paid(ts []*transfer.Transfer, kind transfer.Kind, denom string) string {
	total := types.ZeroAmount
	for _, t := range ts {
		if t.Kind == kind && t.Coin.Denom == denom {
			total, _ = total.Add(t.Coin.Amount)
		}
	}
	return total.String()
}
