package plugin_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/streamswap/plugin"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/types"
)

type recorder struct {
	name    string
	created atomic.Int32
	paused  atomic.Int32
	fail    bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnStreamCreated(context.Context, *stream.Stream) error {
	r.created.Add(1)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) OnStreamPaused(context.Context, *stream.Stream) error {
	r.paused.Add(1)
	return nil
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) OnStreamCreated(ctx context.Context, _ *stream.Stream) error {
	<-ctx.Done()
	return ctx.Err()
}

type flatFee struct{}

func (flatFee) Name() string { return "flat-fee" }

func (flatFee) Split(spent types.Amount) (types.Amount, types.Amount, error) {
	fee := types.MinAmount(spent, types.NewAmount(5))
	revenue, err := spent.Sub(fee)
	return revenue, fee, err
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(&recorder{name: "a"}))
	assert.Error(t, r.Register(&recorder{name: "a"}))
	assert.Equal(t, 1, r.Count())
	assert.NotNil(t, r.Get("a"))
	assert.Nil(t, r.Get("b"))
}

func TestEmitDispatchesByInterface(t *testing.T) {
	r := plugin.NewRegistry()
	a := &recorder{name: "a"}
	b := &recorder{name: "b", fail: true}
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	s := &stream.Stream{ID: 1}
	r.EmitStreamCreated(context.Background(), s)
	r.EmitStreamPaused(context.Background(), s)
	r.EmitStreamResumed(context.Background(), s)

	assert.Equal(t, int32(1), a.created.Load())
	assert.Equal(t, int32(1), b.created.Load(), "a failing hook still runs")
	assert.Equal(t, int32(1), a.paused.Load())
}

func TestEmitTimesOut(t *testing.T) {
	r := plugin.NewRegistry().WithTimeout(20 * time.Millisecond)
	require.NoError(t, r.Register(slow{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.EmitStreamCreated(ctx, &stream.Stream{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit did not return after the hook timeout")
	}
}

func TestFeeCalculator(t *testing.T) {
	r := plugin.NewRegistry()
	assert.Nil(t, r.FeeCalculator())

	require.NoError(t, r.Register(flatFee{}))
	calc := r.FeeCalculator()
	require.NotNil(t, calc)

	revenue, fee, err := calc.Split(types.NewAmount(100))
	require.NoError(t, err)
	assert.Equal(t, "95", revenue.String())
	assert.Equal(t, "5", fee.String())
}
