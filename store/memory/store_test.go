package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/store"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

var now = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func newStream(streamID uint64) *stream.Stream {
	return stream.New(streamID, stream.Config{
		Name:      "memory",
		Treasury:  "treasury",
		InDenom:   "in",
		OutDenom:  "out",
		OutSupply: types.NewAmount(100),
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	}, now)
}

func TestStreamCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	st := newStream(1)
	require.NoError(t, s.CreateStream(ctx, st))
	assert.ErrorIs(t, s.CreateStream(ctx, st), streamswap.ErrAlreadyExists)

	got, err := s.GetStream(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "memory", got.Name)

	// Mutating a returned copy must not leak into the store.
	got.Name = "changed"
	again, err := s.GetStream(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "memory", again.Name)

	require.NoError(t, s.UpdateStream(ctx, got))
	again, err = s.GetStream(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "changed", again.Name)

	_, err = s.GetStream(ctx, 99)
	assert.True(t, streamswap.IsNotFound(err))
	assert.ErrorIs(t, s.UpdateStream(ctx, newStream(99)), streamswap.ErrStreamNotFound)
}

func TestListStreams(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := uint64(1); i <= 5; i++ {
		st := newStream(i)
		if i%2 == 0 {
			st.Status = stream.StatusActive
		}
		require.NoError(t, s.CreateStream(ctx, st))
	}

	all, err := s.ListStreams(ctx, stream.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, st := range all {
		assert.Equal(t, uint64(i+1), st.ID)
	}

	page, err := s.ListStreams(ctx, stream.ListOpts{StartAfter: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].ID)
	assert.Equal(t, uint64(4), page[1].ID)

	active, err := s.ListStreams(ctx, stream.ListOpts{Statuses: []stream.Status{stream.StatusActive}})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, uint64(2), active[0].ID)
}

func TestPositions(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, owner := range []string{"carol", "alice", "bob"} {
		require.NoError(t, s.UpsertPosition(ctx, position.New(1, owner, "", types.ZeroDec, now)))
	}

	p, err := s.GetPosition(ctx, 1, "alice")
	require.NoError(t, err)
	p.InBalance = types.NewAmount(7)
	require.NoError(t, s.UpsertPosition(ctx, p))

	p, err = s.GetPosition(ctx, 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, "7", p.InBalance.String())

	_, err = s.GetPosition(ctx, 2, "alice")
	assert.ErrorIs(t, err, streamswap.ErrPositionNotFound)

	list, err := s.ListPositions(ctx, 1, position.ListOpts{StartAfter: "alice", Limit: 5})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bob", list[0].Owner)
	assert.Equal(t, "carol", list[1].Owner)
}

func TestParamsAndSequence(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetParams(ctx)
	assert.ErrorIs(t, err, streamswap.ErrParamsNotFound)

	p := factory.DefaultParams()
	require.NoError(t, s.SaveParams(ctx, &p))
	got, err := s.GetParams(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ProtocolAdmin, got.ProtocolAdmin)

	for want := uint64(1); want <= 3; want++ {
		streamID, err := s.NextStreamID(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, streamID)
	}
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	s := New()

	st := newStream(1)
	p := position.New(1, "alice", "", types.ZeroDec, now)
	xfer := transfer.New(1, transfer.KindCreationFee, "collector", types.NewCoin("fee", types.NewAmount(10)), now)

	require.NoError(t, s.Commit(ctx, &store.Changeset{
		Stream:    st,
		NewStream: true,
		Positions: []*position.Position{p},
		Transfers: []*transfer.Transfer{xfer},
	}))

	_, err := s.GetStream(ctx, 1)
	require.NoError(t, err)
	_, err = s.GetPosition(ctx, 1, "alice")
	require.NoError(t, err)
	ts, err := s.ListTransfers(ctx, 1, transfer.ListOpts{})
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, xfer.ID, ts[0].ID)

	// A rejected commit writes nothing.
	err = s.Commit(ctx, &store.Changeset{
		Stream:    newStream(2),
		Positions: []*position.Position{position.New(2, "bob", "", types.ZeroDec, now)},
	})
	require.ErrorIs(t, err, streamswap.ErrStreamNotFound)
	_, err = s.GetPosition(ctx, 2, "bob")
	assert.ErrorIs(t, err, streamswap.ErrPositionNotFound)

	assert.ErrorIs(t, s.Commit(ctx, &store.Changeset{Stream: st, NewStream: true}), streamswap.ErrAlreadyExists)
}

func TestListTransfersPaging(t *testing.T) {
	ctx := context.Background()
	s := New()

	var ts []*transfer.Transfer
	for i := 0; i < 4; i++ {
		ts = append(ts, transfer.New(1, transfer.KindWithdraw, "alice", types.NewCoin("in", types.NewAmount(uint64(i+1))), now))
	}
	ts = append(ts, transfer.New(2, transfer.KindWithdraw, "bob", types.NewCoin("in", types.NewAmount(1)), now))
	require.NoError(t, s.CreateTransfers(ctx, ts))

	page, err := s.ListTransfers(ctx, 1, transfer.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2", page[0].Coin.Amount.String())
	assert.Equal(t, "3", page[1].Coin.Amount.String())
}

func TestPingAfterClose(t *testing.T) {
	s := New()
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), streamswap.ErrStoreClosed)
}
