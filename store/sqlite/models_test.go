package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/types"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStreamModelKeepsWideAmounts(t *testing.T) {
	s := stream.New(42, stream.Config{
		Name:      "wide",
		Treasury:  "treasury",
		InDenom:   "in",
		OutDenom:  "out",
		OutSupply: types.MustAmount("340282366920938463463374607431768211455"),
		StartTime: t0,
		EndTime:   t0.Add(time.Hour),
	}, t0)
	s.DistIndex = types.MustDec("0.123456789012345678")

	m := toStreamModel(s)
	assert.Nil(t, m.PauseDate)

	got, err := fromStreamModel(m)
	require.NoError(t, err)
	assert.Equal(t, s.OutSupply.String(), got.OutSupply.String())
	assert.True(t, s.DistIndex.Equal(got.DistIndex))
	assert.Equal(t, stream.StatusWaiting, got.Status)
	assert.True(t, got.PauseDate.IsZero())
}

func TestCorruptAmountIsAnError(t *testing.T) {
	p := position.New(1, "alice", "", types.ZeroDec, t0)
	m := toPositionModel(p)
	m.InBalance = "-5"

	_, err := fromPositionModel(m)
	require.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
