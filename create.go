package streamswap

import (
	"context"
	"time"

	"github.com/xraph/streamswap/payment"
	"github.com/xraph/streamswap/store"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// CreateStreamMsg requests a new stream.
type CreateStreamMsg struct {
	Sender string
	// Funds must be exactly the creation fee plus OutSupply of OutDenom.
	Funds types.Coins

	Name        string
	URL         string
	Treasury    string // defaults to Sender
	StreamAdmin string // defaults to Sender

	InDenom   string
	OutDenom  string
	OutSupply types.Amount

	StartTime time.Time
	EndTime   time.Time

	// Threshold is the minimum total raise. Nil means none.
	Threshold *types.Amount
}

// CreateStream validates msg, takes custody of the output supply and
// registers a Waiting stream. A stream id is allocated only after every
// check passed.
func (e *Engine) CreateStream(ctx context.Context, msg CreateStreamMsg) (*Result, error) {
	params, err := e.params(ctx)
	if err != nil {
		return nil, err
	}
	now := e.now()

	if err := validateName(msg.Name); err != nil {
		return nil, err
	}
	if err := validateURL(msg.URL); err != nil {
		return nil, err
	}
	if err := validateDenoms(params, msg.InDenom, msg.OutDenom, msg.OutSupply, msg.Threshold); err != nil {
		return nil, err
	}
	start, end := msg.StartTime.UTC(), msg.EndTime.UTC()
	if err := validateSchedule(params, start, end, now); err != nil {
		return nil, err
	}

	expected, err := payment.ExpectedCreation(params.StreamCreationFee, msg.OutDenom, msg.OutSupply)
	if err != nil {
		return nil, err
	}
	if err := payment.Check(expected, msg.Funds); err != nil {
		return nil, err
	}

	streamID, err := e.store.NextStreamID(ctx)
	if err != nil {
		return nil, err
	}

	cfg := stream.Config{
		Name:        msg.Name,
		URL:         msg.URL,
		Treasury:    firstNonEmpty(msg.Treasury, msg.Sender),
		StreamAdmin: firstNonEmpty(msg.StreamAdmin, msg.Sender),
		InDenom:     msg.InDenom,
		OutDenom:    msg.OutDenom,
		OutSupply:   msg.OutSupply,
		StartTime:   start,
		EndTime:     end,
	}
	if msg.Threshold != nil {
		cfg.Threshold = *msg.Threshold
	}
	s := stream.New(streamID, cfg, now)

	fee := transfer.New(streamID, transfer.KindCreationFee, params.FeeCollector, params.StreamCreationFee, now)
	cs := &store.Changeset{
		Stream:    s,
		NewStream: true,
		Transfers: []*transfer.Transfer{fee},
	}
	if err := e.store.Commit(ctx, cs); err != nil {
		return nil, err
	}

	e.logger.Info("stream created",
		"stream_id", streamID,
		"treasury", s.Treasury,
		"out_supply", s.OutSupply.String()+s.OutDenom,
		"start_time", s.StartTime,
		"end_time", s.EndTime,
	)
	e.plugins.EmitStreamCreated(ctx, s)

	return &Result{Stream: s, Transfers: cs.Transfers}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
