package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/id"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// Amounts and decimals are stored as decimal text and parsed back through
// the checked types, so an out of range value is an error on read.

// ==================== Stream models ====================

type streamModel struct {
	grove.BaseModel `grove:"table:streamswap_streams"`

	ID                   int64      `grove:"id,pk"`
	Name                 string     `grove:"name"`
	URL                  string     `grove:"url"`
	Treasury             string     `grove:"treasury"`
	StreamAdmin          string     `grove:"stream_admin"`
	StartTime            time.Time  `grove:"start_time"`
	EndTime              time.Time  `grove:"end_time"`
	LastUpdated          time.Time  `grove:"last_updated"`
	OutDenom             string     `grove:"out_denom"`
	OutSupply            string     `grove:"out_supply"`
	OutRemaining         string     `grove:"out_remaining"`
	InDenom              string     `grove:"in_denom"`
	InSupply             string     `grove:"in_supply"`
	SpentIn              string     `grove:"spent_in"`
	Shares               string     `grove:"shares"`
	DistIndex            string     `grove:"dist_index"`
	CurrentStreamedPrice string     `grove:"current_streamed_price"`
	Threshold            string     `grove:"threshold"`
	Status               string     `grove:"status"`
	PauseDate            *time.Time `grove:"pause_date"`
	CreatedAt            time.Time  `grove:"created_at"`
	UpdatedAt            time.Time  `grove:"updated_at"`
}

func toStreamModel(s *stream.Stream) *streamModel {
	return &streamModel{
		ID:                   int64(s.ID), //nolint:gosec // stream ids come from the sequence table
		Name:                 s.Name,
		URL:                  s.URL,
		Treasury:             s.Treasury,
		StreamAdmin:          s.StreamAdmin,
		StartTime:            s.StartTime,
		EndTime:              s.EndTime,
		LastUpdated:          s.LastUpdated,
		OutDenom:             s.OutDenom,
		OutSupply:            s.OutSupply.String(),
		OutRemaining:         s.OutRemaining.String(),
		InDenom:              s.InDenom,
		InSupply:             s.InSupply.String(),
		SpentIn:              s.SpentIn.String(),
		Shares:               s.Shares.String(),
		DistIndex:            s.DistIndex.String(),
		CurrentStreamedPrice: s.CurrentStreamedPrice.String(),
		Threshold:            s.Threshold.String(),
		Status:               string(s.Status),
		PauseDate:            optionalTime(s.PauseDate),
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func fromStreamModel(m *streamModel) (*stream.Stream, error) {
	var d decoder
	s := &stream.Stream{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:                   uint64(m.ID), //nolint:gosec // ids are never negative
		Name:                 m.Name,
		URL:                  m.URL,
		Treasury:             m.Treasury,
		StreamAdmin:          m.StreamAdmin,
		StartTime:            m.StartTime.UTC(),
		EndTime:              m.EndTime.UTC(),
		LastUpdated:          m.LastUpdated.UTC(),
		OutDenom:             m.OutDenom,
		OutSupply:            d.amount(m.OutSupply),
		OutRemaining:         d.amount(m.OutRemaining),
		InDenom:              m.InDenom,
		InSupply:             d.amount(m.InSupply),
		SpentIn:              d.amount(m.SpentIn),
		Shares:               d.amount(m.Shares),
		DistIndex:            d.dec(m.DistIndex),
		CurrentStreamedPrice: d.dec(m.CurrentStreamedPrice),
		Threshold:            d.amount(m.Threshold),
		Status:               stream.Status(m.Status),
		PauseDate:            derefTime(m.PauseDate),
	}
	if d.err != nil {
		return nil, d.err
	}
	return s, nil
}

// ==================== Position models ====================

type positionModel struct {
	grove.BaseModel `grove:"table:streamswap_positions"`

	ID              string     `grove:"id,pk"`
	StreamID        int64      `grove:"stream_id"`
	Owner           string     `grove:"owner"`
	Operator        string     `grove:"operator"`
	InBalance       string     `grove:"in_balance"`
	Shares          string     `grove:"shares"`
	DistIndex       string     `grove:"dist_index"`
	Purchased       string     `grove:"purchased"`
	PendingPurchase string     `grove:"pending_purchase"`
	Spent           string     `grove:"spent"`
	LastUpdated     time.Time  `grove:"last_updated"`
	ExitDate        *time.Time `grove:"exit_date"`
	CreatedAt       time.Time  `grove:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"`
}

func toPositionModel(p *position.Position) *positionModel {
	return &positionModel{
		ID:              p.ID.String(),
		StreamID:        int64(p.StreamID), //nolint:gosec // stream ids come from the sequence table
		Owner:           p.Owner,
		Operator:        p.Operator,
		InBalance:       p.InBalance.String(),
		Shares:          p.Shares.String(),
		DistIndex:       p.Index.String(),
		Purchased:       p.Purchased.String(),
		PendingPurchase: p.PendingPurchase.String(),
		Spent:           p.Spent.String(),
		LastUpdated:     p.LastUpdated,
		ExitDate:        optionalTime(p.ExitDate),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromPositionModel(m *positionModel) (*position.Position, error) {
	posID, err := id.ParsePositionID(m.ID)
	if err != nil {
		return nil, err
	}

	var d decoder
	p := &position.Position{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:              posID,
		StreamID:        uint64(m.StreamID), //nolint:gosec // ids are never negative
		Owner:           m.Owner,
		Operator:        m.Operator,
		InBalance:       d.amount(m.InBalance),
		Shares:          d.amount(m.Shares),
		Index:           d.dec(m.DistIndex),
		Purchased:       d.amount(m.Purchased),
		PendingPurchase: d.dec(m.PendingPurchase),
		Spent:           d.amount(m.Spent),
		LastUpdated:     m.LastUpdated.UTC(),
		ExitDate:        derefTime(m.ExitDate),
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

// ==================== Transfer models ====================

type transferModel struct {
	grove.BaseModel `grove:"table:streamswap_transfers"`

	ID        string    `grove:"id,pk"`
	StreamID  int64     `grove:"stream_id"`
	Seq       int       `grove:"seq"`
	Kind      string    `grove:"kind"`
	Recipient string    `grove:"recipient"`
	Denom     string    `grove:"denom"`
	Amount    string    `grove:"amount"`
	CreatedAt time.Time `grove:"created_at"`
}

// seq orders transfers that were committed together.
func toTransferModel(t *transfer.Transfer, seq int) *transferModel {
	return &transferModel{
		ID:        t.ID.String(),
		StreamID:  int64(t.StreamID), //nolint:gosec // stream ids come from the sequence table
		Seq:       seq,
		Kind:      string(t.Kind),
		Recipient: t.Recipient,
		Denom:     t.Coin.Denom,
		Amount:    t.Coin.Amount.String(),
		CreatedAt: t.CreatedAt,
	}
}

func fromTransferModel(m *transferModel) (*transfer.Transfer, error) {
	xferID, err := id.ParseTransferID(m.ID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	return &transfer.Transfer{
		ID:        xferID,
		StreamID:  uint64(m.StreamID), //nolint:gosec // ids are never negative
		Kind:      transfer.Kind(m.Kind),
		Recipient: m.Recipient,
		Coin:      types.NewCoin(m.Denom, amount),
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

// ==================== Params models ====================

// paramsRowID is the key of the single params row.
const paramsRowID = 1

type paramsModel struct {
	grove.BaseModel `grove:"table:streamswap_params"`

	ID                    int       `grove:"id,pk"`
	MinStreamDuration     int64     `grove:"min_stream_duration"`
	MinDurationUntilStart int64     `grove:"min_duration_until_start"`
	AcceptedInDenom       string    `grove:"accepted_in_denom"`
	CreationFeeDenom      string    `grove:"creation_fee_denom"`
	CreationFeeAmount     string    `grove:"creation_fee_amount"`
	ExitFeePercent        string    `grove:"exit_fee_percent"`
	FeeCollector          string    `grove:"fee_collector"`
	ProtocolAdmin         string    `grove:"protocol_admin"`
	Governance            string    `grove:"governance"`
	UpdatedAt             time.Time `grove:"updated_at"`
}

func toParamsModel(p *factory.Params) *paramsModel {
	return &paramsModel{
		ID:                    paramsRowID,
		MinStreamDuration:     int64(p.MinStreamDuration),
		MinDurationUntilStart: int64(p.MinDurationUntilStart),
		AcceptedInDenom:       p.AcceptedInDenom,
		CreationFeeDenom:      p.StreamCreationFee.Denom,
		CreationFeeAmount:     p.StreamCreationFee.Amount.String(),
		ExitFeePercent:        p.ExitFeePercent.String(),
		FeeCollector:          p.FeeCollector,
		ProtocolAdmin:         p.ProtocolAdmin,
		Governance:            p.Governance,
		UpdatedAt:             p.UpdatedAt,
	}
}

func fromParamsModel(m *paramsModel) (*factory.Params, error) {
	var d decoder
	p := &factory.Params{
		MinStreamDuration:     time.Duration(m.MinStreamDuration),
		MinDurationUntilStart: time.Duration(m.MinDurationUntilStart),
		AcceptedInDenom:       m.AcceptedInDenom,
		StreamCreationFee:     types.NewCoin(m.CreationFeeDenom, d.amount(m.CreationFeeAmount)),
		ExitFeePercent:        d.dec(m.ExitFeePercent),
		FeeCollector:          m.FeeCollector,
		ProtocolAdmin:         m.ProtocolAdmin,
		Governance:            m.Governance,
		UpdatedAt:             m.UpdatedAt.UTC(),
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

// ==================== Helpers ====================

// decoder parses stored numeric text and keeps the first failure.
type decoder struct {
	err error
}

func (d *decoder) amount(s string) types.Amount {
	if d.err != nil {
		return types.ZeroAmount
	}
	a, err := types.ParseAmount(s)
	d.err = err
	return a
}

func (d *decoder) dec(s string) types.Dec {
	if d.err != nil {
		return types.ZeroDec
	}
	x, err := types.ParseDec(s)
	d.err = err
	return x
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
