package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/id"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
	"github.com/xraph/streamswap/types"
)

// ==================== Stream models ====================

type streamModel struct {
	grove.BaseModel `grove:"table:streamswap_streams"`

	ID                   int64      `grove:"id,pk"                  bson:"_id"`
	Name                 string     `grove:"name"                   bson:"name"`
	URL                  string     `grove:"url"                    bson:"url,omitempty"`
	Treasury             string     `grove:"treasury"               bson:"treasury"`
	StreamAdmin          string     `grove:"stream_admin"           bson:"stream_admin"`
	StartTime            time.Time  `grove:"start_time"             bson:"start_time"`
	EndTime              time.Time  `grove:"end_time"               bson:"end_time"`
	LastUpdated          time.Time  `grove:"last_updated"           bson:"last_updated"`
	OutDenom             string     `grove:"out_denom"              bson:"out_denom"`
	OutSupply            string     `grove:"out_supply"             bson:"out_supply"`
	OutRemaining         string     `grove:"out_remaining"          bson:"out_remaining"`
	InDenom              string     `grove:"in_denom"               bson:"in_denom"`
	InSupply             string     `grove:"in_supply"              bson:"in_supply"`
	SpentIn              string     `grove:"spent_in"               bson:"spent_in"`
	Shares               string     `grove:"shares"                 bson:"shares"`
	DistIndex            string     `grove:"dist_index"             bson:"dist_index"`
	CurrentStreamedPrice string     `grove:"current_streamed_price" bson:"current_streamed_price"`
	Threshold            string     `grove:"threshold"              bson:"threshold"`
	Status               string     `grove:"status"                 bson:"status"`
	PauseDate            *time.Time `grove:"pause_date"             bson:"pause_date,omitempty"`
	CreatedAt            time.Time  `grove:"created_at"             bson:"created_at"`
	UpdatedAt            time.Time  `grove:"updated_at"             bson:"updated_at"`
}

func toStreamModel(s *stream.Stream) *streamModel {
	return &streamModel{
		ID:                   int64(s.ID), //nolint:gosec // stream ids come from the counter
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
		OutSupply:            d.amount("out_supply", m.OutSupply),
		OutRemaining:         d.amount("out_remaining", m.OutRemaining),
		InDenom:              m.InDenom,
		InSupply:             d.amount("in_supply", m.InSupply),
		SpentIn:              d.amount("spent_in", m.SpentIn),
		Shares:               d.amount("shares", m.Shares),
		DistIndex:            d.dec("dist_index", m.DistIndex),
		CurrentStreamedPrice: d.dec("current_streamed_price", m.CurrentStreamedPrice),
		Threshold:            d.amount("threshold", m.Threshold),
		Status:               stream.Status(m.Status),
		PauseDate:            derefTime(m.PauseDate),
	}
	if d.err != nil {
		return nil, fmt.Errorf("stream %d: %w", m.ID, d.err)
	}
	return s, nil
}

// ==================== Position models ====================

type positionModel struct {
	grove.BaseModel `grove:"table:streamswap_positions"`

	ID              string     `grove:"id,pk"            bson:"_id"`
	StreamID        int64      `grove:"stream_id"        bson:"stream_id"`
	Owner           string     `grove:"owner"            bson:"owner"`
	Operator        string     `grove:"operator"         bson:"operator,omitempty"`
	InBalance       string     `grove:"in_balance"       bson:"in_balance"`
	Shares          string     `grove:"shares"           bson:"shares"`
	DistIndex       string     `grove:"dist_index"       bson:"dist_index"`
	Purchased       string     `grove:"purchased"        bson:"purchased"`
	PendingPurchase string     `grove:"pending_purchase" bson:"pending_purchase"`
	Spent           string     `grove:"spent"            bson:"spent"`
	LastUpdated     time.Time  `grove:"last_updated"     bson:"last_updated"`
	ExitDate        *time.Time `grove:"exit_date"        bson:"exit_date,omitempty"`
	CreatedAt       time.Time  `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"       bson:"updated_at"`
}

func toPositionModel(p *position.Position) *positionModel {
	return &positionModel{
		ID:              p.ID.String(),
		StreamID:        int64(p.StreamID), //nolint:gosec // stream ids come from the counter
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
		InBalance:       d.amount("in_balance", m.InBalance),
		Shares:          d.amount("shares", m.Shares),
		Index:           d.dec("dist_index", m.DistIndex),
		Purchased:       d.amount("purchased", m.Purchased),
		PendingPurchase: d.dec("pending_purchase", m.PendingPurchase),
		Spent:           d.amount("spent", m.Spent),
		LastUpdated:     m.LastUpdated.UTC(),
		ExitDate:        derefTime(m.ExitDate),
	}
	if d.err != nil {
		return nil, fmt.Errorf("position %s: %w", m.ID, d.err)
	}
	return p, nil
}

// ==================== Transfer models ====================

type transferModel struct {
	grove.BaseModel `grove:"table:streamswap_transfers"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	StreamID  int64     `grove:"stream_id"  bson:"stream_id"`
	Seq       int       `grove:"seq"        bson:"seq"`
	Kind      string    `grove:"kind"       bson:"kind"`
	Recipient string    `grove:"recipient"  bson:"recipient"`
	Denom     string    `grove:"denom"      bson:"denom"`
	Amount    string    `grove:"amount"     bson:"amount"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

func toTransferModel(t *transfer.Transfer, seq int) *transferModel {
	return &transferModel{
		ID:        t.ID.String(),
		StreamID:  int64(t.StreamID), //nolint:gosec // stream ids come from the counter
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
		return nil, fmt.Errorf("transfer %s: %w", m.ID, err)
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

const paramsDocID = "params"

type paramsModel struct {
	grove.BaseModel `grove:"table:streamswap_params"`

	ID                    string    `grove:"id,pk"                    bson:"_id"`
	MinStreamDuration     int64     `grove:"min_stream_duration"      bson:"min_stream_duration"`
	MinDurationUntilStart int64     `grove:"min_duration_until_start" bson:"min_duration_until_start"`
	AcceptedInDenom       string    `grove:"accepted_in_denom"        bson:"accepted_in_denom"`
	CreationFeeDenom      string    `grove:"creation_fee_denom"       bson:"creation_fee_denom"`
	CreationFeeAmount     string    `grove:"creation_fee_amount"      bson:"creation_fee_amount"`
	ExitFeePercent        string    `grove:"exit_fee_percent"         bson:"exit_fee_percent"`
	FeeCollector          string    `grove:"fee_collector"            bson:"fee_collector"`
	ProtocolAdmin         string    `grove:"protocol_admin"           bson:"protocol_admin"`
	Governance            string    `grove:"governance"               bson:"governance,omitempty"`
	UpdatedAt             time.Time `grove:"updated_at"               bson:"updated_at"`
}

func toParamsModel(p *factory.Params) *paramsModel {
	return &paramsModel{
		ID:                    paramsDocID,
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
		StreamCreationFee:     types.NewCoin(m.CreationFeeDenom, d.amount("creation_fee_amount", m.CreationFeeAmount)),
		ExitFeePercent:        d.dec("exit_fee_percent", m.ExitFeePercent),
		FeeCollector:          m.FeeCollector,
		ProtocolAdmin:         m.ProtocolAdmin,
		Governance:            m.Governance,
		UpdatedAt:             m.UpdatedAt.UTC(),
	}
	if d.err != nil {
		return nil, fmt.Errorf("params: %w", d.err)
	}
	return p, nil
}

// sequenceModel is a named counter document.
type sequenceModel struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// ==================== Helpers ====================

// decoder parses stored numeric strings and keeps the first failure.
type decoder struct {
	err error
}

func (d *decoder) amount(field, s string) types.Amount {
	if d.err != nil {
		return types.ZeroAmount
	}
	a, err := types.ParseAmount(s)
	if err != nil {
		d.err = fmt.Errorf("%s: %w", field, err)
	}
	return a
}

func (d *decoder) dec(field, s string) types.Dec {
	if d.err != nil {
		return types.ZeroDec
	}
	x, err := types.ParseDec(s)
	if err != nil {
		d.err = fmt.Errorf("%s: %w", field, err)
	}
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
