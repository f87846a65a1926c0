package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/position"
	swapstore "github.com/xraph/streamswap/store"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
)

// Collection name constants.
const (
	colStreams   = "streamswap_streams"
	colPositions = "streamswap_positions"
	colTransfers = "streamswap_transfers"
	colParams    = "streamswap_params"
	colSequences = "streamswap_sequences"
)

// streamSequence names the counter document that hands out stream ids.
const streamSequence = "stream"

// compile-time interface check
var _ swapstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB

	// transactions wraps each Commit in a multi-document transaction.
	transactions bool
}

// Option configures a Store.
type Option func(*Store)

// WithoutTransactions makes Commit write documents one after another
// instead of inside a transaction. MongoDB only supports transactions on
// replica sets and sharded clusters, so a standalone server needs this.
// A failed write then leaves the earlier writes of the changeset in place.
func WithoutTransactions() Option {
	return func(s *Store) { s.transactions = false }
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:           db,
		mdb:          mongodriver.Unwrap(db),
		transactions: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all streamswap collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("streamswap/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Stream Store ====================

func (s *Store) CreateStream(ctx context.Context, st *stream.Stream) error {
	_, err := s.mdb.NewInsert(toStreamModel(st)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("stream %d: %w", st.ID, streamswap.ErrAlreadyExists)
		}
		return fmt.Errorf("streamswap/mongo: create stream: %w", err)
	}
	return nil
}

func (s *Store) GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	var m streamModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(streamID)}). //nolint:gosec // stream ids come from the counter
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, streamswap.ErrStreamNotFound
		}
		return nil, fmt.Errorf("streamswap/mongo: get stream: %w", err)
	}
	return fromStreamModel(&m)
}

func (s *Store) ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	var models []streamModel

	filter := bson.M{"_id": bson.M{"$gt": int64(opts.StartAfter)}} //nolint:gosec // stream ids come from the counter
	if len(opts.Statuses) > 0 {
		statuses := make(bson.A, len(opts.Statuses))
		for i, st := range opts.Statuses {
			statuses[i] = string(st)
		}
		filter["status"] = bson.M{"$in": statuses}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamswap/mongo: list streams: %w", err)
	}

	result := make([]*stream.Stream, len(models))
	for i := range models {
		st, err := fromStreamModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = st
	}
	return result, nil
}

func (s *Store) UpdateStream(ctx context.Context, st *stream.Stream) error {
	m := toStreamModel(st)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamswap/mongo: update stream: %w", err)
	}
	if res.MatchedCount() == 0 {
		return streamswap.ErrStreamNotFound
	}
	return nil
}

// ==================== Position Store ====================

func (s *Store) GetPosition(ctx context.Context, streamID uint64, owner string) (*position.Position, error) {
	var m positionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"stream_id": int64(streamID), "owner": owner}). //nolint:gosec // stream ids come from the counter
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, streamswap.ErrPositionNotFound
		}
		return nil, fmt.Errorf("streamswap/mongo: get position: %w", err)
	}
	return fromPositionModel(&m)
}

func (s *Store) ListPositions(ctx context.Context, streamID uint64, opts position.ListOpts) ([]*position.Position, error) {
	var models []positionModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{
			"stream_id": int64(streamID), //nolint:gosec // stream ids come from the counter
			"owner":     bson.M{"$gt": opts.StartAfter},
		}).
		Sort(bson.D{{Key: "owner", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamswap/mongo: list positions: %w", err)
	}

	result := make([]*position.Position, len(models))
	for i := range models {
		p, err := fromPositionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// UpsertPosition writes p keyed by (stream_id, owner). The id and creation
// time are only set when the document is first inserted.
func (s *Store) UpsertPosition(ctx context.Context, p *position.Position) error {
	m := toPositionModel(p)

	set := bson.M{
		"stream_id":        m.StreamID,
		"owner":            m.Owner,
		"operator":         m.Operator,
		"in_balance":       m.InBalance,
		"shares":           m.Shares,
		"dist_index":       m.DistIndex,
		"purchased":        m.Purchased,
		"pending_purchase": m.PendingPurchase,
		"spent":            m.Spent,
		"last_updated":     m.LastUpdated,
		"updated_at":       m.UpdatedAt,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": m.ID, "created_at": m.CreatedAt},
	}
	if m.ExitDate != nil {
		set["exit_date"] = *m.ExitDate
	} else {
		update["$unset"] = bson.M{"exit_date": ""}
	}

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"stream_id": m.StreamID, "owner": m.Owner}).
		SetUpdate(update).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamswap/mongo: upsert position: %w", err)
	}
	return nil
}

// ==================== Transfer Store ====================

func (s *Store) CreateTransfers(ctx context.Context, ts []*transfer.Transfer) error {
	if len(ts) == 0 {
		return nil
	}
	models := make([]transferModel, len(ts))
	for i, t := range ts {
		models[i] = *toTransferModel(t, i)
	}
	if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
		return fmt.Errorf("streamswap/mongo: create transfers: %w", err)
	}
	return nil
}

func (s *Store) ListTransfers(ctx context.Context, streamID uint64, opts transfer.ListOpts) ([]*transfer.Transfer, error) {
	var models []transferModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"stream_id": int64(streamID)}). //nolint:gosec // stream ids come from the counter
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamswap/mongo: list transfers: %w", err)
	}

	result := make([]*transfer.Transfer, len(models))
	for i := range models {
		t, err := fromTransferModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// ==================== Params Store ====================

func (s *Store) GetParams(ctx context.Context) (*factory.Params, error) {
	var m paramsModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": paramsDocID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, streamswap.ErrParamsNotFound
		}
		return nil, fmt.Errorf("streamswap/mongo: get params: %w", err)
	}
	return fromParamsModel(&m)
}

func (s *Store) SaveParams(ctx context.Context, p *factory.Params) error {
	m := toParamsModel(p)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"min_stream_duration":      m.MinStreamDuration,
			"min_duration_until_start": m.MinDurationUntilStart,
			"accepted_in_denom":        m.AcceptedInDenom,
			"creation_fee_denom":       m.CreationFeeDenom,
			"creation_fee_amount":      m.CreationFeeAmount,
			"exit_fee_percent":         m.ExitFeePercent,
			"fee_collector":            m.FeeCollector,
			"protocol_admin":           m.ProtocolAdmin,
			"governance":               m.Governance,
			"updated_at":               m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamswap/mongo: save params: %w", err)
	}
	return nil
}

// NextStreamID atomically increments the stream counter document.
func (s *Store) NextStreamID(ctx context.Context) (uint64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var seq sequenceModel
	err := s.mdb.Collection(colSequences).
		FindOneAndUpdate(ctx, bson.M{"_id": streamSequence}, bson.M{"$inc": bson.M{"value": 1}}, opts).
		Decode(&seq)
	if err != nil {
		return 0, fmt.Errorf("streamswap/mongo: next stream id: %w", err)
	}
	return uint64(seq.Value), nil //nolint:gosec // the counter starts at 1
}

// ==================== Commit ====================

// Commit writes cs inside a session transaction, so nothing is kept when
// any write fails. See WithoutTransactions for standalone servers.
func (s *Store) Commit(ctx context.Context, cs *swapstore.Changeset) error {
	if !s.transactions {
		return s.apply(ctx, cs)
	}

	session, err := s.mdb.Collection(colStreams).Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("streamswap/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, s.apply(txCtx, cs)
	})
	return err
}

// apply writes cs stream first, then positions, then transfers.
func (s *Store) apply(ctx context.Context, cs *swapstore.Changeset) error {
	if cs.Stream != nil {
		var err error
		if cs.NewStream {
			err = s.CreateStream(ctx, cs.Stream)
		} else {
			err = s.UpdateStream(ctx, cs.Stream)
		}
		if err != nil {
			return err
		}
	}
	for _, p := range cs.Positions {
		if err := s.UpsertPosition(ctx, p); err != nil {
			return err
		}
	}
	return s.CreateTransfers(ctx, cs.Transfers)
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all streamswap collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colStreams: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colPositions: {
			{
				Keys:    bson.D{{Key: "stream_id", Value: 1}, {Key: "owner", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colTransfers: {
			{Keys: bson.D{{Key: "stream_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "recipient", Value: 1}}},
		},
		colParams: {},
	}
}
