package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/position"
	swapstore "github.com/xraph/streamswap/store"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
)

// compile-time interface check
var _ swapstore.Store = (*Store)(nil)

// streamSequence names the counter that hands out stream ids.
const streamSequence = "stream"

// querier builds queries against the pool or an open transaction.
type querier interface {
	NewSelect(model ...any) *sqlitedriver.SelectQuery
	NewInsert(model any) *sqlitedriver.InsertQuery
	NewUpdate(model any) *sqlitedriver.UpdateQuery
	NewRaw(query string, args ...any) *sqlitedriver.RawQuery
}

var (
	_ querier = (*sqlitedriver.SqliteDB)(nil)
	_ querier = (*sqlitedriver.SqliteTx)(nil)
)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("streamswap/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("streamswap/sqlite: migration failed: %w", err)
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
	return createStream(ctx, s.sdb, st)
}

func createStream(ctx context.Context, q querier, st *stream.Stream) error {
	exists, err := streamExists(ctx, q, st.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("stream %d: %w", st.ID, streamswap.ErrAlreadyExists)
	}
	if _, err := q.NewInsert(toStreamModel(st)).Exec(ctx); err != nil {
		return fmt.Errorf("streamswap/sqlite: create stream: %w", err)
	}
	return nil
}

func streamExists(ctx context.Context, q querier, streamID uint64) (bool, error) {
	var n int64
	err := q.NewRaw(`SELECT COUNT(*) FROM streamswap_streams WHERE id = ?`, streamID).Scan(ctx, &n)
	if err != nil {
		return false, fmt.Errorf("streamswap/sqlite: stream exists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	m := new(streamModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", streamID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, streamswap.ErrStreamNotFound
		}
		return nil, fmt.Errorf("streamswap/sqlite: get stream: %w", err)
	}
	return fromStreamModel(m)
}

func (s *Store) ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	var models []streamModel
	q := s.sdb.NewSelect(&models).Where("id > ?", opts.StartAfter)

	if len(opts.Statuses) > 0 {
		args := make([]any, len(opts.Statuses))
		for i, st := range opts.Statuses {
			args[i] = string(st)
		}
		q = q.Where("status IN ("+placeholders(len(args))+")", args...)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamswap/sqlite: list streams: %w", err)
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
	return updateStream(ctx, s.sdb, st)
}

func updateStream(ctx context.Context, q querier, st *stream.Stream) error {
	res, err := q.NewUpdate(toStreamModel(st)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamswap/sqlite: update stream: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return streamswap.ErrStreamNotFound
	}
	return nil
}

// ==================== Position Store ====================

func (s *Store) GetPosition(ctx context.Context, streamID uint64, owner string) (*position.Position, error) {
	m := new(positionModel)
	err := s.sdb.NewSelect(m).
		Where("stream_id = ?", streamID).
		Where("owner = ?", owner).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, streamswap.ErrPositionNotFound
		}
		return nil, fmt.Errorf("streamswap/sqlite: get position: %w", err)
	}
	return fromPositionModel(m)
}

func (s *Store) ListPositions(ctx context.Context, streamID uint64, opts position.ListOpts) ([]*position.Position, error) {
	var models []positionModel
	q := s.sdb.NewSelect(&models).
		Where("stream_id = ?", streamID).
		Where("owner > ?", opts.StartAfter)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("owner ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamswap/sqlite: list positions: %w", err)
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

// UpsertPosition writes p keyed by (stream_id, owner). The stored id wins
// over p.ID when the row already exists.
func (s *Store) UpsertPosition(ctx context.Context, p *position.Position) error {
	return upsertPosition(ctx, s.sdb, p)
}

func upsertPosition(ctx context.Context, q querier, p *position.Position) error {
	_, err := q.NewInsert(toPositionModel(p)).
		OnConflict("(stream_id, owner) DO UPDATE").
		Set("operator = EXCLUDED.operator").
		Set("in_balance = EXCLUDED.in_balance").
		Set("shares = EXCLUDED.shares").
		Set("dist_index = EXCLUDED.dist_index").
		Set("purchased = EXCLUDED.purchased").
		Set("pending_purchase = EXCLUDED.pending_purchase").
		Set("spent = EXCLUDED.spent").
		Set("last_updated = EXCLUDED.last_updated").
		Set("exit_date = EXCLUDED.exit_date").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamswap/sqlite: upsert position: %w", err)
	}
	return nil
}

// ==================== Transfer Store ====================

func (s *Store) CreateTransfers(ctx context.Context, ts []*transfer.Transfer) error {
	return createTransfers(ctx, s.sdb, ts)
}

func createTransfers(ctx context.Context, q querier, ts []*transfer.Transfer) error {
	if len(ts) == 0 {
		return nil
	}
	models := make([]transferModel, len(ts))
	for i, t := range ts {
		models[i] = *toTransferModel(t, i)
	}
	if _, err := q.NewInsert(&models).Exec(ctx); err != nil {
		return fmt.Errorf("streamswap/sqlite: create transfers: %w", err)
	}
	return nil
}

func (s *Store) ListTransfers(ctx context.Context, streamID uint64, opts transfer.ListOpts) ([]*transfer.Transfer, error) {
	var models []transferModel
	q := s.sdb.NewSelect(&models).Where("stream_id = ?", streamID)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("streamswap/sqlite: list transfers: %w", err)
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
	m := new(paramsModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", paramsRowID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, streamswap.ErrParamsNotFound
		}
		return nil, fmt.Errorf("streamswap/sqlite: get params: %w", err)
	}
	return fromParamsModel(m)
}

func (s *Store) SaveParams(ctx context.Context, p *factory.Params) error {
	_, err := s.sdb.NewInsert(toParamsModel(p)).
		OnConflict("(id) DO UPDATE").
		Set("min_stream_duration = EXCLUDED.min_stream_duration").
		Set("min_duration_until_start = EXCLUDED.min_duration_until_start").
		Set("accepted_in_denom = EXCLUDED.accepted_in_denom").
		Set("creation_fee_denom = EXCLUDED.creation_fee_denom").
		Set("creation_fee_amount = EXCLUDED.creation_fee_amount").
		Set("exit_fee_percent = EXCLUDED.exit_fee_percent").
		Set("fee_collector = EXCLUDED.fee_collector").
		Set("protocol_admin = EXCLUDED.protocol_admin").
		Set("governance = EXCLUDED.governance").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("streamswap/sqlite: save params: %w", err)
	}
	return nil
}

// NextStreamID bumps the stream counter in a single statement.
func (s *Store) NextStreamID(ctx context.Context) (uint64, error) {
	var next int64
	err := s.sdb.NewRaw(`
		INSERT INTO streamswap_sequences (name, value) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET value = value + 1
		RETURNING value
	`, streamSequence).Scan(ctx, &next)
	if err != nil {
		return 0, fmt.Errorf("streamswap/sqlite: next stream id: %w", err)
	}
	return uint64(next), nil //nolint:gosec // the counter starts at 1
}

// ==================== Commit ====================

// Commit writes cs in one transaction. Nothing is kept when any write fails.
func (s *Store) Commit(ctx context.Context, cs *swapstore.Changeset) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("streamswap/sqlite: begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op once committed

	if cs.Stream != nil {
		if cs.NewStream {
			err = createStream(ctx, tx, cs.Stream)
		} else {
			err = updateStream(ctx, tx, cs.Stream)
		}
		if err != nil {
			return err
		}
	}
	for _, p := range cs.Positions {
		if err := upsertPosition(ctx, tx, p); err != nil {
			return err
		}
	}
	if err := createTransfers(ctx, tx, cs.Transfers); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("streamswap/sqlite: commit: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// placeholders returns n comma separated bind markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
