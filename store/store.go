package store

import (
	"context"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
)

// Changeset is the full result of one engine operation. Backends persist
// it as a unit so readers never observe a stream whose positions or
// transfers are out of step with it.
type Changeset struct {
	Stream *stream.Stream
	// NewStream marks Stream as created by this operation.
	NewStream bool
	Positions []*position.Position
	Transfers []*transfer.Transfer
}

// Store is the unified storage interface for all streamswap entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Stream methods
	CreateStream(ctx context.Context, s *stream.Stream) error
	GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error)
	ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error)
	UpdateStream(ctx context.Context, s *stream.Stream) error

	// Position methods
	GetPosition(ctx context.Context, streamID uint64, owner string) (*position.Position, error)
	ListPositions(ctx context.Context, streamID uint64, opts position.ListOpts) ([]*position.Position, error)
	UpsertPosition(ctx context.Context, p *position.Position) error

	// Transfer methods
	CreateTransfers(ctx context.Context, ts []*transfer.Transfer) error
	ListTransfers(ctx context.Context, streamID uint64, opts transfer.ListOpts) ([]*transfer.Transfer, error)

	// Params methods
	GetParams(ctx context.Context) (*factory.Params, error)
	SaveParams(ctx context.Context, p *factory.Params) error
	NextStreamID(ctx context.Context) (uint64, error)

	// Commit persists every record in cs.
	Commit(ctx context.Context, cs *Changeset) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ stream.Store   = Store(nil)
	_ position.Store = Store(nil)
	_ transfer.Store = Store(nil)
	_ factory.Store  = Store(nil)
)
