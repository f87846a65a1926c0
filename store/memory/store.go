// Package memory implements store.Store in process memory. Records are
// cloned on the way in and out so callers never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/position"
	"github.com/xraph/streamswap/store"
	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/transfer"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Stream storage, keyed by stream id
	streams map[uint64]*stream.Stream

	// Position storage, keyed by stream id then owner
	positions map[uint64]map[string]*position.Position

	// Transfer log in creation order
	transfers []*transfer.Transfer

	params   *factory.Params
	streamID uint64
	closed   bool
}

func New() *Store {
	return &Store{
		streams:   make(map[uint64]*stream.Stream),
		positions: make(map[uint64]map[string]*position.Position),
	}
}

// Stream Store implementation
func (s *Store) CreateStream(_ context.Context, st *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createStream(st)
}

func (s *Store) createStream(st *stream.Stream) error {
	if _, exists := s.streams[st.ID]; exists {
		return fmt.Errorf("stream %d: %w", st.ID, streamswap.ErrAlreadyExists)
	}
	s.streams[st.ID] = st.Clone()
	return nil
}

func (s *Store) GetStream(_ context.Context, streamID uint64) (*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.streams[streamID]; ok {
		return st.Clone(), nil
	}
	return nil, streamswap.ErrStreamNotFound
}

func (s *Store) ListStreams(_ context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.streams))
	for streamID := range s.streams {
		if streamID > opts.StartAfter {
			ids = append(ids, streamID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]*stream.Stream, 0)
	for _, streamID := range ids {
		st := s.streams[streamID]
		if !hasStatus(opts.Statuses, st.Status) {
			continue
		}
		result = append(result, st.Clone())
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

func hasStatus(statuses []stream.Status, status stream.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, st := range statuses {
		if st == status {
			return true
		}
	}
	return false
}

func (s *Store) UpdateStream(_ context.Context, st *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateStream(st)
}

func (s *Store) updateStream(st *stream.Stream) error {
	if _, exists := s.streams[st.ID]; !exists {
		return streamswap.ErrStreamNotFound
	}
	s.streams[st.ID] = st.Clone()
	return nil
}

// Position Store implementation
func (s *Store) GetPosition(_ context.Context, streamID uint64, owner string) (*position.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.positions[streamID][owner]; ok {
		return p.Clone(), nil
	}
	return nil, streamswap.ErrPositionNotFound
}

func (s *Store) ListPositions(_ context.Context, streamID uint64, opts position.ListOpts) ([]*position.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byOwner := s.positions[streamID]
	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		if owner > opts.StartAfter {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)
	if opts.Limit > 0 && len(owners) > opts.Limit {
		owners = owners[:opts.Limit]
	}

	result := make([]*position.Position, 0, len(owners))
	for _, owner := range owners {
		result = append(result, byOwner[owner].Clone())
	}
	return result, nil
}

func (s *Store) UpsertPosition(_ context.Context, p *position.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertPosition(p)
	return nil
}

func (s *Store) upsertPosition(p *position.Position) {
	byOwner, ok := s.positions[p.StreamID]
	if !ok {
		byOwner = make(map[string]*position.Position)
		s.positions[p.StreamID] = byOwner
	}
	byOwner[p.Owner] = p.Clone()
}

// Transfer Store implementation
func (s *Store) CreateTransfers(_ context.Context, ts []*transfer.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendTransfers(ts)
	return nil
}

func (s *Store) appendTransfers(ts []*transfer.Transfer) {
	for _, t := range ts {
		cp := *t
		s.transfers = append(s.transfers, &cp)
	}
}

func (s *Store) ListTransfers(_ context.Context, streamID uint64, opts transfer.ListOpts) ([]*transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*transfer.Transfer, 0)
	for _, t := range s.transfers {
		if t.StreamID == streamID {
			cp := *t
			result = append(result, &cp)
		}
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Params Store implementation
func (s *Store) GetParams(_ context.Context) (*factory.Params, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.params == nil {
		return nil, streamswap.ErrParamsNotFound
	}
	cp := *s.params
	return &cp, nil
}

func (s *Store) SaveParams(_ context.Context, p *factory.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.params = &cp
	return nil
}

func (s *Store) NextStreamID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streamID++
	return s.streamID, nil
}

// Commit applies cs under a single lock. Validation happens before any
// write, so a failed commit leaves the store untouched.
func (s *Store) Commit(_ context.Context, cs *store.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs.Stream != nil {
		_, exists := s.streams[cs.Stream.ID]
		switch {
		case cs.NewStream && exists:
			return fmt.Errorf("stream %d: %w", cs.Stream.ID, streamswap.ErrAlreadyExists)
		case !cs.NewStream && !exists:
			return streamswap.ErrStreamNotFound
		}
		s.streams[cs.Stream.ID] = cs.Stream.Clone()
	}
	for _, p := range cs.Positions {
		s.upsertPosition(p)
	}
	s.appendTransfers(cs.Transfers)
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return streamswap.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
