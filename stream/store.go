package stream

import "context"

// ListOpts configures stream listing. Streams are returned in id order.
type ListOpts struct {
	// StartAfter skips streams with an id lower than or equal to it.
	StartAfter uint64
	// Statuses restricts the result to the given statuses when non-empty.
	Statuses []Status
	Limit    int
}

// Store defines the persistence contract for streams.
type Store interface {
	CreateStream(ctx context.Context, s *Stream) error
	GetStream(ctx context.Context, streamID uint64) (*Stream, error)
	ListStreams(ctx context.Context, opts ListOpts) ([]*Stream, error)
	UpdateStream(ctx context.Context, s *Stream) error
}
