// Package threshold enforces an optional minimum raise on a stream. A stream
// whose threshold is unmet at its end cannot be finalized; anyone may cancel
// it and buyers recover their full deposit.
package threshold

import (
	"errors"
	"fmt"

	"github.com/xraph/streamswap/stream"
	"github.com/xraph/streamswap/types"
)

var (
	ErrZero       = errors.New("threshold: threshold cannot be zero")
	ErrNotReached = errors.New("threshold: threshold not reached")
	ErrReached    = errors.New("threshold: threshold reached")
)

// Validate checks a requested threshold. Nil means the stream has none.
func Validate(t *types.Amount) error {
	if t != nil && t.IsZero() {
		return ErrZero
	}
	return nil
}

// IsSet reports whether s carries a threshold.
func IsSet(s *stream.Stream) bool {
	return !s.Threshold.IsZero()
}

// Reached reports whether the total raised by s meets its threshold.
// Streams without a threshold always meet it.
func Reached(s *stream.Stream) (bool, error) {
	if !IsSet(s) {
		return true, nil
	}
	raised, err := s.TotalRaised()
	if err != nil {
		return false, err
	}
	return !raised.LT(s.Threshold), nil
}

// ErrorIfNotReached fails when s has an unmet threshold.
func ErrorIfNotReached(s *stream.Stream) error {
	ok, err := Reached(s)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: raised below %s", ErrNotReached, s.Threshold)
	}
	return nil
}

// ErrorIfReached fails when s has no threshold or has met it.
func ErrorIfReached(s *stream.Stream) error {
	ok, err := Reached(s)
	if err != nil {
		return err
	}
	if ok {
		return ErrReached
	}
	return nil
}
