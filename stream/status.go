package stream

import (
	"fmt"
	"time"
)

// Status is the single lifecycle variant of a stream. Pause and cancel are
// states of their own, so combinations such as finalized-and-paused cannot
// be expressed.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusFinalized Status = "finalized"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusFinalized || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusFinalized, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

// TransitionError reports an illegal lifecycle move.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("stream: illegal transition %s -> %s", e.From, e.To)
}

// Activate moves a Waiting stream to Active once now reaches StartTime.
// It reports whether the status changed.
func (s *Stream) Activate(now time.Time) bool {
	if s.Status == StatusWaiting && !now.Before(s.StartTime) {
		s.Status = StatusActive
		return true
	}
	return false
}

// Pause freezes a Waiting or Active stream at the given instant. Callers
// sync the distribution to at before pausing.
func (s *Stream) Pause(at time.Time) error {
	if s.Status != StatusWaiting && s.Status != StatusActive {
		return &TransitionError{From: s.Status, To: StatusPaused}
	}
	s.Status = StatusPaused
	s.PauseDate = at.UTC()
	return nil
}

// Resume unfreezes a paused stream. The schedule and last update are shifted
// forward by the paused duration so the remaining distribution time is
// preserved, and the status is re-derived from the shifted schedule.
func (s *Stream) Resume(now time.Time) error {
	if s.Status != StatusPaused {
		return &TransitionError{From: s.Status, To: StatusActive}
	}
	paused := now.Sub(s.PauseDate)
	if paused < 0 {
		paused = 0
	}
	s.StartTime = s.StartTime.Add(paused)
	s.EndTime = s.EndTime.Add(paused)
	s.LastUpdated = s.LastUpdated.Add(paused)
	s.PauseDate = time.Time{}

	if now.Before(s.StartTime) {
		s.Status = StatusWaiting
	} else {
		s.Status = StatusActive
	}
	return nil
}

// Cancel moves a non-terminal stream to Cancelled.
func (s *Stream) Cancel() error {
	if s.Status.IsTerminal() {
		return &TransitionError{From: s.Status, To: StatusCancelled}
	}
	s.Status = StatusCancelled
	s.PauseDate = time.Time{}
	return nil
}

// Finalize moves an Active stream to Finalized.
func (s *Stream) Finalize() error {
	if s.Status != StatusActive {
		return &TransitionError{From: s.Status, To: StatusFinalized}
	}
	s.Status = StatusFinalized
	return nil
}
