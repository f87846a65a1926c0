package streamswap

import "sync"

// streamLocks hands out one mutex per stream id. Entries are reference
// counted and dropped when the last holder releases them.
type streamLocks struct {
	mu    sync.Mutex
	locks map[uint64]*streamLock
}

type streamLock struct {
	mu   sync.Mutex
	refs int
}

func newStreamLocks() *streamLocks {
	return &streamLocks{locks: make(map[uint64]*streamLock)}
}

// lock acquires the exclusive scope for streamID and returns its release.
func (l *streamLocks) lock(streamID uint64) func() {
	l.mu.Lock()
	sl, ok := l.locks[streamID]
	if !ok {
		sl = &streamLock{}
		l.locks[streamID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, streamID)
		}
		l.mu.Unlock()
	}
}

func (l *streamLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
