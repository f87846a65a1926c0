package streamswap

import (
	"sync"
	"testing"
)

func TestStreamLocksSerializeAndRelease(t *testing.T) {
	locks := newStreamLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.lock(7)
			defer release()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("expected exclusive access, saw %d holders", maxSeen)
	}
	if n := locks.len(); n != 0 {
		t.Errorf("expected all entries released, got %d", n)
	}
}

func TestStreamLocksAreIndependent(t *testing.T) {
	locks := newStreamLocks()
	release := locks.lock(1)
	defer release()

	done := make(chan struct{})
	go func() {
		locks.lock(2)()
		close(done)
	}()
	<-done
}
