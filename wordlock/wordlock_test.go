package wordlock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWordLock_Basic(t *testing.T) {
	var l WordLock
	l.Lock()
	if l.TryLock() {
		t.Fatal("TryLock succeeded on held lock")
	}
	l.Unlock()
	if !l.TryLock() {
		t.Fatal("TryLock failed on free lock")
	}
	l.Unlock()
	if got := l.state.Load(0); got != 0 {
		t.Errorf("state after unlock = %#x, want 0", got)
	}
}

func TestWordLock_UnlockUnlockedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Unlock of unlocked WordLock did not panic")
		}
	}()
	var l WordLock
	l.Unlock()
}

func TestWordLock_MutualExclusion(t *testing.T) {
	var l WordLock
	var inside atomic.Int32
	var total int

	goroutines, iters := 16, 2000
	if testing.Short() {
		iters = 200
	}

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range iters {
				l.Lock()
				if n := inside.Add(1); n != 1 {
					t.Errorf("%d goroutines inside the critical section", n)
				}
				total++
				inside.Add(-1)
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	if total != goroutines*iters {
		t.Errorf("total = %d, want %d", total, goroutines*iters)
	}
}

func TestWordLock_QueuedWaitersWake(t *testing.T) {
	var l WordLock
	l.Lock()

	const waiters = 8
	var wg sync.WaitGroup
	var acquired atomic.Int32
	wg.Add(waiters)
	for range waiters {
		go func() {
			defer wg.Done()
			l.Lock()
			acquired.Add(1)
			l.Unlock()
		}()
	}

	// Give the waiters time to exhaust their spins and park.
	deadline := time.Now().Add(2 * time.Second)
	for headIndex(l.state.Load(0)) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if acquired.Load() != 0 {
		t.Fatal("waiter acquired a held lock")
	}
	l.Unlock()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("only %d of %d waiters acquired the lock", acquired.Load(), waiters)
	}
}

func BenchmarkWordLock_Uncontended(b *testing.B) {
	var l WordLock
	for i := 0; i < b.N; i++ {
		l.Lock()
		l.Unlock()
	}
}

func BenchmarkWordLock_Contended(b *testing.B) {
	var l WordLock
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Lock()
			l.Unlock()
		}
	})
}
