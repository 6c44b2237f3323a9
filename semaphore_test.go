package blazepool

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSemaphore_TryAcquire(t *testing.T) {
	sem := NewSemaphore(3)
	if !sem.TryAcquire(2) {
		t.Fatal("TryAcquire(2) failed with 3 units")
	}
	if sem.TryAcquire(2) {
		t.Fatal("TryAcquire(2) succeeded with 1 unit")
	}
	if got := sem.Value(); got != 1 {
		t.Errorf("Value() = %d, want 1", got)
	}
	if !sem.TryAcquire(0) {
		t.Error("TryAcquire(0) failed")
	}
	if got := sem.Release(4); got != 5 {
		t.Errorf("Release(4) = %d, want 5", got)
	}
	sem.Init(0)
	if sem.TryAcquire(1) {
		t.Error("TryAcquire(1) succeeded after Init(0)")
	}
}

// Acquires never outnumber releases plus the initial count, and the count
// never goes negative.
func TestSemaphore_Concurrent(t *testing.T) {
	const initial = 5
	sem := NewSemaphore(initial)
	var acquired, released atomic.Int64

	goroutines, rounds := 8, 5000
	if testing.Short() {
		rounds = 500
	}

	var wg sync.WaitGroup
	wg.Add(2 * goroutines)
	for g := range goroutines {
		go func() {
			defer wg.Done()
			for range rounds {
				if sem.TryAcquire(1 + g%2) {
					acquired.Add(int64(1 + g%2))
				}
				if v := sem.Value(); v < 0 {
					t.Errorf("semaphore went negative: %d", v)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := range rounds {
				if i%3 == 0 {
					released.Add(1)
					sem.Release(1)
				}
			}
		}()
	}
	wg.Wait()

	if acquired.Load() > released.Load()+initial {
		t.Errorf("acquired %d units, only %d available", acquired.Load(), released.Load()+initial)
	}
	if got, want := int64(sem.Value()), released.Load()+initial-acquired.Load(); got != want {
		t.Errorf("Value() = %d, want %d", got, want)
	}
}

func TestSemaphore_BindsOnce(t *testing.T) {
	a := newTestScheduler(t, 1)
	b := newTestScheduler(t, 1)

	sem := a.NewSemaphore(0)
	sem.bind(b)
	if sem.sched.Load() != a {
		t.Error("semaphore rebound to a second scheduler")
	}

	free := NewSemaphore(0)
	free.bind(b)
	if free.sched.Load() != b {
		t.Error("unbound semaphore not bound on first use")
	}
	// Waking a scheduler that has never started is harmless.
	free.Release(1)
}
