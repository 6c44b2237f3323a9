package blazepool

import (
	"sync/atomic"

	"github.com/GoBlaze/blazepool/atomics"
)

// Semaphore is a counting semaphore that never blocks. Tasks gated on it are
// skipped by the scheduler until TryAcquire succeeds.
//
// A Semaphore is bound to the first Scheduler that sees it, so that Release
// can wake that scheduler's idle workers.
type Semaphore struct {
	count atomics.Int
	sched atomic.Pointer[Scheduler]
}

// NewSemaphore returns a Semaphore holding n units.
func NewSemaphore(n int) *Semaphore {
	sem := &Semaphore{}
	sem.count.Store(int64(n), atomics.Release)
	return sem
}

// NewSemaphore returns a Semaphore holding n units, bound to s.
func (s *Scheduler) NewSemaphore(n int) *Semaphore {
	sem := NewSemaphore(n)
	sem.sched.Store(s)
	return sem
}

// Init resets the count to n.
func (sem *Semaphore) Init(n int) {
	sem.count.Store(int64(n), atomics.Release)
}

// Value returns the current count.
func (sem *Semaphore) Value() int {
	return int(sem.count.Load(atomics.Acquire))
}

// TryAcquire takes n units if at least n are available.
func (sem *Semaphore) TryAcquire(n int) bool {
	expected := sem.count.Load(atomics.Acquire)
	for {
		desired := expected - int64(n)
		if desired < 0 {
			return false
		}
		if sem.count.CompareAndSwapWeak(expected, desired, atomics.AcqRel, atomics.Acquire) {
			return true
		}
		expected = sem.count.Load(atomics.Acquire)
	}
}

// Release returns n units and reports the new count. When the count leaves
// zero, idle workers of the bound scheduler are woken to retry gated tasks.
func (sem *Semaphore) Release(n int) int {
	old := sem.count.FetchAdd(int64(n), atomics.AcqRel)
	if old == 0 && n != 0 {
		if s := sem.sched.Load(); s != nil {
			s.wakeForSemaphore()
		}
	}
	return int(old) + n
}

func (sem *Semaphore) bind(s *Scheduler) {
	sem.sched.CompareAndSwap(nil, s)
}
