package mutex

import (
	"sync/atomic"

	"github.com/GoBlaze/blazepool/parkinglot"
)

// Cond is a condition variable. The zero value is ready to use.
//
// A Cond binds to the Mutex of its first waiter and stays bound while anyone
// waits on it; waiting with a different Mutex at the same time panics.
// Broadcast moves waiters onto the Mutex's queue instead of waking them all,
// so they are released one at a time as the Mutex is unlocked.
type Cond struct {
	mu atomic.Pointer[Mutex]
	ch atomic.Uint64
}

func (c *Cond) channel() parkinglot.Channel {
	if ch := c.ch.Load(); ch != 0 {
		return parkinglot.Channel(ch)
	}
	ch := uint64(parkinglot.NewChannel())
	if !c.ch.CompareAndSwap(0, ch) {
		ch = c.ch.Load()
	}
	return parkinglot.Channel(ch)
}

// Wait atomically unlocks m and suspends the calling goroutine. It returns
// with m locked after Signal or Broadcast wakes it. m must be held.
func (c *Cond) Wait(m *Mutex) {
	token := parkinglot.Park(c.channel(), &parkinglot.Control{
		Validate: func(a *parkinglot.ValidateAction) bool {
			bound := c.mu.Load()
			if bound == nil {
				c.mu.Store(m)
			} else if bound != m {
				a.InvalidUnparkInfo = tokenMismatch
				return false
			}
			return true
		},
		BeforeSleep: m.Unlock,
	})

	switch token {
	case tokenMismatch:
		panic("BUG: Cond used with two different Mutexes")
	case tokenHandoff:
		// Requeued onto m and handed the lock by its Unlock.
	default:
		m.Lock()
	}
}

// Signal wakes one goroutine waiting on c and reports whether there was one.
func (c *Cond) Signal() bool {
	if c.mu.Load() == nil {
		return false
	}

	r := parkinglot.UnparkOne(c.channel(), &parkinglot.Control{
		Unpark: func(r parkinglot.UnparkResult) uintptr {
			if !r.MoreWaiters {
				c.mu.Store(nil)
			}
			return tokenNormal
		},
	})
	return r.Unparked != 0
}

// Broadcast wakes every goroutine waiting on c.
//
// If the bound Mutex is unlocked one waiter is woken to take it; everyone
// else is requeued onto the Mutex and woken by later Unlocks.
func (c *Cond) Broadcast() {
	m := c.mu.Load()
	if m == nil {
		return
	}

	parkinglot.UnparkRequeue(c.channel(), m.channel(), &parkinglot.Control{
		Validate: func(a *parkinglot.ValidateAction) bool {
			if c.mu.Load() != m {
				return false
			}
			c.mu.Store(nil)
			a.UnparkOne = !m.makeParkedIfLocked()
			return true
		},
		RequeueCallback: func(a parkinglot.ValidateAction, _, someRequeued bool) {
			// The woken goroutine will lock m; it must see the others queued.
			if a.UnparkOne && someRequeued {
				m.makeParked()
			}
		},
	}, tokenNormal)
}
