// Package mutex provides a one-word Mutex and a one-word Cond that block
// through the parking lot instead of owning any queue of their own.
package mutex

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/GoBlaze/blazepool/atomics"
	"github.com/GoBlaze/blazepool/parkinglot"
)

const (
	lockedBit uintptr = 0x01
	parkedBit uintptr = 0x02
)

// Unpark info handed to goroutines leaving Park.
const (
	tokenNormal uintptr = iota
	// tokenHandoff means the lock now belongs to the woken goroutine.
	tokenHandoff
	// tokenMismatch is returned when a Cond is waited on with a second Mutex.
	tokenMismatch
)

const spinLimit = 40

var _ sync.Locker = (*Mutex)(nil)

// Mutex is a mutual exclusion lock. The zero value is unlocked.
//
// The state word holds a lock bit and a bit telling Unlock that goroutines
// are parked on the mutex. Waiters sleep in the parking lot on a channel the
// mutex allocates the first time it is contended.
type Mutex struct {
	state atomics.Uintptr
	ch    atomic.Uint64
}

// channel returns the mutex's wait channel, allocating it on first use.
func (m *Mutex) channel() parkinglot.Channel {
	if c := m.ch.Load(); c != 0 {
		return parkinglot.Channel(c)
	}
	c := uint64(parkinglot.NewChannel())
	if !m.ch.CompareAndSwap(0, c) {
		c = m.ch.Load()
	}
	return parkinglot.Channel(c)
}

// Lock acquires m, blocking until it is available.
func (m *Mutex) Lock() {
	if m.state.CompareAndSwapWeak(0, lockedBit, atomics.Acquire, atomics.Relaxed) {
		return
	}
	m.lockSlow()
}

// TryLock acquires m if it is unlocked and reports whether it did.
func (m *Mutex) TryLock() bool {
	state := m.state.Load(atomics.Relaxed)
	for state&lockedBit == 0 {
		if m.state.CompareAndSwapWeak(state, state|lockedBit, atomics.Acquire, atomics.Relaxed) {
			return true
		}
		state = m.state.Load(atomics.Relaxed)
	}
	return false
}

// Unlock releases m. Unlocking an unlocked Mutex panics.
func (m *Mutex) Unlock() {
	if m.state.CompareAndSwap(lockedBit, 0, atomics.Release, atomics.Relaxed) {
		return
	}
	m.unlockSlow(false)
}

// UnlockFair releases m and, if a goroutine is parked on it, passes the lock
// straight to that goroutine so no other locker can barge in.
func (m *Mutex) UnlockFair() {
	if m.state.CompareAndSwap(lockedBit, 0, atomics.Release, atomics.Relaxed) {
		return
	}
	m.unlockSlow(true)
}

func (m *Mutex) lockSlow() {
	spins := 0
	state := m.state.Load(atomics.Relaxed)
	for {
		if state&lockedBit == 0 {
			if m.state.CompareAndSwapWeak(state, state|lockedBit, atomics.Acquire, atomics.Relaxed) {
				return
			}
			state = m.state.Load(atomics.Relaxed)
			continue
		}

		if state&parkedBit == 0 && spins < spinLimit {
			spins++
			runtime.Gosched()
			state = m.state.Load(atomics.Relaxed)
			continue
		}

		if state&parkedBit == 0 {
			if !m.state.CompareAndSwapWeak(state, state|parkedBit, atomics.Relaxed, atomics.Relaxed) {
				state = m.state.Load(atomics.Relaxed)
				continue
			}
		}

		token := parkinglot.Park(m.channel(), &parkinglot.Control{
			Validate: func(*parkinglot.ValidateAction) bool {
				return m.state.Load(atomics.Relaxed) == lockedBit|parkedBit
			},
		})
		if token == tokenHandoff {
			return
		}

		spins = 0
		state = m.state.Load(atomics.Relaxed)
	}
}

func (m *Mutex) unlockSlow(forceFair bool) {
	if m.state.Load(atomics.Relaxed)&lockedBit == 0 {
		panic("BUG: Unlock of unlocked Mutex")
	}

	parkinglot.UnparkOne(m.channel(), &parkinglot.Control{
		Unpark: func(r parkinglot.UnparkResult) uintptr {
			if r.Unparked != 0 && (forceFair || r.BeFair) {
				// Keep the lock bit set; the woken goroutine owns it now.
				if !r.MoreWaiters {
					m.state.Store(lockedBit, atomics.Relaxed)
				}
				return tokenHandoff
			}

			if r.MoreWaiters {
				m.state.Store(parkedBit, atomics.Release)
			} else {
				m.state.Store(0, atomics.Release)
			}
			return tokenNormal
		},
	})
}

// makeParkedIfLocked sets the parked bit if m is locked, so the holder's
// Unlock goes through the parking lot. It reports whether m was locked.
func (m *Mutex) makeParkedIfLocked() bool {
	state := m.state.Load(atomics.Relaxed)
	for {
		if state&lockedBit == 0 {
			return false
		}
		if m.state.CompareAndSwapWeak(state, state|parkedBit, atomics.Relaxed, atomics.Relaxed) {
			return true
		}
		state = m.state.Load(atomics.Relaxed)
	}
}

func (m *Mutex) makeParked() {
	m.state.FetchOr(parkedBit, atomics.Relaxed)
}
