// Package wordlock implements a one-word mutex with an intrusive queue of
// parked waiters. It protects the parking lot's hash buckets, so it cannot
// itself rely on the parking lot.
//
// State word layout:
//
//	bit 0      lock held
//	bit 1      a goroutine is processing the queue
//	bits 2..   arena index of the most recently queued node (0 = empty)
//
// New nodes are pushed at the head with only next set. The goroutine holding
// the queue bit walks from the head, filling in prev links and caching the
// tail on the head node, so the oldest waiter is found in amortized O(1).
package wordlock

import (
	"runtime"

	"github.com/GoBlaze/blazepool/atomics"
	"github.com/GoBlaze/blazepool/parker"
	"github.com/GoBlaze/blazepool/pool"
)

const (
	lockBit      uintptr = 0x01
	queueLockBit uintptr = 0x02
	flagMask             = lockBit | queueLockBit
	indexShift           = 2
)

// spinLimit is the number of yields before a contended locker queues itself.
const spinLimit = 40

type node struct {
	parker parker.Parker

	next uint32
	prev uint32
	tail uint32
}

var nodes = pool.NewArena[node]()

func headIndex(state uintptr) uint32 {
	return uint32(state >> indexShift)
}

// WordLock is a mutex occupying a single word. The zero value is unlocked.
type WordLock struct {
	state atomics.Uintptr
}

// Lock acquires the lock.
func (l *WordLock) Lock() {
	if !l.state.CompareAndSwapWeak(0, lockBit, atomics.Acquire, atomics.Relaxed) {
		l.lockSlow()
	}
}

// TryLock acquires the lock if nobody holds it.
func (l *WordLock) TryLock() bool {
	state := l.state.Load(atomics.Relaxed)
	for state&lockBit == 0 {
		if l.state.CompareAndSwapWeak(state, state|lockBit, atomics.Acquire, atomics.Relaxed) {
			return true
		}
		state = l.state.Load(atomics.Relaxed)
	}
	return false
}

// Unlock releases the lock and wakes the oldest queued waiter, if any.
func (l *WordLock) Unlock() {
	state := l.state.FetchAnd(^lockBit, atomics.Release)
	if state&lockBit == 0 {
		panic("wordlock: unlock of unlocked WordLock")
	}
	// A goroutine already walking the queue takes care of the wakeup.
	if state&queueLockBit != 0 || headIndex(state) == 0 {
		return
	}
	l.unlockSlow()
}

func (l *WordLock) lockSlow() {
	spins := 0
	state := l.state.Load(atomics.Relaxed)

	var idx uint32
	var n *node
	defer func() {
		if idx != 0 {
			nodes.Free(idx)
		}
	}()

	for {
		if state&lockBit == 0 {
			if l.state.CompareAndSwapWeak(state, state|lockBit, atomics.Acquire, atomics.Relaxed) {
				return
			}
			state = l.state.Load(atomics.Relaxed)
			continue
		}

		if headIndex(state) == 0 && spins < spinLimit {
			spins++
			runtime.Gosched()
			state = l.state.Load(atomics.Relaxed)
			continue
		}

		if n == nil {
			idx, n = nodes.Alloc()
		}
		n.parker.PreparePark()
		n.prev = 0
		if head := headIndex(state); head == 0 {
			n.next = 0
			n.tail = idx
		} else {
			n.next = head
			n.tail = 0
		}

		newState := uintptr(idx)<<indexShift | state&flagMask
		if l.state.CompareAndSwapWeak(state, newState, atomics.Release, atomics.Relaxed) {
			n.parker.Park()
			spins = 0
		}
		state = l.state.Load(atomics.Relaxed)
	}
}

func (l *WordLock) unlockSlow() {
	state := l.state.Load(atomics.Relaxed)
	for {
		if state&queueLockBit != 0 || headIndex(state) == 0 {
			return
		}
		if l.state.CompareAndSwapWeak(state, state|queueLockBit, atomics.Acquire, atomics.Relaxed) {
			state |= queueLockBit
			break
		}
		state = l.state.Load(atomics.Relaxed)
	}

outer:
	for {
		headIdx := headIndex(state)
		head := nodes.Get(headIdx)
		current, currentIdx := head, headIdx
		tailIdx := current.tail
		for tailIdx == 0 {
			nextIdx := current.next
			if nextIdx == 0 {
				panic("wordlock: queue has no tail")
			}
			next := nodes.Get(nextIdx)
			next.prev = currentIdx
			current, currentIdx = next, nextIdx
			tailIdx = current.tail
		}
		head.tail = tailIdx

		// Someone grabbed the lock meanwhile. Drop the queue bit and leave the
		// wakeup to that holder's Unlock.
		if state&lockBit != 0 {
			if l.state.CompareAndSwap(state, state&^queueLockBit, atomics.Release, atomics.Relaxed) {
				return
			}
			state = l.state.Load(atomics.Relaxed)
			atomics.Fence(atomics.Acquire)
			continue
		}

		tail := nodes.Get(tailIdx)
		if newTail := tail.prev; newTail == 0 {
			// tail is the only queued node: empty the queue.
			for {
				if l.state.CompareAndSwap(state, state&lockBit, atomics.Release, atomics.Relaxed) {
					break
				}
				state = l.state.Load(atomics.Relaxed)
				if headIndex(state) == 0 {
					continue
				}
				// New nodes arrived; rescan to find the tail's new predecessor.
				atomics.Fence(atomics.Acquire)
				continue outer
			}
		} else {
			head.tail = newTail
			l.state.FetchAnd(^queueLockBit, atomics.Release)
		}

		tok := tail.parker.UnparkStart()
		tok.Unpark()
		tok.Finish()
		return
	}
}
