// Package parker provides the leaf blocking primitive of the synchronization
// layer: one waiter blocks until exactly one waker releases it.
//
// The waker side is split in three phases so a caller can drop its own
// outer lock between claiming the waiter and actually waking it:
//
//	tok := p.UnparkStart() // waiter cannot observe anything past this point
//	bucket.Unlock()
//	tok.Unpark()
//	tok.Finish()
package parker

import "sync"

// Parker blocks a single goroutine. The zero value is ready to use.
type Parker struct {
	mu         sync.Mutex
	cond       sync.Cond
	shouldPark bool
}

func (p *Parker) init() {
	if p.cond.L == nil {
		p.cond.L = &p.mu
	}
}

// PreparePark arms the parker. It must be called before the waiter is
// published anywhere a waker can find it.
func (p *Parker) PreparePark() {
	p.mu.Lock()
	p.init()
	p.shouldPark = true
	p.mu.Unlock()
}

// Park blocks until a waker has run Unpark and Finish.
func (p *Parker) Park() {
	p.mu.Lock()
	p.init()
	for p.shouldPark {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// UnparkStart takes the parker's internal lock. Anything the waker writes
// for the waiter before Finish is visible to it once Park returns.
func (p *Parker) UnparkStart() *WakeToken {
	p.mu.Lock()
	p.init()
	return &WakeToken{p: p}
}

// WakeToken is the in-flight half of a wakeup started by UnparkStart.
type WakeToken struct {
	p        *Parker
	unparked bool
	finished bool
}

// Unpark clears the park flag and signals the waiter. The waiter still
// cannot run until Finish.
func (t *WakeToken) Unpark() {
	if t.finished {
		panic("parker: Unpark on a finished WakeToken")
	}
	if t.unparked {
		panic("parker: Unpark called twice on the same WakeToken")
	}
	t.unparked = true
	t.p.shouldPark = false
	t.p.cond.Signal()
}

// Finish releases the parker's internal lock.
func (t *WakeToken) Finish() {
	if t.finished {
		panic("parker: Finish called twice on the same WakeToken")
	}
	if !t.unparked {
		panic("parker: Finish before Unpark")
	}
	t.finished = true
	t.p.mu.Unlock()
}

// Wake runs all three phases back to back.
func (p *Parker) Wake() {
	tok := p.UnparkStart()
	tok.Unpark()
	tok.Finish()
}
