// Package parkinglot maps wait channels to queues of parked goroutines.
//
// A Channel names a wait condition. It has no storage of its own: any number
// of channels hash into a fixed table of buckets, each guarded by a WordLock.
// Higher-level primitives (mutex.Mutex, mutex.Cond) keep their whole state in
// one word and only come here when they need to block or wake someone.
//
// Every operation runs caller-supplied hooks while the bucket lock is held,
// which is what lets a waiter re-check its condition and a waker publish the
// new state without a window for lost wakeups.
package parkinglot

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/GoBlaze/blazepool/constants"
	"github.com/GoBlaze/blazepool/parker"
	"github.com/GoBlaze/blazepool/pool"
	"github.com/GoBlaze/blazepool/wordlock"
)

const (
	// loadFactor must be a power of two.
	loadFactor = 4
	tableSize  = constants.MaxThreads * loadFactor
	hashBits   = 10

	cacheLinePadSize = constants.CacheLinePadSize
)

// Channel identifies a wait condition. The zero Channel is never handed out.
type Channel uint64

var lastChannel atomic.Uint64

// NewChannel returns a Channel distinct from every other one in the process.
func NewChannel() Channel {
	return Channel(lastChannel.Add(1))
}

// hash is Fibonacci hashing: multiply by 2^64/phi and keep the top bits.
func (c Channel) hash() uint64 {
	return (uint64(c) * 0x9E3779B97F4A7C15) >> (64 - hashBits)
}

// waiter is the record a parked goroutine leaves in a bucket.
type waiter struct {
	parker     parker.Parker
	channel    atomic.Uint64
	next       *waiter
	unparkInfo uintptr
}

var waiters = pool.NewPool(func() *waiter { return new(waiter) }, func(w *waiter) {
	w.channel.Store(0)
	w.next = nil
	w.unparkInfo = 0
})

type bucket struct {
	lock wordlock.WordLock

	head *waiter
	tail *waiter

	fair fairTimeout
	_    [cacheLinePadSize - (unsafe.Sizeof(wordlock.WordLock{})+2*unsafe.Sizeof((*waiter)(nil))+unsafe.Sizeof(fairTimeout{}))%cacheLinePadSize]byte //nolint:unused
}

var table [tableSize]bucket

func init() {
	if 1<<hashBits != tableSize {
		panic("parkinglot: hash width does not match table size")
	}
	now := time.Now()
	for i := range table {
		table[i].fair.seed = uint32(i) + 1
		table[i].fair.deadline = now
	}
}

func lockBucket(c Channel) *bucket {
	b := &table[c.hash()]
	b.lock.Lock()
	return b
}

// lockBucketPair locks the buckets of from and to, lower table index first,
// so concurrent requeues cannot deadlock each other.
func lockBucketPair(from, to Channel) (*bucket, *bucket) {
	hf, ht := from.hash(), to.hash()
	bf, bt := &table[hf], &table[ht]
	switch {
	case hf == ht:
		bf.lock.Lock()
	case hf < ht:
		bf.lock.Lock()
		bt.lock.Lock()
	default:
		bt.lock.Lock()
		bf.lock.Lock()
	}
	return bf, bt
}

func unlockBucketPair(bf, bt *bucket) {
	bf.lock.Unlock()
	if bt != bf {
		bt.lock.Unlock()
	}
}

func (b *bucket) push(w *waiter) {
	if b.head != nil {
		b.tail.next = w
	} else {
		b.head = w
	}
	b.tail = w
}

// ValidateAction is filled in by Control.Validate.
type ValidateAction struct {
	// UnparkOne asks UnparkRequeue to wake one waiter instead of moving it.
	UnparkOne bool
	// InvalidUnparkInfo is what Park returns when validation fails.
	InvalidUnparkInfo uintptr
}

// UnparkResult describes what UnparkOne did, as seen by Control.Unpark.
type UnparkResult struct {
	// Unparked is the number of goroutines woken (0 or 1).
	Unparked int
	// MoreWaiters reports whether waiters remain on the channel.
	MoreWaiters bool
	// BeFair is set when the bucket's fairness timer expired; the callback
	// should hand ownership directly to the woken goroutine.
	BeFair bool
}

// Control customizes an operation. Each hook runs with the bucket lock held
// except BeforeSleep. Nil hooks behave as: validate succeeds, nothing to do
// before sleeping, unpark info 0, no requeue bookkeeping.
type Control struct {
	Validate        func(action *ValidateAction) bool
	BeforeSleep     func()
	Unpark          func(result UnparkResult) uintptr
	RequeueCallback func(action ValidateAction, oneToWake, someRequeued bool)
}

func (c *Control) validate(action *ValidateAction) bool {
	if c == nil || c.Validate == nil {
		return true
	}
	return c.Validate(action)
}

func (c *Control) beforeSleep() {
	if c != nil && c.BeforeSleep != nil {
		c.BeforeSleep()
	}
}

func (c *Control) unpark(r UnparkResult) uintptr {
	if c == nil || c.Unpark == nil {
		return 0
	}
	return c.Unpark(r)
}

func (c *Control) requeueCallback(action ValidateAction, oneToWake, someRequeued bool) {
	if c != nil && c.RequeueCallback != nil {
		c.RequeueCallback(action, oneToWake, someRequeued)
	}
}

// Park blocks the calling goroutine on ch until another goroutine unparks it,
// and returns the info word the waker supplied.
//
// If Validate rejects the wait, Park returns ValidateAction.InvalidUnparkInfo
// immediately without sleeping and without calling BeforeSleep.
func Park(ch Channel, c *Control) uintptr {
	w := waiters.Get()
	defer waiters.Put(w)

	b := lockBucket(ch)

	var action ValidateAction
	if !c.validate(&action) {
		b.lock.Unlock()
		return action.InvalidUnparkInfo
	}

	w.next = nil
	w.channel.Store(uint64(ch))
	w.parker.PreparePark()
	b.push(w)
	b.lock.Unlock()

	c.beforeSleep()

	w.parker.Park()

	return w.unparkInfo
}

// UnparkOne wakes the oldest goroutine parked on ch. Control.Unpark runs
// under the bucket lock, after the waiter is unlinked and before it wakes,
// with the number of goroutines woken and whether others remain.
func UnparkOne(ch Channel, c *Control) UnparkResult {
	b := lockBucket(ch)

	link := &b.head
	var prev *waiter
	for w := *link; w != nil; w = *link {
		if Channel(w.channel.Load()) != ch {
			link = &w.next
			prev = w
			continue
		}

		*link = w.next
		result := UnparkResult{Unparked: 1}
		if b.tail == w {
			b.tail = prev
		} else {
			for w2 := w.next; w2 != nil; w2 = w2.next {
				if Channel(w2.channel.Load()) == ch {
					result.MoreWaiters = true
					break
				}
			}
		}
		result.BeFair = b.fair.expired()

		w.unparkInfo = c.unpark(result)

		tok := w.parker.UnparkStart()
		b.lock.Unlock()
		tok.Unpark()
		tok.Finish()
		return result
	}

	c.unpark(UnparkResult{})
	b.lock.Unlock()
	return UnparkResult{}
}

// UnparkAll wakes every goroutine parked on ch, handing each of them info,
// and returns how many were woken.
func UnparkAll(ch Channel, info uintptr) int {
	b := lockBucket(ch)

	var woken []*parker.WakeToken
	link := &b.head
	var prev *waiter
	for w := *link; w != nil; w = *link {
		if Channel(w.channel.Load()) != ch {
			link = &w.next
			prev = w
			continue
		}
		*link = w.next
		if b.tail == w {
			b.tail = prev
		}
		w.unparkInfo = info
		woken = append(woken, w.parker.UnparkStart())
	}
	b.lock.Unlock()

	for _, tok := range woken {
		tok.Unpark()
	}
	for _, tok := range woken {
		tok.Finish()
	}
	return len(woken)
}

// UnparkRequeue moves every goroutine parked on from to the queue of to,
// except that when Validate sets UnparkOne the first of them is woken with
// info instead. It reports whether a goroutine was woken.
//
// Requeued goroutines stay asleep; they are woken later by whatever wakes to.
func UnparkRequeue(from, to Channel, c *Control, info uintptr) bool {
	bf, bt := lockBucketPair(from, to)

	var action ValidateAction
	if !c.validate(&action) {
		unlockBucketPair(bf, bt)
		return false
	}

	var requeue, requeueTail, wakeup *waiter
	link := &bf.head
	var prev *waiter
	for w := *link; w != nil; w = *link {
		if Channel(w.channel.Load()) != from {
			link = &w.next
			prev = w
			continue
		}
		*link = w.next
		if bf.tail == w {
			bf.tail = prev
		}

		if action.UnparkOne && wakeup == nil {
			wakeup = w
			continue
		}
		if requeue == nil {
			requeue = w
		} else {
			requeueTail.next = w
		}
		requeueTail = w
		w.channel.Store(uint64(to))
	}

	if requeue != nil {
		requeueTail.next = nil
		if bt.head == nil {
			bt.head = requeue
		} else {
			bt.tail.next = requeue
		}
		bt.tail = requeueTail
	}

	c.requeueCallback(action, wakeup != nil, requeue != nil)

	if wakeup == nil {
		unlockBucketPair(bf, bt)
		return false
	}

	wakeup.next = nil
	wakeup.unparkInfo = info
	tok := wakeup.parker.UnparkStart()
	unlockBucketPair(bf, bt)
	tok.Unpark()
	tok.Finish()
	return action.UnparkOne
}
