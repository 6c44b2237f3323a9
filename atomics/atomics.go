// Package atomics is the portability seam between the synchronization layer
// and the hardware. Every operation takes the memory ordering its caller
// reasons with, so the call sites above read like the protocol they implement.
//
// Go's sync/atomic operations are sequentially consistent, which satisfies
// every ordering below. Relaxed requests are therefore served by the same
// instructions as acquire/release ones; the argument documents intent.
package atomics

import "sync/atomic"

// Order is a memory ordering requested by a caller.
type Order uint8

const (
	Relaxed Order = iota
	Acquire
	Release
	AcqRel
	SeqCst
)

func (o Order) String() string {
	switch o {
	case Relaxed:
		return "relaxed"
	case Acquire:
		return "acquire"
	case Release:
		return "release"
	case AcqRel:
		return "acq_rel"
	case SeqCst:
		return "seq_cst"
	default:
		return "unknown"
	}
}

// fenceWord backs Fence. A read-modify-write on it is a full barrier.
var fenceWord atomic.Uint32

// Fence issues a full memory barrier.
func Fence(Order) {
	fenceWord.Add(0)
}

// Uintptr is a pointer-sized word.
type Uintptr struct {
	v atomic.Uintptr
}

func (a *Uintptr) Load(Order) uintptr { return a.v.Load() }

func (a *Uintptr) Store(val uintptr, _ Order) { a.v.Store(val) }

// CompareAndSwap replaces old with new. The success ordering applies when the
// swap happens, the failure ordering to the load observed otherwise.
func (a *Uintptr) CompareAndSwap(old, new uintptr, success, failure Order) bool {
	return a.v.CompareAndSwap(old, new)
}

// CompareAndSwapWeak may fail spuriously on targets with LL/SC; callers must
// retry in a loop.
func (a *Uintptr) CompareAndSwapWeak(old, new uintptr, success, failure Order) bool {
	return a.v.CompareAndSwap(old, new)
}

// FetchAnd clears the bits not in mask and returns the previous value.
func (a *Uintptr) FetchAnd(mask uintptr, _ Order) uintptr { return a.v.And(mask) }

// FetchOr sets the bits in mask and returns the previous value.
func (a *Uintptr) FetchOr(mask uintptr, _ Order) uintptr { return a.v.Or(mask) }

// FetchAdd adds delta and returns the previous value.
func (a *Uintptr) FetchAdd(delta uintptr, _ Order) uintptr { return a.v.Add(delta) - delta }

// Int is a signed counter.
type Int struct {
	v atomic.Int64
}

func (a *Int) Load(Order) int64 { return a.v.Load() }

func (a *Int) Store(val int64, _ Order) { a.v.Store(val) }

func (a *Int) CompareAndSwap(old, new int64, success, failure Order) bool {
	return a.v.CompareAndSwap(old, new)
}

func (a *Int) CompareAndSwapWeak(old, new int64, success, failure Order) bool {
	return a.v.CompareAndSwap(old, new)
}

// FetchAdd adds delta and returns the previous value.
func (a *Int) FetchAdd(delta int64, _ Order) int64 { return a.v.Add(delta) - delta }
