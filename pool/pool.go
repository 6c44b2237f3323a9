package pool

import (
	"sync"
	"unsafe"
)

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Pool recycles short-lived records of type T, such as the per-wait records
// of the parking lot.
type Pool[T any] struct {
	_ noCopy // nolint:structcheck,unused

	items *sync.Pool
	reset func(T)
	_     [cacheLinePadSize - (2*unsafe.Sizeof(uintptr(0)))%cacheLinePadSize]byte
}

// NewPool creates a Pool whose empty slots are filled by newFunc. If reset is
// non-nil it is applied to every record handed back through Put.
func NewPool[T any](newFunc func() T, reset func(T)) *Pool[T] {
	return &Pool[T]{
		items: &sync.Pool{
			New: func() any {
				return newFunc()
			},
		},
		reset: reset,
	}
}

// Get returns a record from the pool, creating a new one if necessary.
func (p *Pool[T]) Get() T {
	return p.items.Get().(T)
}

// Put returns a record to the pool. The caller must not touch it afterwards.
func (p *Pool[T]) Put(x T) {
	if p.reset != nil {
		p.reset(x)
	}
	p.items.Put(x)
}
