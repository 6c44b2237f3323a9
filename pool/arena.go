package pool

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

const (
	arenaChunkBits = 8
	arenaChunkSize = 1 << arenaChunkBits
	arenaChunkMask = arenaChunkSize - 1
	arenaMaxChunks = 1 << 12

	// ArenaCapacity is the number of slots an Arena can hand out at once.
	ArenaCapacity = arenaChunkSize*arenaMaxChunks - 1
)

// Arena hands out records of type T addressed by a small integer index
// instead of a pointer, so an index can be packed into an atomic word next to
// flag bits without hiding a pointer from the garbage collector.
//
// Slots never move and are never released back to the runtime. Index 0 is
// reserved and means "none".
type Arena[T any] struct {
	_ cacheLinePadding

	// free is the head of a Treiber stack of free indices. The high 32 bits
	// are a generation tag bumped on every update to defeat ABA.
	free atomic.Uint64
	_    [cacheLinePadSize - unsafe.Sizeof(atomic.Uint64{})]byte //nolint:unused

	grow    sync.Mutex
	nchunks atomic.Uint32
	chunks  [arenaMaxChunks]atomic.Pointer[arenaChunk[T]]
}

type arenaChunk[T any] [arenaChunkSize]arenaSlot[T]

type arenaSlot[T any] struct {
	next atomic.Uint32
	val  T
}

// NewArena returns an empty arena. Slots are allocated on demand.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{}
}

func (a *Arena[T]) slot(idx uint32) *arenaSlot[T] {
	c := a.chunks[idx>>arenaChunkBits].Load()
	if c == nil {
		panic("pool: arena index out of range")
	}
	return &c[idx&arenaChunkMask]
}

// Get returns the record stored at idx.
func (a *Arena[T]) Get(idx uint32) *T {
	if idx == 0 {
		return nil
	}
	return &a.slot(idx).val
}

// Alloc takes a free slot and returns its index and record. The record keeps
// whatever state its previous owner left in it.
func (a *Arena[T]) Alloc() (uint32, *T) {
	for {
		if idx := a.pop(); idx != 0 {
			return idx, &a.slot(idx).val
		}
		a.addChunk()
	}
}

// Free returns idx to the arena. The caller must not use the record again.
func (a *Arena[T]) Free(idx uint32) {
	if idx == 0 {
		panic("pool: free of reserved arena index 0")
	}
	a.push(idx)
}

// Len reports how many slots have been carved out so far.
func (a *Arena[T]) Len() int {
	n := int(a.nchunks.Load())
	if n == 0 {
		return 0
	}
	// Slot 0 is never handed out.
	return n*arenaChunkSize - 1
}

func (a *Arena[T]) pop() uint32 {
	for {
		head := a.free.Load()
		idx := uint32(head)
		if idx == 0 {
			return 0
		}
		next := a.slot(idx).next.Load()
		if a.free.CompareAndSwap(head, (head>>32+1)<<32|uint64(next)) {
			return idx
		}
	}
}

func (a *Arena[T]) push(idx uint32) {
	s := a.slot(idx)
	for {
		head := a.free.Load()
		s.next.Store(uint32(head))
		if a.free.CompareAndSwap(head, (head>>32+1)<<32|uint64(idx)) {
			return
		}
	}
}

// addChunk carves a new chunk and pushes its slots on the free list. Only one
// goroutine grows the arena at a time; late arrivals find the new slots.
func (a *Arena[T]) addChunk() {
	a.grow.Lock()
	defer a.grow.Unlock()

	if uint32(a.free.Load()) != 0 {
		return
	}
	n := a.nchunks.Load()
	if n == arenaMaxChunks {
		panic("pool: arena exhausted")
	}
	a.chunks[n].Store(new(arenaChunk[T]))
	a.nchunks.Store(n + 1)

	first := n << arenaChunkBits
	if first == 0 {
		first = 1
	}
	for idx := (n+1)<<arenaChunkBits - 1; idx >= first; idx-- {
		a.push(idx)
	}
}
