package pool

import (
	"sync"
	"testing"
)

// =============================================================================
// Pool Tests
// =============================================================================

type record struct {
	n    int
	used bool
}

func TestPool_ResetOnPut(t *testing.T) {
	p := NewPool(func() *record { return &record{} }, func(r *record) {
		r.n = 0
		r.used = false
	})

	r := p.Get()
	r.n, r.used = 7, true
	p.Put(r)

	// sync.Pool may drop the record; either way the caller sees a clean one.
	r = p.Get()
	if r.n != 0 || r.used {
		t.Errorf("Get after Put = %+v, want zeroed record", *r)
	}
}

// =============================================================================
// Arena Tests
// =============================================================================

func TestArena_AllocNeverReturnsZero(t *testing.T) {
	a := NewArena[record]()
	for i := 0; i < 3*arenaChunkSize; i++ {
		idx, r := a.Alloc()
		if idx == 0 {
			t.Fatal("Alloc returned reserved index 0")
		}
		if a.Get(idx) != r {
			t.Fatalf("Get(%d) does not match the record returned by Alloc", idx)
		}
	}
	if a.Len() != 3*arenaChunkSize-1 {
		t.Errorf("Len() = %d, want %d", a.Len(), 3*arenaChunkSize-1)
	}
}

func TestArena_LenEmpty(t *testing.T) {
	a := NewArena[record]()
	if a.Len() != 0 {
		t.Errorf("Len() = %d on a fresh arena, want 0", a.Len())
	}
	a.Alloc()
	if a.Len() != arenaChunkSize-1 {
		t.Errorf("Len() = %d after one Alloc, want %d", a.Len(), arenaChunkSize-1)
	}
}

func TestArena_FreeReuses(t *testing.T) {
	a := NewArena[record]()
	idx, r := a.Alloc()
	r.n = 11
	a.Free(idx)

	idx2, r2 := a.Alloc()
	if idx2 != idx {
		t.Errorf("Alloc after Free = %d, want reused index %d", idx2, idx)
	}
	if r2.n != 11 {
		t.Errorf("reused record n = %d, want 11 (arena does not clear)", r2.n)
	}
	if a.Get(0) != nil {
		t.Error("Get(0) should be nil")
	}
}

func TestArena_ConcurrentUnique(t *testing.T) {
	a := NewArena[record]()
	const goroutines, rounds = 8, 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range rounds {
				idx, r := a.Alloc()
				if r.used {
					t.Errorf("index %d handed out twice", idx)
					return
				}
				r.used = true
				r.used = false
				a.Free(idx)
			}
		}()
	}
	wg.Wait()

	// Every slot is back on the free list.
	seen := make(map[uint32]bool)
	for i := 0; i < a.Len(); i++ {
		idx, _ := a.Alloc()
		if seen[idx] {
			t.Fatalf("index %d on the free list twice", idx)
		}
		seen[idx] = true
	}
}

func TestArena_FreeZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Free(0) did not panic")
		}
	}()
	NewArena[record]().Free(0)
}
