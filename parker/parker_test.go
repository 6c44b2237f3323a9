package parker

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestParker_WakeBeforePark(t *testing.T) {
	var p Parker
	p.PreparePark()
	p.Wake()

	done := make(chan struct{})
	go func() {
		p.Park()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Park blocked although Wake already ran")
	}
}

func TestParker_ParkThenWake(t *testing.T) {
	var p Parker
	var info atomic.Int64
	p.PreparePark()

	done := make(chan int64)
	go func() {
		p.Park()
		done <- info.Load()
	}()

	time.Sleep(10 * time.Millisecond)
	tok := p.UnparkStart()
	info.Store(42)
	tok.Unpark()
	tok.Finish()

	select {
	case got := <-done:
		if got != 42 {
			t.Errorf("info seen by waiter = %d, want 42", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was never released")
	}
}

func TestParker_Reuse(t *testing.T) {
	var p Parker
	for i := 0; i < 100; i++ {
		p.PreparePark()
		go p.Wake()
		p.Park()
	}
}

func TestWakeToken_Misuse(t *testing.T) {
	expectPanic := func(name string, f func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		f()
	}

	var p Parker
	expectPanic("Finish before Unpark", func() {
		tok := p.UnparkStart()
		defer p.mu.Unlock()
		tok.Finish()
	})

	expectPanic("double Unpark", func() {
		tok := p.UnparkStart()
		defer p.mu.Unlock()
		tok.Unpark()
		tok.Unpark()
	})

	expectPanic("double Finish", func() {
		tok := p.UnparkStart()
		tok.Unpark()
		tok.Finish()
		tok.Finish()
	})
}
