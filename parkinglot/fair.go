package parkinglot

import "time"

// fairTimeout fires at random intervals of up to a millisecond so that a
// heavily contended lock is occasionally handed off instead of barged.
type fairTimeout struct {
	deadline time.Time
	seed     uint32
}

func (f *fairTimeout) expired() bool {
	now := time.Now()
	if now.Before(f.deadline) {
		return false
	}
	f.deadline = now.Add(time.Duration(f.next() % uint32(time.Millisecond)))
	return true
}

// next is a 32-bit xorshift step.
func (f *fairTimeout) next() uint32 {
	x := f.seed
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	f.seed = x
	return x
}
