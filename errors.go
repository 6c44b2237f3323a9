package blazepool

import (
	"errors"
	"fmt"
)

var (
	// ErrNilFunc is returned when a task or callback is nil.
	ErrNilFunc = errors.New("blazepool: nil task function")
	// ErrInvalidTask is returned for a task with a negative extent or
	// thread requirement, or a malformed semaphore gate.
	ErrInvalidTask = errors.New("blazepool: invalid task")
	// ErrNegativeThreads is returned by SetNumThreads for n < 0.
	ErrNegativeThreads = errors.New("blazepool: negative thread count")
)

// PanicError is returned in place of a task's result when the task panics.
type PanicError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("blazepool: task %q panicked: %v", e.Task, e.Value)
}

// Unwrap exposes a panic value that is itself an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
