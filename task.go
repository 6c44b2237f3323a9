package blazepool

import (
	"context"
	"fmt"
)

// TaskFunc runs a single iteration idx.
type TaskFunc func(ctx context.Context, idx int) error

// LoopFunc runs iterations [min, min+extent). Parallel tasks are always
// called with extent 1; serial tasks may be handed a batch.
type LoopFunc func(ctx context.Context, min, extent int) error

// SemaphoreAcquire gates each iteration of a task on taking Count units
// from Sem.
type SemaphoreAcquire struct {
	Sem   *Semaphore
	Count int
}

// Task describes one job of a ParallelTasks batch.
type Task struct {
	// Name keys the per-task statistics. Empty names are reported as "anonymous".
	Name string
	Fn   LoopFunc

	Min    int
	Extent int

	// Serial tasks run their iterations in increasing order, one worker
	// at a time.
	Serial bool
	// MayBlock marks a task that waits on other tasks of the same batch
	// (through semaphores or otherwise). It is not started until MinThreads
	// workers can run concurrently, and only the batch's own owner or pool
	// workers pick it up.
	MayBlock bool
	// MinThreads is the number of workers that must be able to run the
	// task at once before it starts. The pool grows to fit it; values above
	// MaxThreads are capped.
	MinThreads int

	// Semaphores are acquired in order before every iteration.
	Semaphores []SemaphoreAcquire
}

func (t *Task) name() string {
	if t.Name == "" {
		return "anonymous"
	}
	return t.Name
}

func (t *Task) validate() error {
	if t.Fn == nil {
		return fmt.Errorf("task %q: %w", t.name(), ErrNilFunc)
	}
	if t.Extent < 0 {
		return fmt.Errorf("%w: task %q: extent %d < 0", ErrInvalidTask, t.name(), t.Extent)
	}
	if t.MinThreads < 0 {
		return fmt.Errorf("%w: task %q: min threads %d < 0", ErrInvalidTask, t.name(), t.MinThreads)
	}
	for i, sa := range t.Semaphores {
		if sa.Sem == nil {
			return fmt.Errorf("%w: task %q: semaphore %d is nil", ErrInvalidTask, t.name(), i)
		}
		if sa.Count < 0 {
			return fmt.Errorf("%w: task %q: semaphore %d count %d < 0", ErrInvalidTask, t.name(), i, sa.Count)
		}
	}
	return nil
}

// loopOf adapts a per-index callback to a LoopFunc.
func loopOf(fn TaskFunc) LoopFunc {
	return func(ctx context.Context, min, extent int) error {
		for i := min; i < min+extent; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}
}
