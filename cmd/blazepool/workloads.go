package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/GoBlaze/blazepool"
	"github.com/sirupsen/logrus"
)

type workloads struct {
	sched *blazepool.Scheduler
	log   *logrus.Logger
}

func (w *workloads) run(ctx context.Context, size, trials, nested int) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"parallel_for", func(ctx context.Context) error { return w.parallelFor(ctx, size, trials) }},
		{"nested", func(ctx context.Context) error { return w.nested(ctx, nested) }},
		{"min_threads", w.minThreads},
		{"pipeline", func(ctx context.Context) error { return w.pipeline(ctx, size) }},
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		start := time.Now()
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		w.log.WithFields(logrus.Fields{
			"workload": step.name,
			"elapsed":  time.Since(start),
		}).Info("workload passed")
	}
	return nil
}

// parallelFor checks that every index runs exactly once.
func (w *workloads) parallelFor(ctx context.Context, size, trials int) error {
	for trial := range trials {
		var counter atomic.Int64
		err := w.sched.ParallelFor(ctx, 0, size, func(context.Context, int) error {
			counter.Add(1)
			return nil
		})
		if err != nil {
			return err
		}
		if got := counter.Load(); got != int64(size) {
			return fmt.Errorf("trial %d: %d calls, want %d", trial, got, size)
		}
	}
	return nil
}

// nested runs a width x width parallel-for inside a parallel-for.
func (w *workloads) nested(ctx context.Context, width int) error {
	var inner atomic.Int64
	err := w.sched.ParallelFor(ctx, 0, width, func(ctx context.Context, _ int) error {
		return w.sched.ParallelFor(ctx, 0, width, func(context.Context, int) error {
			inner.Add(1)
			return nil
		})
	})
	if err != nil {
		return err
	}
	if got := inner.Load(); got != int64(width*width) {
		return fmt.Errorf("%d inner calls, want %d", got, width*width)
	}
	return nil
}

// minThreads runs three iterations that wait for each other, which only
// completes if the pool grows to fit them.
func (w *workloads) minThreads(ctx context.Context) error {
	const n = 3
	var arrived atomic.Int32
	barrier := make(chan struct{})
	return w.sched.ParallelTasks(ctx, []blazepool.Task{{
		Name:       "barrier",
		Extent:     n,
		MayBlock:   true,
		MinThreads: n,
		Fn: func(context.Context, int, int) error {
			if arrived.Add(1) == n {
				close(barrier)
			}
			<-barrier
			return nil
		},
	}})
}

// pipeline feeds a serial consumer from a parallel producer through a
// semaphore.
func (w *workloads) pipeline(ctx context.Context, n int) error {
	sem := w.sched.NewSemaphore(0)
	var produced, consumed atomic.Int64
	err := w.sched.ParallelTasks(ctx, []blazepool.Task{
		{
			Name:       "consume",
			Serial:     true,
			Extent:     n,
			Semaphores: []blazepool.SemaphoreAcquire{{Sem: sem, Count: 1}},
			Fn: func(_ context.Context, _, extent int) error {
				if c := consumed.Add(int64(extent)); c > produced.Load() {
					return fmt.Errorf("consumed %d before it was produced", c)
				}
				return nil
			},
		},
		{
			Name:   "produce",
			Extent: n,
			Fn: func(context.Context, int, int) error {
				produced.Add(1)
				sem.Release(1)
				return nil
			},
		},
	})
	if err != nil {
		return err
	}
	if got := consumed.Load(); got != int64(n) {
		return fmt.Errorf("consumed %d, want %d", got, n)
	}
	return nil
}
