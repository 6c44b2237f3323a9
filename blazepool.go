// Package blazepool is a work-stealing task scheduler for nested data
// parallelism.
//
// Work is submitted as jobs over an iteration range. The submitting goroutine
// does not just wait: it runs as a worker until its own jobs finish, which is
// what keeps nested ParallelFor calls from needing ever more goroutines.
// Pool workers sleep in two tiers so a burst of small jobs wakes only as many
// of them as there is work for. All blocking goes through the mutex package,
// and from there through the parking lot.
package blazepool

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/GoBlaze/blazepool/mutex"
)

// Scheduler owns a pool of worker goroutines and the queue they pull jobs
// from. The zero value is not usable; call New.
type Scheduler struct {
	mu mutex.Mutex
	_  cacheLinePadding

	// jobs is the head of the queue; new jobs are pushed in front.
	jobs *job

	wakeATeam  mutex.Cond
	wakeBTeam  mutex.Cond
	wakeOwners mutex.Cond

	// numThreads is the configured count, 0 for automatic.
	numThreads     int
	desiredThreads int

	workersSleeping int
	ownersSleeping  int
	threadsCreated  int
	// threadsReserved counts threads promised to running blocking jobs.
	threadsReserved int

	aTeamSize       int
	targetATeamSize int

	initialized bool
	shutdown    bool
	// threads holds one channel per worker, closed when it exits.
	threads []chan struct{}

	// lifecycle serializes Shutdown calls.
	lifecycle mutex.Mutex

	log   *logrusLogger
	stats statsRegistry
}

// New returns a Scheduler. Workers are started lazily on first use or by
// Start.
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		numThreads: cfg.NumThreads,
		log:        newLogger(&cfg),
		stats:      newStatsRegistry(),
	}, nil
}

// Start sizes the pool and spawns its workers. It is idempotent. A malformed
// BLAZEPOOL_NUM_THREADS is returned as an error, but the pool still starts
// with the CPU count.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.ensureStarted()
	s.spawnLocked(0)
	return err
}

// ensureStarted sizes the pool on first use after New or Shutdown.
func (s *Scheduler) ensureStarted() error {
	if s.initialized {
		return nil
	}

	var err error
	if s.numThreads > 0 {
		s.desiredThreads = clampThreads(s.numThreads)
	} else if s.desiredThreads, err = defaultThreads(); err != nil {
		s.log.Warn("ignoring %s: %v", EnvNumThreads, err)
	}
	s.initialized = true

	s.log.Debug("scheduler started with %d threads", s.desiredThreads)
	return err
}

// spawnLocked adds workers until the pool reaches the desired size, or until
// minThreads threads are free beyond the current reservations.
func (s *Scheduler) spawnLocked(minThreads int) {
	for !s.shutdown && s.threadsCreated < MaxThreads &&
		(s.threadsCreated < s.desiredThreads-1 || s.threadsCreated+1-s.threadsReserved < minThreads) {
		s.aTeamSize++
		s.threadsCreated++
		done := make(chan struct{})
		s.threads = append(s.threads, done)
		s.log.Trace("spawning worker %d", s.threadsCreated)
		go s.workerThread(done)
	}
}

// Shutdown stops and joins every pool worker, then resets the pool so that
// the next submission starts it again. Submitters still waiting on their
// jobs keep running them; the pool is restarted for them if needed.
//
// Shutdown joins the workers, so it must not be called from a task running
// on the pool: the worker running that task would wait for itself. A task
// that wants to stop the pool should call it from a new goroutine.
func (s *Scheduler) Shutdown() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	s.wakeOwners.Broadcast()
	s.wakeATeam.Broadcast()
	s.wakeBTeam.Broadcast()
	threads := s.threads
	s.mu.Unlock()

	for _, done := range threads {
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads = nil
	s.threadsCreated = 0
	s.aTeamSize = 0
	s.targetATeamSize = 0
	s.workersSleeping = 0
	s.desiredThreads = 0
	s.shutdown = false
	s.initialized = false
	s.log.Debug("scheduler shut down, %d workers joined", len(threads))

	if s.jobs != nil {
		// Submissions raced with Shutdown. Bring workers back for them.
		_ = s.ensureStarted()
		minThreads := 0
		for j := s.jobs; j != nil; j = j.next {
			minThreads += j.task.MinThreads
		}
		s.spawnLocked(minThreads)
		s.targetATeamSize = s.threadsCreated
		s.wakeOwners.Broadcast()
	}
}

// SetNumThreads changes the desired number of working threads and returns
// the previous one. 0 restores the default. Values above MaxThreads are
// capped. The pool grows at the next submission; it never shrinks until
// Shutdown.
func (s *Scheduler) SetNumThreads(n int) (int, error) {
	if n < 0 {
		return 0, ErrNegativeThreads
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.ensureStarted()
	old := s.desiredThreads
	s.numThreads = n
	if n == 0 {
		s.desiredThreads, _ = defaultThreads()
	} else {
		s.desiredThreads = clampThreads(n)
	}
	return old, nil
}

// Stats returns the pool counters and per-task statistics.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	st := Stats{
		Started:         s.initialized,
		DesiredThreads:  s.desiredThreads,
		ThreadsCreated:  s.threadsCreated,
		ThreadsReserved: s.threadsReserved,
		WorkersSleeping: s.workersSleeping,
		OwnersSleeping:  s.ownersSleeping,
		ATeamSize:       s.aTeamSize,
		TargetATeamSize: s.targetATeamSize,
	}
	for j := s.jobs; j != nil; j = j.next {
		st.QueuedJobs++
	}
	s.mu.Unlock()

	st.Tasks = s.stats.snapshot()
	return st
}

// ParallelFor calls fn for every index in [min, min+size) and waits for all
// calls to return. It returns the first error any call returned; once a call
// fails no further indices are started.
//
// fn receives a context derived from ctx that marks it as running inside this
// scheduler, so ParallelFor calls made with it are nested rather than
// independent.
func (s *Scheduler) ParallelFor(ctx context.Context, min, size int, fn TaskFunc) error {
	if fn == nil {
		return ErrNilFunc
	}
	return s.ParallelTasks(ctx, []Task{{
		Name:   parallelForName,
		Fn:     loopOf(fn),
		Min:    min,
		Extent: size,
	}})
}

// ParallelTasks submits tasks as one batch and waits for all of them,
// running their iterations on the calling goroutine as well as on the pool.
// It returns the first error observed across the batch.
func (s *Scheduler) ParallelTasks(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for i := range tasks {
		if err := tasks[i].validate(); err != nil {
			return err
		}
	}

	jobs := make([]job, len(tasks))
	parent := parentFrom(ctx, s)
	for i := range tasks {
		j := &jobs[i]
		j.task = tasks[i]
		// The pool never grows past MaxThreads, so neither can a request.
		j.task.MinThreads = min(j.task.MinThreads, MaxThreads)
		j.sched = s
		j.parent = parent
		j.ctx = context.WithValue(ctx, parentKey{}, j)
		j.stats = s.stats.forTask(j.task.name())
		for _, sa := range j.task.Semaphores {
			sa.Sem.bind(s)
		}
	}

	s.mu.Lock()
	reserved := s.enqueue(jobs, parent)
	for i := range jobs {
		s.workerLoop(&jobs[i])
	}
	if reserved {
		s.threadsReserved--
		s.wakeATeam.Broadcast()
		s.wakeOwners.Broadcast()
	}
	s.mu.Unlock()

	for i := range jobs {
		if jobs[i].err != nil {
			return jobs[i].err
		}
	}
	return nil
}

// RunTask calls fn(ctx, idx) on the calling goroutine, converting a panic to
// a *PanicError.
func (s *Scheduler) RunTask(ctx context.Context, fn TaskFunc, idx int) error {
	if fn == nil {
		return ErrNilFunc
	}
	return s.call(runTaskName, s.stats.forTask(runTaskName), func() error { return fn(ctx, idx) }, 1)
}

// run executes iterations [min, min+extent) of j outside the queue lock.
func (s *Scheduler) run(j *job, min, extent int) error {
	return s.call(j.task.name(), j.stats, func() error { return j.task.Fn(j.ctx, min, extent) }, extent)
}

func (s *Scheduler) call(name string, ts *TaskStats, fn func() error, extent int) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: name, Value: r, Stack: debug.Stack()}
			s.log.Error("task %q panicked: %v", name, r)
		}
		ts.record(extent, time.Since(start), err != nil)
	}()
	return fn()
}

// wakeForSemaphore wakes workers and owners to retry semaphore-gated jobs.
func (s *Scheduler) wakeForSemaphore() {
	s.mu.Lock()
	s.wakeATeam.Broadcast()
	s.wakeOwners.Broadcast()
	s.mu.Unlock()
}
