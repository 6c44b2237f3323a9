package blazepool

import "context"

// job is the scheduler's view of a submitted Task. All fields except the
// immutable ones set at submission are guarded by the scheduler's mutex,
// with one exception: a serial job that a worker has unlinked to run is
// owned by that worker until it is relinked.
type job struct {
	task Task

	// ctx is handed to the task function; it carries the job so that
	// submissions made from inside the task know their parent.
	ctx   context.Context
	sched *Scheduler

	next *job
	// siblings is the first job of the batch this job was submitted with.
	siblings *job
	parent   *job

	activeWorkers int
	err           error
	// nextSemaphore is where makeRunnable resumes after a failed acquire.
	nextSemaphore   int
	ownerIsSleeping bool

	stats *TaskStats
}

// running reports whether the job still has iterations to hand out or
// workers inside it.
func (j *job) running() bool {
	return j.task.Extent > 0 || j.activeWorkers > 0
}

// makeRunnable acquires the job's semaphores in order. Units taken before a
// failed acquire stay taken; the next call resumes at the semaphore that
// failed.
func (j *job) makeRunnable() bool {
	for ; j.nextSemaphore < len(j.task.Semaphores); j.nextSemaphore++ {
		sa := j.task.Semaphores[j.nextSemaphore]
		if !sa.Sem.TryAcquire(sa.Count) {
			return false
		}
	}
	j.nextSemaphore = 0
	return true
}

type parentKey struct{}

// parentFrom returns the job ctx belongs to, if that job was submitted to s.
func parentFrom(ctx context.Context, s *Scheduler) *job {
	if ctx == nil {
		return nil
	}
	if j, ok := ctx.Value(parentKey{}).(*job); ok && j.sched == s {
		return j
	}
	return nil
}
