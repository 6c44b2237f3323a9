package blazepool

import "runtime"

func (s *Scheduler) workerThread(done chan struct{}) {
	defer close(done)

	s.mu.Lock()
	s.workerLoop(nil)
	s.mu.Unlock()
}

// workerLoop runs queued jobs. With owned set it returns once owned is done;
// pool workers (owned == nil) return at shutdown. Called with s.mu held; the
// lock is dropped while task code runs and while sleeping.
func (s *Scheduler) workerLoop(owned *job) {
	spins := 0
	for (owned != nil && owned.running()) || (owned == nil && !s.shutdown) {
		prev := &s.jobs
		j := s.jobs
		for ; j != nil; prev, j = &j.next, j.next {
			if s.eligible(j, owned) && j.makeRunnable() {
				break
			}
		}

		if j == nil {
			if spins < spinLimit {
				spins++
				s.mu.Unlock()
				runtime.Gosched()
				s.mu.Lock()
			} else {
				s.sleep(owned)
			}
			continue
		}
		spins = 0

		if j.activeWorkers == 0 {
			s.threadsReserved += j.task.MinThreads
		}
		j.activeWorkers++

		var err error
		if j.task.Serial {
			err = s.runSerial(j, prev)
		} else {
			err = s.runOne(j, prev)
		}

		j.activeWorkers--
		if j.activeWorkers == 0 && j.task.MinThreads > 0 {
			s.threadsReserved -= j.task.MinThreads
			s.wakeATeam.Broadcast()
			s.wakeOwners.Broadcast()
		}
		if err != nil {
			s.fail(j, err)
		}
		if !j.running() && j.ownerIsSleeping {
			s.wakeOwners.Broadcast()
		}
	}
}

// eligible reports whether the calling worker may start on j, apart from
// j's semaphores.
func (s *Scheduler) eligible(j, owned *job) bool {
	// An owner only takes blocking work from its own batch, so it cannot end
	// up waiting on something that waits on it.
	if owned != nil && j.siblings != owned.siblings && j.task.MayBlock {
		return false
	}
	if j.task.Serial && j.activeWorkers > 0 {
		return false
	}
	if j.task.MinThreads > 0 && j.activeWorkers == 0 {
		// The +1 is the submitting goroutine, which is not a pool worker.
		available := s.threadsCreated + 1 - s.threadsReserved
		if p := j.parent; p != nil && p.activeWorkers > 0 {
			// Children of a running job may use what it reserved.
			available += p.task.MinThreads
		}
		if available < j.task.MinThreads {
			return false
		}
	}
	return true
}

// runSerial unlinks j and runs as many consecutive iterations as its
// semaphores allow, putting it back if iterations remain.
func (s *Scheduler) runSerial(j *job, prev **job) error {
	*prev = j.next
	j.next = nil
	s.mu.Unlock()

	var err error
	// The first iteration's semaphores were taken by the scan.
	total, iters := 0, 1
	for err == nil {
		for j.task.Extent-total > iters && j.makeRunnable() {
			iters++
		}
		if iters == 0 {
			break
		}
		err = s.run(j, j.task.Min+total, iters)
		total += iters
		iters = 0
	}

	s.mu.Lock()
	j.task.Min += total
	j.task.Extent -= total
	if err == nil && j.task.Extent > 0 {
		j.next = s.jobs
		s.jobs = j
	}
	return err
}

// runOne claims the next iteration of a parallel job and runs it.
func (s *Scheduler) runOne(j *job, prev **job) error {
	idx := j.task.Min
	j.task.Min++
	j.task.Extent--
	if j.task.Extent == 0 {
		*prev = j.next
		j.next = nil
	}
	s.mu.Unlock()

	err := s.run(j, idx, 1)

	s.mu.Lock()
	return err
}

// fail records err on j and stops handing out its remaining iterations.
// Iterations already claimed by other workers still finish.
func (s *Scheduler) fail(j *job, err error) {
	if j.err == nil {
		j.err = err
		s.log.Debug("task %q failed: %v", j.task.name(), err)
	}
	if j.task.Extent > 0 && !j.task.Serial {
		s.unlink(j)
	}
	j.task.Min += j.task.Extent
	j.task.Extent = 0
}

func (s *Scheduler) unlink(j *job) {
	for p := &s.jobs; *p != nil; p = &(*p).next {
		if *p == j {
			*p = j.next
			j.next = nil
			return
		}
	}
}

// sleep blocks until enqueue, a finishing job, a semaphore release or
// Shutdown wakes the caller. Pool workers beyond the wanted A-team size drop
// to the B-team, which only wakes when demand grows past the A-team.
func (s *Scheduler) sleep(owned *job) {
	if owned != nil {
		s.ownersSleeping++
		owned.ownerIsSleeping = true
		s.wakeOwners.Wait(&s.mu)
		owned.ownerIsSleeping = false
		s.ownersSleeping--
		return
	}

	s.workersSleeping++
	if s.aTeamSize > s.targetATeamSize {
		s.aTeamSize--
		s.wakeBTeam.Wait(&s.mu)
		s.aTeamSize++
	} else {
		s.wakeATeam.Wait(&s.mu)
	}
	s.workersSleeping--
}
