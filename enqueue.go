package blazepool

// enqueue pushes a batch onto the queue, growing the pool if the batch needs
// more threads than are free, and wakes as many sleeping workers as the new
// work can use. It reports whether the batch reserved a thread that the
// caller must release once the batch is done. Called with s.mu held.
func (s *Scheduler) enqueue(jobs []job, parent *job) bool {
	_ = s.ensureStarted()

	minThreads := 0
	// The submitter works on the batch itself.
	workersToWake := -1
	stealable := false
	hasAcquires := false
	mayBlock := false
	for i := range jobs {
		t := &jobs[i].task
		// MinThreads counts toward growth whether or not the task says it
		// may block, otherwise eligible could never be satisfied.
		minThreads += t.MinThreads
		if t.MayBlock {
			mayBlock = true
		} else {
			stealable = true
		}
		if len(t.Semaphores) > 0 {
			hasAcquires = true
		}
		if t.Serial {
			workersToWake++
		} else {
			workersToWake += t.Extent
		}
	}

	// A blocking batch at the top level is not covered by any enclosing
	// job's MinThreads, so it holds one thread of its own.
	reserved := parent == nil && (hasAcquires || mayBlock)
	if reserved {
		s.threadsReserved++
	}

	s.spawnLocked(minThreads)

	for i := len(jobs) - 1; i >= 0; i-- {
		j := &jobs[i]
		j.siblings = &jobs[0]
		if j.task.Extent == 0 {
			continue
		}
		j.next = s.jobs
		s.jobs = j
	}

	nested := s.ownersSleeping > 0 || s.workersSleeping < s.threadsCreated
	if nested || workersToWake > s.workersSleeping {
		// Demand under nesting is not tracked precisely; wake everyone.
		s.targetATeamSize = s.threadsCreated
	} else {
		s.targetATeamSize = max(workersToWake, 0)
	}

	s.wakeATeam.Broadcast()
	if s.targetATeamSize > s.aTeamSize {
		s.wakeBTeam.Broadcast()
		if stealable {
			s.wakeOwners.Broadcast()
		}
	}

	return reserved
}
