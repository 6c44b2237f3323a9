package blazepool

import (
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/valyala/bytebufferpool"
)

// TaskStats accumulates per-task-name counters. Updated without locks.
type TaskStats struct {
	calls      atomic.Int64
	iterations atomic.Int64
	failures   atomic.Int64
	busy       atomic.Int64
}

func (ts *TaskStats) record(extent int, elapsed time.Duration, failed bool) {
	ts.calls.Add(1)
	ts.iterations.Add(int64(extent))
	ts.busy.Add(int64(elapsed))
	if failed {
		ts.failures.Add(1)
	}
}

// TaskSnapshot is a copy of a task's counters.
type TaskSnapshot struct {
	Name       string
	Calls      int64
	Iterations int64
	Failures   int64
	Busy       time.Duration
}

func (ts *TaskStats) snapshot(name string) TaskSnapshot {
	return TaskSnapshot{
		Name:       name,
		Calls:      ts.calls.Load(),
		Iterations: ts.iterations.Load(),
		Failures:   ts.failures.Load(),
		Busy:       time.Duration(ts.busy.Load()),
	}
}

type statsRegistry struct {
	m *haxmap.Map[string, *TaskStats]
}

func newStatsRegistry() statsRegistry {
	return statsRegistry{m: haxmap.New[string, *TaskStats]()}
}

func (r statsRegistry) forTask(name string) *TaskStats {
	ts, _ := r.m.GetOrCompute(name, func() *TaskStats { return new(TaskStats) })
	return ts
}

func (r statsRegistry) snapshot() []TaskSnapshot {
	out := make([]TaskSnapshot, 0, r.m.Len())
	r.m.ForEach(func(name string, ts *TaskStats) bool {
		out = append(out, ts.snapshot(name))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stats is a point-in-time view of a Scheduler.
type Stats struct {
	Started         bool
	DesiredThreads  int
	ThreadsCreated  int
	ThreadsReserved int
	WorkersSleeping int
	OwnersSleeping  int
	ATeamSize       int
	TargetATeamSize int
	QueuedJobs      int

	Tasks []TaskSnapshot
}

// String renders s as "key value" lines followed by one line per task.
func (s Stats) String() string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	line := func(key string, v int) {
		buf.WriteString(key)
		buf.WriteByte(' ')
		buf.B = strconv.AppendInt(buf.B, int64(v), 10)
		buf.WriteByte('\n')
	}
	started := 0
	if s.Started {
		started = 1
	}
	line("started", started)
	line("desired_threads", s.DesiredThreads)
	line("threads_created", s.ThreadsCreated)
	line("threads_reserved", s.ThreadsReserved)
	line("workers_sleeping", s.WorkersSleeping)
	line("owners_sleeping", s.OwnersSleeping)
	line("a_team_size", s.ATeamSize)
	line("target_a_team_size", s.TargetATeamSize)
	line("queued_jobs", s.QueuedJobs)

	for _, t := range s.Tasks {
		buf.WriteString("task ")
		buf.WriteString(strconv.Quote(t.Name))
		buf.WriteString(" calls=")
		buf.B = strconv.AppendInt(buf.B, t.Calls, 10)
		buf.WriteString(" iterations=")
		buf.B = strconv.AppendInt(buf.B, t.Iterations, 10)
		buf.WriteString(" failures=")
		buf.B = strconv.AppendInt(buf.B, t.Failures, 10)
		buf.WriteString(" busy=")
		buf.WriteString(t.Busy.String())
		buf.WriteByte('\n')
	}

	return buf.String()
}
