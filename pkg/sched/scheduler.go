package sched

import (
	"fmt"

	"github.com/google/btree"
	"github.com/hashicorp/go-hclog"

	"priosched/pkg/primitives"
)

const readyQueueDegree = 2

// Scheduler is the arena owning every thread record, plus the machinery that
// dispatches them one at a time. Threads are registered with [Scheduler.Spawn]
// and driven to completion by [Scheduler.Run].
type Scheduler struct {
	logger hclog.Logger

	threads map[primitives.ThreadID]*Thread
	readyQ  *btree.BTreeG[*Thread]
	current *Thread

	nextID  uint64
	nextSeq uint64

	// schedGate is the dispatch loop's side of the handoff: the running
	// thread signals it whenever control should return to the loop.
	schedGate chan struct{}

	// noPreempt is the preemption-disable depth of the running thread.
	noPreempt int

	running  bool
	trace    []Event
	traceCap int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for scheduling trace output.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTraceCapacity bounds the number of events kept in the schedule trace.
func WithTraceCapacity(n int) Option {
	return func(s *Scheduler) {
		s.traceCap = n
	}
}

// New creates an empty scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:    hclog.NewNullLogger(),
		threads:   make(map[primitives.ThreadID]*Thread),
		readyQ:    btree.NewG(readyQueueDegree, threadLess),
		schedGate: make(chan struct{}),
		traceCap:  defaultTraceCapacity,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// threadLess orders the ready queue: higher effective priority first, FIFO
// dispatch sequence within a priority class. (effective, seq) is unique for
// every queued thread, so this is a total order.
func threadLess(a, b *Thread) bool {
	if a.effective != b.effective {
		return a.effective > b.effective
	}
	return a.seq < b.seq
}

// Spawn registers a new thread and makes it ready. The thread's entry
// function does not run until the scheduler dispatches it.
func (s *Scheduler) Spawn(name string, base primitives.Priority, fn func(*Context)) (primitives.ThreadID, error) {
	if !base.Valid() {
		return 0, fmt.Errorf("priority %d outside [%d, %d]", base, primitives.PriorityMin, primitives.PriorityMax)
	}
	if fn == nil {
		return 0, fmt.Errorf("thread %q has no entry function", name)
	}

	s.nextID++
	t := &Thread{
		id:        primitives.ThreadID(s.nextID),
		name:      name,
		base:      base,
		effective: base,
		gate:      make(chan struct{}),
		fn:        fn,
	}
	s.threads[t.id] = t
	s.enqueueReady(t)

	go s.threadMain(t)

	s.logger.Trace("spawned thread", "thread", name, "id", t.id, "priority", base)
	return t.id, nil
}

// Thread looks up a thread record by ID.
func (s *Scheduler) Thread(id primitives.ThreadID) (*Thread, error) {
	t, exists := s.threads[id]
	if !exists {
		return nil, fmt.Errorf("thread %s not found", id)
	}
	return t, nil
}

// Run dispatches threads until every spawned thread has exited. It returns an
// error if the simulation wedges: no thread is ready but some are still
// blocked with nothing left to wake them.
func (s *Scheduler) Run() error {
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	defer func() { s.running = false }()

	for {
		next, ok := s.readyQ.DeleteMin()
		if !ok {
			if n := s.blockedCount(); n > 0 {
				return fmt.Errorf("no runnable thread: %d thread(s) blocked with nothing to wake them", n)
			}
			return nil
		}

		next.state = Running
		s.current = next
		s.noPreempt = next.savedNoPreempt
		s.record(EventSwitch, next.id)
		s.logger.Trace("dispatch", "thread", next.name, "effective", next.effective)

		next.gate <- struct{}{}
		<-s.schedGate
		s.current = nil
	}
}

// threadMain is the goroutine backing one simulated thread. It parks until
// first dispatched, runs the entry function, then hands control back for good.
func (s *Scheduler) threadMain(t *Thread) {
	<-t.gate
	t.fn(&Context{s: s, t: t})

	t.state = Done
	s.record(EventExit, t.id)
	s.logger.Trace("thread exited", "thread", t.name)
	s.schedGate <- struct{}{}
}

func (s *Scheduler) enqueueReady(t *Thread) {
	t.state = Ready
	s.nextSeq++
	t.seq = s.nextSeq
	s.readyQ.ReplaceOrInsert(t)
}

func (s *Scheduler) blockedCount() int {
	n := 0
	for _, t := range s.threads {
		if t.state == Blocked {
			n++
		}
	}
	return n
}

// yieldToScheduler parks the running thread's goroutine and resumes the
// dispatch loop. The preemption-disable depth travels with the thread.
func (s *Scheduler) yieldToScheduler(t *Thread) {
	t.savedNoPreempt = s.noPreempt
	s.noPreempt = 0
	s.schedGate <- struct{}{}
	<-t.gate
}

// yield sends the running thread to the back of its priority class and lets
// the dispatch loop pick again.
func (s *Scheduler) yield(t *Thread) {
	s.enqueueReady(t)
	s.yieldToScheduler(t)
}

// block suspends the running thread until someone unblocks it.
func (s *Scheduler) block(t *Thread) {
	t.state = Blocked
	s.record(EventBlock, t.id)
	s.yieldToScheduler(t)
}

// unblock makes a blocked thread ready again. It does not switch to it; the
// caller decides whether a preemption check should follow.
func (s *Scheduler) unblock(t *Thread) {
	if t.state != Blocked {
		panic(fmt.Sprintf("sched: unblock of %s thread %q", t.state, t.name))
	}
	s.enqueueReady(t)
	s.record(EventUnblock, t.id)
	s.logger.Trace("unblock", "thread", t.name)
}

// preemptCheck switches the running thread out if a ready thread now outranks
// it. With preemption disabled the check is deferred; the restore function of
// [Context.DisablePreemption] re-runs it.
func (s *Scheduler) preemptCheck() {
	cur := s.current
	if cur == nil || s.noPreempt > 0 {
		return
	}
	if top, ok := s.readyQ.Min(); ok && top.effective > cur.effective {
		s.logger.Trace("preempt", "thread", cur.name, "by", top.name)
		s.yield(cur)
	}
}

// setEffective changes a thread's effective priority, repositioning it in the
// ready queue when necessary. The btree key includes the priority, so the
// thread is removed before the field changes.
func (s *Scheduler) setEffective(t *Thread, p primitives.Priority) {
	if p == t.effective {
		return
	}
	if t.state == Ready {
		s.readyQ.Delete(t)
		t.effective = p
		s.readyQ.ReplaceOrInsert(t)
		return
	}
	t.effective = p
}

// recomputeEffective restores the invariant effective = max(base, ledger top).
func (s *Scheduler) recomputeEffective(t *Thread) {
	p := t.base
	if top, ok := t.TopDonation(); ok && top > p {
		p = top
	}
	s.setEffective(t, p)
}
