package sched

import (
	"fmt"

	"priosched/pkg/primitives"
)

// Context is the running thread's capability for talking to the scheduler.
// Each thread entry function receives its own context; interrupt handlers get
// a derived context for which [Context.InInterrupt] reports true. Operations
// on a Context are only legal while its thread is the one executing, which
// the handoff discipline guarantees for code reached from an entry function.
type Context struct {
	s         *Scheduler
	t         *Thread
	interrupt bool
}

// CurrentID returns the identifier of the thread this context belongs to.
func (c *Context) CurrentID() primitives.ThreadID { return c.t.id }

// Current returns the thread record this context belongs to.
func (c *Context) Current() *Thread { return c.t }

// InInterrupt reports whether this context runs inside an interrupt handler.
func (c *Context) InInterrupt() bool { return c.interrupt }

// Thread resolves a thread identifier against the scheduler's arena. Chasing
// an identifier that does not resolve means scheduler state is corrupted, so
// the failure is fatal rather than returned.
func (c *Context) Thread(id primitives.ThreadID) *Thread {
	t, exists := c.s.threads[id]
	if !exists {
		panic(fmt.Sprintf("sched: unknown thread %s", id))
	}
	return t
}

// Spawn registers a new thread and runs a preemption check, so spawning a
// higher-priority thread switches to it immediately.
func (c *Context) Spawn(name string, base primitives.Priority, fn func(*Context)) (primitives.ThreadID, error) {
	id, err := c.s.Spawn(name, base, fn)
	if err != nil {
		return 0, err
	}
	c.s.preemptCheck()
	return id, nil
}

// Yield sends the calling thread to the back of its priority class.
func (c *Context) Yield() {
	if c.interrupt {
		panic("sched: yield from interrupt context")
	}
	c.s.yield(c.t)
}

// Block suspends the calling thread until another thread (or an interrupt
// handler) unblocks it. The reason only feeds logging.
func (c *Context) Block(reason string) {
	if c.interrupt {
		panic("sched: block from interrupt context")
	}
	c.s.logger.Trace("block", "thread", c.t.name, "reason", reason)
	c.s.block(c.t)
}

// Unblock makes the given blocked thread ready. It does not switch to it;
// callers follow up with [Context.Preempt] or rely on a pending token release.
func (c *Context) Unblock(id primitives.ThreadID) {
	c.s.unblock(c.Thread(id))
}

// Preempt runs a preemption check: if a ready thread outranks the current
// one, the current thread is switched out. A no-op while preemption is
// disabled; the check re-runs when the token is released.
func (c *Context) Preempt() {
	c.s.preemptCheck()
}

// DisablePreemption acquires the scheduler token: until the returned restore
// function runs, no preemption check will switch the current thread out. The
// restore function is idempotent and re-runs the preemption check when the
// depth reaches zero, so it is safe (and expected) to defer it on every exit
// path. Blocking while the token is held is legal; the depth is saved with
// the thread and restored when it is dispatched again.
func (c *Context) DisablePreemption() func() {
	c.s.noPreempt++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		c.s.noPreempt--
		if c.s.noPreempt == 0 {
			c.s.preemptCheck()
		}
	}
}

// RaisePriority raises a thread's effective priority, never lowering it.
func (c *Context) RaisePriority(id primitives.ThreadID, p primitives.Priority) {
	t := c.Thread(id)
	if p > t.effective {
		c.s.setEffective(t, p)
	}
}

// RecomputePriority restores a thread's effective priority to
// max(base, ledger top), after its donation ledger changed.
func (c *Context) RecomputePriority(id primitives.ThreadID) {
	c.s.recomputeEffective(c.Thread(id))
}

// SetPriority changes the calling thread's base priority. The effective
// priority is recomputed, so an active donation keeps the thread boosted; a
// lowered base takes full effect once the last donation is gone. Lowering
// below a ready thread's priority switches out immediately.
func (c *Context) SetPriority(base primitives.Priority) error {
	if !base.Valid() {
		return fmt.Errorf("priority %d outside [%d, %d]", base, primitives.PriorityMin, primitives.PriorityMax)
	}

	restore := c.DisablePreemption()
	defer restore()

	c.t.base = base
	c.s.recomputeEffective(c.t)
	return nil
}

// Interrupt runs the handler as if an interrupt had preempted the current
// thread: preemption stays disabled for the handler's duration, the handler's
// context reports [Context.InInterrupt], and any priority change the handler
// caused is acted on when the handler returns.
func (c *Context) Interrupt(handler func(*Context)) {
	if c.interrupt {
		panic("sched: nested interrupt")
	}

	restore := c.DisablePreemption()
	defer restore()
	handler(&Context{s: c.s, t: c.t, interrupt: true})
}
