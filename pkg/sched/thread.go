package sched

import (
	"priosched/pkg/primitives"
	"slices"
)

// State is the run state of a simulated thread.
type State int

const (
	// Ready means the thread can run and is queued for dispatch.
	Ready State = iota
	// Running means the thread is the one currently executing.
	Running
	// Blocked means the thread is suspended and must be explicitly unblocked.
	Blocked
	// Done means the thread's entry function has returned.
	Done
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Donation is one entry in a thread's donation ledger: a lock the thread owns
// together with the priority currently donated through it.
type Donation struct {
	Lock     primitives.LockID
	Priority primitives.Priority
}

// Thread is a thread control block. All fields are mutated only while the
// thread's scheduler holds the single execution context, so no locking is
// needed beyond the scheduler's own handoff discipline.
type Thread struct {
	id   primitives.ThreadID
	name string

	// base is assigned at spawn or by an explicit priority change; the
	// donation protocol never touches it.
	base primitives.Priority

	// effective is the priority the scheduler compares. Invariant:
	// effective = max(base, donations[0].Priority).
	effective primitives.Priority

	state State

	// seq orders threads within the same priority class, FIFO. Reassigned
	// every time the thread re-enters the ready queue.
	seq uint64

	// waitingOn is the single lock this thread is blocked trying to acquire,
	// or 0 while it is not waiting on any lock.
	waitingOn primitives.LockID

	// donations is the ledger: held locks that currently carry a donated
	// priority, ordered by that priority descending. Undonated held locks are
	// not tracked here.
	donations []Donation

	// savedNoPreempt preserves the preemption-disable depth across a context
	// switch, like a saved interrupt level.
	savedNoPreempt int

	gate chan struct{}
	fn   func(*Context)
}

// ID returns the thread's arena identifier.
func (t *Thread) ID() primitives.ThreadID { return t.id }

// Name returns the name given at spawn, for logs and traces.
func (t *Thread) Name() string { return t.name }

// BasePriority returns the thread's base priority.
func (t *Thread) BasePriority() primitives.Priority { return t.base }

// EffectivePriority returns the priority the scheduler actually compares.
func (t *Thread) EffectivePriority() primitives.Priority { return t.effective }

// State returns the thread's run state.
func (t *Thread) State() State { return t.state }

// WaitingOn returns the lock this thread is blocked trying to acquire, or 0.
func (t *Thread) WaitingOn() primitives.LockID { return t.waitingOn }

// SetWaitingOn records (or clears, with 0) the lock the thread is blocked
// trying to acquire.
func (t *Thread) SetWaitingOn(lock primitives.LockID) { t.waitingOn = lock }

// Donations returns a copy of the donation ledger, highest priority first.
func (t *Thread) Donations() []Donation {
	return slices.Clone(t.donations)
}

// DonationFor returns the donated priority recorded for the given lock.
func (t *Thread) DonationFor(lock primitives.LockID) (primitives.Priority, bool) {
	for _, d := range t.donations {
		if d.Lock == lock {
			return d.Priority, true
		}
	}
	return primitives.NoDonation, false
}

// TopDonation returns the highest donated priority in the ledger.
func (t *Thread) TopDonation() (primitives.Priority, bool) {
	if len(t.donations) == 0 {
		return primitives.NoDonation, false
	}
	return t.donations[0].Priority, true
}

// RecordDonation inserts a ledger entry for the given lock, or raises the
// existing one; a donation is never lowered in place. The ledger stays
// ordered by donated priority descending, ties keeping insertion order.
func (t *Thread) RecordDonation(lock primitives.LockID, p primitives.Priority) {
	if i := slices.IndexFunc(t.donations, func(d Donation) bool { return d.Lock == lock }); i >= 0 {
		if p <= t.donations[i].Priority {
			return
		}
		t.donations = slices.Delete(t.donations, i, i+1)
	}

	at := len(t.donations)
	for j, d := range t.donations {
		if d.Priority < p {
			at = j
			break
		}
	}
	t.donations = slices.Insert(t.donations, at, Donation{Lock: lock, Priority: p})
}

// DropDonation removes the ledger entry for the given lock, reporting whether
// one existed. Dropping does not recompute the effective priority; callers go
// through [Context.RecomputePriority] so the ready queue stays consistent.
func (t *Thread) DropDonation(lock primitives.LockID) bool {
	i := slices.IndexFunc(t.donations, func(d Donation) bool { return d.Lock == lock })
	if i < 0 {
		return false
	}
	t.donations = slices.Delete(t.donations, i, i+1)
	return true
}
