package lock

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"priosched/pkg/concurrency/sema"
	"priosched/pkg/primitives"
	"priosched/pkg/sched"
)

// PriorityLock is a mutual-exclusion lock that donates the waiters' priority
// to its holder. It is a binary semaphore specialized two ways: it has an
// owner, and the thread that acquired it must be the one to release it. The
// lock is not recursive; re-acquiring a held lock is a fatal usage error.
type PriorityLock struct {
	id   primitives.LockID
	name string
	reg  *Registry

	// owner is the thread currently holding the lock, 0 while free.
	owner primitives.ThreadID

	// donated is the highest effective priority among the threads currently
	// waiting for this lock, or NoDonation while nobody waits. Meaningful
	// only while the lock sits in its owner's donation ledger.
	donated primitives.Priority

	sem *sema.Semaphore
}

// ID returns the lock's registry identifier.
func (l *PriorityLock) ID() primitives.LockID { return l.id }

// Name returns the name given at construction, for logs and panics.
func (l *PriorityLock) Name() string { return l.name }

// Owner returns the thread currently holding the lock, or 0 while free.
func (l *PriorityLock) Owner() primitives.ThreadID { return l.owner }

// DonatedPriority returns the priority currently donated through this lock,
// or NoDonation while no donation is active.
func (l *PriorityLock) DonatedPriority() primitives.Priority { return l.donated }

// HeldByCurrent reports whether the calling thread owns the lock. Asking
// about any thread but the caller would be racy, so the answer is only
// defined for the caller itself.
func (l *PriorityLock) HeldByCurrent(ctx *sched.Context) bool {
	return l.owner == ctx.CurrentID()
}

// Acquire blocks the calling thread until it is the sole owner of the lock.
// If the lock is held, the caller donates its effective priority to the
// holder (and transitively to whatever chain of locks the holder is waiting
// through) before parking on the lock's FIFO wait queue.
//
// Acquire sleeps, so it must not be called from an interrupt handler, and the
// lock must not already be held by the caller; both are fatal usage errors.
func (l *PriorityLock) Acquire(ctx *sched.Context) {
	if ctx.InInterrupt() {
		panic(fmt.Sprintf("lock: acquire of %q from interrupt context", l.name))
	}
	if l.owner == ctx.CurrentID() {
		panic(fmt.Sprintf("lock: acquire of %q, which the caller already holds", l.name))
	}

	restore := ctx.DisablePreemption()
	defer restore()

	if l.owner != 0 {
		l.donate(ctx)
	}

	l.sem.Down(ctx)

	cur := ctx.Current()
	l.owner = cur.ID()
	cur.SetWaitingOn(0)
	l.adoptWaiters(ctx, cur)
}

// Release gives up ownership of the lock, waking the first waiter in FIFO
// order. The donation carried by this lock is revoked from the releasing
// thread, whose effective priority is recomputed from the donations still
// outstanding on its other locks; those are never touched. The caller must
// hold the lock.
func (l *PriorityLock) Release(ctx *sched.Context) {
	if ctx.InInterrupt() {
		panic(fmt.Sprintf("lock: release of %q from interrupt context", l.name))
	}
	if l.owner != ctx.CurrentID() {
		panic(fmt.Sprintf("lock: release of %q, which the caller does not hold", l.name))
	}

	restore := ctx.DisablePreemption()
	defer restore()

	prev := ctx.Current()
	l.owner = 0
	l.donated = primitives.NoDonation
	l.sem.Up(ctx)

	if prev.DropDonation(l.id) {
		ctx.RecomputePriority(prev.ID())
		l.reg.logger.Trace("donation revoked",
			"lock", l.name, "thread", prev.Name(), "effective", prev.EffectivePriority())
	}
}

// donate records the calling thread's wait edge and its donation on the
// holder, then propagates the donation along the wait chain. Runs with
// preemption disabled.
func (l *PriorityLock) donate(ctx *sched.Context) {
	cur := ctx.Current()
	cur.SetWaitingOn(l.id)

	if p := cur.EffectivePriority(); p > l.donated {
		l.donated = p
	}

	holder := ctx.Thread(l.owner)
	holder.RecordDonation(l.id, l.donated)
	l.reg.logger.Trace("donation",
		"lock", l.name, "from", cur.Name(), "to", holder.Name(), "priority", l.donated)

	l.cascade(ctx, holder)
}

// cascade walks the chain of holders starting at the thread that just
// received a donation: while the raised thread is itself waiting on a lock,
// that lock's donated priority and its holder are raised too. The walk stops
// as soon as a hop's effective priority did not increase. Revisiting a thread
// would mean the wait relation has a cycle, which the protocol can never
// create on its own, so it is fatal.
func (l *PriorityLock) cascade(ctx *sched.Context, first *sched.Thread) {
	visited := mapset.NewThreadUnsafeSet[primitives.ThreadID]()
	visited.Add(ctx.CurrentID())

	holder := first
	for {
		if visited.Contains(holder.ID()) {
			panic(fmt.Sprintf("lock: cyclic wait chain through thread %q", holder.Name()))
		}
		visited.Add(holder.ID())

		before := holder.EffectivePriority()
		ctx.RecomputePriority(holder.ID())
		p := holder.EffectivePriority()
		if p <= before {
			return
		}

		next := holder.WaitingOn()
		if !next.IsValid() {
			return
		}

		link := l.reg.lookup(next)
		if p > link.donated {
			link.donated = p
		}
		owner := ctx.Thread(link.owner)
		owner.RecordDonation(link.id, link.donated)
		holder = owner
	}
}

// adoptWaiters moves the lock's remaining donation onto the new owner. The
// donated priority is recomputed from the threads still parked on the
// semaphore; with no waiters left, the donation is gone and the lock stays
// out of the ledger.
func (l *PriorityLock) adoptWaiters(ctx *sched.Context, cur *sched.Thread) {
	l.donated = primitives.NoDonation
	for _, id := range l.sem.Waiters() {
		if p := ctx.Thread(id).EffectivePriority(); p > l.donated {
			l.donated = p
		}
	}
	if l.donated == primitives.NoDonation {
		return
	}

	cur.RecordDonation(l.id, l.donated)
	ctx.RecomputePriority(cur.ID())
	l.reg.logger.Trace("donation adopted",
		"lock", l.name, "thread", cur.Name(), "priority", l.donated)
}
