// Package lock implements a priority-inheritance mutual-exclusion lock for
// priosched's simulated priority-preemptive scheduler.
//
// # Overview
//
// On a priority scheduler a plain mutex invites priority inversion: a
// high-priority thread blocks on a lock held by a low-priority thread, and an
// unrelated medium-priority thread then preempts the holder indefinitely. The
// [PriorityLock] prevents this with priority donation: while a thread waits
// on a held lock, the holder's effective priority is raised to at least the
// waiter's, and the boost is propagated transitively along chains of holders
// that are themselves waiting on other locks. Releasing a lock revokes
// exactly that lock's donation and nothing else.
//
// # Components
//
//   - [Registry]     — owns every [PriorityLock] record, keyed by
//     [primitives.LockID]. Threads record the lock they wait on by ID only,
//     and the registry resolves those IDs when the protocol walks a chain.
//   - [PriorityLock] — a binary semaphore plus an owner and a donated
//     priority: the highest effective priority among the threads currently
//     waiting for this specific lock.
//   - The donation ledger lives on each [sched.Thread]: the held locks that
//     currently carry a donation, ordered by donated priority descending, so
//     the holder's effective priority is max(base, front of ledger) in O(1).
//
// # Acquire
//
// [PriorityLock.Acquire] on a free lock just takes ownership. On a held lock
// it:
//
//  1. Records the caller as waiting on this lock.
//  2. Raises the lock's donated priority to the caller's effective priority
//     and inserts or updates the lock's entry in the holder's ledger — one
//     entry per lock, holding the maximum across all its waiters.
//  3. Cascades: while the raised thread is itself waiting on some lock, that
//     lock's donation and its holder are raised too, all the way down the
//     chain. A revisited thread means a cyclic wait, which the protocol
//     cannot itself create, so it is treated as fatal corruption.
//  4. Blocks on the lock's semaphore. The wait queue is FIFO; priority
//     affects donations and who runs once woken, not wake order.
//
// On waking, the thread takes ownership, clears its wait edge, and adopts the
// donation still owed through this lock: the lock's donated priority is
// recomputed from the waiters that remain parked, and if any remain, the lock
// enters the new owner's ledger.
//
// # Release
//
// [PriorityLock.Release] frees the lock, wakes the first waiter, removes the
// lock's entry from the releasing thread's ledger and recomputes its
// effective priority from the entries that remain. Donations owed through
// other locks the thread still holds are untouched — releasing one lock never
// chases other threads' ledgers.
//
// # Errors
//
// Every failure in this package is a caller bug, not a runtime condition:
// acquiring a lock already held by the caller, releasing a lock the caller
// does not own, and acquiring or releasing from an interrupt handler all
// panic. There is no soft error path; once an operation returns, the
// bookkeeping is consistent.
package lock
