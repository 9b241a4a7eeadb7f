// Package sched implements a simulated single-processor priority-preemptive
// thread scheduler. It is the substrate the priority-donation locking layer
// runs on: exactly one simulated thread executes at any instant, and the
// scheduler always dispatches the ready thread with the highest effective
// priority.
//
// # Execution model
//
// Every simulated thread is backed by a goroutine, but the goroutines never
// run concurrently. Control moves between the dispatch loop ([Scheduler.Run])
// and the running thread through a strict channel handoff: the loop resumes
// one thread, then parks until that thread yields, blocks, or exits. All
// shared state — ready queue, thread records, priorities, donation ledgers —
// is therefore only ever touched by the single running thread (or by the
// dispatch loop while no thread runs), mirroring a uniprocessor kernel.
//
// # Components
//
//   - [Scheduler] — the arena owning every [Thread] record, keyed by
//     [primitives.ThreadID], plus the ready queue: a btree ordered by
//     (effective priority descending, dispatch sequence ascending), so ties
//     within a priority class are FIFO.
//   - [Thread]    — a thread control block: base and effective priority, run
//     state, the lock it is waiting on, and its donation ledger (the held
//     locks that currently carry a donated priority, ordered descending).
//   - [Context]   — the capability handed to a thread's entry function. Every
//     scheduler, semaphore and lock operation takes the context of the thread
//     performing it; there is no hidden "current thread" global.
//
// # Preemption
//
// Priority changes trigger a preemption check: if a ready thread now outranks
// the running one, the running thread is placed back on the ready queue and
// control returns to the dispatch loop. Code that must mutate scheduling
// state atomically brackets the mutation with [Context.DisablePreemption];
// the returned restore function re-runs the preemption check, so a deferred
// switch happens as soon as the token is released. The token depth travels
// with a thread across a block, the same way a kernel saves and restores the
// interrupt level around a context switch.
//
// # Invariants
//
//   - A thread's effective priority equals the maximum of its base priority
//     and the top entry of its donation ledger, after every operation.
//   - The donation ledger is ordered by donated priority descending, so the
//     maximum is readable from the front in O(1).
//   - Among ready threads of equal effective priority, dispatch order is FIFO.
package sched
