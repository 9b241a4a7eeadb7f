// Package sema implements a counting semaphore for simulated threads, the
// blocking primitive the locking layer is built on. The wait list is strictly
// FIFO: among threads blocked on the same semaphore, the one that blocked
// first is woken first, regardless of priority. Priority decides who runs
// once woken, not queue order.
package sema

import (
	"slices"

	"priosched/pkg/primitives"
	"priosched/pkg/sched"
)

// Semaphore is a counting semaphore with a FIFO wait list. It has no mutex of
// its own: every operation runs under the scheduler's preemption-disable
// token, which on a single processor is the only exclusion needed.
type Semaphore struct {
	value   int
	waiters []primitives.ThreadID
}

// New creates a semaphore with the given initial value. A value of 1 yields a
// binary semaphore.
func New(value int) *Semaphore {
	if value < 0 {
		panic("sema: negative initial value")
	}
	return &Semaphore{value: value}
}

// Down decrements the semaphore, blocking the calling thread until the value
// is positive. Interrupt handlers cannot block, so calling Down from one is a
// fatal usage error.
func (m *Semaphore) Down(ctx *sched.Context) {
	if ctx.InInterrupt() {
		panic("sema: down from interrupt context")
	}

	restore := ctx.DisablePreemption()
	defer restore()

	for m.value == 0 {
		m.waiters = append(m.waiters, ctx.CurrentID())
		ctx.Block("semaphore")
	}
	m.value--
}

// TryDown decrements the semaphore only if that needs no waiting, reporting
// whether it did. Safe to call from an interrupt handler.
func (m *Semaphore) TryDown(ctx *sched.Context) bool {
	restore := ctx.DisablePreemption()
	defer restore()

	if m.value == 0 {
		return false
	}
	m.value--
	return true
}

// Up increments the semaphore and wakes the first waiter in FIFO order, if
// any. Safe to call from an interrupt handler; if the woken thread outranks
// the current one, the switch happens as soon as preemption is re-enabled.
func (m *Semaphore) Up(ctx *sched.Context) {
	restore := ctx.DisablePreemption()
	defer restore()

	m.value++
	if len(m.waiters) > 0 {
		first := m.waiters[0]
		m.waiters = slices.Delete(m.waiters, 0, 1)
		ctx.Unblock(first)
	}
}

// Value returns the current semaphore value.
func (m *Semaphore) Value() int { return m.value }

// Waiters returns a copy of the FIFO wait list, first waiter first.
func (m *Semaphore) Waiters() []primitives.ThreadID {
	return slices.Clone(m.waiters)
}
