package sched

import (
	"fmt"
	"slices"

	"priosched/pkg/primitives"
)

const defaultTraceCapacity = 4096

// EventKind classifies an entry in the schedule trace.
type EventKind uint8

const (
	// EventSwitch records a thread being dispatched.
	EventSwitch EventKind = iota
	// EventBlock records a thread suspending itself.
	EventBlock
	// EventUnblock records a blocked thread becoming ready.
	EventUnblock
	// EventExit records a thread's entry function returning.
	EventExit
)

func (k EventKind) String() string {
	switch k {
	case EventSwitch:
		return "switch"
	case EventBlock:
		return "block"
	case EventUnblock:
		return "unblock"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Event is one entry in the schedule trace.
type Event struct {
	Kind   EventKind
	Thread primitives.ThreadID
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Kind, e.Thread)
}

// record appends to the trace. Once the capacity is reached further events
// are dropped; the trace exists for tests and demos, not as a ring buffer.
func (s *Scheduler) record(kind EventKind, id primitives.ThreadID) {
	if len(s.trace) >= s.traceCap {
		return
	}
	s.trace = append(s.trace, Event{Kind: kind, Thread: id})
}

// Trace returns a copy of the schedule trace recorded so far.
func (s *Scheduler) Trace() []Event {
	return slices.Clone(s.trace)
}
