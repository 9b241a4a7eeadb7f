package primitives

import "fmt"

// Priority is a scheduling priority. Higher values run first. A thread's base
// priority is always within [PriorityMin, PriorityMax]; its effective priority
// may exceed the base while donations are active, but never the range.
type Priority int

const (
	// PriorityMin is the lowest schedulable priority.
	PriorityMin Priority = 0

	// PriorityDefault is the priority assigned when the caller has no opinion.
	PriorityDefault Priority = 31

	// PriorityMax is the highest schedulable priority.
	PriorityMax Priority = 63

	// NoDonation is the donated-priority sentinel carried by a lock while no
	// thread is donating through it. It compares below every valid priority.
	NoDonation Priority = -1
)

// Valid checks if the priority lies within the schedulable range.
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// String returns a string representation of the Priority.
func (p Priority) String() string {
	if p == NoDonation {
		return "Priority(none)"
	}
	return fmt.Sprintf("Priority(%d)", p)
}
