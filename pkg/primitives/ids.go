// Package primitives holds the small identifier and priority value types
// shared by the scheduler and the locking layer. Threads and locks never hold
// raw references to each other; they refer to one another through these IDs,
// which index into the arenas owned by the scheduler and the lock registry.
package primitives

import "fmt"

// ThreadID identifies a thread record in the scheduler's arena.
// IDs are assigned sequentially and never reused within a scheduler instance.
// A ThreadID of 0 is invalid and doubles as the "no thread" sentinel, e.g.
// for the owner of a free lock.
type ThreadID uint64

// IsValid checks if the ThreadID is a valid non-zero identifier.
func (t ThreadID) IsValid() bool {
	return t != 0
}

// AsUint64 returns the ThreadID as a uint64 for serialization or storage.
func (t ThreadID) AsUint64() uint64 {
	return uint64(t)
}

// String returns a string representation of the ThreadID.
func (t ThreadID) String() string {
	return fmt.Sprintf("ThreadID(%d)", t)
}

// LockID identifies a lock record in the lock registry's arena.
// A LockID of 0 is invalid and doubles as the "no lock" sentinel, e.g. for a
// thread that is not waiting on any lock.
type LockID uint64

// IsValid checks if the LockID is a valid non-zero identifier.
func (l LockID) IsValid() bool {
	return l != 0
}

// AsUint64 returns the LockID as a uint64 for serialization or storage.
func (l LockID) AsUint64() uint64 {
	return uint64(l)
}

// String returns a string representation of the LockID.
func (l LockID) String() string {
	return fmt.Sprintf("LockID(%d)", l)
}
