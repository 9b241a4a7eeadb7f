package primitives

import (
	"testing"
)

func TestThreadID_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		threadID ThreadID
		expected bool
	}{
		{"Zero ThreadID is invalid", ThreadID(0), false},
		{"Non-zero ThreadID is valid", ThreadID(7), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.threadID.IsValid()
			if result != tt.expected {
				t.Errorf("expected IsValid=%v, got %v", tt.expected, result)
			}
		})
	}
}

func TestThreadID_String(t *testing.T) {
	threadID := ThreadID(42)
	result := threadID.String()
	expected := "ThreadID(42)"
	if result != expected {
		t.Errorf("expected '%s', got '%s'", expected, result)
	}
}

func TestLockID_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		lockID   LockID
		expected bool
	}{
		{"Zero LockID is invalid", LockID(0), false},
		{"Non-zero LockID is valid", LockID(3), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.lockID.IsValid()
			if result != tt.expected {
				t.Errorf("expected IsValid=%v, got %v", tt.expected, result)
			}
		})
	}
}

func TestLockID_AsUint64(t *testing.T) {
	lockID := LockID(9876543210)
	result := lockID.AsUint64()
	if result != 9876543210 {
		t.Errorf("expected 9876543210, got %d", result)
	}
}

func TestPriority_Valid(t *testing.T) {
	tests := []struct {
		name     string
		priority Priority
		expected bool
	}{
		{"Minimum priority is valid", PriorityMin, true},
		{"Default priority is valid", PriorityDefault, true},
		{"Maximum priority is valid", PriorityMax, true},
		{"Below minimum is invalid", PriorityMin - 1, false},
		{"Above maximum is invalid", PriorityMax + 1, false},
		{"Donation sentinel is invalid", NoDonation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.priority.Valid()
			if result != tt.expected {
				t.Errorf("expected Valid=%v, got %v", tt.expected, result)
			}
		})
	}
}

func TestPriority_String(t *testing.T) {
	if got := Priority(17).String(); got != "Priority(17)" {
		t.Errorf("expected 'Priority(17)', got '%s'", got)
	}

	if got := NoDonation.String(); got != "Priority(none)" {
		t.Errorf("expected 'Priority(none)', got '%s'", got)
	}
}
