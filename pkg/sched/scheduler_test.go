package sched

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priosched/pkg/primitives"
)

func TestRunEmptyScheduler(t *testing.T) {
	s := New()
	require.NoError(t, s.Run())
	require.Empty(t, s.Trace())
}

func TestDispatchOrderFollowsPriority(t *testing.T) {
	s := New()
	var order []string

	for _, th := range []struct {
		name string
		prio primitives.Priority
	}{
		{"low", 10},
		{"high", 30},
		{"mid", 20},
	} {
		name := th.name
		_, err := s.Spawn(name, th.prio, func(ctx *Context) {
			order = append(order, name)
		})
		require.NoError(t, err)
	}

	require.NoError(t, s.Run())
	require.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestFIFOWithinPriorityClass(t *testing.T) {
	s := New()
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		_, err := s.Spawn(name, primitives.PriorityDefault, func(ctx *Context) {
			order = append(order, name)
		})
		require.NoError(t, err)
	}

	require.NoError(t, s.Run())
	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestSpawnHigherPriorityPreempts(t *testing.T) {
	s := New()
	var order []string

	_, err := s.Spawn("low", 10, func(ctx *Context) {
		order = append(order, "low:start")
		_, err := ctx.Spawn("high", 40, func(ctx *Context) {
			order = append(order, "high")
		})
		assert.NoError(t, err)
		order = append(order, "low:end")
	})
	require.NoError(t, err)

	require.NoError(t, s.Run())
	require.Equal(t, []string{"low:start", "high", "low:end"}, order)
}

func TestYieldRotatesWithinPriorityClass(t *testing.T) {
	s := New()
	var order []string

	spawn := func(name string) {
		_, err := s.Spawn(name, primitives.PriorityDefault, func(ctx *Context) {
			order = append(order, name+":1")
			ctx.Yield()
			order = append(order, name+":2")
		})
		require.NoError(t, err)
	}
	spawn("a")
	spawn("b")

	require.NoError(t, s.Run())
	require.Equal(t, []string{"a:1", "b:1", "a:2", "b:2"}, order)
}

func TestBlockAndUnblock(t *testing.T) {
	s := New()
	var order []string

	sleeper, err := s.Spawn("sleeper", 40, func(ctx *Context) {
		order = append(order, "sleeper:block")
		ctx.Block("test")
		order = append(order, "sleeper:woken")
	})
	require.NoError(t, err)

	_, err = s.Spawn("waker", 10, func(ctx *Context) {
		order = append(order, "waker:wake")
		ctx.Unblock(sleeper)
		// Unblock alone never switches; the waker keeps the processor until
		// it exits or runs a preemption check.
		order = append(order, "waker:end")
	})
	require.NoError(t, err)

	require.NoError(t, s.Run())
	require.Equal(t, []string{"sleeper:block", "waker:wake", "waker:end", "sleeper:woken"}, order)
}

func TestUnblockThenPreempt(t *testing.T) {
	s := New()
	var order []string

	sleeper, err := s.Spawn("sleeper", 40, func(ctx *Context) {
		ctx.Block("test")
		order = append(order, "sleeper:woken")
	})
	require.NoError(t, err)

	_, err = s.Spawn("waker", 10, func(ctx *Context) {
		ctx.Unblock(sleeper)
		ctx.Preempt()
		order = append(order, "waker:end")
	})
	require.NoError(t, err)

	require.NoError(t, s.Run())
	require.Equal(t, []string{"sleeper:woken", "waker:end"}, order)
}

func TestSetPriorityLowersAndSwitches(t *testing.T) {
	s := New()
	var order []string

	_, err := s.Spawn("a", 50, func(ctx *Context) {
		order = append(order, "a:start")
		assert.NoError(t, ctx.SetPriority(5))
		order = append(order, "a:end")
		assert.Equal(t, primitives.Priority(5), ctx.Current().EffectivePriority())
	})
	require.NoError(t, err)

	_, err = s.Spawn("b", 20, func(ctx *Context) {
		order = append(order, "b")
	})
	require.NoError(t, err)

	require.NoError(t, s.Run())
	require.Equal(t, []string{"a:start", "b", "a:end"}, order)
}

func TestSetPriorityRejectsOutOfRange(t *testing.T) {
	s := New()

	_, err := s.Spawn("a", 10, func(ctx *Context) {
		assert.Error(t, ctx.SetPriority(primitives.PriorityMax+1))
		assert.Error(t, ctx.SetPriority(primitives.NoDonation))
		assert.Equal(t, primitives.Priority(10), ctx.Current().BasePriority())
	})
	require.NoError(t, err)
	require.NoError(t, s.Run())
}

func TestDisablePreemptionDefersSwitch(t *testing.T) {
	s := New()
	var order []string

	_, err := s.Spawn("low", 10, func(ctx *Context) {
		restore := ctx.DisablePreemption()
		_, err := ctx.Spawn("high", 50, func(ctx *Context) {
			order = append(order, "high")
		})
		assert.NoError(t, err)
		order = append(order, "low:critical")
		restore()
		order = append(order, "low:end")
	})
	require.NoError(t, err)

	require.NoError(t, s.Run())
	require.Equal(t, []string{"low:critical", "high", "low:end"}, order)
}

func TestRestoreIsIdempotent(t *testing.T) {
	s := New()

	_, err := s.Spawn("a", 10, func(ctx *Context) {
		restore := ctx.DisablePreemption()
		restore()
		restore()
		// A second DisablePreemption still works after double restore.
		inner := ctx.DisablePreemption()
		inner()
	})
	require.NoError(t, err)
	require.NoError(t, s.Run())
}

func TestStuckSimulationReturnsError(t *testing.T) {
	s := New()

	_, err := s.Spawn("stuck", 10, func(ctx *Context) {
		ctx.Block("forever")
	})
	require.NoError(t, err)

	err = s.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no runnable thread")
}

func TestSpawnValidation(t *testing.T) {
	s := New()

	_, err := s.Spawn("bad", primitives.PriorityMax+1, func(ctx *Context) {})
	require.Error(t, err)

	_, err = s.Spawn("nofn", primitives.PriorityDefault, nil)
	require.Error(t, err)
}

func TestScheduleTrace(t *testing.T) {
	s := New()

	hi, err := s.Spawn("hi", 20, func(ctx *Context) {})
	require.NoError(t, err)
	lo, err := s.Spawn("lo", 10, func(ctx *Context) {})
	require.NoError(t, err)

	require.NoError(t, s.Run())

	want := []Event{
		{Kind: EventSwitch, Thread: hi},
		{Kind: EventExit, Thread: hi},
		{Kind: EventSwitch, Thread: lo},
		{Kind: EventExit, Thread: lo},
	}
	if diff := cmp.Diff(want, s.Trace()); diff != "" {
		t.Fatalf("unexpected schedule trace (-want +got):\n%s", diff)
	}
}

func TestInterruptContext(t *testing.T) {
	s := New()

	_, err := s.Spawn("a", 10, func(ctx *Context) {
		assert.False(t, ctx.InInterrupt())
		ctx.Interrupt(func(ic *Context) {
			assert.True(t, ic.InInterrupt())
			assert.Equal(t, ctx.CurrentID(), ic.CurrentID())
			assert.Panics(t, func() { ic.Block("illegal") })
			assert.Panics(t, func() { ic.Yield() })
		})
		assert.False(t, ctx.InInterrupt())
	})
	require.NoError(t, err)
	require.NoError(t, s.Run())
}

func TestThreadLookup(t *testing.T) {
	s := New()

	id, err := s.Spawn("a", 10, func(ctx *Context) {})
	require.NoError(t, err)

	require.NoError(t, s.Run())

	th, err := s.Thread(id)
	require.NoError(t, err)
	require.Equal(t, "a", th.Name())
	require.Equal(t, Done, th.State())

	_, err = s.Thread(primitives.ThreadID(999))
	require.Error(t, err)
}
