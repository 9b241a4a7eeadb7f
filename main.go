package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/hashicorp/go-hclog"

	"priosched/pkg/concurrency/lock"
	"priosched/pkg/concurrency/sema"
	"priosched/pkg/sched"
)

type Configuration struct {
	Trace      bool
	ShowEvents bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	lineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D1D5DB"))
)

func main() {
	config := parseArguments()

	logger := hclog.NewNullLogger()
	if config.Trace {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:   "priosched",
			Level:  hclog.Trace,
			Output: os.Stderr,
		})
	}

	fmt.Println(titleStyle.Render("priosched - priority donation demo"))
	fmt.Println()

	if err := runInversionDemo(logger, config.ShowEvents); err != nil {
		log.Fatalf("inversion demo failed: %v", err)
	}
	if err := runChainDemo(logger); err != nil {
		log.Fatalf("chain demo failed: %v", err)
	}
}

func parseArguments() Configuration {
	var config Configuration

	flag.BoolVar(&config.Trace, "trace", false, "Log donation and scheduling decisions to stderr")
	flag.BoolVar(&config.ShowEvents, "events", false, "Print the raw schedule trace after each demo")

	flag.Parse()

	return config
}

// runInversionDemo plays the classic three-thread priority inversion: a
// low-priority thread holds the lock a high-priority thread needs, while a
// medium-priority thread would otherwise starve the holder. Donation lets the
// holder run at the waiter's priority until it releases.
func runInversionDemo(logger hclog.Logger, showEvents bool) error {
	fmt.Println(sectionStyle.Render("1. Priority inversion"))

	s := sched.New(sched.WithLogger(logger))
	reg := lock.NewRegistry(lock.WithLogger(logger))
	guard := reg.New("guard")
	gate := sema.New(0)

	var lines []string
	note := func(ctx *sched.Context, msg string) {
		cur := ctx.Current()
		lines = append(lines, fmt.Sprintf("%-6s base=%-2d eff=%-2d  %s",
			cur.Name(), cur.BasePriority(), cur.EffectivePriority(), msg))
	}

	_, err := s.Spawn("low", 1, func(ctx *sched.Context) {
		guard.Acquire(ctx)
		note(ctx, "acquired the lock")

		_, err := ctx.Spawn("high", 5, func(hctx *sched.Context) {
			note(hctx, "needs the lock, donating to the holder")
			guard.Acquire(hctx)
			note(hctx, "got the lock")
			guard.Release(hctx)
			note(hctx, "released the lock")
		})
		if err != nil {
			note(ctx, fmt.Sprintf("spawn failed: %v", err))
			return
		}
		note(ctx, "boosted by the waiter's donation")

		_, err = ctx.Spawn("mid", 3, func(mctx *sched.Context) {
			note(mctx, "running, cannot starve the boosted holder")
		})
		if err != nil {
			note(ctx, fmt.Sprintf("spawn failed: %v", err))
			return
		}
		note(ctx, "still outranks the medium thread")

		// Let the medium thread demonstrate that it only runs once the
		// donation has been revoked.
		_, err = ctx.Spawn("waker", 2, func(wctx *sched.Context) {
			gate.Up(wctx)
		})
		if err != nil {
			note(ctx, fmt.Sprintf("spawn failed: %v", err))
			return
		}
		gate.Down(ctx)

		guard.Release(ctx)
		note(ctx, "released, donation revoked")
	})
	if err != nil {
		return err
	}

	if err := s.Run(); err != nil {
		return err
	}

	for _, l := range lines {
		fmt.Println(lineStyle.Render("  " + l))
	}
	fmt.Println()

	if showEvents {
		printTrace(s)
	}
	return nil
}

// runChainDemo shows a donation cascading through two locks: the thread at
// the end of the chain runs at the priority of the thread at the front.
func runChainDemo(logger hclog.Logger) error {
	fmt.Println(sectionStyle.Render("2. Transitive donation"))

	s := sched.New(sched.WithLogger(logger))
	reg := lock.NewRegistry(lock.WithLogger(logger))
	inner := reg.New("inner")
	outer := reg.New("outer")

	var lines []string
	note := func(ctx *sched.Context, msg string) {
		cur := ctx.Current()
		lines = append(lines, fmt.Sprintf("%-6s base=%-2d eff=%-2d  %s",
			cur.Name(), cur.BasePriority(), cur.EffectivePriority(), msg))
	}

	_, err := s.Spawn("a", 10, func(actx *sched.Context) {
		inner.Acquire(actx)
		note(actx, "holds inner")

		_, err := actx.Spawn("b", 20, func(bctx *sched.Context) {
			outer.Acquire(bctx)
			note(bctx, "holds outer, now waiting for inner")
			inner.Acquire(bctx)
			note(bctx, "got inner")
			inner.Release(bctx)
			outer.Release(bctx)
			note(bctx, "released both, back to base")
		})
		if err != nil {
			note(actx, fmt.Sprintf("spawn failed: %v", err))
			return
		}

		_, err = actx.Spawn("c", 30, func(cctx *sched.Context) {
			note(cctx, "waiting for outer, donation cascades to a")
			outer.Acquire(cctx)
			note(cctx, "got outer")
			outer.Release(cctx)
		})
		if err != nil {
			note(actx, fmt.Sprintf("spawn failed: %v", err))
			return
		}
		note(actx, "boosted through the lock chain")

		inner.Release(actx)
		note(actx, "released inner, donation revoked")
	})
	if err != nil {
		return err
	}

	if err := s.Run(); err != nil {
		return err
	}

	for _, l := range lines {
		fmt.Println(lineStyle.Render("  " + l))
	}
	return nil
}

func printTrace(s *sched.Scheduler) {
	fmt.Println(sectionStyle.Render("   schedule trace"))
	for _, ev := range s.Trace() {
		th, err := s.Thread(ev.Thread)
		if err != nil {
			continue
		}
		fmt.Println(lineStyle.Render(fmt.Sprintf("   %-8s %s", ev.Kind, th.Name())))
	}
	fmt.Println()
}
