package game

import (
	"testing"
	"time"
)

type firing struct {
	gen   uint64
	round int
}

func newTestScheduler() (*scheduler, *fakeClock, *[]firing) {
	clock := newFakeClock()
	var fired []firing
	s := newScheduler(clock, func(gen uint64, round int) {
		fired = append(fired, firing{gen, round})
	})
	return s, clock, &fired
}

func TestSchedulerFiresOnce(t *testing.T) {
	s, clock, fired := newTestScheduler()
	s.arm(1, 10*time.Second)

	clock.Advance(9 * time.Second)
	if len(*fired) != 0 {
		t.Fatalf("timer should not fire early, got %d firings", len(*fired))
	}
	clock.Advance(time.Second)
	if len(*fired) != 1 {
		t.Fatalf("expected one firing, got %d", len(*fired))
	}
	f := (*fired)[0]
	if !s.current(f.gen, f.round) {
		t.Fatal("firing of the armed timer should be current")
	}
	if s.current(f.gen, f.round) {
		t.Fatal("a firing should only be accepted once")
	}
	clock.Advance(time.Minute)
	if len(*fired) != 1 {
		t.Fatalf("timer should not fire again, got %d", len(*fired))
	}
}

func TestSchedulerRearmDiscardsStale(t *testing.T) {
	s, clock, fired := newTestScheduler()
	s.arm(1, 10*time.Second)
	stale := clock.lastCallback()

	s.arm(2, 10*time.Second)
	stale()
	if len(*fired) != 1 {
		t.Fatalf("expected the stale callback to run, got %d", len(*fired))
	}
	f := (*fired)[0]
	if s.current(f.gen, f.round) {
		t.Fatal("expiry from a superseded arm must be stale")
	}
	if !s.armed() {
		t.Fatal("stale firing must not consume the live timer")
	}
}

func TestSchedulerCancel(t *testing.T) {
	s, clock, fired := newTestScheduler()
	s.arm(1, 10*time.Second)
	s.cancel()
	clock.Advance(time.Minute)
	if len(*fired) != 0 {
		t.Fatalf("cancelled timer fired %d times", len(*fired))
	}
	if s.armed() {
		t.Fatal("scheduler should be disarmed after cancel")
	}
}

func TestSchedulerExtendKeepsStart(t *testing.T) {
	s, clock, fired := newTestScheduler()
	start := clock.Now()
	s.arm(1, 10*time.Second)

	clock.Advance(4 * time.Second)
	deadline := s.extend(5 * time.Second)
	if want := start.Add(15 * time.Second); !deadline.Equal(want) {
		t.Fatalf("expected deadline %v, got %v", want, deadline)
	}
	if got := s.elapsed(); got != 4*time.Second {
		t.Fatalf("extend should not reset the turn start, elapsed %v", got)
	}

	clock.Advance(10 * time.Second)
	if len(*fired) != 0 {
		t.Fatal("extended timer fired at the initial deadline")
	}
	clock.Advance(time.Second)
	if len(*fired) != 1 {
		t.Fatalf("expected firing at the extended deadline, got %d", len(*fired))
	}
	f := (*fired)[0]
	if !s.current(f.gen, f.round) {
		t.Fatal("extended timer firing should be current")
	}
}
