package game

import "time"

// scheduler owns the single turn countdown of a session. It is not
// goroutine-safe: every method runs under the owning session's lock. Each arm
// bumps the generation, and fire compares the generation and round it was
// armed with, so an expiry queued behind a cancel or re-arm is discarded.
type scheduler struct {
	clock  Clock
	expire func(gen uint64, round int)

	timer    Timer
	gen      uint64
	round    int
	started  time.Time
	deadline time.Time
}

func newScheduler(clock Clock, expire func(gen uint64, round int)) *scheduler {
	return &scheduler{clock: clock, expire: expire}
}

// arm cancels any outstanding countdown and starts a new one for round.
func (s *scheduler) arm(round int, d time.Duration) time.Time {
	s.stop()
	now := s.clock.Now()
	s.round = round
	s.started = now
	s.start(now, d)
	return s.deadline
}

// extend adds extra to the remaining budget without moving the start.
func (s *scheduler) extend(extra time.Duration) time.Time {
	if s.timer == nil {
		return s.deadline
	}
	now := s.clock.Now()
	remaining := s.deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	s.stop()
	s.start(now, remaining+extra)
	return s.deadline
}

func (s *scheduler) cancel() {
	s.stop()
	s.deadline = time.Time{}
}

// current reports whether a firing stamped (gen, round) is still the live one.
// A live firing consumes the timer.
func (s *scheduler) current(gen uint64, round int) bool {
	if s.timer == nil || gen != s.gen || round != s.round {
		return false
	}
	s.timer = nil
	return true
}

func (s *scheduler) armed() bool { return s.timer != nil }

func (s *scheduler) elapsed() time.Duration {
	if s.started.IsZero() {
		return 0
	}
	return s.clock.Now().Sub(s.started)
}

func (s *scheduler) start(now time.Time, d time.Duration) {
	s.gen++
	gen, round := s.gen, s.round
	s.deadline = now.Add(d)
	s.timer = s.clock.AfterFunc(d, func() { s.expire(gen, round) })
}

func (s *scheduler) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}
