package game

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock fires timers synchronously from Advance, outside its own lock so
// callbacks may arm new timers.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	slices.SortFunc(due, func(a, b *fakeTimer) int { return a.at.Compare(b.at) })
	for _, t := range due {
		t.f()
	}
}

// lastCallback returns the most recently armed timer's callback, letting a
// test deliver an expiry after the fact.
func (c *fakeClock) lastCallback() func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1].f
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Publish(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) count(t EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (l *eventLog) last(t EventType) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type == t {
			return l.events[i], true
		}
	}
	return Event{}, false
}

func acceptAll() Dictionary {
	return DictionaryFunc(func(context.Context, string) bool { return true })
}

func testConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.PowerUps.Chance = 0
	return cfg
}

type harness struct {
	t     *testing.T
	s     *Session
	clock *fakeClock
	log   *eventLog
}

func newHarness(t *testing.T, cfg SessionConfig, dict Dictionary) *harness {
	t.Helper()
	clock := newFakeClock()
	log := &eventLog{}
	s := NewSession("test-session", cfg, Deps{
		Clock:      clock,
		Random:     rand.New(rand.NewPCG(7, 11)),
		Dictionary: dict,
		Sink:       log,
	})
	return &harness{t: t, s: s, clock: clock, log: log}
}

// start joins the named players (ids are the lowercased names) and readies
// them all.
func (h *harness) start(names ...string) {
	h.t.Helper()
	for _, n := range names {
		if _, err := h.s.Join(strings.ToLower(n), n); err != nil {
			h.t.Fatalf("should be able to join %s: %v", n, err)
		}
	}
	for _, n := range names {
		if err := h.s.SetReady(strings.ToLower(n), true); err != nil {
			h.t.Fatalf("should be able to ready %s: %v", n, err)
		}
	}
	if st := h.s.Status(); st != StatusActive {
		h.t.Fatalf("expected session to be active, got %s", st)
	}
}

func (h *harness) snap() Snapshot { return h.s.Snapshot() }

func (h *harness) current() string { return h.snap().CurrentPlayerID }

func (h *harness) player(id string) Player {
	h.t.Helper()
	for _, p := range h.snap().Players {
		if p.ID == id {
			return p
		}
	}
	h.t.Fatalf("player %s not in roster", id)
	return Player{}
}

// validWord builds a word satisfying the current letters.
func (h *harness) validWord() string {
	l := h.snap().Letters
	return strings.ToLower(l[0] + l[1] + "e")
}

// badWord builds a word of sufficient length missing the current letters.
func (h *harness) badWord() string {
	l := h.snap().Letters
	for c := 'A'; c <= 'Z'; c++ {
		if string(c) != l[0] && string(c) != l[1] {
			return strings.Repeat(strings.ToLower(string(c)), 4)
		}
	}
	return ""
}

func (h *harness) submit(playerID, word string) WordResult {
	h.t.Helper()
	res, err := h.s.SubmitWord(context.Background(), playerID, word)
	if err != nil {
		h.t.Fatalf("submit %q by %s: %v", word, playerID, err)
	}
	return res
}

// checkTurnInvariant asserts an active session's turn owner can play.
func (h *harness) checkTurnInvariant() {
	h.t.Helper()
	snap := h.snap()
	if snap.Status != StatusActive {
		return
	}
	p := snap.Players[snap.CurrentTurnIndex]
	if p.Lives <= 0 || !p.Connected {
		h.t.Fatalf("turn owner %s cannot play: lives=%d connected=%v", p.ID, p.Lives, p.Connected)
	}
	if snap.TurnDeadline == nil {
		h.t.Fatal("active session should have an armed turn timer")
	}
}
