package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	persistQueueSize = 256
	reapInterval     = 30 * time.Second
	recordTimeout    = 5 * time.Second
)

type persistOp struct {
	snap   Snapshot
	delete bool
}

// Registry owns every live session and the player to session index.
// Lock order is Registry.mu before Session.mu; sessions never call back into
// the registry while holding their own lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byPlayer map[string]string // playerID -> sessionID

	cfg             SessionConfig
	dict            Dictionary
	sinkMu          sync.RWMutex // leaf lock, taken while a session lock is held
	sinks           MultiSink
	clock           Clock
	newRandom       func() RandomSource
	store           SnapshotStore
	recorder        ResultRecorder
	idleTimeout     time.Duration
	waitingLifetime time.Duration

	persist chan persistOp
}

type Option func(*Registry)

func WithDictionary(d Dictionary) Option { return func(r *Registry) { r.dict = d } }

func WithSink(s Sink) Option { return func(r *Registry) { r.sinks = append(r.sinks, s) } }

func WithClock(c Clock) Option { return func(r *Registry) { r.clock = c } }

func WithRandom(f func() RandomSource) Option { return func(r *Registry) { r.newRandom = f } }

func WithSnapshotStore(s SnapshotStore) Option { return func(r *Registry) { r.store = s } }

func WithResultRecorder(rec ResultRecorder) Option { return func(r *Registry) { r.recorder = rec } }

// WithIdleTimeout closes sessions that are not Active and have not changed for d.
func WithIdleTimeout(d time.Duration) Option { return func(r *Registry) { r.idleTimeout = d } }

// WithWaitingLifetime closes sessions that never started within d of creation.
func WithWaitingLifetime(d time.Duration) Option { return func(r *Registry) { r.waitingLifetime = d } }

func NewRegistry(cfg SessionConfig, opts ...Option) *Registry {
	r := &Registry{
		sessions:        make(map[string]*Session),
		byPlayer:        make(map[string]string),
		cfg:             cfg,
		clock:           SystemClock(),
		newRandom:       NewRandom,
		idleTimeout:     5 * time.Minute,
		waitingLifetime: 30 * time.Minute,
		persist:         make(chan persistOp, persistQueueSize),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// AddSink subscribes s to the events of every session.
func (r *Registry) AddSink(s Sink) {
	r.sinkMu.Lock()
	r.sinks = append(r.sinks, s)
	r.sinkMu.Unlock()
}

// Publish forwards session events to the subscribed sinks and records results
// of finished games.
func (r *Registry) Publish(ev Event) {
	r.sinkMu.RLock()
	r.sinks.Publish(ev)
	r.sinkMu.RUnlock()
	if ev.Type != EventSessionFinished || r.recorder == nil {
		return
	}
	p, ok := ev.Payload.(SessionFinishedPayload)
	if !ok {
		return
	}
	res := GameResult{SessionID: ev.SessionID, Standings: p.Standings, FinishedAt: ev.At}
	if p.WinnerID != nil {
		res.WinnerID = *p.WinnerID
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.recorder.RecordResult(ctx, res); err != nil {
			log.Error().Err(err).Str("session", res.SessionID).Msg("failed to record result")
		}
	}()
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.sessions[id]
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// SessionOf returns the session the player is currently in.
func (r *Registry) SessionOf(playerID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.sessions[r.byPlayer[playerID]]
	if s == nil {
		return nil, ErrPlayerNotInSession
	}
	return s, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Create opens a new session with the caller as its owner, leaving any
// session the caller was in before.
func (r *Registry) Create(id Identity) (*Session, error) {
	if _, err := ValidateDisplayName(id.Name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := NewSession(uuid.NewString(), r.cfg, Deps{
		Clock:      r.clock,
		Random:     r.newRandom(),
		Dictionary: r.dict,
		Sink:       r,
		OnChange:   r.enqueueSave,
	})
	if _, err := s.Join(id.PlayerID, id.Name); err != nil {
		return nil, err
	}
	r.leaveLocked(id.PlayerID)
	r.sessions[s.ID] = s
	r.byPlayer[id.PlayerID] = s.ID
	log.Info().Str("session", s.ID).Str("player", id.PlayerID).Msg("session created")
	return s, nil
}

// Join adds the caller to an existing session. The previous session, if
// any, is left only once the join succeeded.
func (r *Registry) Join(id Identity, sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[sessionID]
	if s == nil {
		return nil, ErrSessionNotFound
	}
	if r.byPlayer[id.PlayerID] == sessionID {
		return s, nil
	}
	if _, err := s.Join(id.PlayerID, id.Name); err != nil {
		return nil, err
	}
	r.leaveLocked(id.PlayerID)
	r.byPlayer[id.PlayerID] = sessionID
	log.Info().Str("session", sessionID).Str("player", id.PlayerID).Msg("player joined")
	return s, nil
}

// Leave removes the player from their session, destroying it once empty.
func (r *Registry) Leave(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPlayer[playerID]; !ok {
		return ErrPlayerNotInSession
	}
	r.leaveLocked(playerID)
	return nil
}

func (r *Registry) leaveLocked(playerID string) {
	sid, ok := r.byPlayer[playerID]
	if !ok {
		return
	}
	delete(r.byPlayer, playerID)
	s := r.sessions[sid]
	if s == nil {
		return
	}
	empty, err := s.Leave(playerID)
	if err != nil && !errors.Is(err, ErrPlayerNotInSession) {
		log.Warn().Err(err).Str("session", sid).Str("player", playerID).Msg("leave failed")
	}
	if empty {
		delete(r.sessions, sid)
		s.Close("empty")
		r.enqueue(persistOp{snap: Snapshot{ID: sid}, delete: true})
		log.Info().Str("session", sid).Msg("session destroyed")
	}
}

// Dispatch routes an action from an authenticated player to the owning
// session.
func (r *Registry) Dispatch(ctx context.Context, id Identity, act Action) (Result, error) {
	switch act.Kind {
	case ActionCreate:
		s, err := r.Create(id)
		if err != nil {
			return Result{}, err
		}
		return resultOf(s), nil
	case ActionJoin:
		if act.SessionID == "" {
			return Result{}, ErrSessionNotFound
		}
		s, err := r.Join(id, act.SessionID)
		if err != nil {
			return Result{}, err
		}
		return resultOf(s), nil
	case ActionLeave:
		return Result{}, r.Leave(id.PlayerID)
	}

	s, err := r.SessionOf(id.PlayerID)
	if err != nil {
		return Result{}, err
	}
	res := Result{SessionID: s.ID}
	switch act.Kind {
	case ActionReady:
		err = s.SetReady(id.PlayerID, act.Ready)
	case ActionSubmitWord:
		var wr WordResult
		wr, err = s.SubmitWord(ctx, id.PlayerID, act.Word)
		if err == nil {
			res.WordResult = &wr
		}
	case ActionUsePowerUp:
		err = s.UsePowerUp(id.PlayerID, act.PowerUp)
	case ActionTyping:
		err = s.Typing(id.PlayerID, act.Text)
	default:
		err = ErrInvalidAction
	}
	return res, err
}

func resultOf(s *Session) Result {
	snap := s.Snapshot()
	return Result{SessionID: s.ID, Snapshot: &snap}
}

// Snapshot returns the live state of a session, falling back to the store.
func (r *Registry) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	if s, err := r.Get(id); err == nil {
		return s.Snapshot(), nil
	}
	if r.store == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	return r.store.LoadSnapshot(ctx, id)
}

// Reap closes sessions that sat idle too long and returns how many.
func (r *Registry) Reap(now time.Time) int {
	type reaped struct {
		id     string
		reason string
	}
	var closed []reaped
	r.mu.Lock()
	for id, s := range r.sessions {
		reason, ok := s.closeIfStale(now, r.waitingLifetime, r.idleTimeout)
		if !ok {
			continue
		}
		delete(r.sessions, id)
		for pid, sid := range r.byPlayer {
			if sid == id {
				delete(r.byPlayer, pid)
			}
		}
		closed = append(closed, reaped{id, reason})
	}
	r.mu.Unlock()

	for _, c := range closed {
		r.enqueue(persistOp{snap: Snapshot{ID: c.id}, delete: true})
		log.Info().Str("session", c.id).Str("reason", c.reason).Msg("session reaped")
	}
	return len(closed)
}

// Run persists snapshots and reaps idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return nil
		case op := <-r.persist:
			r.apply(ctx, op)
		case <-ticker.C:
			r.Reap(r.clock.Now())
		}
	}
}

func (r *Registry) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	for {
		select {
		case op := <-r.persist:
			r.apply(ctx, op)
		default:
			return
		}
	}
}

func (r *Registry) apply(ctx context.Context, op persistOp) {
	if r.store == nil {
		return
	}
	var err error
	if op.delete {
		err = r.store.DeleteSnapshot(ctx, op.snap.ID)
	} else {
		err = r.store.SaveSnapshot(ctx, op.snap)
	}
	if err != nil {
		log.Error().Err(err).Str("session", op.snap.ID).Bool("delete", op.delete).Msg("snapshot store failed")
	}
}

func (r *Registry) enqueueSave(snap Snapshot) {
	r.enqueue(persistOp{snap: snap})
}

func (r *Registry) enqueue(op persistOp) {
	if r.store == nil {
		return
	}
	select {
	case r.persist <- op:
	default:
		log.Warn().Str("session", op.snap.ID).Msg("snapshot queue full, dropping")
	}
}
