package game

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/kiliankoe/wordbomb/internal/game")

const maxTypingLength = 64

// Dictionary decides whether a word exists. It must not fail: adapters apply
// their own fallback when the backing lookup is unavailable.
type Dictionary interface {
	IsRecognizedWord(ctx context.Context, word string) bool
}

// DictionaryFunc adapts a function to a Dictionary.
type DictionaryFunc func(ctx context.Context, word string) bool

func (f DictionaryFunc) IsRecognizedWord(ctx context.Context, word string) bool { return f(ctx, word) }

// Deps are the collaborators of a session.
type Deps struct {
	Clock      Clock
	Random     RandomSource
	Dictionary Dictionary
	Sink       Sink
	// OnChange receives a snapshot after every state change, under the
	// session lock. It must not block.
	OnChange func(Snapshot)
}

// Session is one game. All state is guarded by mu; the dictionary lookup in
// SubmitWord is the only work done with mu released.
type Session struct {
	ID        string
	CreatedAt time.Time
	Config    SessionConfig

	mu           sync.Mutex
	status       Status
	roster       roster
	ownerID      string
	current      int
	letters      LetterPair
	round        int
	turnDuration time.Duration
	winnerID     string
	history      []TurnRecord
	pendingRound int
	version      uint64
	updatedAt    time.Time

	clock    Clock
	rng      RandomSource
	dict     Dictionary
	alloc    *Allocator
	sched    *scheduler
	sink     Sink
	onChange func(Snapshot)
}

func NewSession(id string, cfg SessionConfig, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Random == nil {
		deps.Random = NewRandom()
	}
	if deps.Sink == nil {
		deps.Sink = MultiSink(nil)
	}
	if deps.Dictionary == nil {
		deps.Dictionary = DictionaryFunc(func(context.Context, string) bool { return true })
	}
	now := deps.Clock.Now()
	s := &Session{
		ID:           id,
		CreatedAt:    now,
		Config:       cfg,
		status:       StatusWaiting,
		turnDuration: cfg.TurnDuration,
		updatedAt:    now,
		clock:        deps.Clock,
		rng:          deps.Random,
		dict:         deps.Dictionary,
		alloc:        NewAllocator(cfg.PowerUps),
		sink:         deps.Sink,
		onChange:     deps.OnChange,
	}
	s.sched = newScheduler(deps.Clock, s.handleTimeout)
	return s
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Join(playerID, name string) (Player, error) {
	name, err := ValidateDisplayName(name)
	if err != nil {
		return Player{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.roster.get(playerID); p != nil {
		return p.clone(), nil
	}
	if s.status != StatusWaiting {
		return Player{}, ErrSessionNotWaiting
	}
	if s.roster.nameTaken(name) {
		return Player{}, ErrDuplicateDisplayName
	}
	if s.roster.len() >= s.Config.MaxPlayers {
		return Player{}, ErrSessionFull
	}
	p := &Player{
		ID:        playerID,
		Name:      name,
		Lives:     s.Config.StartingLives,
		Connected: true,
		PowerUps:  []PowerUp{},
		JoinedAt:  s.clock.Now(),
	}
	s.roster.add(p)
	if s.ownerID == "" {
		s.ownerID = playerID
	}
	s.emit(EventPlayerJoined, PlayerJoinedPayload{Player: p.clone()})
	s.changed()
	return p.clone(), nil
}

func (s *Session) SetReady(playerID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusWaiting {
		return ErrSessionNotWaiting
	}
	p := s.roster.get(playerID)
	if p == nil {
		return ErrPlayerNotInSession
	}
	p.Ready = ready
	s.emit(EventPlayerReady, PlayerReadyPayload{PlayerID: playerID, Ready: ready})
	s.maybeStart()
	s.changed()
	return nil
}

// SubmitWord resolves the caller's turn with word. Malformed input is
// rejected without penalty; anything else resolves the turn.
func (s *Session) SubmitWord(ctx context.Context, playerID, word string) (WordResult, error) {
	ctx, span := tracer.Start(ctx, "game.SubmitWord")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.ID), attribute.String("player.id", playerID))

	s.mu.Lock()
	p, err := s.turnOwnerLocked(playerID)
	if err == nil && s.pendingRound == s.round {
		err = ErrSubmissionPending
	}
	if err != nil {
		s.mu.Unlock()
		span.SetStatus(codes.Error, err.Error())
		return WordResult{}, err
	}
	w := NormalizeWord(word)
	v := CheckWord(w, s.letters, s.Config.MinWordLength)
	if v.inputError() {
		s.mu.Unlock()
		return WordResult{}, &Error{Code: CodeInvalidWordInput, Message: "word is " + string(v.Reason)}
	}
	if !v.OK {
		res := s.rejectLocked(p, w, v.Reason)
		s.mu.Unlock()
		return res, nil
	}
	round := s.round
	s.pendingRound = round
	s.mu.Unlock()

	known := s.dict.IsRecognizedWord(ctx, w)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingRound == round {
		s.pendingRound = 0
	}
	// the turn may have timed out or been skipped while the lookup ran
	if s.status != StatusActive || s.round != round || s.roster.index(playerID) != s.current {
		log.Debug().Str("session", s.ID).Str("player", playerID).Int("round", round).Msg("submission superseded")
		span.SetStatus(codes.Error, "superseded")
		return WordResult{}, ErrNotYourTurn
	}
	span.SetAttributes(attribute.Bool("word.accepted", known))
	if !known {
		return s.rejectLocked(p, w, ReasonNotAWord), nil
	}
	gained := utf8.RuneCountInString(w)
	p.Score += gained
	p.WordsCreated++
	res := WordResult{Word: w, Accepted: true, ScoreGained: gained, LivesRemaining: p.Lives}
	s.record(p, w, true, "", "")
	s.emit(EventWordResult, WordResultPayload{PlayerID: p.ID, WordResult: res})
	s.advance()
	s.changed()
	return res, nil
}

func (s *Session) UsePowerUp(playerID string, kind PowerUpKind) error {
	if _, err := ParsePowerUpKind(string(kind)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.turnOwnerLocked(playerID)
	if err != nil {
		return err
	}
	var held *PowerUp
	for i := range p.PowerUps {
		if p.PowerUps[i].Kind == kind && !p.PowerUps[i].Used {
			held = &p.PowerUps[i]
			break
		}
	}
	if held == nil {
		return ErrPowerUpNotHeld
	}
	held.Used = true

	used := PowerUpUsedPayload{PlayerID: p.ID, Kind: kind, Lives: p.Lives}
	switch kind {
	case PowerUpExtraTime:
		s.turnDuration += s.Config.ExtraTime
		deadline := s.sched.extend(s.Config.ExtraTime)
		used.Effect = "+" + s.Config.ExtraTime.String()
		used.Deadline = &deadline
		s.emit(EventPowerUpUsed, used)
	case PowerUpSkipTurn:
		used.Effect = "skip"
		s.record(p, "", false, ReasonSkipped, kind)
		s.emit(EventPowerUpUsed, used)
		s.advance()
	case PowerUpExtraLife:
		if p.Lives < s.Config.StartingLives {
			p.Lives++
			used.Effect = "+1 life"
		} else {
			used.Effect = "lives already full"
		}
		used.Lives = p.Lives
		s.emit(EventPowerUpUsed, used)
	}
	s.changed()
	return nil
}

// Typing relays in-progress input from the player on turn.
func (s *Session) Typing(playerID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.turnOwnerLocked(playerID); err != nil {
		return err
	}
	if utf8.RuneCountInString(text) > maxTypingLength {
		text = string([]rune(text)[:maxTypingLength])
	}
	s.emit(EventPlayerTyping, PlayerTypingPayload{PlayerID: playerID, Text: text})
	return nil
}

// Leave removes the player. A player leaving an active game on turn hands the
// turn on first. It reports whether the roster is now empty.
func (s *Session) Leave(playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.roster.index(playerID)
	if idx < 0 {
		return s.roster.len() == 0, ErrPlayerNotInSession
	}
	p := s.roster.players[idx]
	p.Connected = false
	if playerID == s.ownerID {
		s.ownerID = ""
		for _, o := range s.roster.players {
			if o.ID != playerID {
				s.ownerID = o.ID
				break
			}
		}
	}
	s.emit(EventPlayerLeft, PlayerLeftPayload{PlayerID: playerID, OwnerID: s.ownerID})

	switch s.status {
	case StatusActive:
		if idx == s.current {
			s.advance()
		} else if len(s.roster.alive()) <= 1 {
			s.finish()
		}
	}
	s.removeLocked(idx)
	if s.status == StatusWaiting {
		s.maybeStart()
	}
	s.changed()
	return s.roster.len() == 0, nil
}

// Close ends the session without a winner and stops its clock.
func (s *Session) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(reason)
}

// closeIfStale closes a session that is not active and has either waited
// longer than waiting since creation or been idle longer than idle. Zero
// durations disable the matching rule.
func (s *Session) closeIfStale(now time.Time, waiting, idle time.Duration) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reason string
	switch {
	case s.status == StatusActive:
	case waiting > 0 && s.status == StatusWaiting && now.Sub(s.CreatedAt) > waiting:
		reason = "expired"
	case idle > 0 && now.Sub(s.updatedAt) > idle:
		reason = "idle"
	}
	if reason == "" {
		return "", false
	}
	s.closeLocked(reason)
	return reason, true
}

func (s *Session) closeLocked(reason string) {
	s.sched.cancel()
	s.status = StatusFinished
	s.emit(EventSessionClosed, SessionClosedPayload{Reason: reason})
}

func (s *Session) handleTimeout(gen uint64, round int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive || !s.sched.current(gen, round) {
		log.Debug().Str("session", s.ID).Int("round", round).Msg("stale turn timer ignored")
		return
	}
	p := s.roster.players[s.current]
	s.record(p, "", false, ReasonTimeout, "")
	s.loseLife(p)
	s.emit(EventTurnTimedOut, TurnTimedOutPayload{PlayerID: p.ID, LivesRemaining: p.Lives})
	if p.Lives == 0 {
		s.emit(EventPlayerEliminated, PlayerPayload{PlayerID: p.ID, Name: p.Name})
	}
	s.advance()
	s.changed()
}

func (s *Session) turnOwnerLocked(playerID string) (*Player, error) {
	if s.status != StatusActive {
		return nil, ErrSessionNotActive
	}
	idx := s.roster.index(playerID)
	if idx < 0 {
		return nil, ErrPlayerNotInSession
	}
	if idx != s.current {
		return nil, ErrNotYourTurn
	}
	return s.roster.players[idx], nil
}

func (s *Session) rejectLocked(p *Player, word string, reason Reason) WordResult {
	s.record(p, word, false, reason, "")
	s.loseLife(p)
	res := WordResult{Word: word, Reason: reason, LivesRemaining: p.Lives}
	s.emit(EventWordResult, WordResultPayload{PlayerID: p.ID, WordResult: res})
	if p.Lives == 0 {
		s.emit(EventPlayerEliminated, PlayerPayload{PlayerID: p.ID, Name: p.Name})
	}
	s.advance()
	s.changed()
	return res
}

func (s *Session) loseLife(p *Player) {
	if p.Lives > 0 {
		p.Lives--
	}
}

func (s *Session) maybeStart() {
	if s.roster.len() < max(s.Config.MinPlayers, 2) || !s.roster.allReady() {
		return
	}
	n := s.roster.len()
	s.status = StatusActive
	s.current = min(int(s.rng.Float64()*float64(n)), n-1)
	s.round = 1
	s.letters = RollLetters(s.rng)
	s.turnDuration = s.Config.TurnDuration
	deadline := s.sched.arm(s.round, s.turnDuration)
	log.Info().Str("session", s.ID).Int("players", n).Msg("session started")
	s.emit(EventSessionStarted, SessionStartedPayload{Players: s.roster.copies()})
	s.emitTurn(deadline)
}

// advance hands the turn to the next alive player or finishes the game.
func (s *Session) advance() {
	if len(s.roster.alive()) <= 1 {
		s.finish()
		return
	}
	s.current = s.roster.next(s.current)
	s.round++
	s.letters = RollLetters(s.rng)
	s.turnDuration = s.Config.TurnDuration
	p := s.roster.players[s.current]
	if kind, ok := s.alloc.Allocate(s.rng); ok {
		p.PowerUps = append(p.PowerUps, PowerUp{Kind: kind})
		s.emit(EventPowerUpGranted, PowerUpGrantedPayload{PlayerID: p.ID, Kind: kind})
	}
	s.emitTurn(s.sched.arm(s.round, s.turnDuration))
}

func (s *Session) finish() {
	if s.status == StatusFinished {
		return
	}
	s.status = StatusFinished
	s.sched.cancel()
	var winner *string
	if alive := s.roster.alive(); len(alive) == 1 {
		s.current = alive[0]
		s.winnerID = s.roster.players[s.current].ID
		winner = &s.winnerID
	}
	log.Info().Str("session", s.ID).Str("winner", s.winnerID).Int("rounds", s.round).Msg("session finished")
	s.emit(EventSessionFinished, SessionFinishedPayload{WinnerID: winner, Standings: s.standingsLocked()})
}

func (s *Session) removeLocked(idx int) {
	s.roster.removeAt(idx)
	switch {
	case s.roster.len() == 0:
		s.current = 0
	case idx < s.current:
		s.current--
	case s.current >= s.roster.len():
		s.current = 0
	}
}

func (s *Session) standingsLocked() []Standing {
	out := make([]Standing, 0, s.roster.len())
	for _, p := range s.roster.players {
		out = append(out, Standing{
			PlayerID:     p.ID,
			Name:         p.Name,
			Score:        p.Score,
			WordsCreated: p.WordsCreated,
			Lives:        p.Lives,
			Winner:       p.ID == s.winnerID,
		})
	}
	slices.SortStableFunc(out, func(a, b Standing) int {
		if a.Winner != b.Winner {
			if a.Winner {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.Lives, a.Lives); c != 0 {
			return c
		}
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

func (s *Session) record(p *Player, word string, accepted bool, reason Reason, pu PowerUpKind) {
	s.history = append(s.history, TurnRecord{
		Round:      s.round,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Letters:    s.letters,
		Word:       word,
		Accepted:   accepted,
		Reason:     reason,
		ElapsedMS:  s.sched.elapsed().Milliseconds(),
		PowerUp:    pu,
	})
	if limit := s.Config.HistoryLimit; limit > 0 && len(s.history) > limit {
		s.history = slices.Clone(s.history[len(s.history)-limit:])
	}
}

func (s *Session) emitTurn(deadline time.Time) {
	s.emit(EventTurnChanged, TurnChangedPayload{
		PlayerID:        s.roster.players[s.current].ID,
		Letters:         s.letters,
		Deadline:        deadline,
		Round:           s.round,
		DurationSeconds: s.turnDuration.Seconds(),
	})
}

func (s *Session) emit(t EventType, payload any) {
	s.sink.Publish(Event{Type: t, SessionID: s.ID, Payload: payload, At: s.clock.Now()})
}

func (s *Session) changed() {
	s.version++
	s.updatedAt = s.clock.Now()
	if s.onChange != nil {
		s.onChange(s.snapshotLocked())
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                  s.ID,
		Version:             s.version,
		Status:              s.status,
		OwnerID:             s.ownerID,
		Players:             s.roster.copies(),
		CurrentTurnIndex:    s.current,
		Letters:             s.letters,
		Round:               s.round,
		TurnDurationSeconds: s.turnDuration.Seconds(),
		WinnerID:            s.winnerID,
		History:             slices.Clone(s.history),
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.updatedAt,
	}
	if snap.History == nil {
		snap.History = []TurnRecord{}
	}
	if s.status != StatusWaiting && s.current < s.roster.len() {
		snap.CurrentPlayerID = s.roster.players[s.current].ID
	}
	if s.sched.armed() {
		d := s.sched.deadline
		snap.TurnDeadline = &d
	}
	return snap
}
