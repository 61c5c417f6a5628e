package game

import "time"

type EventType string

const (
	EventPlayerJoined     EventType = "playerJoined"
	EventPlayerLeft       EventType = "playerLeft"
	EventPlayerReady      EventType = "playerReady"
	EventSessionStarted   EventType = "sessionStarted"
	EventTurnChanged      EventType = "turnChanged"
	EventWordResult       EventType = "wordResult"
	EventTurnTimedOut     EventType = "turnTimedOut"
	EventPlayerEliminated EventType = "playerEliminated"
	EventPowerUpGranted   EventType = "powerUpGranted"
	EventPowerUpUsed      EventType = "powerUpUsed"
	EventPlayerTyping     EventType = "playerTyping"
	EventSessionFinished  EventType = "sessionFinished"
	EventSessionClosed    EventType = "sessionClosed"
)

// Event is a notification for every client in a session.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Payload   any       `json:"payload"`
	At        time.Time `json:"at"`
}

// Sink receives session events. Publish is called with the session lock
// held and must not block or call back into the session.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(ev Event) { f(ev) }

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Publish(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ev)
		}
	}
}

type PlayerPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type PlayerJoinedPayload struct {
	Player Player `json:"player"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
	OwnerID  string `json:"ownerId,omitempty"`
}

type PlayerReadyPayload struct {
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

type SessionStartedPayload struct {
	Players []Player `json:"players"`
}

type TurnChangedPayload struct {
	PlayerID        string     `json:"currentPlayer"`
	Letters         LetterPair `json:"lettersRequired"`
	Deadline        time.Time  `json:"deadline"`
	Round           int        `json:"round"`
	DurationSeconds float64    `json:"durationSeconds"`
}

type WordResultPayload struct {
	PlayerID string `json:"player"`
	WordResult
}

type TurnTimedOutPayload struct {
	PlayerID       string `json:"player"`
	LivesRemaining int    `json:"livesRemaining"`
}

type PowerUpGrantedPayload struct {
	PlayerID string      `json:"player"`
	Kind     PowerUpKind `json:"kind"`
}

type PowerUpUsedPayload struct {
	PlayerID string      `json:"player"`
	Kind     PowerUpKind `json:"kind"`
	Effect   string      `json:"effect"`
	Deadline *time.Time  `json:"deadline,omitempty"`
	Lives    int         `json:"lives"`
}

type PlayerTypingPayload struct {
	PlayerID string `json:"player"`
	Text     string `json:"text"`
}

type SessionFinishedPayload struct {
	WinnerID  *string    `json:"winner"`
	Standings []Standing `json:"standings"`
}

type SessionClosedPayload struct {
	Reason string `json:"reason"`
}
