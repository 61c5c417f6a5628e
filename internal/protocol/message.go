// Package protocol defines the JSON envelope spoken over the raw WebSocket
// endpoint.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kiliankoe/wordbomb/internal/game"
)

// Message is the envelope for all WebSocket messages. Clients may set ID;
// the reply to that request carries the same ID.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewMessage(msgType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Server → Client message types. Game events are forwarded with their
// event type, e.g. "turnChanged".
const (
	TypeWelcome = "welcome"
	TypeResult  = "result"
	TypeError   = "error"
)

// Client → Server message types.
const (
	TypeSessionCreate = string(game.ActionCreate)
	TypeSessionJoin   = string(game.ActionJoin)
	TypeSessionLeave  = string(game.ActionLeave)
	TypeSessionReady  = string(game.ActionReady)
	TypeSubmitWord    = string(game.ActionSubmitWord)
	TypeUsePowerUp    = string(game.ActionUsePowerUp)
	TypeTyping        = string(game.ActionTyping)
	TypePing          = "ping"
)

// ErrInvalidMessage is used for envelopes that fail validation; game
// failures use their game.Code.
const ErrInvalidMessage = "INVALID_MESSAGE"

type WelcomePayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SessionIDPayload struct {
	SessionID string `json:"sessionId"`
}

type ReadyPayload struct {
	Ready *bool `json:"ready"`
}

type SubmitWordPayload struct {
	Word string `json:"word"`
}

type UsePowerUpPayload struct {
	PowerUp string `json:"powerUp"`
}

type TypingPayload struct {
	Text string `json:"text"`
}
