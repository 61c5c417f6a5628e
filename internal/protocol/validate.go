package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/kiliankoe/wordbomb/internal/game"
)

var validClientTypes = map[string]bool{
	TypeSessionCreate: true,
	TypeSessionJoin:   true,
	TypeSessionLeave:  true,
	TypeSessionReady:  true,
	TypeSubmitWord:    true,
	TypeUsePowerUp:    true,
	TypeTyping:        true,
	TypePing:          true,
}

// ValidateClientMessage parses raw and checks the type is one clients may send.
func ValidateClientMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("missing 'type' field")
	}
	if !validClientTypes[msg.Type] {
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}
	return &msg, nil
}

// DecodeAction turns a validated client message into a game action.
func DecodeAction(msg *Message) (game.Action, error) {
	act := game.Action{Kind: game.ActionKind(msg.Type)}
	switch msg.Type {
	case TypeSessionCreate, TypeSessionLeave:
	case TypeSessionJoin:
		var p SessionIDPayload
		if err := decode(msg, &p); err != nil {
			return act, err
		}
		if p.SessionID == "" {
			return act, fmt.Errorf("missing required field 'sessionId' in %s payload", msg.Type)
		}
		act.SessionID = p.SessionID
	case TypeSessionReady:
		var p ReadyPayload
		if err := decode(msg, &p); err != nil {
			return act, err
		}
		act.Ready = p.Ready == nil || *p.Ready
	case TypeSubmitWord:
		var p SubmitWordPayload
		if err := decode(msg, &p); err != nil {
			return act, err
		}
		act.Word = p.Word
	case TypeUsePowerUp:
		var p UsePowerUpPayload
		if err := decode(msg, &p); err != nil {
			return act, err
		}
		if p.PowerUp == "" {
			return act, fmt.Errorf("missing required field 'powerUp' in %s payload", msg.Type)
		}
		act.PowerUp = game.PowerUpKind(p.PowerUp)
	case TypeTyping:
		var p TypingPayload
		if err := decode(msg, &p); err != nil {
			return act, err
		}
		act.Text = p.Text
	default:
		return act, fmt.Errorf("%s is not an action", msg.Type)
	}
	return act, nil
}

func decode(msg *Message, v any) error {
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("invalid payload for %s: %w", msg.Type, err)
	}
	return nil
}

func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorPayload{Code: code, Message: message})
}
