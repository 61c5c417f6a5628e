package protocol

import (
	"encoding/json"
	"testing"

	"github.com/kiliankoe/wordbomb/internal/game"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(TypeWelcome, WelcomePayload{PlayerID: "p1", Name: "Alice"})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	if msg.Type != TypeWelcome {
		t.Errorf("expected type %s, got %s", TypeWelcome, msg.Type)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
	var p WelcomePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.PlayerID != "p1" {
		t.Errorf("expected player p1, got %s", p.PlayerID)
	}
}

func TestValidateClientMessage(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"submit", `{"type":"turn.submitWord","payload":{"word":"quartz"}}`, true},
		{"create without payload", `{"type":"session.create"}`, true},
		{"ping", `{"type":"ping","id":"7"}`, true},
		{"bad json", `{"type":`, false},
		{"missing type", `{"payload":{}}`, false},
		{"server type", `{"type":"welcome","payload":{}}`, false},
	}
	for _, tc := range cases {
		_, err := ValidateClientMessage([]byte(tc.raw))
		if (err == nil) != tc.ok {
			t.Errorf("%s: ok=%v err=%v", tc.name, tc.ok, err)
		}
	}
}

func TestDecodeAction(t *testing.T) {
	cases := []struct {
		raw  string
		want game.Action
	}{
		{`{"type":"session.join","payload":{"sessionId":"s1"}}`, game.Action{Kind: game.ActionJoin, SessionID: "s1"}},
		{`{"type":"session.ready"}`, game.Action{Kind: game.ActionReady, Ready: true}},
		{`{"type":"session.ready","payload":{"ready":false}}`, game.Action{Kind: game.ActionReady, Ready: false}},
		{`{"type":"turn.submitWord","payload":{"word":"Quartz"}}`, game.Action{Kind: game.ActionSubmitWord, Word: "Quartz"}},
		{`{"type":"turn.usePowerUp","payload":{"powerUp":"skipTurn"}}`, game.Action{Kind: game.ActionUsePowerUp, PowerUp: game.PowerUpSkipTurn}},
		{`{"type":"turn.typing","payload":{"text":"qu"}}`, game.Action{Kind: game.ActionTyping, Text: "qu"}},
	}
	for _, tc := range cases {
		msg, err := ValidateClientMessage([]byte(tc.raw))
		if err != nil {
			t.Fatalf("%s: %v", tc.raw, err)
		}
		got, err := DecodeAction(msg)
		if err != nil {
			t.Fatalf("%s: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %+v want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestDecodeActionRequiredFields(t *testing.T) {
	for _, raw := range []string{
		`{"type":"session.join","payload":{}}`,
		`{"type":"turn.usePowerUp","payload":{}}`,
		`{"type":"turn.submitWord","payload":"nope"}`,
		`{"type":"ping"}`,
	} {
		msg, err := ValidateClientMessage([]byte(raw))
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if _, err := DecodeAction(msg); err == nil {
			t.Errorf("%s: expected error", raw)
		}
	}
}
