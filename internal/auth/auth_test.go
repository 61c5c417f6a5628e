package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/kiliankoe/wordbomb/internal/game"
)

func TestRegisterAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	id, tok, err := iss.Register("  Alice ")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id.Name != "Alice" || id.PlayerID == "" {
		t.Fatalf("unexpected identity %+v", id)
	}
	got, err := iss.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != id {
		t.Fatalf("expected %+v, got %+v", id, got)
	}
}

func TestRegisterRejectsBadName(t *testing.T) {
	_, _, err := NewIssuer("secret", time.Hour).Register("al")
	if !errors.Is(err, game.ErrInvalidDisplayName) {
		t.Fatalf("expected invalid name, got %v", err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	tok, err := NewIssuer("one", time.Hour).Issue(game.Identity{PlayerID: "p", Name: "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewIssuer("two", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidTicket) {
		t.Fatalf("expected invalid ticket, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	iss := NewIssuer("secret", time.Minute)
	base := time.Now()
	iss.now = func() time.Time { return base }
	tok, err := iss.Issue(game.Identity{PlayerID: "p", Name: "Bob"})
	if err != nil {
		t.Fatal(err)
	}
	iss.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := iss.Parse(tok); !errors.Is(err, ErrInvalidTicket) {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestEphemeralSecret(t *testing.T) {
	iss := NewIssuer("", 0)
	if len(iss.secret) != 32 {
		t.Fatalf("expected generated key, got %d bytes", len(iss.secret))
	}
	tok, _ := iss.Issue(game.Identity{PlayerID: "p", Name: "Bob"})
	if _, err := iss.Parse(tok); err != nil {
		t.Fatalf("parse with ephemeral key: %v", err)
	}
}
