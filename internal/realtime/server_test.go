package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kiliankoe/wordbomb/internal/auth"
	"github.com/kiliankoe/wordbomb/internal/game"
	"github.com/kiliankoe/wordbomb/internal/protocol"
)

type testEnv struct {
	srv  *Server
	reg  *game.Registry
	iss  *auth.Issuer
	http *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := game.DefaultSessionConfig()
	cfg.PowerUps.Chance = 0
	reg := game.NewRegistry(cfg, game.WithDictionary(game.DictionaryFunc(func(context.Context, string) bool { return true })))
	iss := auth.NewIssuer("test-secret", time.Hour)
	srv := New(reg, iss)
	reg.AddSink(srv)

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx)
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		hs.Close()
		cancel()
	})
	return &testEnv{srv: srv, reg: reg, iss: iss, http: hs}
}

func (e *testEnv) dial(t *testing.T, name string) (*websocket.Conn, game.Identity) {
	t.Helper()
	id, tok, err := e.iss.Register(name)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws?token=" + tok
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	if msg := readUntil(t, ws, protocol.TypeWelcome); msg == nil {
		t.Fatal("no welcome")
	}
	return ws, id
}

func send(t *testing.T, ws *websocket.Conn, typ, id string, payload any) {
	t.Helper()
	data, _ := json.Marshal(payload)
	raw, _ := json.Marshal(protocol.Message{Type: typ, ID: id, Payload: data, Timestamp: time.Now().UTC()})
	if err := ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readUntil(t *testing.T, ws *websocket.Conn, typ string) *protocol.Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Type == typ {
			return &msg
		}
	}
}

func TestRejectsMissingTicket(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestInvalidMessage(t *testing.T) {
	env := newTestEnv(t)
	ws, _ := env.dial(t, "Alice")
	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, ws, protocol.TypeError)
	var p protocol.ErrorPayload
	_ = json.Unmarshal(msg.Payload, &p)
	if p.Code != protocol.ErrInvalidMessage {
		t.Fatalf("expected INVALID_MESSAGE, got %s", p.Code)
	}
}

func TestGameErrorCarriesCodeAndID(t *testing.T) {
	env := newTestEnv(t)
	ws, _ := env.dial(t, "Alice")
	send(t, ws, protocol.TypeSubmitWord, "r1", protocol.SubmitWordPayload{Word: "quartz"})
	msg := readUntil(t, ws, protocol.TypeError)
	var p protocol.ErrorPayload
	_ = json.Unmarshal(msg.Payload, &p)
	if msg.ID != "r1" || p.Code != string(game.CodePlayerNotInSession) {
		t.Fatalf("unexpected error reply id=%s code=%s", msg.ID, p.Code)
	}
}

func TestCreateJoinStartAndDisconnect(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.dial(t, "Alice")
	bob, bobID := env.dial(t, "Bob")

	send(t, alice, protocol.TypeSessionCreate, "c1", nil)
	created := readUntil(t, alice, protocol.TypeResult)
	var res game.Result
	if err := json.Unmarshal(created.Payload, &res); err != nil {
		t.Fatal(err)
	}
	if created.ID != "c1" || res.SessionID == "" || res.Snapshot == nil {
		t.Fatalf("unexpected create result %+v", res)
	}

	send(t, bob, protocol.TypeSessionJoin, "j1", protocol.SessionIDPayload{SessionID: res.SessionID})
	readUntil(t, bob, protocol.TypeResult)
	readUntil(t, alice, string(game.EventPlayerJoined))

	send(t, alice, protocol.TypeSessionReady, "", nil)
	send(t, bob, protocol.TypeSessionReady, "", nil)
	for _, ws := range []*websocket.Conn{alice, bob} {
		readUntil(t, ws, string(game.EventSessionStarted))
		turn := readUntil(t, ws, string(game.EventTurnChanged))
		var p game.TurnChangedPayload
		if err := json.Unmarshal(turn.Payload, &p); err != nil {
			t.Fatal(err)
		}
		if p.PlayerID == "" || p.Round != 1 {
			t.Fatalf("unexpected turn payload %+v", p)
		}
	}

	bob.Close()
	left := readUntil(t, alice, string(game.EventPlayerLeft))
	var lp game.PlayerLeftPayload
	_ = json.Unmarshal(left.Payload, &lp)
	if lp.PlayerID != bobID.PlayerID {
		t.Fatalf("expected bob to leave, got %+v", lp)
	}
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	ws, _ := env.dial(t, "Alice")
	send(t, ws, protocol.TypePing, "p", nil)
	if msg := readUntil(t, ws, protocol.TypeResult); msg.ID != "p" {
		t.Fatalf("expected pong for p, got %s", msg.ID)
	}
}
