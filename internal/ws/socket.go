package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/wordbomb/internal/game"
)

const (
	eventBuffer   = 1024
	actionTimeout = 10 * time.Second
)

type ConnCtx struct {
	PlayerID  string
	Name      string
	SessionID string
}

// Dispatcher executes player actions. *game.Registry implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, id game.Identity, act game.Action) (game.Result, error)
	Leave(playerID string) error
}

type Authenticator interface {
	Parse(token string) (game.Identity, error)
}

// Server speaks the game over Socket.IO. Every session is a room named
// "session:<id>" and session events are broadcast as "game:<eventType>".
type Server struct {
	disp Dispatcher
	auth Authenticator
	io   *socketio.Server

	mu       sync.Mutex
	byPlayer map[string]string // playerID -> socket id of the newest connection

	events chan game.Event
}

func New(d Dispatcher, a Authenticator) *Server {
	return &Server{
		disp:     d,
		auth:     a,
		byPlayer: make(map[string]string),
		events:   make(chan game.Event, eventBuffer),
	}
}

func roomName(sessionID string) string { return "session:" + sessionID }

func eventName(t game.EventType) string { return "game:" + string(t) }

// Publish queues ev for broadcast. It never blocks.
func (srv *Server) Publish(ev game.Event) {
	select {
	case srv.events <- ev:
	default:
		log.Warn().Str("session", ev.SessionID).Str("event", string(ev.Type)).Msg("socket event queue full, dropping")
	}
}

// Run broadcasts published events until ctx is done, then closes the
// Socket.IO server.
func (srv *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if srv.io != nil {
				return srv.io.Close()
			}
			return nil
		case ev := <-srv.events:
			srv.broadcast(ev)
		}
	}
}

func (srv *Server) broadcast(ev game.Event) {
	if srv.io == nil {
		return
	}
	room := roomName(ev.SessionID)
	srv.io.BroadcastToRoom("/", room, eventName(ev.Type), ev.Payload)
	if ev.Type == game.EventSessionClosed {
		srv.io.ClearRoom("/", room)
	}
}

// Mount attaches Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		ctx := &ConnCtx{}
		s.SetContext(ctx)
		u := s.URL()
		if tok := u.Query().Get("token"); tok != "" {
			if id, err := srv.auth.Parse(tok); err == nil {
				srv.identify(s, id)
			}
		}
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// player:identify
	io.OnEvent("/", "player:identify", func(s socketio.Conn, payload struct {
		Token string `json:"token"`
	}) map[string]any {
		id, err := srv.auth.Parse(payload.Token)
		if err != nil {
			return srv.err(s, "UNAUTHORIZED", "Invalid ticket")
		}
		srv.identify(s, id)
		return map[string]any{"ok": true, "playerId": id.PlayerID, "name": id.Name}
	})

	io.OnEvent("/", "game:create", func(s socketio.Conn) map[string]any {
		return srv.act(s, game.Action{Kind: game.ActionCreate})
	})

	io.OnEvent("/", "game:join", func(s socketio.Conn, payload struct {
		SessionID string `json:"sessionId"`
	}) map[string]any {
		return srv.act(s, game.Action{Kind: game.ActionJoin, SessionID: payload.SessionID})
	})

	io.OnEvent("/", "game:leave", func(s socketio.Conn) map[string]any {
		return srv.act(s, game.Action{Kind: game.ActionLeave})
	})

	io.OnEvent("/", "game:ready", func(s socketio.Conn, payload struct {
		Ready *bool `json:"ready"`
	}) map[string]any {
		return srv.act(s, game.Action{Kind: game.ActionReady, Ready: payload.Ready == nil || *payload.Ready})
	})

	io.OnEvent("/", "game:submit-word", func(s socketio.Conn, payload struct {
		Word string `json:"word"`
	}) map[string]any {
		return srv.act(s, game.Action{Kind: game.ActionSubmitWord, Word: payload.Word})
	})

	io.OnEvent("/", "game:use-power-up", func(s socketio.Conn, payload struct {
		PowerUp string `json:"powerUp"`
	}) map[string]any {
		return srv.act(s, game.Action{Kind: game.ActionUsePowerUp, PowerUp: game.PowerUpKind(payload.PowerUp)})
	})

	io.OnEvent("/", "game:typing", func(s socketio.Conn, payload struct {
		Text string `json:"text"`
	}) {
		srv.act(s, game.Action{Kind: game.ActionTyping, Text: payload.Text})
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			log.Error().Err(e).Msg("socket error")
			return
		}
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.disconnect(s)
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io serve")
		}
	}()

	// Mount to router
	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func connCtx(s socketio.Conn) *ConnCtx {
	if ctx, ok := s.Context().(*ConnCtx); ok {
		return ctx
	}
	ctx := &ConnCtx{}
	s.SetContext(ctx)
	return ctx
}

func (srv *Server) identify(s socketio.Conn, id game.Identity) {
	ctx := connCtx(s)
	ctx.PlayerID, ctx.Name = id.PlayerID, id.Name
	srv.mu.Lock()
	srv.byPlayer[id.PlayerID] = s.ID()
	srv.mu.Unlock()
	log.Info().Str("sid", s.ID()).Str("playerId", id.PlayerID).Msg("player:identify")
}

func (srv *Server) act(s socketio.Conn, act game.Action) map[string]any {
	ctx := connCtx(s)
	if ctx.PlayerID == "" {
		return srv.err(s, "UNAUTHORIZED", "Identify first")
	}
	c, cancel := context.WithTimeout(context.Background(), actionTimeout)
	res, err := srv.disp.Dispatch(c, game.Identity{PlayerID: ctx.PlayerID, Name: ctx.Name}, act)
	cancel()
	if err != nil {
		if act.Kind == game.ActionTyping {
			return nil
		}
		return srv.err(s, string(game.CodeOf(err)), err.Error())
	}

	switch act.Kind {
	case game.ActionCreate, game.ActionJoin:
		if ctx.SessionID != "" {
			s.Leave(roomName(ctx.SessionID))
		}
		ctx.SessionID = res.SessionID
		s.Join(roomName(res.SessionID))
		log.Info().Str("sid", s.ID()).Str("session", res.SessionID).Str("action", string(act.Kind)).Msg("socket joined session")
	case game.ActionLeave:
		if ctx.SessionID != "" {
			s.Leave(roomName(ctx.SessionID))
			ctx.SessionID = ""
		}
	}
	return ackOf(res)
}

func ackOf(res game.Result) map[string]any {
	out := map[string]any{"ok": true}
	if res.SessionID != "" {
		out["sessionId"] = res.SessionID
	}
	if res.Snapshot != nil {
		out["snapshot"] = res.Snapshot
	}
	if res.WordResult != nil {
		out["wordResult"] = res.WordResult
	}
	return out
}

// disconnect leaves the session unless a newer connection took over.
func (srv *Server) disconnect(s socketio.Conn) {
	ctx, ok := s.Context().(*ConnCtx)
	if !ok || ctx.PlayerID == "" {
		return
	}
	srv.mu.Lock()
	current := srv.byPlayer[ctx.PlayerID] == s.ID()
	if current {
		delete(srv.byPlayer, ctx.PlayerID)
	}
	srv.mu.Unlock()
	if !current {
		return
	}
	if err := srv.disp.Leave(ctx.PlayerID); err != nil && game.CodeOf(err) != game.CodePlayerNotInSession {
		log.Warn().Err(err).Str("playerId", ctx.PlayerID).Msg("leave on disconnect")
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message, "code": code}
}
