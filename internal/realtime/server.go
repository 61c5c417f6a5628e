// Package realtime serves the game over a plain WebSocket using the JSON
// envelope from package protocol.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/wordbomb/internal/game"
	"github.com/kiliankoe/wordbomb/internal/protocol"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	sendBuffer    = 256
	eventBuffer   = 1024
	actionTimeout = 10 * time.Second
	maxMessage    = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Dispatcher executes player actions. *game.Registry implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, id game.Identity, act game.Action) (game.Result, error)
	Leave(playerID string) error
}

// Authenticator resolves a ticket to the player it was issued for.
type Authenticator interface {
	Parse(token string) (game.Identity, error)
}

// Server manages WebSocket connections, routes their messages to the
// Dispatcher and fans session events out to the players of that session.
type Server struct {
	disp Dispatcher
	auth Authenticator

	mu       sync.RWMutex
	clients  map[*client]bool
	byPlayer map[string]*client
	rooms    map[string]map[*client]bool

	events chan game.Event
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	server  *Server
	id      game.Identity
	session string // guarded by server.mu
	closed  bool   // guarded by server.mu
}

func New(d Dispatcher, a Authenticator) *Server {
	return &Server{
		disp:     d,
		auth:     a,
		clients:  make(map[*client]bool),
		byPlayer: make(map[string]*client),
		rooms:    make(map[string]map[*client]bool),
		events:   make(chan game.Event, eventBuffer),
	}
}

// Publish queues ev for delivery. It never blocks; events are dropped when
// the queue is full.
func (s *Server) Publish(ev game.Event) {
	select {
	case s.events <- ev:
	default:
		log.Warn().Str("session", ev.SessionID).Str("event", string(ev.Type)).Msg("realtime event queue full, dropping")
	}
}

// Run delivers published events until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			s.deliverEvent(ev)
		}
	}
}

func (s *Server) deliverEvent(ev game.Event) {
	msg, err := protocol.NewMessage(string(ev.Type), ev.Payload)
	if err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("encode event")
		return
	}
	if !ev.At.IsZero() {
		msg.Timestamp = ev.At.UTC()
	}
	data, _ := json.Marshal(msg)

	if ev.Type == game.EventSessionClosed {
		s.mu.Lock()
		for c := range s.rooms[ev.SessionID] {
			s.trySend(c, data)
			c.session = ""
		}
		delete(s.rooms, ev.SessionID)
		s.mu.Unlock()
		return
	}
	s.mu.RLock()
	for c := range s.rooms[ev.SessionID] {
		s.trySend(c, data)
	}
	s.mu.RUnlock()
}

// trySend must be called with s.mu held.
func (s *Server) trySend(c *client, data []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("player", c.id.PlayerID).Msg("client send buffer full, dropping")
	}
}

func (s *Server) send(c *client, msg *protocol.Message) {
	data, _ := json.Marshal(msg)
	s.mu.RLock()
	s.trySend(c, data)
	s.mu.RUnlock()
}

func (s *Server) sendError(c *client, reqID, code, message string) {
	msg, _ := protocol.NewErrorMessage(code, message)
	msg.ID = reqID
	s.send(c, msg)
}

func ticketFrom(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// ServeHTTP authenticates the ticket and upgrades the connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := s.auth.Parse(ticketFrom(r))
	if err != nil {
		http.Error(w, `{"error":"invalid ticket"}`, http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		server: s,
		id:     id,
	}

	s.mu.Lock()
	if prev := s.byPlayer[id.PlayerID]; prev != nil {
		// newest connection wins; the old one keeps the player in its session
		sid := prev.session
		s.detachLocked(prev)
		s.joinRoomLocked(c, sid)
	}
	s.clients[c] = true
	s.byPlayer[id.PlayerID] = c
	s.mu.Unlock()

	welcome, _ := protocol.NewMessage(protocol.TypeWelcome, protocol.WelcomePayload{PlayerID: id.PlayerID, Name: id.Name})
	s.send(c, welcome)
	log.Info().Str("player", id.PlayerID).Str("name", id.Name).Msg("websocket connected")

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("player", c.id.PlayerID).Msg("websocket read error")
			}
			return
		}
		c.server.handleMessage(c, message)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMessage(c *client, raw []byte) {
	msg, err := protocol.ValidateClientMessage(raw)
	if err != nil {
		s.sendError(c, "", protocol.ErrInvalidMessage, err.Error())
		return
	}
	if msg.Type == protocol.TypePing {
		reply, _ := protocol.NewMessage(protocol.TypeResult, map[string]bool{"pong": true})
		reply.ID = msg.ID
		s.send(c, reply)
		return
	}
	act, err := protocol.DecodeAction(msg)
	if err != nil {
		s.sendError(c, msg.ID, protocol.ErrInvalidMessage, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	res, err := s.disp.Dispatch(ctx, c.id, act)
	cancel()
	if err != nil {
		s.sendError(c, msg.ID, string(game.CodeOf(err)), err.Error())
		return
	}

	switch act.Kind {
	case game.ActionLeave:
		s.moveTo(c, "")
	case game.ActionCreate, game.ActionJoin:
		s.moveTo(c, res.SessionID)
	}
	reply, _ := protocol.NewMessage(protocol.TypeResult, res)
	reply.ID = msg.ID
	s.send(c, reply)
}

// moveTo subscribes c to the events of session id, leaving its old room.
func (s *Server) moveTo(c *client, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		return
	}
	s.leaveRoomLocked(c)
	s.joinRoomLocked(c, id)
}

func (s *Server) joinRoomLocked(c *client, id string) {
	c.session = id
	if id == "" {
		return
	}
	if s.rooms[id] == nil {
		s.rooms[id] = make(map[*client]bool)
	}
	s.rooms[id][c] = true
}

func (s *Server) leaveRoomLocked(c *client) {
	if c.session == "" {
		return
	}
	if room := s.rooms[c.session]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(s.rooms, c.session)
		}
	}
}

// detachLocked drops c from every index and closes its send channel.
func (s *Server) detachLocked(c *client) {
	if c.closed {
		return
	}
	c.closed = true
	s.leaveRoomLocked(c)
	delete(s.clients, c)
	if s.byPlayer[c.id.PlayerID] == c {
		delete(s.byPlayer, c.id.PlayerID)
	}
	close(c.send)
}

// removeClient cleans up a disconnected client. A player whose last
// connection drops leaves their session.
func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	replaced := c.closed
	s.detachLocked(c)
	s.mu.Unlock()
	if replaced {
		return
	}
	log.Info().Str("player", c.id.PlayerID).Msg("websocket disconnected")
	if err := s.disp.Leave(c.id.PlayerID); err != nil && game.CodeOf(err) != game.CodePlayerNotInSession {
		log.Warn().Err(err).Str("player", c.id.PlayerID).Msg("leave on disconnect")
	}
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
