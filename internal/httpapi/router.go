// Package httpapi exposes the HTTP endpoints: player registration, session
// creation and lookup, and the leaderboard.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kiliankoe/wordbomb/internal/game"
)

const identityKey = "identity"

var tracer = otel.Tracer("github.com/kiliankoe/wordbomb/internal/httpapi")

// Games is the part of *game.Registry the API needs.
type Games interface {
	Dispatch(ctx context.Context, id game.Identity, act game.Action) (game.Result, error)
	Snapshot(ctx context.Context, id string) (game.Snapshot, error)
}

type Tickets interface {
	Register(name string) (game.Identity, string, error)
	Parse(token string) (game.Identity, error)
}

type Deps struct {
	Games       Games
	Tickets     Tickets
	Leaderboard game.Leaderboard
	AllowOrigin string

	// Realtime, when set, is mounted at GET /ws.
	Realtime http.Handler
}

// NewRouter builds the gin engine with logging, recovery and CORS in place.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(cors(d.AllowOrigin))

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := r.Group("/api", traced())
	api.POST("/players", d.registerPlayer)
	api.POST("/sessions", requireTicket(d.Tickets), d.createSession)
	api.POST("/sessions/:id/join", requireTicket(d.Tickets), d.joinSession)
	api.GET("/sessions/:id", d.getSession)
	api.GET("/leaderboard", d.leaderboard)

	if d.Realtime != nil {
		r.GET("/ws", gin.WrapH(d.Realtime))
	}
	return r
}

// requestLogger logs every request except Socket.IO polling noise.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		log.Info().Str("method", c.Request.Method).Str("path", path).Int("status", status).Dur("dur", time.Since(start)).Msg("http")
	}
}

func cors(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/socket.io") {
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func traced() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func requireTicket(t Tickets) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := t.Parse(bearer(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "error": "Invalid ticket"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func identity(c *gin.Context) game.Identity {
	id, _ := c.MustGet(identityKey).(game.Identity)
	return id
}

func statusFor(code game.Code) int {
	switch code {
	case game.CodeSessionNotFound, game.CodePlayerNotInSession:
		return http.StatusNotFound
	case game.CodeSessionFull, game.CodeDuplicateDisplayName, game.CodeSessionNotWaiting,
		game.CodeSessionNotActive, game.CodeNotYourTurn, game.CodeSubmissionPending:
		return http.StatusConflict
	case game.CodeInternal:
		return http.StatusInternalServerError
	case game.CodeOracleUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func writeError(c *gin.Context, err error) {
	code := game.CodeOf(err)
	status := statusFor(code)
	msg := err.Error()
	var ge *game.Error
	if !errors.As(err, &ge) {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	c.JSON(status, gin.H{"code": code, "error": msg})
}

func (d Deps) registerPlayer(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	id, tok, err := d.Tickets.Register(req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	log.Info().Str("player", id.PlayerID).Str("name", id.Name).Msg("player registered")
	c.JSON(http.StatusCreated, gin.H{"playerId": id.PlayerID, "name": id.Name, "token": tok})
}

func (d Deps) createSession(c *gin.Context) {
	res, err := d.Games.Dispatch(c.Request.Context(), identity(c), game.Action{Kind: game.ActionCreate})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (d Deps) joinSession(c *gin.Context) {
	res, err := d.Games.Dispatch(c.Request.Context(), identity(c), game.Action{Kind: game.ActionJoin, SessionID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (d Deps) getSession(c *gin.Context) {
	snap, err := d.Games.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (d Deps) leaderboard(c *gin.Context) {
	if d.Leaderboard == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "leaderboard not available"})
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}
	rows, err := d.Leaderboard.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []game.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, rows)
}
