// Package auth issues and verifies the signed tickets players present when
// opening a realtime connection or calling the HTTP API.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/wordbomb/internal/game"
)

const issuer = "wordbomb"

var ErrInvalidTicket = errors.New("invalid ticket")

type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer signs with secret. An empty secret is replaced by a random one,
// which invalidates every ticket on restart.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
		log.Warn().Msg("TICKET_SECRET not set, using an ephemeral signing key")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: key, ttl: ttl, now: time.Now}
}

// Register validates name, assigns a fresh player id and returns a ticket for it.
func (i *Issuer) Register(name string) (game.Identity, string, error) {
	name, err := game.ValidateDisplayName(name)
	if err != nil {
		return game.Identity{}, "", err
	}
	id := game.Identity{PlayerID: uuid.NewString(), Name: name}
	tok, err := i.Issue(id)
	if err != nil {
		return game.Identity{}, "", err
	}
	return id, tok, nil
}

func (i *Issuer) Issue(id game.Identity) (string, error) {
	now := i.now()
	claims := Claims{
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.PlayerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign ticket: %w", err)
	}
	return s, nil
}

func (i *Issuer) Parse(token string) (game.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return game.Identity{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if claims.Subject == "" || claims.Name == "" {
		return game.Identity{}, ErrInvalidTicket
	}
	return game.Identity{PlayerID: claims.Subject, Name: claims.Name}, nil
}
