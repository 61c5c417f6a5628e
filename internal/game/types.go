package game

import (
	"slices"
	"strings"
	"time"
)

type Status string

const (
	StatusWaiting  Status = "Waiting"
	StatusActive   Status = "Active"
	StatusFinished Status = "Finished"
)

type PowerUpKind string

const (
	PowerUpExtraTime PowerUpKind = "extraTime"
	PowerUpSkipTurn  PowerUpKind = "skipTurn"
	PowerUpExtraLife PowerUpKind = "extraLife"
)

// ParsePowerUpKind maps client input onto a known kind.
func ParsePowerUpKind(s string) (PowerUpKind, error) {
	switch k := PowerUpKind(strings.TrimSpace(s)); k {
	case PowerUpExtraTime, PowerUpSkipTurn, PowerUpExtraLife:
		return k, nil
	}
	return "", ErrInvalidPowerUp
}

type PowerUp struct {
	Kind PowerUpKind `json:"kind"`
	Used bool        `json:"used"`
}

type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Lives        int       `json:"lives"`
	Score        int       `json:"score"`
	WordsCreated int       `json:"wordsCreated"`
	Connected    bool      `json:"connected"`
	Ready        bool      `json:"ready"`
	PowerUps     []PowerUp `json:"powerUps"`
	JoinedAt     time.Time `json:"joinedAt"`
}

func (p *Player) alive() bool { return p.Lives > 0 && p.Connected }

func (p *Player) clone() Player {
	c := *p
	c.PowerUps = slices.Clone(p.PowerUps)
	return c
}

// LetterPair holds the two uppercase letters a word must contain.
type LetterPair [2]string

func (lp LetterPair) String() string { return lp[0] + lp[1] }

// SessionConfig holds the per-session game rules.
type SessionConfig struct {
	TurnDuration  time.Duration   `json:"turnDuration"`
	ExtraTime     time.Duration   `json:"extraTime"`
	MaxPlayers    int             `json:"maxPlayers"`
	MinPlayers    int             `json:"minPlayers"`
	StartingLives int             `json:"startingLives"`
	MinWordLength int             `json:"minWordLength"`
	HistoryLimit  int             `json:"historyLimit"`
	PowerUps      AllocatorConfig `json:"powerUps"`
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TurnDuration:  10 * time.Second,
		ExtraTime:     5 * time.Second,
		MaxPlayers:    8,
		MinPlayers:    2,
		StartingLives: 3,
		MinWordLength: 3,
		HistoryLimit:  200,
		PowerUps:      DefaultAllocatorConfig(),
	}
}

// TurnRecord is one resolved turn kept for the lifetime of a session.
type TurnRecord struct {
	Round      int         `json:"round"`
	PlayerID   string      `json:"playerId"`
	PlayerName string      `json:"playerName"`
	Letters    LetterPair  `json:"letters"`
	Word       string      `json:"word,omitempty"`
	Accepted   bool        `json:"accepted"`
	Reason     Reason      `json:"reason,omitempty"`
	ElapsedMS  int64       `json:"elapsedMs"`
	PowerUp    PowerUpKind `json:"powerUp,omitempty"`
}

// WordResult is returned to the submitting player.
type WordResult struct {
	Word           string `json:"word"`
	Accepted       bool   `json:"accepted"`
	Reason         Reason `json:"reason,omitempty"`
	ScoreGained    int    `json:"scoreGained"`
	LivesRemaining int    `json:"livesRemaining"`
}

// Standing is a player's final position when a session finishes.
type Standing struct {
	PlayerID     string `json:"playerId"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	WordsCreated int    `json:"wordsCreated"`
	Lives        int    `json:"lives"`
	Winner       bool   `json:"winner"`
}

// GameResult is handed to a ResultRecorder once per finished session.
type GameResult struct {
	SessionID  string     `json:"sessionId"`
	WinnerID   string     `json:"winnerId,omitempty"`
	Standings  []Standing `json:"standings"`
	FinishedAt time.Time  `json:"finishedAt"`
}

type LeaderboardEntry struct {
	PlayerID     string `json:"playerId"`
	Name         string `json:"name"`
	GamesPlayed  int    `json:"gamesPlayed"`
	GamesWon     int    `json:"gamesWon"`
	TotalScore   int    `json:"totalScore"`
	WordsCreated int    `json:"wordsCreated"`
}

// Snapshot is a point-in-time copy of a session, safe to share.
type Snapshot struct {
	ID                  string       `json:"id"`
	Version             uint64       `json:"version"`
	Status              Status       `json:"status"`
	OwnerID             string       `json:"ownerId"`
	Players             []Player     `json:"players"`
	CurrentTurnIndex    int          `json:"currentTurnIndex"`
	CurrentPlayerID     string       `json:"currentPlayerId,omitempty"`
	Letters             LetterPair   `json:"letters"`
	Round               int          `json:"round"`
	TurnDeadline        *time.Time   `json:"turnDeadline,omitempty"`
	TurnDurationSeconds float64      `json:"turnDurationSeconds"`
	WinnerID            string       `json:"winnerId,omitempty"`
	History             []TurnRecord `json:"history"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}
