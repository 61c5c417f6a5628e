package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/kiliankoe/wordbomb/internal/game"
)

type Config struct {
	Port     string `env:"PORT"      envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	TurnSeconds      int `env:"TURN_SECONDS"       envDefault:"10"`
	ExtraTimeSeconds int `env:"EXTRA_TIME_SECONDS" envDefault:"5"`
	MaxPlayers       int `env:"MAX_PLAYERS"        envDefault:"8"`
	MinPlayers       int `env:"MIN_PLAYERS"        envDefault:"2"`
	StartingLives    int `env:"STARTING_LIVES"     envDefault:"3"`
	MinWordLength    int `env:"MIN_WORD_LENGTH"    envDefault:"3"`
	HistoryLimit     int `env:"HISTORY_LIMIT"      envDefault:"200"`

	PowerUpMode            string  `env:"POWERUP_MODE"              envDefault:"gated"`
	PowerUpChance          float64 `env:"POWERUP_CHANCE"            envDefault:"0.2"`
	PowerUpWeightExtraTime float64 `env:"POWERUP_WEIGHT_EXTRA_TIME" envDefault:"0.2"`
	PowerUpWeightSkipTurn  float64 `env:"POWERUP_WEIGHT_SKIP_TURN"  envDefault:"0.1"`
	PowerUpWeightExtraLife float64 `env:"POWERUP_WEIGHT_EXTRA_LIFE" envDefault:"0.05"`

	IdleTimeout     time.Duration `env:"SESSION_IDLE_TIMEOUT"     envDefault:"5m"`
	WaitingLifetime time.Duration `env:"SESSION_WAITING_LIFETIME" envDefault:"30m"`

	DictionaryProvider    string        `env:"DICTIONARY_PROVIDER"            envDefault:"datamuse"`
	DictionaryTimeout     time.Duration `env:"DICTIONARY_TIMEOUT"             envDefault:"3s"`
	DictionaryFallbackMin int           `env:"DICTIONARY_FALLBACK_MIN_LENGTH" envDefault:"3"`
	DatamuseBaseURL       string        `env:"DATAMUSE_BASE_URL"`
	FreeDictionaryBaseURL string        `env:"FREEDICTIONARY_BASE_URL"`
	WordsFile             string        `env:"WORDS_FILE"`

	DatabasePath  string `env:"DATABASE_PATH"`
	ExportEnabled bool   `env:"EXPORT_ENABLED" envDefault:"false"`
	ExportFile    string `env:"EXPORT_FILE"    envDefault:"game_results.txt"`

	TicketSecret string        `env:"TICKET_SECRET"`
	TicketTTL    time.Duration `env:"TICKET_TTL"    envDefault:"24h"`
	ClientOrigin string        `env:"CLIENT_ORIGIN" envDefault:"*"`

	OtelEnabled  bool   `env:"OTEL_ENABLED"`
	OtelEndpoint string `env:"OTEL_ENDPOINT"`
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	c.DictionaryProvider = strings.ToLower(strings.TrimSpace(c.DictionaryProvider))
	c.PowerUpMode = strings.ToLower(strings.TrimSpace(c.PowerUpMode))
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.TurnSeconds <= 0 {
		errs = append(errs, errors.New("TURN_SECONDS must be positive"))
	}
	if c.ExtraTimeSeconds < 0 {
		errs = append(errs, errors.New("EXTRA_TIME_SECONDS must not be negative"))
	}
	if c.MinPlayers < 2 {
		errs = append(errs, errors.New("MIN_PLAYERS must be at least 2"))
	}
	if c.MaxPlayers < c.MinPlayers {
		errs = append(errs, errors.New("MAX_PLAYERS must be at least MIN_PLAYERS"))
	}
	if c.StartingLives < 1 {
		errs = append(errs, errors.New("STARTING_LIVES must be at least 1"))
	}
	if c.MinWordLength < 1 {
		errs = append(errs, errors.New("MIN_WORD_LENGTH must be at least 1"))
	}
	switch c.DictionaryProvider {
	case "datamuse", "freedictionary", "local":
	default:
		errs = append(errs, fmt.Errorf("unknown DICTIONARY_PROVIDER %q", c.DictionaryProvider))
	}
	if err := c.SessionConfig().PowerUps.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SessionConfig maps the environment onto the per-session game rules.
func (c Config) SessionConfig() game.SessionConfig {
	sc := game.DefaultSessionConfig()
	sc.TurnDuration = time.Duration(c.TurnSeconds) * time.Second
	sc.ExtraTime = time.Duration(c.ExtraTimeSeconds) * time.Second
	sc.MaxPlayers = c.MaxPlayers
	sc.MinPlayers = c.MinPlayers
	sc.StartingLives = c.StartingLives
	sc.MinWordLength = c.MinWordLength
	sc.HistoryLimit = c.HistoryLimit
	sc.PowerUps = game.AllocatorConfig{
		Mode:   game.AllocationMode(c.PowerUpMode),
		Chance: c.PowerUpChance,
		Weights: []game.PowerUpWeight{
			{Kind: game.PowerUpExtraTime, Weight: c.PowerUpWeightExtraTime},
			{Kind: game.PowerUpSkipTurn, Weight: c.PowerUpWeightSkipTurn},
			{Kind: game.PowerUpExtraLife, Weight: c.PowerUpWeightExtraLife},
		},
	}
	return sc
}
