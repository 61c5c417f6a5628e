package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kiliankoe/wordbomb/internal/auth"
	"github.com/kiliankoe/wordbomb/internal/config"
	"github.com/kiliankoe/wordbomb/internal/dictionary"
	"github.com/kiliankoe/wordbomb/internal/dictionary/datamuse"
	"github.com/kiliankoe/wordbomb/internal/dictionary/freedictionary"
	"github.com/kiliankoe/wordbomb/internal/game"
	"github.com/kiliankoe/wordbomb/internal/httpapi"
	"github.com/kiliankoe/wordbomb/internal/realtime"
	"github.com/kiliankoe/wordbomb/internal/storage/sqlite"
	"github.com/kiliankoe/wordbomb/internal/store"
	"github.com/kiliankoe/wordbomb/internal/telemetry"
	"github.com/kiliankoe/wordbomb/internal/ws"
)

const version = "v1.0.0-dev"

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Word Bomb - Real-time word elimination game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables (also read from .env):
  PORT                       Port to listen on (default: 8080)
  LOG_LEVEL                  debug, info, warn, error (default: info)
  TURN_SECONDS               Turn length in seconds (default: 10)
  EXTRA_TIME_SECONDS         Time added by the extraTime power-up (default: 5)
  MIN_PLAYERS / MAX_PLAYERS  Players needed to start / allowed per session (default: 2 / 8)
  STARTING_LIVES             Lives per player, also the extraLife cap (default: 3)
  MIN_WORD_LENGTH            Shortest accepted word (default: 3)
  POWERUP_MODE               "gated" or "absolute" (default: gated)
  POWERUP_CHANCE             Grant chance per turn in gated mode (default: 0.2)
  SESSION_IDLE_TIMEOUT       Close idle sessions after (default: 5m)
  SESSION_WAITING_LIFETIME   Close sessions that never started after (default: 30m)
  DICTIONARY_PROVIDER        "datamuse", "freedictionary" or "local" (default: datamuse)
  DICTIONARY_TIMEOUT         Dictionary lookup timeout (default: 3s)
  WORDS_FILE                 Word list for the local provider, reloaded on change
  DATABASE_PATH              SQLite file for snapshots and stats (default: in memory)
  EXPORT_ENABLED             Append finished game results to EXPORT_FILE (default: false)
  EXPORT_FILE                Path to export game results (default: ./game_results.txt)
  TICKET_SECRET              Secret used to sign player tickets
  OTEL_ENABLED, OTEL_ENDPOINT  OpenTelemetry trace export

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Word Bomb %s\n", version)
		return
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(cw)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := telemetry.Setup(ctx, "wordbomb", cfg.OtelEnabled, cfg.OtelEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	oracle, err := openOracle(ctx, cfg)
	if err != nil {
		return err
	}
	dict := dictionary.NewResilient(oracle, cfg.DictionaryTimeout, cfg.DictionaryFallbackMin)

	recorders := game.Recorders{st}
	if cfg.ExportEnabled {
		recorders = append(recorders, game.NewFileExporter(cfg.ExportFile))
	}

	reg := game.NewRegistry(cfg.SessionConfig(),
		game.WithDictionary(dict),
		game.WithSnapshotStore(st),
		game.WithResultRecorder(recorders),
		game.WithIdleTimeout(cfg.IdleTimeout),
		game.WithWaitingLifetime(cfg.WaitingLifetime),
	)

	tickets := auth.NewIssuer(cfg.TicketSecret, cfg.TicketTTL)
	rt := realtime.New(reg, tickets)
	sock := ws.New(reg, tickets)
	reg.AddSink(rt)
	reg.AddSink(sock)

	gin.SetMode(gin.ReleaseMode)
	r := httpapi.NewRouter(httpapi.Deps{
		Games:       reg,
		Tickets:     tickets,
		Leaderboard: st,
		AllowOrigin: cfg.ClientOrigin,
		Realtime:    rt,
	})
	sock.Mount(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return reg.Run(gctx) })
	g.Go(func() error { return rt.Run(gctx) })
	g.Go(func() error { return sock.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("dictionary", cfg.DictionaryProvider).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.DatabasePath == "" {
		log.Info().Msg("using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	log.Info().Str("path", cfg.DatabasePath).Msg("using sqlite store")
	return db, func() { _ = db.Close() }, nil
}

func openOracle(ctx context.Context, cfg config.Config) (dictionary.Oracle, error) {
	switch cfg.DictionaryProvider {
	case "freedictionary":
		return freedictionary.New(cfg.FreeDictionaryBaseURL), nil
	case "local":
		if cfg.WordsFile == "" {
			return dictionary.NewLocal(), nil
		}
		l, err := dictionary.LoadLocal(cfg.WordsFile)
		if err != nil {
			return nil, err
		}
		if err := l.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("word list will not be reloaded")
		}
		log.Info().Int("words", l.Len()).Str("path", cfg.WordsFile).Msg("word list loaded")
		return l, nil
	default:
		return datamuse.New(cfg.DatamuseBaseURL), nil
	}
}
