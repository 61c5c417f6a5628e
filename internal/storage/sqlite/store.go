// Package sqlite persists session snapshots and player results in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiliankoe/wordbomb/internal/game"
	"github.com/kiliankoe/wordbomb/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot upserts snap unless the stored version is newer.
func (s *Store) SaveSnapshot(ctx context.Context, snap game.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO session_snapshots (id, version, status, data, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    version = excluded.version,
    status = excluded.status,
    data = excluded.data,
    updated_at = excluded.updated_at
WHERE excluded.version > session_snapshots.version`,
		snap.ID, int64(snap.Version), string(snap.Status), string(data), toMillis(snap.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (s *Store) LoadSnapshot(ctx context.Context, id string) (game.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM session_snapshots WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Snapshot{}, game.ErrSessionNotFound
	}
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	var snap game.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return game.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_snapshots WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

// RecordResult folds one finished game into every participant's totals.
func (s *Store) RecordResult(ctx context.Context, res game.GameResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(res.FinishedAt)
	for _, st := range res.Standings {
		won := 0
		if st.PlayerID == res.WinnerID {
			won = 1
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO player_stats (player_id, name, games_played, games_won, total_score, words_created, updated_at)
VALUES (?, ?, 1, ?, ?, ?, ?)
ON CONFLICT(player_id) DO UPDATE SET
    name = excluded.name,
    games_played = player_stats.games_played + 1,
    games_won = player_stats.games_won + excluded.games_won,
    total_score = player_stats.total_score + excluded.total_score,
    words_created = player_stats.words_created + excluded.words_created,
    updated_at = excluded.updated_at`,
			st.PlayerID, st.Name, won, st.Score, st.WordsCreated, now,
		); err != nil {
			return fmt.Errorf("record %s: %w", st.PlayerID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]game.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT player_id, name, games_played, games_won, total_score, words_created
FROM player_stats
ORDER BY games_won DESC, total_score DESC, player_id ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()
	var out []game.LeaderboardEntry
	for rows.Next() {
		var e game.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.GamesPlayed, &e.GamesWon, &e.TotalScore, &e.WordsCreated); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
