package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiliankoe/wordbomb/internal/game"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "wordbomb.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordbomb.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		_ = s.Close()
	}
}

func TestSnapshotRoundTripAndVersionGuard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	newer := game.Snapshot{
		ID:        "sess",
		Version:   5,
		Status:    game.StatusActive,
		Players:   []game.Player{{ID: "alice", Name: "Alice", Lives: 2}},
		Letters:   game.LetterPair{"Q", "Z"},
		Round:     4,
		UpdatedAt: now,
	}
	if err := s.SaveSnapshot(ctx, newer); err != nil {
		t.Fatalf("save: %v", err)
	}
	older := newer
	older.Version = 3
	older.Round = 1
	if err := s.SaveSnapshot(ctx, older); err != nil {
		t.Fatalf("save older: %v", err)
	}

	got, err := s.LoadSnapshot(ctx, "sess")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Round != 4 || got.Version != 5 || got.Letters != newer.Letters || got.Players[0].Lives != 2 {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	if err := s.DeleteSnapshot(ctx, "sess"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.LoadSnapshot(ctx, "sess"); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordResultAndLeaderboard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	results := []game.GameResult{
		{SessionID: "1", WinnerID: "bob", FinishedAt: time.Now(), Standings: []game.Standing{
			{PlayerID: "bob", Name: "Bob", Score: 10, WordsCreated: 3},
			{PlayerID: "alice", Name: "Alice", Score: 20, WordsCreated: 5},
		}},
		{SessionID: "2", WinnerID: "bob", FinishedAt: time.Now(), Standings: []game.Standing{
			{PlayerID: "bob", Name: "Bobby", Score: 2, WordsCreated: 1},
			{PlayerID: "alice", Name: "Alice", Score: 7, WordsCreated: 2},
		}},
	}
	for _, r := range results {
		if err := s.RecordResult(ctx, r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	rows, err := s.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	bob := rows[0]
	if bob.PlayerID != "bob" || bob.Name != "Bobby" || bob.GamesWon != 2 || bob.GamesPlayed != 2 || bob.TotalScore != 12 {
		t.Fatalf("unexpected bob row %+v", bob)
	}
	alice := rows[1]
	if alice.GamesWon != 0 || alice.TotalScore != 27 || alice.WordsCreated != 7 {
		t.Fatalf("unexpected alice row %+v", alice)
	}
}
