package game

import "context"

// SnapshotStore keeps the latest snapshot of each live session. Saves with a
// version lower than the stored one are ignored.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	// LoadSnapshot returns ErrSessionNotFound when nothing is stored.
	LoadSnapshot(ctx context.Context, id string) (Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
}

// ResultRecorder receives the outcome of every finished session.
type ResultRecorder interface {
	RecordResult(ctx context.Context, res GameResult) error
}

// Leaderboard lists aggregated results, best first.
type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}
