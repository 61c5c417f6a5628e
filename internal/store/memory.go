// Package store holds the in-memory snapshot and result store used when no
// database is configured. State is lost on restart.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/kiliankoe/wordbomb/internal/game"
)

// Store is everything the server persists.
type Store interface {
	game.SnapshotStore
	game.ResultRecorder
	game.Leaderboard
}

type memory struct {
	mu    sync.RWMutex
	snaps map[string]game.Snapshot
	stats map[string]*game.LeaderboardEntry
}

func NewMemoryStore() Store {
	return &memory{
		snaps: make(map[string]game.Snapshot),
		stats: make(map[string]*game.LeaderboardEntry),
	}
}

// SaveSnapshot keeps snap unless a newer version is already stored.
func (m *memory) SaveSnapshot(_ context.Context, snap game.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.snaps[snap.ID]; ok && cur.Version >= snap.Version {
		return nil
	}
	m.snaps[snap.ID] = snap
	return nil
}

func (m *memory) LoadSnapshot(_ context.Context, id string) (game.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.snaps[id]; ok {
		return s, nil
	}
	return game.Snapshot{}, game.ErrSessionNotFound
}

func (m *memory) DeleteSnapshot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, id)
	return nil
}

func (m *memory) RecordResult(_ context.Context, res game.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range res.Standings {
		e := m.stats[st.PlayerID]
		if e == nil {
			e = &game.LeaderboardEntry{PlayerID: st.PlayerID}
			m.stats[st.PlayerID] = e
		}
		e.Name = st.Name
		e.GamesPlayed++
		if st.PlayerID == res.WinnerID {
			e.GamesWon++
		}
		e.TotalScore += st.Score
		e.WordsCreated += st.WordsCreated
	}
	return nil
}

func (m *memory) Leaderboard(_ context.Context, limit int) ([]game.LeaderboardEntry, error) {
	m.mu.RLock()
	out := make([]game.LeaderboardEntry, 0, len(m.stats))
	for _, e := range m.stats {
		out = append(out, *e)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, compareEntries)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func compareEntries(a, b game.LeaderboardEntry) int {
	if c := cmp.Compare(b.GamesWon, a.GamesWon); c != 0 {
		return c
	}
	if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
		return c
	}
	return cmp.Compare(a.PlayerID, b.PlayerID)
}
