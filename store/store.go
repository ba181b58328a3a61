// Package store keeps one game state per player, keyed by FID.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/hoshinonyaruko/snake-frame/structs"
)

var ErrNotFound = errors.New("game not found")

// Store provides shared access to per-player game states.
// Implementations must be thread-safe. Callers that read, modify and write back
// a state must hold the player's lock from a KeyedMutex.
type Store interface {
	// Get returns a copy of the stored state, or ErrNotFound.
	Get(ctx context.Context, fid uint64) (*structs.GameState, error)
	// Put replaces the stored state.
	Put(ctx context.Context, fid uint64, state *structs.GameState) error
	// Delete discards the stored state. Deleting a missing state is not an error.
	Delete(ctx context.Context, fid uint64) error
	Close() error
}

// ScoreEntry 排行榜中的一条记录
type ScoreEntry struct {
	FID      uint64 `json:"fid"`
	Score    int    `json:"score"`
	GameOver bool   `json:"game_over"`
}

// Leaderboard is implemented by stores that can rank players.
type Leaderboard interface {
	TopScores(ctx context.Context, limit int) ([]ScoreEntry, error)
}

// Memory is the process-lifetime backend. Nothing is evicted.
type Memory struct {
	mu    sync.RWMutex
	games map[uint64]*structs.GameState
}

func NewMemory() *Memory {
	return &Memory{games: make(map[uint64]*structs.GameState)}
}

func (m *Memory) Get(ctx context.Context, fid uint64) (*structs.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.games[fid]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, fid uint64, state *structs.GameState) error {
	if state == nil {
		return errors.New("game state is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[fid] = state.Clone()
	return nil
}

func (m *Memory) Delete(ctx context.Context, fid uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, fid)
	return nil
}

// TopScores ranks stored games by score, ties by FID.
func (m *Memory) TopScores(ctx context.Context, limit int) ([]ScoreEntry, error) {
	m.mu.RLock()
	entries := make([]ScoreEntry, 0, len(m.games))
	for fid, state := range m.games {
		entries = append(entries, ScoreEntry{FID: fid, Score: state.Score, GameOver: state.GameOver})
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].FID < entries[j].FID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *Memory) Close() error {
	return nil
}

// KeyedMutex serializes work per key while letting different keys proceed.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uint64]*keyLock
}

type keyLock struct {
	sync.Mutex
	waiters int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uint64]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
// The entry is dropped once nobody holds or waits for it.
func (k *KeyedMutex) Lock(key uint64) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.waiters++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.waiters--
		if l.waiters == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size is used by tests.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
