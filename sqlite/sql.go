package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hoshinonyaruko/snake-frame/store"
	"github.com/hoshinonyaruko/snake-frame/structs"
	_ "github.com/mattn/go-sqlite3"
)

const createGamesTableSQL = `
CREATE TABLE IF NOT EXISTS Games (
    FID INTEGER PRIMARY KEY,
    State TEXT NOT NULL,
    Score INTEGER NOT NULL,
    GameOver INTEGER NOT NULL,
    UpdatedAt TIMESTAMP
);
`

const createScoreIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_games_score ON Games (Score DESC);
`

// Store 用 sqlite 持久化每个玩家的游戏
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)
var _ store.Leaderboard = (*Store)(nil)

// Open 打开或创建数据库并建表
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: connect %s: %w", path, err)
	}

	for _, stmt := range []string{createGamesTableSQL, createScoreIndexSQL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: executing %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, fid uint64) (*structs.GameState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT State FROM Games WHERE FID = ?", fid).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load game %d: %w", fid, err)
	}

	var state structs.GameState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("sqlite: decode game %d: %w", fid, err)
	}
	return &state, nil
}

func (s *Store) Put(ctx context.Context, fid uint64, state *structs.GameState) error {
	if state == nil {
		return errors.New("game state is nil")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	// 开启事务
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "INSERT OR REPLACE INTO Games (FID, State, Score, GameOver, UpdatedAt) VALUES (?, ?, ?, ?, ?)",
		fid, string(data), state.Score, state.GameOver, time.Now().UTC())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: save game %d: %w", fid, err)
	}
	// 提交事务
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, fid uint64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM Games WHERE FID = ?", fid); err != nil {
		return fmt.Errorf("sqlite: delete game %d: %w", fid, err)
	}
	return nil
}

// TopScores 按分数从高到低
func (s *Store) TopScores(ctx context.Context, limit int) ([]store.ScoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT FID, Score, GameOver FROM Games ORDER BY Score DESC, FID ASC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []store.ScoreEntry{}
	for rows.Next() {
		var e store.ScoreEntry
		if err := rows.Scan(&e.FID, &e.Score, &e.GameOver); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
