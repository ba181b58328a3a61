package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hoshinonyaruko/snake-frame/store"
	"github.com/hoshinonyaruko/snake-frame/structs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createGamesTableSQL = `
CREATE TABLE IF NOT EXISTS games (
	fid BIGINT PRIMARY KEY,
	state JSONB NOT NULL,
	score INTEGER NOT NULL,
	game_over BOOLEAN NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_games_score ON games (score DESC);
`

// Store keeps game states in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)
var _ store.Leaderboard = (*Store)(nil)

// Open connects to connStr and creates the games table when missing.
// The caller is responsible for calling Close().
func Open(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	var username, database string
	if err := pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: query database: %w", err)
	}
	log.Info("connected to postgres", "database", database, "user", username)

	if _, err := pool.Exec(ctx, createGamesTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create tables: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Get(ctx context.Context, fid uint64) (*structs.GameState, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT state FROM games WHERE fid = $1", int64(fid)).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load game %d: %w", fid, err)
	}

	var state structs.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("postgres: decode game %d: %w", fid, err)
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

	q := `
	INSERT INTO games (fid, state, score, game_over, updated_at) VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (fid) DO UPDATE SET state = $2, score = $3, game_over = $4, updated_at = now();
	`
	if _, err := s.pool.Exec(ctx, q, int64(fid), data, state.Score, state.GameOver); err != nil {
		return fmt.Errorf("postgres: save game %d: %w", fid, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, fid uint64) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM games WHERE fid = $1", int64(fid)); err != nil {
		return fmt.Errorf("postgres: delete game %d: %w", fid, err)
	}
	return nil
}

func (s *Store) TopScores(ctx context.Context, limit int) ([]store.ScoreEntry, error) {
	rows, err := s.pool.Query(ctx, "SELECT fid, score, game_over FROM games ORDER BY score DESC, fid ASC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query scores: %w", err)
	}
	defer rows.Close()

	entries := []store.ScoreEntry{}
	for rows.Next() {
		var fid int64
		var e store.ScoreEntry
		if err := rows.Scan(&fid, &e.Score, &e.GameOver); err != nil {
			return nil, fmt.Errorf("postgres: scan score: %w", err)
		}
		e.FID = uint64(fid)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
