// internal/database/results.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GameResult records how a finished game ended.
type GameResult struct {
	RoomName   string    `json:"roomName"`
	Winner     string    `json:"winner"`
	Players    []string  `json:"players"`
	TurnCount  int       `json:"turnCount"`
	FinishedAt time.Time `json:"finishedAt"`
}

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	id          BIGSERIAL PRIMARY KEY,
	room_name   TEXT        NOT NULL,
	winner      TEXT        NOT NULL,
	players     TEXT[]      NOT NULL,
	turn_count  INTEGER     NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`

// Store persists game results in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the results table if needed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create game_results: %w", err)
	}
	return nil
}

// StoreGameResult inserts one result.
func (s *Store) StoreGameResult(ctx context.Context, res GameResult) error {
	if res.FinishedAt.IsZero() {
		res.FinishedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_results (room_name, winner, players, turn_count, finished_at) VALUES ($1, $2, $3, $4, $5)`,
		res.RoomName, res.Winner, res.Players, res.TurnCount, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert game result for room %s: %w", res.RoomName, err)
	}
	return nil
}

// RecentResults returns the newest results first.
func (s *Store) RecentResults(ctx context.Context, limit int) ([]GameResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT room_name, winner, players, turn_count, finished_at FROM game_results ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query game results: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GameResult, error) {
		var r GameResult
		err := row.Scan(&r.RoomName, &r.Winner, &r.Players, &r.TurnCount, &r.FinishedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan game results: %w", err)
	}
	return results, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
