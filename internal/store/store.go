// Package store persists admin-view game snapshots to postgres so a
// restarted server can offer them back for inspection or recovery. The
// engine never reads from here during normal play.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/config"
)

// ErrNotFound is returned when no snapshot exists for a game id.
var ErrNotFound = errors.New("store: game not found")

// SnapshotStore saves and loads serialized game snapshots.
type SnapshotStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects to postgres and ensures the snapshot table exists.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*SnapshotStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS game_snapshots (
			game_id    TEXT PRIMARY KEY,
			snapshot   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := pool.Exec(connectCtx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure snapshot table: %w", err)
	}

	logger.Info("snapshot store initialized")
	return &SnapshotStore{pool: pool, logger: logger}, nil
}

// Save upserts the snapshot for a game.
func (s *SnapshotStore) Save(ctx context.Context, gameID string, snapshot json.RawMessage) error {
	const q = `
		INSERT INTO game_snapshots (game_id, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (game_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`
	if _, err := s.pool.Exec(ctx, q, gameID, snapshot); err != nil {
		return fmt.Errorf("save snapshot for game %s: %w", gameID, err)
	}
	return nil
}

// Load returns the latest snapshot for a game.
func (s *SnapshotStore) Load(ctx context.Context, gameID string) (json.RawMessage, error) {
	const q = `SELECT snapshot FROM game_snapshots WHERE game_id = $1`
	var snapshot json.RawMessage
	err := s.pool.QueryRow(ctx, q, gameID).Scan(&snapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot for game %s: %w", gameID, err)
	}
	return snapshot, nil
}

// Close releases the connection pool.
func (s *SnapshotStore) Close() {
	s.pool.Close()
}
