// Package postgres stores world documents in PostgreSQL, one row per world.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwebster45206/world-editor/internal/storage"
	"github.com/jwebster45206/world-editor/pkg/world"
)

var _ storage.Storage = (*Store)(nil)

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to dsn and makes sure the worlds table exists.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	s := &Store{pool: pool, logger: logger}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema is idempotent. The document column is JSON rather than JSONB
// so record fields keep their order across a save and load.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS worlds (
    name       TEXT PRIMARY KEY,
    document   JSON NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) ListWorlds(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM worlds ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing worlds: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing worlds: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *Store) LoadWorld(ctx context.Context, name string) (*world.Document, error) {
	name, err := storage.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.pool.QueryRow(ctx, `SELECT document::text FROM worlds WHERE name = $1`, name).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrWorldNotFound, name)
		}
		return nil, fmt.Errorf("getting world: %w", err)
	}
	return world.Decode(data)
}

func (s *Store) SaveWorld(ctx context.Context, name string, doc *world.Document) error {
	name, err := storage.NormalizeName(name)
	if err != nil {
		return err
	}
	data, err := doc.Encode()
	if err != nil {
		return err
	}

	query := `
INSERT INTO worlds (name, document, updated_at)
VALUES ($1, $2::json, now())
ON CONFLICT (name) DO UPDATE SET
    document = EXCLUDED.document,
    updated_at = now()
`
	if _, err := s.pool.Exec(ctx, query, name, string(data)); err != nil {
		return fmt.Errorf("upserting world: %w", err)
	}
	s.logger.Debug("World upserted", "world", name, "bytes", len(data))
	return nil
}
