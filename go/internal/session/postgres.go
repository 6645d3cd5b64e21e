package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionSchemaSQL = `
CREATE TABLE IF NOT EXISTS screen_sessions (
    screen      TEXT NOT NULL,
    key         TEXT NOT NULL,
    value       TEXT NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (screen, key)
)`

// PostgresStore keeps session keys in the screen_sessions table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	screen string
}

// NewPostgresStore opens a pool on dsn and creates the table if absent.
func NewPostgresStore(ctx context.Context, dsn, screen string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, sessionSchemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}
	return &PostgresStore{pool: pool, screen: screen}, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO screen_sessions (screen, key, value, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (screen, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
    `, s.screen, key, value)
	if err != nil {
		return fmt.Errorf("failed to store session key %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM screen_sessions WHERE screen = $1 AND key = $2`,
		s.screen, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM screen_sessions WHERE screen = $1 AND key = $2`,
		s.screen, key,
	); err != nil {
		return fmt.Errorf("failed to remove session key %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
