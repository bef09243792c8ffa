package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Schema creates the key/value table used by the Postgres store.
const Schema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        VARCHAR(255) PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

// postgresStore keeps values in the kv_store table.
type postgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a Postgres-backed store. The schema must exist;
// see Schema and database.Migrate.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) Store {
	return &postgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "postgres-store").Logger(),
	}
}

// Get selects the value for key.
func (s *postgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}

	query := `
		SELECT value
		FROM kv_store
		WHERE key = $1
	`

	var value string
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug().Str("key", key).Msg("no stored value")
			return "", false, nil
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to query stored value")
		return "", false, fmt.Errorf("failed to query stored value: %w", err)
	}

	return value, true, nil
}

// Set upserts the value for key.
func (s *postgresStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to upsert stored value")
		return fmt.Errorf("failed to upsert stored value: %w", err)
	}

	return nil
}
