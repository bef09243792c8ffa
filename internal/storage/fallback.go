package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// fallbackStore reads from a primary (usually remote) store and falls back to a
// local copy when the primary cannot be reached. Writes go to both.
type fallbackStore struct {
	primary   Store
	secondary Store
	logger    zerolog.Logger
}

// NewFallbackStore creates a store that tries primary first, then secondary.
// If primary is nil, only secondary is used.
func NewFallbackStore(primary, secondary Store, logger zerolog.Logger) Store {
	return &fallbackStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback-store").Logger(),
	}
}

// unsyncedSuffix names the local marker kept while the local copy of a key is
// newer than the primary's.
const unsyncedSuffix = ".unsynced"

func unsyncedKey(key string) string {
	return key + unsyncedSuffix
}

// Get attempts the primary store first, then falls back to the secondary. A
// local copy written while the primary was down wins and is pushed back to the
// primary.
func (s *fallbackStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.primary == nil {
		return s.secondary.Get(ctx, key)
	}

	if s.unsynced(ctx, key) {
		value, found, err := s.secondary.Get(ctx, key)
		if err != nil {
			return "", false, fmt.Errorf("failed to read unsynced local copy of %s: %w", key, err)
		}
		if found {
			s.resync(ctx, key, value)
			return value, true, nil
		}
	}

	value, found, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, found, nil
	}

	s.logger.Warn().
		Err(err).
		Str("key", key).
		Msg("failed to read from primary store, falling back to local copy")

	return s.secondary.Get(ctx, key)
}

// Set writes the local copy first, then the primary. When only the local copy
// is written the key is marked unsynced and the next Get pushes it back.
func (s *fallbackStore) Set(ctx context.Context, key, value string) error {
	secondaryErr := s.secondary.Set(ctx, key, value)
	if secondaryErr != nil {
		s.logger.Warn().Err(secondaryErr).Str("key", key).Msg("failed to write local copy")
	}
	if s.primary == nil {
		return secondaryErr
	}

	primaryErr := s.primary.Set(ctx, key, value)
	switch {
	case primaryErr != nil && secondaryErr != nil:
		return fmt.Errorf("failed to write %s to any store: %w", key, primaryErr)
	case primaryErr != nil:
		s.logger.Warn().Err(primaryErr).Str("key", key).Msg("failed to write to primary store, keeping local copy until it recovers")
		if err := s.secondary.Set(ctx, unsyncedKey(key), "true"); err != nil {
			return fmt.Errorf("failed to write %s to primary store: %w", key, primaryErr)
		}
		return nil
	}

	// The primary now holds the newest value; a stale marker would let an
	// older local copy overwrite it.
	if secondaryErr != nil || s.unsynced(ctx, key) {
		if err := s.secondary.Set(ctx, unsyncedKey(key), ""); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to clear unsynced marker")
			if secondaryErr != nil {
				return fmt.Errorf("failed to write local copy of %s: %w", key, secondaryErr)
			}
		}
	}
	return nil
}

func (s *fallbackStore) unsynced(ctx context.Context, key string) bool {
	marker, _, err := s.secondary.Get(ctx, unsyncedKey(key))
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to read unsynced marker")
		return false
	}
	return marker == "true"
}

// resync pushes the local copy to the primary and clears the marker once the
// primary accepts it.
func (s *fallbackStore) resync(ctx context.Context, key, value string) {
	if err := s.primary.Set(ctx, key, value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("primary store still unavailable, serving local copy")
		return
	}
	if err := s.secondary.Set(ctx, unsyncedKey(key), ""); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to clear unsynced marker")
		return
	}
	s.logger.Info().Str("key", key).Msg("pushed local copy back to primary store")
}
