// Package storage provides durable key/value string storage backends for the
// inventory snapshot.
package storage

import (
	"context"
	"errors"
)

// Store defines durable key/value string storage that survives restarts.
type Store interface {
	// Get returns the value under key. found is false when the key was never written.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set overwrites the value under key.
	Set(ctx context.Context, key, value string) error
}

// ErrInvalidKey is returned for keys that cannot be stored.
var ErrInvalidKey = errors.New("invalid storage key")
