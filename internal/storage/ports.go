package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage closed")

// Ports for persistence adapters.
type (
	// Reader loads the blob stored under key. A missing key is not an error:
	// it yields an empty string.
	Reader interface {
		Get(ctx context.Context, key string) (string, error)
	}

	// Writer replaces the blob stored under key.
	Writer interface {
		Set(ctx context.Context, key, value string) error
	}

	// KV is the key-value persistence surface every component flushes to.
	KV interface {
		Reader
		Writer
		// Ping reports whether the backend is reachable.
		Ping(ctx context.Context) error
		Close() error
	}
)
