package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrClosed        = errors.New("storage closed")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Config configures storage.
//
// Driver values:
//   - "memory": process-local map, nothing persisted
//   - "file": one JSON document, watched with fsnotify
//   - "sqlite": SQLite database file (kv table)
//   - "redis": redis keys under Redis.Prefix, changes over pub/sub
type Config struct {
	Driver string
	Path   string

	BusyTimeout  time.Duration // sqlite
	PollInterval time.Duration // sqlite change polling; default 2s

	Redis RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // default "focusflow:"
}

// Change describes one key that was written or removed.
type Change struct {
	Key     string
	Value   []byte
	Deleted bool
}

// Store is the persistence API used by the session.
type Store interface {
	// Get returns the values of the requested keys; absent keys are omitted.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error

	// OnChange registers fn for every committed change, local or external.
	OnChange(fn func(Change)) (unsubscribe func())

	// Watch blocks until ctx is done, delivering changes made outside this
	// process to OnChange subscribers.
	Watch(ctx context.Context) error

	Close() error
}
