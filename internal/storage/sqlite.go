package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	logx "focusflow/pkg/logx"
)

const (
	defaultPollInterval = 2 * time.Second

	sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`
)

// sqliteStore keeps keys in a kv table. External writers are noticed through
// PRAGMA data_version, which changes only for commits made on other
// connections.
type sqliteStore struct {
	db   *sql.DB
	log  logx.Logger
	poll time.Duration

	mu      sync.Mutex
	known   map[string][]byte // last snapshot delivered to subscribers
	version int64
	closed  bool

	subs listeners
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps data_version meaningful and avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	s := &sqliteStore{db: db, log: log, poll: poll}
	if s.known, err = s.loadAll(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if s.version, err = s.dataVersion(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		var v []byte
		err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, k).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (s *sqliteStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err == nil {
		s.known[key] = clone(value)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.subs.emit(Change{Key: key, Value: clone(value)})
	return nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prev := s.known
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv`)
	if err == nil {
		s.known = map[string][]byte{}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.subs.emit(diff(prev, nil)...)
	return nil
}

func (s *sqliteStore) OnChange(fn func(Change)) func() { return s.subs.add(fn) }

func (s *sqliteStore) Watch(ctx context.Context) error {
	t := time.NewTicker(s.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := s.poll1(ctx); err != nil {
				if ctx.Err() != nil || errors.Is(err, ErrClosed) {
					return nil
				}
				return err
			}
		}
	}
}

// poll1 reloads the table when another connection has committed since the
// last look.
func (s *sqliteStore) poll1(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	v, err := s.dataVersion(ctx)
	if err != nil || v == s.version {
		s.mu.Unlock()
		return err
	}
	next, err := s.loadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	changes := diff(s.known, next)
	s.known = next
	s.version = v
	s.mu.Unlock()

	if len(changes) > 0 {
		s.log.Debug("sqlite store changed externally", logx.Int("changes", len(changes)))
	}
	s.subs.emit(changes...)
	return nil
}

func (s *sqliteStore) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v)
	return v, err
}

func (s *sqliteStore) loadAll(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]byte{}
	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *sqliteStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}
