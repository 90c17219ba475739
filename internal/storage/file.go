package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"focusflow/internal/fswatch"
	logx "focusflow/pkg/logx"
)

// fileStore keeps every key in one JSON document:
//
//	{"focusflow_schedule": [...], "focusflow_settings": {...}}
//
// Values must be JSON. Writes replace the file atomically (tmp + rename), and
// Watch reloads it when another process does the same.
type fileStore struct {
	path string
	log  logx.Logger

	mu     sync.Mutex
	data   map[string][]byte
	closed bool

	subs listeners
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	log.Debug("file store opened", logx.String("path", path), logx.Int("keys", len(data)))
	return &fileStore{path: path, log: log, data: data}, nil
}

// readDocument loads the document; a missing or empty file is an empty store.
func readDocument(path string) (map[string][]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return map[string][]byte{}, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	out := make(map[string][]byte, len(doc))
	for k, v := range doc {
		c, err := compact(v)
		if err != nil {
			return nil, fmt.Errorf("decode %s: key %q: %w", path, k, err)
		}
		out[k] = c
	}
	return out, nil
}

// compact normalizes whitespace so values compare equal after a round trip
// through the indented document.
func compact(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *fileStore) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return pick(s.data, keys), nil
}

func (s *fileStore) Set(_ context.Context, key string, value []byte) error {
	value, err := compact(value)
	if err != nil {
		return fmt.Errorf("file store: value for %q is not JSON: %w", key, err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	next := make(map[string][]byte, len(s.data)+1)
	for k, v := range s.data {
		next[k] = v
	}
	next[key] = clone(value)
	if err := s.writeLocked(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.data = next
	s.mu.Unlock()

	s.subs.emit(Change{Key: key, Value: clone(value)})
	return nil
}

func (s *fileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prev := s.data
	if err := s.writeLocked(map[string][]byte{}); err != nil {
		s.mu.Unlock()
		return err
	}
	s.data = map[string][]byte{}
	s.mu.Unlock()

	s.subs.emit(diff(prev, nil)...)
	return nil
}

func (s *fileStore) writeLocked(data map[string][]byte) error {
	doc := make(map[string]json.RawMessage, len(data))
	for k, v := range data {
		doc[k] = json.RawMessage(v)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) OnChange(fn func(Change)) func() { return s.subs.add(fn) }

func (s *fileStore) Watch(ctx context.Context) error {
	return fswatch.Watch(ctx, s.path, fswatch.Options{Log: s.log}, s.reload)
}

// reload diffs the file against the cache. Our own writes leave nothing to
// report because the cache already holds them.
func (s *fileStore) reload() {
	next, err := readDocument(s.path)
	if err != nil {
		// Half-written files from other tools fail to decode; the next event retries.
		s.log.Warn("file store reload failed", logx.Err(err))
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	changes := diff(s.data, next)
	s.data = next
	s.mu.Unlock()

	if len(changes) > 0 {
		s.log.Debug("file store changed externally", logx.Int("changes", len(changes)))
	}
	s.subs.emit(changes...)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
