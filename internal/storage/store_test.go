package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	logx "focusflow/pkg/logx"
)

type recorder struct {
	mu      sync.Mutex
	changes []Change
	signal  chan struct{}
}

func newRecorder() *recorder { return &recorder{signal: make(chan struct{}, 64)} }

func (r *recorder) record(c Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *recorder) snapshot() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

// waitFor blocks until a change matching fn arrives.
func (r *recorder) waitFor(t *testing.T, fn func(Change) bool) Change {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		for _, c := range r.snapshot() {
			if fn(c) {
				return c
			}
		}
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("change not observed; got %+v", r.snapshot())
		}
	}
}

func openDrivers(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	file, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "focusflow.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	sqlite, err := Open(Config{Driver: "sqlite", Path: filepath.Join(dir, "focusflow.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rds, err := Open(Config{Driver: "redis", Redis: RedisConfig{Addr: mr.Addr()}}, logx.Nop())
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}

	stores := map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": sqlite,
		"redis":  rds,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			rec := newRecorder()
			unsub := st.OnChange(rec.record)
			defer unsub()

			got, err := st.Get(ctx, "focusflow_schedule")
			if err != nil || len(got) != 0 {
				t.Fatalf("empty Get = %v, %v", got, err)
			}

			if err := st.Set(ctx, "focusflow_schedule", []byte(`[{"id":"a"}]`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := st.Set(ctx, "focusflow_settings", []byte(`{"notifications":false}`)); err != nil {
				t.Fatalf("Set: %v", err)
			}

			got, err = st.Get(ctx, "focusflow_schedule", "focusflow_settings", "missing")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("Get returned %d keys, want 2: %v", len(got), got)
			}
			if string(got["focusflow_schedule"]) != `[{"id":"a"}]` {
				t.Fatalf("schedule = %s", got["focusflow_schedule"])
			}
			if _, ok := got["missing"]; ok {
				t.Fatalf("absent key returned")
			}

			changes := rec.snapshot()
			if len(changes) != 2 || changes[0].Key != "focusflow_schedule" || changes[0].Deleted {
				t.Fatalf("changes after Set = %+v", changes)
			}

			if err := st.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			got, _ = st.Get(ctx, "focusflow_schedule", "focusflow_settings")
			if len(got) != 0 {
				t.Fatalf("Get after Clear = %v", got)
			}
			deleted := 0
			for _, c := range rec.snapshot() {
				if c.Deleted {
					deleted++
				}
			}
			if deleted != 2 {
				t.Fatalf("deleted changes = %d, want 2", deleted)
			}
		})
	}
}

func TestStoreUnsubscribe(t *testing.T) {
	t.Parallel()
	st := NewMemory()
	rec := newRecorder()
	unsub := st.OnChange(rec.record)
	unsub()
	unsub()
	_ = st.Set(context.Background(), "k", []byte(`1`))
	if n := len(rec.snapshot()); n != 0 {
		t.Fatalf("got %d changes after unsubscribe", n)
	}
}

func TestStoreClosed(t *testing.T) {
	t.Parallel()
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			if err := st.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if err := st.Set(context.Background(), "k", []byte(`1`)); !errors.Is(err, ErrClosed) {
				t.Fatalf("Set after Close = %v", err)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Open = %v", err)
	}
}

func TestFileStoreRejectsNonJSON(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "d.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if err := st.Set(context.Background(), "k", []byte("not json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFileStoreReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "d.json")
	ctx := context.Background()
	a, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := a.Set(ctx, "k", []byte(`{ "x" : 1 }`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = a.Close()

	b, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	got, _ := b.Get(ctx, "k")
	if string(got["k"]) != `{"x":1}` {
		t.Fatalf("reopened value = %s", got["k"])
	}
}

func watchInBackground(t *testing.T, st Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = st.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestFileStoreWatchSeesOtherWriter(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "shared.json")
	ctx := context.Background()

	reader, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer reader.Close()
	writer, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer writer.Close()

	rec := newRecorder()
	defer reader.OnChange(rec.record)()
	watchInBackground(t, reader)

	// Writes arrive faster than the debounce; the watcher must still flush
	// within its max wait instead of deferring forever.
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(100 * time.Millisecond):
				_ = writer.Set(ctx, "focusflow_settings", []byte(`{"darkMode":true}`))
			}
		}
	}()
	c := rec.waitFor(t, func(c Change) bool { return c.Key == "focusflow_settings" })
	close(stop)
	if string(c.Value) != `{"darkMode":true}` {
		t.Fatalf("value = %s", c.Value)
	}
}

func TestSQLiteStoreWatchSeesOtherConnection(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	reader, err := Open(Config{Driver: "sqlite", Path: path, PollInterval: 20 * time.Millisecond}, logx.Nop())
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer reader.Close()
	writer, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer writer.Close()

	rec := newRecorder()
	defer reader.OnChange(rec.record)()
	watchInBackground(t, reader)

	if err := writer.Set(ctx, "focusflow_schedule", []byte(`[]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	rec.waitFor(t, func(c Change) bool { return c.Key == "focusflow_schedule" && !c.Deleted })

	if err := writer.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	rec.waitFor(t, func(c Change) bool { return c.Key == "focusflow_schedule" && c.Deleted })
}

func TestRedisStoreWatchIgnoresOwnWrites(t *testing.T) {
	t.Parallel()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	ctx := context.Background()

	reader := newRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "", logx.Nop())
	defer reader.Close()
	writer := newRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "", logx.Nop())
	defer writer.Close()

	rec := newRecorder()
	defer reader.OnChange(rec.record)()
	watchInBackground(t, reader)

	select {
	case <-reader.subscribed:
	case <-time.After(5 * time.Second):
		t.Fatalf("reader never subscribed")
	}

	if err := reader.Set(ctx, "own", []byte(`1`)); err != nil {
		t.Fatalf("Set own: %v", err)
	}
	if err := writer.Set(ctx, "focusflow_schedule", []byte(`[1]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c := rec.waitFor(t, func(c Change) bool { return c.Key == "focusflow_schedule" })
	if string(c.Value) != `[1]` {
		t.Fatalf("value = %s", c.Value)
	}
	own := 0
	for _, c := range rec.snapshot() {
		if c.Key == "own" {
			own++
		}
	}
	if own != 1 {
		t.Fatalf("own write delivered %d times, want 1 (local only)", own)
	}

	if err := writer.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	rec.waitFor(t, func(c Change) bool { return c.Key == "own" && c.Deleted })
	if got, _ := mr.Get("focusflow:focusflow_schedule"); got != "" {
		t.Fatalf("key survived Clear: %q", got)
	}
}
