package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"focusflow/internal/eventbus"
	logx "focusflow/pkg/logx"
)

type fakeSink struct {
	mu    sync.Mutex
	got   []Notification
	fails int // fail this many calls first
	calls int
	gate  chan struct{}
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Emit(ctx context.Context, n Notification) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return errors.New("transient")
	}
	f.got = append(f.got, n)
	return nil
}

func (f *fakeSink) received() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.got...)
}

func fastConfig() Config {
	return Config{
		Enabled:       true,
		Workers:       1,
		QueueSize:     8,
		RatePerSec:    100,
		RetryMax:      2,
		RetryBase:     time.Millisecond,
		RetryMaxDelay: 2 * time.Millisecond,
	}
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event, typ string) eventbus.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Type == typ {
				return e
			}
		case <-timeout:
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestNotifyDeliversToEverySink(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	a, b := &fakeSink{}, &fakeSink{}
	s := New(fastConfig(), logx.Nop(), bus, a, b)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	n := Notification{Kind: KindTaskStart, Title: "Task Started", Message: "Gym", BlockID: "g"}
	if err := s.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitEvent(t, events, eventbus.NotifyQueued)
	waitEvent(t, events, eventbus.NotifySent)
	waitEvent(t, events, eventbus.NotifySent)

	for _, sink := range []*fakeSink{a, b} {
		got := sink.received()
		if len(got) != 1 || got[0] != n {
			t.Fatalf("sink received %+v", got)
		}
	}
	if h := s.History(); len(h) != 2 || h[0].Error != "" {
		t.Fatalf("history = %+v", h)
	}
}

func TestNotifyRetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{fails: 2}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	s := New(fastConfig(), logx.Nop(), bus, sink)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	_ = s.Notify(context.Background(), Notification{Title: "x"})
	waitEvent(t, events, eventbus.NotifySent)
	if len(sink.received()) != 1 {
		t.Fatalf("not delivered after retries")
	}
}

func TestNotifyGivesUp(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{fails: 10}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	s := New(fastConfig(), logx.Nop(), bus, sink)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	_ = s.Notify(context.Background(), Notification{Title: "x", BlockID: "b"})
	e := waitEvent(t, events, eventbus.NotifyFailed)
	if ev, ok := e.Data.(Event); !ok || ev.BlockID != "b" || ev.Error == "" {
		t.Fatalf("failed event = %#v", e.Data)
	}
	if h := s.History(); len(h) != 1 || h[0].Error == "" {
		t.Fatalf("history = %+v", h)
	}
}

func TestNotifyStates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	off := fastConfig()
	off.Enabled = false
	disabled := New(off, logx.Nop(), nil, &fakeSink{})
	disabled.Start(ctx)
	if err := disabled.Notify(ctx, Notification{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled Notify = %v", err)
	}

	idle := New(fastConfig(), logx.Nop(), nil, &fakeSink{})
	if err := idle.Notify(ctx, Notification{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("not started Notify = %v", err)
	}

	idle.Start(ctx)
	idle.Stop(ctx)
	if err := idle.Notify(ctx, Notification{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("stopped Notify = %v", err)
	}
}

func TestNotifyQueueFull(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{gate: make(chan struct{})}
	cfg := fastConfig()
	cfg.QueueSize = 1
	s := New(cfg, logx.Nop(), nil, sink)
	s.Start(context.Background())
	defer func() {
		close(sink.gate)
		s.Stop(context.Background())
	}()

	ctx := context.Background()
	var full bool
	// One item sits in the worker, one in the queue; the rest overflow.
	for i := 0; i < 5; i++ {
		if err := s.Notify(ctx, Notification{Title: "x"}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	if !full {
		t.Fatalf("expected ErrQueueFull")
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 6; attempt++ {
		d := retryDelay(cfg, attempt)
		if d <= 0 || d > time.Second {
			t.Fatalf("attempt %d delay %v out of bounds", attempt, d)
		}
	}
	if d := retryDelay(cfg, 1); d < 70*time.Millisecond || d > 130*time.Millisecond {
		t.Fatalf("first delay %v", d)
	}
}
