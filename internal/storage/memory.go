package storage

import (
	"context"
	"sync"
)

// Memory is a process-local Store.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
	subs   listeners
}

func NewMemory() *Memory { return &Memory{data: map[string][]byte{}} }

func (m *Memory) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return pick(m.data, keys), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.data[key] = clone(value)
	m.mu.Unlock()
	m.subs.emit(Change{Key: key, Value: clone(value)})
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	prev := m.data
	m.data = map[string][]byte{}
	m.mu.Unlock()
	m.subs.emit(diff(prev, nil)...)
	return nil
}

func (m *Memory) OnChange(fn func(Change)) func() { return m.subs.add(fn) }

// Watch has nothing external to observe.
func (m *Memory) Watch(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
