package storage

import (
	"bytes"
	"sort"
	"sync"
	"sync/atomic"
)

// listeners is the OnChange registry shared by all drivers.
type listeners struct {
	mu   sync.RWMutex
	seq  atomic.Uint64
	subs map[uint64]func(Change)
}

func (l *listeners) add(fn func(Change)) func() {
	if fn == nil {
		return func() {}
	}
	id := l.seq.Add(1)
	l.mu.Lock()
	if l.subs == nil {
		l.subs = map[uint64]func(Change){}
	}
	l.subs[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

// emit calls subscribers outside the lock so a callback may read the store.
func (l *listeners) emit(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	l.mu.RLock()
	fns := make([]func(Change), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()
	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// diff reports keys whose value differs between two snapshots, sorted by key.
func diff(prev, next map[string][]byte) []Change {
	var out []Change
	for k, v := range next {
		if old, ok := prev[k]; !ok || !bytes.Equal(old, v) {
			out = append(out, Change{Key: k, Value: clone(v)})
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			out = append(out, Change{Key: k, Deleted: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func pick(all map[string][]byte, keys []string) map[string][]byte {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = clone(v)
		}
	}
	return out
}
