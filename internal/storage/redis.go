package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	logx "focusflow/pkg/logx"
)

const defaultRedisPrefix = "focusflow:"

// redisStore keeps each key as a redis string under prefix. Every write is
// announced on <prefix>changes as "<origin>|<key>" so other daemons sharing
// the server can refresh; a store ignores its own announcements.
type redisStore struct {
	rdb     *redis.Client
	prefix  string
	channel string
	origin  string
	log     logx.Logger

	mu     sync.Mutex
	closed bool

	subs listeners

	// subscribed is closed once Watch holds a live subscription.
	subscribed chan struct{}
	subOnce    sync.Once
}

func openRedis(cfg Config, log logx.Logger) (Store, error) {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return nil, errors.New("storage.redis.addr is required for redis driver")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return newRedisStore(rdb, cfg.Redis.Prefix, log), nil
}

func newRedisStore(rdb *redis.Client, prefix string, log logx.Logger) *redisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &redisStore{
		rdb:        rdb,
		prefix:     prefix,
		channel:    prefix + "changes",
		origin:     uuid.NewString(),
		log:        log,
		subscribed: make(chan struct{}),
	}
}

func (s *redisStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	vals, err := s.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = []byte(str)
		}
	}
	return out, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := s.rdb.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return err
	}
	s.announce(ctx, key)
	s.subs.emit(Change{Key: key, Value: clone(value)})
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	var keys []string
	it := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for it.Next(ctx) {
		keys = append(keys, it.Val())
	}
	if err := it.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	changes := make([]Change, 0, len(keys))
	for _, full := range keys {
		k := strings.TrimPrefix(full, s.prefix)
		s.announce(ctx, k)
		changes = append(changes, Change{Key: k, Deleted: true})
	}
	s.subs.emit(changes...)
	return nil
}

// announce is best effort; peers miss the change until their next write.
func (s *redisStore) announce(ctx context.Context, key string) {
	if err := s.rdb.Publish(ctx, s.channel, s.origin+"|"+key).Err(); err != nil {
		s.log.Warn("redis publish failed", logx.String("key", key), logx.Err(err))
	}
}

func (s *redisStore) OnChange(fn func(Change)) func() { return s.subs.add(fn) }

func (s *redisStore) Watch(ctx context.Context) error {
	ps := s.rdb.Subscribe(ctx, s.channel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}
	s.subOnce.Do(func() { close(s.subscribed) })
	s.log.Debug("redis watch subscribed", logx.String("channel", s.channel))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			origin, key, found := strings.Cut(msg.Payload, "|")
			if !found || origin == s.origin || key == "" {
				continue
			}
			s.refresh(ctx, key)
		}
	}
}

func (s *redisStore) refresh(ctx context.Context, key string) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		s.subs.emit(Change{Key: key, Deleted: true})
	case err != nil:
		s.log.Warn("redis refresh failed", logx.String("key", key), logx.Err(err))
	default:
		s.subs.emit(Change{Key: key, Value: v})
	}
}

func (s *redisStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *redisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.rdb.Close()
}
