package app

import (
	"context"
	"time"

	"focusflow/internal/config"
	"focusflow/internal/state"
	"focusflow/internal/storage"
	logx "focusflow/pkg/logx"
)

// Offline is a session opened without the daemon, for one-shot CLI commands.
// Writes still reach a running daemon through the store's change feed.
type Offline struct {
	Config  *config.Config
	Session *state.Session
	store   storage.Store
}

func OpenOffline(ctx context.Context, cfgPath string, log logx.Logger) (*Offline, error) {
	cfgm := config.NewManager(cfgPath)
	cfgm.SetLogger(log)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(mapStorageConfig(cfg), log)
	if err != nil {
		return nil, err
	}
	sess := state.New(store, nil, log)
	if err := sess.Load(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return &Offline{Config: cfg, Session: sess, store: store}, nil
}

// Now is the wall clock in the configured reminder timezone.
func (o *Offline) Now() time.Time { return time.Now().In(o.Config.Location()) }

func (o *Offline) Close() error { return o.store.Close() }
