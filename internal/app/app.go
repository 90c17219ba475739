// Package app wires the daemon together: configuration, storage, the session,
// reminders and the optional HTTP and Telegram surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"focusflow/internal/badge"
	"focusflow/internal/config"
	"focusflow/internal/eventbus"
	"focusflow/internal/httpapi"
	"focusflow/internal/notifier"
	"focusflow/internal/reminder"
	rtsup "focusflow/internal/runtime/supervisor"
	"focusflow/internal/state"
	"focusflow/internal/storage"
	"focusflow/internal/transport/telegram"
	logx "focusflow/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store  storage.Store
	sess   *state.Session
	detach func()

	notif *notifier.Service
	badge *badge.Memory
	rem   *reminder.Scheduler
	http  *httpapi.Server
	tg    *telegram.Bot
	sd    *sdNotifier
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validate(cfg) })
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logSvc, root := logx.New(mapLoggingConfig(cfg))
	log := root.With(logx.String("comp", "app"))
	cfgm.SetLogger(root.With(logx.String("comp", "config")))

	bus := eventbus.New()
	store, err := storage.Open(mapStorageConfig(cfg), root)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	sess := state.New(store, bus, root)

	a := &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		bus:   bus,
		store: store,
		sess:  sess,
		badge: &badge.Memory{},
		sd:    newSDNotifier(root.With(logx.String("comp", "systemd"))),
	}

	sinks := []notifier.Sink{notifier.LogSink{Log: root.With(logx.String("comp", "notify"))}}
	loc := cfg.Location()
	if cfg.Telegram.Enabled {
		cmds := telegram.NewCommands(sess, func() time.Time { return time.Now().In(loc) })
		tg, err := telegram.New(mapTelegramConfig(cfg), cmds, root)
		if err != nil {
			_ = store.Close()
			_ = logSvc.Close()
			return nil, err
		}
		a.tg = tg
		sinks = append(sinks, tg.Sink())
	}
	a.notif = notifier.New(mapNotifierConfig(cfg), root.With(logx.String("comp", "notifier")), bus, sinks...)

	badges := badge.Multi{a.badge, &badge.Log{Log: root.With(logx.String("comp", "badge"))}}
	a.rem, err = reminder.New(mapReminderConfig(cfg), sess, a.notif, badges, root, bus)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	a.rem.OnTick(func(reminder.Plan) { a.sd.Watchdog() })

	if cfg.HTTP.Enabled {
		a.http = httpapi.New(mapHTTPConfig(cfg), httpapi.Deps{Session: sess, Badge: a.badge, History: a.notif}, root)
	}
	return a, nil
}

// Session exposes the state container, mainly for tests.
func (a *App) Session() *state.Session { return a.sess }

// Done is closed when the app supervisor context is cancelled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error seen by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	run := a.sup.Context()

	if err := a.sess.Load(ctx); err != nil {
		return err
	}
	a.detach = a.sess.Attach()
	a.sup.GoRestart("store.watch", a.store.Watch, rtsup.WithBackoff(time.Second, 30*time.Second))

	a.notif.Start(run)
	if err := a.rem.Start(); err != nil {
		return err
	}
	if a.http != nil {
		a.sup.Go("http", a.http.Run)
	}
	if a.tg != nil {
		a.sup.Go("telegram", a.tg.Run)
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return nil
			case next, ok := <-sub:
				if !ok {
					return nil
				}
				next = latest(sub, next)
				a.applyConfig(c, last, next)
				last = next
			}
		}
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	a.sd.Ready()
	a.log.Info("app started", logx.Int("blocks", len(a.sess.Schedule())))
	return nil
}

// latest drains queued configs so a burst of saves is applied once.
func latest(sub <-chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case newer := <-sub:
			if newer != nil {
				cur = newer
			}
		default:
			return cur
		}
	}
}

func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	changed, restart, attrs := config.SummarizeChange(prev, next)
	if len(changed) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if len(restart) > 0 {
		a.log.Warn("config sections changed; restart required for them to take effect",
			logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(mapLoggingConfig(next))

	ncfg := mapNotifierConfig(next)
	wasEnabled := a.notif.Enabled()
	a.notif.Apply(ncfg)
	switch {
	case wasEnabled && !ncfg.Enabled:
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.notif.Stop(stopCtx)
		cancel()
		a.log.Info("notifier disabled via config")
	case !wasEnabled && ncfg.Enabled:
		a.notif.Start(ctx)
		a.log.Info("notifier enabled via config")
	}

	if err := a.rem.Apply(mapReminderConfig(next)); err != nil {
		a.log.Warn("invalid reminder config; keeping previous", logx.Err(err))
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Data: changed})
	fields := append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.sd.Stopping()
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel first so background loops start unwinding.
	a.sup.Cancel()

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		c, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		start := time.Now()
		if err := fn(c); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("reminder", 2*time.Second, func(c context.Context) error { a.rem.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("supervisor", 5*time.Second, func(c context.Context) error {
		err := a.sup.Wait(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	step("storage", time.Second, func(context.Context) error {
		if a.detach != nil {
			a.detach()
		}
		return a.store.Close()
	})

	a.log.Info("stopped")
	_ = a.logs.Close()
	return errors.Join(errs...)
}
