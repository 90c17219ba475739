package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/robfig/cron/v3"

	"focusflow/internal/badge"
	"focusflow/internal/eventbus"
	"focusflow/internal/notifier"
	"focusflow/internal/schedule"
	"focusflow/internal/state"
	logx "focusflow/pkg/logx"
)

const (
	DefaultSpec      = "@every 1m"
	defaultDedupSize = 256
)

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Config struct {
	// Spec is the cron expression that drives ticks.
	Spec string
	// DedupWindow > 0 suppresses a repeated kind+block notification inside the window.
	DedupWindow time.Duration
	DedupSize   int
	Location    *time.Location
}

// Source provides the schedule and settings read at each tick.
type Source interface {
	Snapshot() ([]schedule.TimeBlock, state.Settings)
}

// Notifier accepts notifications without blocking.
type Notifier interface {
	Notify(ctx context.Context, n notifier.Notification) error
}

// Scheduler owns the periodic tick.
type Scheduler struct {
	src   Source
	notes Notifier
	badge badge.Sink
	bus   eventbus.Bus
	log   logx.Logger

	mu      sync.Mutex
	cfg     Config
	c       *cron.Cron
	dedup   *expirable.LRU[string, struct{}]
	onTick  []func(Plan)
	lastRun time.Time
}

// ValidateSpec reports whether spec parses as a tick schedule.
func ValidateSpec(spec string) error {
	if _, err := parser.Parse(normalizeSpec(spec)); err != nil {
		return fmt.Errorf("reminder spec %q: %w", spec, err)
	}
	return nil
}

func normalizeSpec(spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultSpec
	}
	return spec
}

func New(cfg Config, src Source, notes Notifier, b badge.Sink, log logx.Logger, bus eventbus.Bus) (*Scheduler, error) {
	if src == nil || notes == nil {
		return nil, errors.New("reminder: source and notifier are required")
	}
	if err := ValidateSpec(cfg.Spec); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	if b == nil {
		b = badge.Multi{}
	}
	s := &Scheduler{src: src, notes: notes, badge: b, bus: bus, log: log.With(logx.String("comp", "reminder"))}
	s.applyLocked(cfg)
	return s, nil
}

// OnTick registers a hook run after every tick (the systemd watchdog ping).
func (s *Scheduler) OnTick(fn func(Plan)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onTick = append(s.onTick, fn)
	s.mu.Unlock()
}

func (s *Scheduler) applyLocked(cfg Config) {
	cfg.Spec = normalizeSpec(cfg.Spec)
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.DedupSize <= 0 {
		cfg.DedupSize = defaultDedupSize
	}
	if cfg.DedupWindow > 0 {
		if s.dedup == nil || s.cfg.DedupWindow != cfg.DedupWindow || s.cfg.DedupSize != cfg.DedupSize {
			s.dedup = expirable.NewLRU[string, struct{}](cfg.DedupSize, nil, cfg.DedupWindow)
		}
	} else {
		s.dedup = nil
	}
	s.cfg = cfg
}

// Apply updates the configuration, restarting the cron entry when the spec or
// location changed.
func (s *Scheduler) Apply(cfg Config) error {
	if err := ValidateSpec(cfg.Spec); err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.cfg
	s.applyLocked(cfg)
	restart := s.c != nil && (prev.Spec != s.cfg.Spec || prev.Location != s.cfg.Location)
	s.mu.Unlock()

	if restart {
		s.Stop(context.Background())
		return s.Start()
	}
	return nil
}

// Start schedules the tick. It is idempotent.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	c := cron.New(cron.WithParser(parser), cron.WithLocation(s.cfg.Location))
	if _, err := c.AddFunc(s.cfg.Spec, func() { s.Tick(context.Background(), time.Now()) }); err != nil {
		return fmt.Errorf("reminder schedule: %w", err)
	}
	c.Start()
	s.c = c
	s.log.Info("reminder started", logx.String("spec", s.cfg.Spec), logx.Duration("dedup_window", s.cfg.DedupWindow))
	return nil
}

// Stop removes the cron entry and waits for a running tick, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// LastRun is the time of the most recent tick.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Tick runs one evaluation at now and dispatches its plan.
//
// With notifications disabled or an empty schedule nothing is emitted and the
// badge is left as is.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) Plan {
	s.mu.Lock()
	loc := s.cfg.Location
	dedup := s.dedup
	hooks := s.onTick
	s.lastRun = now
	s.mu.Unlock()

	blocks, settings := s.src.Snapshot()
	minute := schedule.MinuteOfDay(now.In(loc))
	plan := Plan{Now: minute}

	if settings.Notifications && len(blocks) > 0 {
		plan = Evaluate(blocks, minute)
		if len(plan.Invalid) > 0 {
			s.log.Warn("skipping blocks with unreadable times", logx.Strs("ids", plan.Invalid))
		}
		for _, n := range plan.Notifications {
			if dedup != nil {
				key := string(n.Kind) + "|" + n.BlockID
				if dedup.Contains(key) {
					s.log.Debug("notification suppressed", logx.String("key", key))
					continue
				}
				dedup.Add(key, struct{}{})
			}
			if err := s.notes.Notify(ctx, n); err != nil {
				s.log.Warn("notification not queued", logx.String("title", n.Title), logx.String("block", n.BlockID), logx.Err(err))
			}
		}
		if plan.Current != nil {
			s.badge.SetText(plan.BadgeText)
			s.badge.SetColor(plan.BadgeColor)
		} else {
			s.badge.SetText("")
		}
	}

	s.bus.Publish(eventbus.Event{Type: eventbus.ReminderTick, Time: now, Data: len(plan.Notifications)})
	for _, fn := range hooks {
		fn(plan)
	}
	return plan
}
