package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"focusflow/internal/eventbus"
	"focusflow/internal/schedule"
	"focusflow/internal/storage"
	logx "focusflow/pkg/logx"
)

var ErrTaskNotFound = errors.New("task not found")

// Export is the document written by the export operation.
type Export struct {
	Schedule []schedule.TimeBlock `json:"schedule"`
	Settings Settings             `json:"settings"`
}

// ExportFileName is the default name of an exported document.
const ExportFileName = "focusflow-data.json"

// StatusChange is the payload of eventbus.TaskStatus.
type StatusChange struct {
	ID     string          `json:"id"`
	Task   string          `json:"task"`
	Status schedule.Status `json:"status"`
}

// Session is the shared schedule cache. All methods are safe for concurrent use.
//
// Mutations update the cache first and then persist; a store error is returned
// but the cache keeps the new value, and the next store notification
// reconciles it. Mutations are serialized end to end, so writes reach the
// store in the order they were applied to the cache.
type Session struct {
	store storage.Store
	bus   eventbus.Bus
	log   logx.Logger

	// wmu is held across "mutate cache, then persist". Store change
	// callbacks only take mu.
	wmu sync.Mutex

	mu       sync.RWMutex
	blocks   []schedule.TimeBlock
	settings Settings
}

func New(store storage.Store, bus eventbus.Bus, log logx.Logger) *Session {
	if bus == nil {
		bus = eventbus.Nop()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Session{
		store:    store,
		bus:      bus,
		log:      log.With(logx.String("comp", "state")),
		settings: DefaultSettings(),
	}
}

// Load reads both keys from the store. Missing or unreadable values fall back
// to an empty schedule and default settings.
func (s *Session) Load(ctx context.Context) error {
	vals, err := s.store.Get(ctx, KeySchedule, KeySettings)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	blocks := s.decodeSchedule(vals[KeySchedule])
	settings := s.decodeSettings(vals[KeySettings])

	s.mu.Lock()
	s.blocks = blocks
	s.settings = settings
	s.mu.Unlock()

	s.log.Info("state loaded", logx.Int("blocks", len(blocks)), logx.Bool("notifications", settings.Notifications))
	return nil
}

// Attach keeps the cache in sync with store changes until the returned
// function is called.
func (s *Session) Attach() (detach func()) {
	return s.store.OnChange(s.apply)
}

func (s *Session) apply(c storage.Change) {
	switch c.Key {
	case KeySchedule:
		var blocks []schedule.TimeBlock
		if !c.Deleted {
			blocks = s.decodeSchedule(c.Value)
		}
		s.mu.Lock()
		s.blocks = blocks
		s.mu.Unlock()
	case KeySettings:
		settings := DefaultSettings()
		if !c.Deleted {
			settings = s.decodeSettings(c.Value)
		}
		s.mu.Lock()
		s.settings = settings
		s.mu.Unlock()
	default:
		return
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.StoreChanged, Data: c.Key})
}

func (s *Session) decodeSchedule(raw []byte) []schedule.TimeBlock {
	if len(raw) == 0 {
		return nil
	}
	var blocks []schedule.TimeBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		s.log.Warn("stored schedule unreadable; treating as empty", logx.Err(err))
		return nil
	}
	return blocks
}

func (s *Session) decodeSettings(raw []byte) Settings {
	settings := DefaultSettings()
	if len(raw) == 0 {
		return settings
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.log.Warn("stored settings unreadable; using defaults", logx.Err(err))
		return DefaultSettings()
	}
	return settings
}

// Schedule returns a copy of the cached blocks.
func (s *Session) Schedule() []schedule.TimeBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schedule.Clone(s.blocks)
}

func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Snapshot returns blocks and settings read under one lock.
func (s *Session) Snapshot() ([]schedule.TimeBlock, Settings) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schedule.Clone(s.blocks), s.settings
}

// Import parses input and replaces the schedule. A parse that yields no blocks
// returns the result with schedule.ErrEmptyResult and leaves state untouched.
func (s *Session) Import(ctx context.Context, format schedule.Format, input []byte, opts schedule.ParseOptions) (schedule.Result, error) {
	res, err := schedule.Parse(format, input, opts)
	if err != nil {
		return schedule.Result{}, err
	}
	if len(res.Blocks) == 0 {
		s.log.Warn("import produced no blocks", logx.Int("skipped", len(res.Skipped)))
		return res, schedule.ErrEmptyResult
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	s.blocks = schedule.Clone(res.Blocks)
	s.mu.Unlock()

	s.log.Info("schedule imported",
		logx.String("format", string(format)),
		logx.Int("blocks", len(res.Blocks)),
		logx.Int("skipped", len(res.Skipped)),
	)
	s.bus.Publish(eventbus.Event{Type: eventbus.ScheduleReplaced, Data: len(res.Blocks)})
	return res, s.persistSchedule(ctx, res.Blocks)
}

// UpdateTaskStatus sets the status of one block.
func (s *Session) UpdateTaskStatus(ctx context.Context, id string, status schedule.Status) (schedule.TimeBlock, error) {
	st, ok := schedule.ParseStatus(string(status))
	if !ok {
		return schedule.TimeBlock{}, &schedule.ValidationError{Field: "status", Value: string(status), Msg: "must be pending, completed or skipped"}
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	i := schedule.IndexOf(s.blocks, id)
	if i < 0 {
		s.mu.Unlock()
		return schedule.TimeBlock{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	next := schedule.Clone(s.blocks)
	next[i].Status = st
	s.blocks = next
	updated := next[i]
	s.mu.Unlock()

	s.log.Info("task status updated", logx.String("id", id), logx.String("task", updated.Task), logx.String("status", string(st)))
	s.bus.Publish(eventbus.Event{Type: eventbus.TaskStatus, Data: StatusChange{ID: id, Task: updated.Task, Status: st}})
	return updated, s.persistSchedule(ctx, next)
}

// UpdateSettings merges patch into the current settings.
func (s *Session) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	next := patch.apply(s.settings)
	s.settings = next
	s.mu.Unlock()

	s.bus.Publish(eventbus.Event{Type: eventbus.SettingsUpdated, Data: next})

	b, err := json.Marshal(next)
	if err != nil {
		return next, err
	}
	if err := s.store.Set(ctx, KeySettings, b); err != nil {
		return next, fmt.Errorf("save settings: %w", err)
	}
	return next, nil
}

// Clear removes everything from the store and resets the cache.
func (s *Session) Clear(ctx context.Context) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	s.blocks = nil
	s.settings = DefaultSettings()
	s.mu.Unlock()

	s.log.Info("all data cleared")
	s.bus.Publish(eventbus.Event{Type: eventbus.DataCleared})
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

// Resolve runs the resolver over the cached schedule at the local wall clock
// of now.
func (s *Session) Resolve(now time.Time) schedule.Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := schedule.Resolve(s.blocks, schedule.MinuteOfDay(now))
	if res.Invalid > 0 {
		s.log.Warn("schedule has unreadable blocks", logx.Int("count", res.Invalid))
	}
	return res
}

func (s *Session) Export() Export {
	blocks, settings := s.Snapshot()
	if blocks == nil {
		blocks = []schedule.TimeBlock{}
	}
	return Export{Schedule: blocks, Settings: settings}
}

// ExportJSON renders Export with two-space indentation.
func (s *Session) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Export(), "", "  ")
}

func (s *Session) persistSchedule(ctx context.Context, blocks []schedule.TimeBlock) error {
	b, err := json.Marshal(blocks)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeySchedule, b); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}
