package state

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"focusflow/internal/eventbus"
	"focusflow/internal/schedule"
	"focusflow/internal/storage"
	logx "focusflow/pkg/logx"
)

const dayText = `6:00 - 6:15 AM: Wake Up
6:15 - 7:00 AM: Breakfast
8:45 AM - 6:00 PM: Office Work
random note
7:00 PM - 8:00 PM: Gym`

func newSession(t *testing.T) (*Session, *storage.Memory, <-chan eventbus.Event) {
	t.Helper()
	st := storage.NewMemory()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(32)
	t.Cleanup(unsub)
	s := New(st, bus, logx.Nop())
	t.Cleanup(s.Attach())
	return s, st, events
}

func expectEvent(t *testing.T, events <-chan eventbus.Event, typ string) eventbus.Event {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case e := <-events:
			if e.Type == typ {
				return e
			}
		case <-timeout:
			t.Fatalf("event %q not published", typ)
		}
	}
}

func at(hhmm string) time.Time {
	c := schedule.MustStandardize(hhmm)
	m := c.Minutes()
	return time.Date(2026, 3, 2, m/60, m%60, 0, 0, time.Local)
}

func TestImportPersistsAndPublishes(t *testing.T) {
	t.Parallel()
	s, st, events := newSession(t)
	ctx := context.Background()

	res, err := s.Import(ctx, schedule.FormatText, []byte(dayText), schedule.ParseOptions{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Blocks) != 4 || len(res.Skipped) != 1 {
		t.Fatalf("blocks=%d skipped=%d", len(res.Blocks), len(res.Skipped))
	}
	expectEvent(t, events, eventbus.ScheduleReplaced)

	vals, _ := st.Get(ctx, KeySchedule)
	var stored []schedule.TimeBlock
	if err := json.Unmarshal(vals[KeySchedule], &stored); err != nil {
		t.Fatalf("stored schedule: %v", err)
	}
	if len(stored) != 4 || stored[0].Task != "Wake Up" {
		t.Fatalf("stored = %+v", stored)
	}
	if got := s.Schedule(); len(got) != 4 {
		t.Fatalf("cache has %d blocks", len(got))
	}
}

func TestImportEmptyKeepsSchedule(t *testing.T) {
	t.Parallel()
	s, _, _ := newSession(t)
	ctx := context.Background()
	if _, err := s.Import(ctx, schedule.FormatText, []byte(dayText), schedule.ParseOptions{}); err != nil {
		t.Fatalf("Import: %v", err)
	}

	res, err := s.Import(ctx, schedule.FormatText, []byte("nothing here\n"), schedule.ParseOptions{})
	if !errors.Is(err, schedule.ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
	if got := s.Schedule(); len(got) != 4 {
		t.Fatalf("schedule replaced by empty import: %d", len(got))
	}
}

func TestImportValidationErrorKeepsSchedule(t *testing.T) {
	t.Parallel()
	s, _, _ := newSession(t)
	ctx := context.Background()
	_, _ = s.Import(ctx, schedule.FormatText, []byte(dayText), schedule.ParseOptions{})

	_, err := s.Import(ctx, schedule.FormatJSON, []byte(`[{"startTime":"9:00 AM","task":"x"}]`), schedule.ParseOptions{})
	if !schedule.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if got := s.Schedule(); len(got) != 4 {
		t.Fatalf("schedule changed: %d", len(got))
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	t.Parallel()
	s, st, events := newSession(t)
	ctx := context.Background()
	res, _ := s.Import(ctx, schedule.FormatText, []byte(dayText), schedule.ParseOptions{})
	id := res.Blocks[2].ID

	b, err := s.UpdateTaskStatus(ctx, id, schedule.StatusCompleted)
	if err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if b.Status != schedule.StatusCompleted {
		t.Fatalf("status = %s", b.Status)
	}
	e := expectEvent(t, events, eventbus.TaskStatus)
	if sc, ok := e.Data.(StatusChange); !ok || sc.ID != id {
		t.Fatalf("event data = %#v", e.Data)
	}

	// A fresh session over the same store sees the persisted status.
	other := New(st, nil, logx.Nop())
	if err := other.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := other.Schedule()[2].Status; got != schedule.StatusCompleted {
		t.Fatalf("persisted status = %s", got)
	}

	if _, err := s.UpdateTaskStatus(ctx, "nope", schedule.StatusSkipped); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
	if _, err := s.UpdateTaskStatus(ctx, id, "done"); !schedule.IsValidation(err) {
		t.Fatalf("bad status err = %v", err)
	}
}

func TestResolveUsesCache(t *testing.T) {
	t.Parallel()
	s, _, _ := newSession(t)
	ctx := context.Background()
	res, _ := s.Import(ctx, schedule.FormatText, []byte(dayText), schedule.ParseOptions{})

	r := s.Resolve(at("10:00 AM"))
	if r.Current == nil || r.Current.Task != "Office Work" {
		t.Fatalf("current = %+v", r.Current)
	}
	if r.Progress != 13 || r.Remaining != "8h 0m remaining" {
		t.Fatalf("progress=%d remaining=%q", r.Progress, r.Remaining)
	}
	if r.Next == nil || r.Next.Task != "Gym" {
		t.Fatalf("next = %+v", r.Next)
	}

	_, _ = s.UpdateTaskStatus(ctx, res.Blocks[2].ID, schedule.StatusSkipped)
	r = s.Resolve(at("10:00 AM"))
	if r.Current != nil || r.Next == nil || r.Next.Task != "Gym" {
		t.Fatalf("after skip: current=%+v next=%+v", r.Current, r.Next)
	}
}

func TestSettingsPatch(t *testing.T) {
	t.Parallel()
	s, st, events := newSession(t)
	ctx := context.Background()
	if !s.Settings().Notifications {
		t.Fatalf("notifications should default to on")
	}

	off := false
	on := true
	got, err := s.UpdateSettings(ctx, SettingsPatch{Notifications: &off})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got.Notifications || got.DarkMode {
		t.Fatalf("settings = %+v", got)
	}
	got, _ = s.UpdateSettings(ctx, SettingsPatch{DarkMode: &on})
	if got.Notifications || !got.DarkMode {
		t.Fatalf("patch overwrote other fields: %+v", got)
	}
	expectEvent(t, events, eventbus.SettingsUpdated)

	vals, _ := st.Get(ctx, KeySettings)
	if string(vals[KeySettings]) != `{"notifications":false,"darkMode":true,"use24HourFormat":false}` {
		t.Fatalf("stored settings = %s", vals[KeySettings])
	}
}

func TestExternalChangeRefreshesCache(t *testing.T) {
	t.Parallel()
	s, st, _ := newSession(t)
	ctx := context.Background()

	blocks := []schedule.TimeBlock{{
		ID: "x", StartTime: "9:00 AM", EndTime: "10:00 AM", Task: "Study", Category: schedule.CategoryStudy, Status: schedule.StatusPending,
	}}
	b, _ := json.Marshal(blocks)
	if err := st.Set(ctx, KeySchedule, b); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Schedule(); len(got) != 1 || got[0].ID != "x" {
		t.Fatalf("cache not refreshed: %+v", got)
	}

	if err := st.Set(ctx, KeySettings, []byte(`{"notifications":false}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.Settings().Notifications {
		t.Fatalf("settings not refreshed")
	}

	// Corrupt data degrades to empty rather than failing.
	_ = st.Set(ctx, KeySchedule, []byte(`{"not":"a list"}`))
	if got := s.Schedule(); len(got) != 0 {
		t.Fatalf("corrupt schedule kept %d blocks", len(got))
	}
}

func TestClearAndExport(t *testing.T) {
	t.Parallel()
	s, st, events := newSession(t)
	ctx := context.Background()
	_, _ = s.Import(ctx, schedule.FormatText, []byte(dayText), schedule.ParseOptions{})
	off := false
	_, _ = s.UpdateSettings(ctx, SettingsPatch{Notifications: &off})

	b, err := s.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	var doc Export
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("export not JSON: %v", err)
	}
	if len(doc.Schedule) != 4 || doc.Settings.Notifications {
		t.Fatalf("export = %+v", doc)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	expectEvent(t, events, eventbus.DataCleared)
	if len(s.Schedule()) != 0 || !s.Settings().Notifications {
		t.Fatalf("state after clear: %d blocks, %+v", len(s.Schedule()), s.Settings())
	}
	vals, _ := st.Get(ctx, KeySchedule, KeySettings)
	if len(vals) != 0 {
		t.Fatalf("store after clear = %v", vals)
	}

	b, _ = s.ExportJSON()
	if string(b) != "{\n  \"schedule\": [],\n  \"settings\": {\n    \"notifications\": true,\n    \"darkMode\": false,\n    \"use24HourFormat\": false\n  }\n}" {
		t.Fatalf("empty export = %s", b)
	}
}

// gatedStore holds the first schedule write after arm until release is closed.
type gatedStore struct {
	storage.Store

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) arm() {
	g.mu.Lock()
	g.armed = true
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
	g.mu.Unlock()
}

func (g *gatedStore) Set(ctx context.Context, key string, value []byte) error {
	g.mu.Lock()
	hold := g.armed && key == KeySchedule
	if hold {
		g.armed = false
	}
	entered, release := g.entered, g.release
	g.mu.Unlock()
	if hold {
		close(entered)
		<-release
	}
	return g.Store.Set(ctx, key, value)
}

func TestConcurrentStatusUpdatesPersistInOrder(t *testing.T) {
	t.Parallel()
	mem := storage.NewMemory()
	gs := &gatedStore{Store: mem}
	s := New(gs, nil, logx.Nop())
	t.Cleanup(s.Attach())
	ctx := context.Background()

	if _, err := s.Import(ctx, schedule.FormatText, []byte(dayText), schedule.ParseOptions{}); err != nil {
		t.Fatalf("import: %v", err)
	}
	blocks := s.Schedule()
	wake, breakfast := blocks[0].ID, blocks[1].ID

	gs.arm()
	first := make(chan error, 1)
	go func() {
		_, err := s.UpdateTaskStatus(ctx, wake, schedule.StatusCompleted)
		first <- err
	}()
	<-gs.entered

	second := make(chan error, 1)
	go func() {
		_, err := s.UpdateTaskStatus(ctx, breakfast, schedule.StatusSkipped)
		second <- err
	}()
	select {
	case err := <-second:
		t.Fatalf("second update finished while the first write was pending: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(gs.release)
	if err := <-first; err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second update: %v", err)
	}

	check := func(where string, got []schedule.TimeBlock) {
		t.Helper()
		if got[0].Status != schedule.StatusCompleted || got[1].Status != schedule.StatusSkipped {
			t.Fatalf("%s: %s=%s %s=%s", where, got[0].Task, got[0].Status, got[1].Task, got[1].Status)
		}
	}
	check("cache", s.Schedule())

	vals, err := mem.Get(ctx, KeySchedule)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var stored []schedule.TimeBlock
	if err := json.Unmarshal(vals[KeySchedule], &stored); err != nil {
		t.Fatalf("decode stored: %v", err)
	}
	check("store", stored)
}
