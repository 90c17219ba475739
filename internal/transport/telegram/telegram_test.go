package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"focusflow/internal/notifier"
	"focusflow/internal/schedule"
	"focusflow/internal/state"
	"focusflow/internal/storage"
	logx "focusflow/pkg/logx"
)

type fakeSender struct {
	mu   sync.Mutex
	sent map[string][]string
	fail map[string]bool
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to.Recipient()] {
		return nil, errors.New("blocked by user")
	}
	if f.sent == nil {
		f.sent = map[string][]string{}
	}
	f.sent[to.Recipient()] = append(f.sent[to.Recipient()], what.(string))
	return &tele.Message{}, nil
}

func TestFormatNotification(t *testing.T) {
	t.Parallel()
	got := FormatNotification(notifier.Notification{
		Title:   "Task Started",
		Message: "deep_work *focus*",
		Context: "From 9:00 AM to 10:00 AM",
	})
	want := "*Task Started*\ndeep\\_work \\*focus\\*\n_From 9:00 AM to 10:00 AM_"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := FormatNotification(notifier.Notification{Title: "Hi"}); got != "*Hi*" {
		t.Fatalf("title only = %q", got)
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()
	if got := splitText("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short = %q", got)
	}
	long := strings.Repeat("aaaa\n", 10)
	chunks := splitText(long, 12)
	for _, c := range chunks {
		if len([]rune(c)) > 12 {
			t.Fatalf("chunk too long: %q", c)
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk has edge newline: %q", c)
		}
	}
	if strings.Join(chunks, "\n") != strings.TrimRight(long, "\n") {
		t.Fatalf("chunks lost text: %q", chunks)
	}
}

func TestSinkFansOutAndJoinsErrors(t *testing.T) {
	t.Parallel()
	f := &fakeSender{fail: map[string]bool{"2": true}}
	s := NewSink(f, []int64{1, 2, 3})
	err := s.Emit(context.Background(), notifier.Notification{Title: "Upcoming Task"})
	if err == nil || !strings.Contains(err.Error(), "chat 2") {
		t.Fatalf("err = %v", err)
	}
	if len(f.sent["1"]) != 1 || len(f.sent["3"]) != 1 {
		t.Fatalf("sent = %v", f.sent)
	}

	if err := NewSink(f, nil).Emit(context.Background(), notifier.Notification{}); err != nil {
		t.Fatalf("no chats: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Emit(ctx, notifier.Notification{Title: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled err = %v", err)
	}
}

func TestSinkRetryOnlyTargetsFailedChats(t *testing.T) {
	t.Parallel()
	f := &fakeSender{fail: map[string]bool{"2": true}}
	s := NewSink(f, []int64{1, 2, 3})
	n := notifier.Notification{Kind: notifier.KindTaskStart, Title: "Task Started", BlockID: "gym"}

	if err := s.Emit(context.Background(), n); err == nil {
		t.Fatalf("first emit should report chat 2")
	}
	f.mu.Lock()
	f.fail = nil
	f.mu.Unlock()
	if err := s.Emit(context.Background(), n); err != nil {
		t.Fatalf("retry: %v", err)
	}
	for _, chat := range []string{"1", "2", "3"} {
		if got := len(f.sent[chat]); got != 1 {
			t.Fatalf("chat %s got %d messages, want 1; sent=%v", chat, got, f.sent)
		}
	}

	// A later notification with the same content is delivered again.
	if err := s.Emit(context.Background(), n); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if got := len(f.sent["1"]); got != 2 {
		t.Fatalf("repeat not delivered to chat 1: %v", f.sent)
	}
}

func newCommands(t *testing.T, at string) (*Commands, *state.Session) {
	t.Helper()
	sess := state.New(storage.NewMemory(), nil, logx.Nop())
	_, err := sess.Import(context.Background(), schedule.FormatText, []byte(
		"8:45 AM - 6:00 PM: Office Work\n7:00 PM - 8:00 PM: Gym"), schedule.ParseOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	m := schedule.MustStandardize(at).Minutes()
	now := func() time.Time { return time.Date(2026, 3, 2, m/60, m%60, 0, 0, time.Local) }
	return NewCommands(sess, now), sess
}

func TestNowCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		at   string
		want []string
	}{
		{at: "10:00 AM", want: []string{"*10:00 AM*", "Now: Office Work (8:45 AM - 6:00 PM)", "13% done, 8h 0m remaining", "Next: Gym at 7:00 PM"}},
		{at: "6:30 PM", want: []string{"Nothing scheduled right now.", "Next: Gym at 7:00 PM"}},
		{at: "9:00 PM", want: []string{"Nothing scheduled right now."}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.at, func(t *testing.T) {
			t.Parallel()
			c, _ := newCommands(t, tt.at)
			got, err := c.Now(context.Background(), nil)
			if err != nil {
				t.Fatalf("now: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Fatalf("reply %q missing %q", got, w)
				}
			}
		})
	}
}

func TestDoneAndSkipActOnCurrentTask(t *testing.T) {
	t.Parallel()
	c, sess := newCommands(t, "10:00 AM")
	got, err := c.Done(context.Background(), nil)
	if err != nil || got != "Completed: Office Work" {
		t.Fatalf("done = %q, %v", got, err)
	}
	if st := sess.Schedule()[0].Status; st != schedule.StatusCompleted {
		t.Fatalf("status = %s", st)
	}
	// Completed blocks no longer resolve as current.
	if got, _ := c.Skip(context.Background(), nil); got != "No current task." {
		t.Fatalf("skip = %q", got)
	}

	today, _ := c.Today(context.Background(), nil)
	if !strings.Contains(today, "✅ 8:45 AM - 6:00 PM Office Work") || !strings.Contains(today, "• 7:00 PM - 8:00 PM Gym") {
		t.Fatalf("today = %q", today)
	}
}

func TestNotifyCommand(t *testing.T) {
	t.Parallel()
	c, sess := newCommands(t, "10:00 AM")
	tests := []struct {
		args []string
		want string
		on   bool
	}{
		{args: []string{"off"}, want: "Notifications are off.", on: false},
		{args: []string{"maybe"}, want: "Usage: /notify on|off", on: false},
		{args: []string{"ON"}, want: "Notifications are on.", on: true},
	}
	for _, tt := range tests {
		got, err := c.Notify(context.Background(), tt.args)
		if err != nil || got != tt.want {
			t.Fatalf("notify %v = %q, %v", tt.args, got, err)
		}
		if sess.Settings().Notifications != tt.on {
			t.Fatalf("notify %v: notifications = %v", tt.args, sess.Settings().Notifications)
		}
	}
	if got, _ := c.Notify(context.Background(), nil); !strings.HasPrefix(got, "Notifications are on.") {
		t.Fatalf("status = %q", got)
	}
}

func TestTodayEmpty(t *testing.T) {
	t.Parallel()
	c := NewCommands(state.New(storage.NewMemory(), nil, logx.Nop()), nil)
	if got, _ := c.Today(context.Background(), nil); got != "No schedule loaded." {
		t.Fatalf("today = %q", got)
	}
	if len(c.List()) != 5 {
		t.Fatalf("commands = %d", len(c.List()))
	}
}
