package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"focusflow/internal/schedule"
	"focusflow/internal/state"
)

// Session is the state the commands read and change.
type Session interface {
	Schedule() []schedule.TimeBlock
	Settings() state.Settings
	Resolve(now time.Time) schedule.Resolution
	UpdateTaskStatus(ctx context.Context, id string, status schedule.Status) (schedule.TimeBlock, error)
	UpdateSettings(ctx context.Context, patch state.SettingsPatch) (state.Settings, error)
}

// Command is one bot command.
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) (string, error)
}

// Commands holds the command implementations, independent of the bot API.
type Commands struct {
	sess Session
	now  func() time.Time
}

func NewCommands(sess Session, now func() time.Time) *Commands {
	if now == nil {
		now = time.Now
	}
	return &Commands{sess: sess, now: now}
}

// List returns the commands in menu order.
func (c *Commands) List() []Command {
	return []Command{
		{Name: "now", Description: "Current and next task", Run: c.Now},
		{Name: "today", Description: "Today's schedule", Run: c.Today},
		{Name: "done", Description: "Mark the current task completed", Run: c.Done},
		{Name: "skip", Description: "Skip the current task", Run: c.Skip},
		{Name: "notify", Description: "Turn notifications on or off", Run: c.Notify},
	}
}

func (c *Commands) Now(_ context.Context, _ []string) (string, error) {
	t := c.now()
	return FormatNow(c.sess.Resolve(t), schedule.FormatWallClock(t, c.sess.Settings().Use24HourFormat)), nil
}

func (c *Commands) Today(_ context.Context, _ []string) (string, error) {
	return FormatToday(c.sess.Schedule()), nil
}

func (c *Commands) Done(ctx context.Context, _ []string) (string, error) {
	return c.finish(ctx, schedule.StatusCompleted, "Completed")
}

func (c *Commands) Skip(ctx context.Context, _ []string) (string, error) {
	return c.finish(ctx, schedule.StatusSkipped, "Skipped")
}

func (c *Commands) finish(ctx context.Context, st schedule.Status, verb string) (string, error) {
	r := c.sess.Resolve(c.now())
	if r.Current == nil {
		return "No current task.", nil
	}
	b, err := c.sess.UpdateTaskStatus(ctx, r.Current.ID, st)
	if err != nil {
		if errors.Is(err, state.ErrTaskNotFound) {
			return "The schedule changed, try again.", nil
		}
		return "", err
	}
	return verb + ": " + escape(b.Task), nil
}

func (c *Commands) Notify(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return formatSettings(c.sess.Settings()) + "\nUsage: /notify on|off", nil
	}
	var on bool
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on", "true", "1", "yes":
		on = true
	case "off", "false", "0", "no":
	default:
		return "Usage: /notify on|off", nil
	}
	s, err := c.sess.UpdateSettings(ctx, state.SettingsPatch{Notifications: &on})
	if err != nil {
		return "", err
	}
	return formatSettings(s), nil
}
