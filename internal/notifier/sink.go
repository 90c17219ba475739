package notifier

import (
	"context"

	logx "focusflow/pkg/logx"
)

// LogSink writes notifications to the log. It is always configured so a
// daemon without other channels still shows its reminders.
type LogSink struct {
	Log logx.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Emit(_ context.Context, n Notification) error {
	s.Log.Info(n.Title,
		logx.String("kind", string(n.Kind)),
		logx.String("message", n.Message),
		logx.String("context", n.Context),
		logx.String("block", n.BlockID),
	)
	return nil
}
