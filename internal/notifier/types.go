package notifier

import (
	"context"
	"time"
)

// Kind names the rule that produced a notification.
type Kind string

const (
	KindTaskStart  Kind = "task_start"
	KindTaskEnding Kind = "task_ending"
	KindUpcoming   Kind = "upcoming"
)

// Notification is one user-facing message.
type Notification struct {
	Kind     Kind   `json:"kind"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Context  string `json:"context,omitempty"`
	BlockID  string `json:"block_id,omitempty"`
	Priority int    `json:"priority,omitempty"` // 0..10; higher is louder
}

// Sink delivers a notification to one channel.
type Sink interface {
	Name() string
	Emit(ctx context.Context, n Notification) error
}

// Config controls the async notification pipeline.
type Config struct {
	Enabled       bool
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	HistorySize   int
}

type HistoryItem struct {
	At    time.Time    `json:"at"`
	Sink  string       `json:"sink"`
	Note  Notification `json:"notification"`
	Error string       `json:"error,omitempty"`
}

// Event is the payload of notifier events on the bus.
type Event struct {
	Kind    Kind      `json:"kind"`
	BlockID string    `json:"block_id,omitempty"`
	Sink    string    `json:"sink,omitempty"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
}
