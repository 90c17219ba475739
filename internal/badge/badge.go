// Package badge holds the tiny status indicator: a short text and a colour.
package badge

import (
	"sync"

	"focusflow/internal/schedule"
	logx "focusflow/pkg/logx"
)

// Sink receives badge updates. Empty text clears the badge.
type Sink interface {
	SetText(text string)
	SetColor(c schedule.RGBA)
}

// State is the last badge shown.
type State struct {
	Text  string        `json:"text"`
	Color schedule.RGBA `json:"color"`
	Hex   string        `json:"hex"`
}

// Memory remembers the latest badge for readers such as the HTTP API.
type Memory struct {
	mu    sync.RWMutex
	state State
}

func (m *Memory) SetText(text string) {
	m.mu.Lock()
	m.state.Text = text
	m.mu.Unlock()
}

func (m *Memory) SetColor(c schedule.RGBA) {
	m.mu.Lock()
	m.state.Color = c
	m.state.Hex = c.Hex()
	m.mu.Unlock()
}

func (m *Memory) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Log writes badge changes at debug level, skipping repeats.
type Log struct {
	Log logx.Logger

	mu    sync.Mutex
	text  string
	color schedule.RGBA
}

func (l *Log) SetText(text string) {
	l.mu.Lock()
	changed := text != l.text
	l.text = text
	l.mu.Unlock()
	if changed {
		l.Log.Debug("badge text", logx.String("text", text))
	}
}

func (l *Log) SetColor(c schedule.RGBA) {
	l.mu.Lock()
	changed := c != l.color
	l.color = c
	l.mu.Unlock()
	if changed {
		l.Log.Debug("badge color", logx.String("hex", c.Hex()))
	}
}

// Multi fans updates out to several sinks.
type Multi []Sink

func (m Multi) SetText(text string) {
	for _, s := range m {
		s.SetText(text)
	}
}

func (m Multi) SetColor(c schedule.RGBA) {
	for _, s := range m {
		s.SetColor(c)
	}
}
