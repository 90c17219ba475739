package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	tele "gopkg.in/telebot.v4"

	"focusflow/internal/notifier"
)

const (
	deliveredSize = 512
	// deliveredTTL outlives the notifier's retry window.
	deliveredTTL = 10 * time.Minute
)

// Sender is the part of *tele.Bot used to deliver messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type deliveryKey struct {
	note notifier.Notification
	chat int64
}

// Sink delivers notifications to every configured chat.
type Sink struct {
	send  Sender
	chats []int64
	// delivered remembers chats that already got a notification whose
	// fan-out partly failed, so a retry only targets the rest.
	delivered *expirable.LRU[deliveryKey, struct{}]
}

func NewSink(send Sender, chats []int64) *Sink {
	return &Sink{
		send:      send,
		chats:     append([]int64(nil), chats...),
		delivered: expirable.NewLRU[deliveryKey, struct{}](deliveredSize, nil, deliveredTTL),
	}
}

func (*Sink) Name() string { return "telegram" }

// Emit sends n to each chat that has not received it yet. A failed chat does
// not stop the others; the errors are joined.
func (s *Sink) Emit(ctx context.Context, n notifier.Notification) error {
	if len(s.chats) == 0 {
		return nil
	}
	text := FormatNotification(n)
	var errs []error
	for _, id := range s.chats {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := deliveryKey{note: n, chat: id}
		if s.delivered.Contains(key) {
			continue
		}
		if _, err := s.send.Send(tele.ChatID(id), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown}); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
			continue
		}
		s.delivered.Add(key, struct{}{})
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	for _, id := range s.chats {
		s.delivered.Remove(deliveryKey{note: n, chat: id})
	}
	return nil
}
