// Package telegram exposes the schedule over a Telegram bot: reminders are
// pushed to the configured chats, which may also query and update the day.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "focusflow/pkg/logx"
)

type Config struct {
	Token       string
	ChatIDs     []int64
	PollTimeout time.Duration
	// HandlerTimeout bounds a single command; default 10s.
	HandlerTimeout time.Duration
}

// Bot owns the telebot instance.
type Bot struct {
	cfg  Config
	log  logx.Logger
	bot  *tele.Bot
	cmds *Commands
}

func New(cfg Config, cmds *Commands, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	t := &Bot{cfg: cfg, log: log.With(logx.String("comp", "telegram")), bot: b, cmds: cmds}
	t.register()
	return t, nil
}

// Sink returns a notification sink bound to this bot's chats.
func (t *Bot) Sink() *Sink { return NewSink(t.bot, t.cfg.ChatIDs) }

func (t *Bot) register() {
	t.bot.Use(recoverMW(t.log), allowChats(t.cfg.ChatIDs, t.log), requestLog(t.log))
	for _, cmd := range t.cmds.List() {
		t.bot.Handle("/"+cmd.Name, t.handler(cmd))
	}
}

func (t *Bot) handler(cmd Command) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.HandlerTimeout)
		defer cancel()
		reply, err := cmd.Run(ctx, c.Args())
		if err != nil {
			reply = "Error: " + escape(err.Error())
		}
		for _, chunk := range splitText(reply, textLimit) {
			if serr := c.Send(chunk, &tele.SendOptions{ParseMode: tele.ModeMarkdown}); serr != nil {
				return errors.Join(err, serr)
			}
		}
		return err
	}
}

// Run polls for updates until ctx is done.
func (t *Bot) Run(ctx context.Context) error {
	menu := make([]tele.Command, 0, len(t.cmds.List()))
	for _, cmd := range t.cmds.List() {
		menu = append(menu, tele.Command{Text: cmd.Name, Description: cmd.Description})
	}
	if err := t.bot.SetCommands(menu); err != nil {
		t.log.Warn("menu commands not updated", logx.Err(err))
	}

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			t.bot.Stop()
		case <-stopped:
		}
	}()

	t.log.Info("polling started", logx.Int("chats", len(t.cfg.ChatIDs)))
	t.bot.Start()
	close(stopped)
	t.log.Info("polling stopped")
	return ctx.Err()
}

func recoverMW(log logx.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(c)
		}
	}
}

// allowChats drops updates from chats outside ids. An empty list allows none.
func allowChats(ids []int64, log logx.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || !slices.Contains(ids, chat.ID) {
				if chat != nil {
					log.Debug("update from unknown chat ignored", logx.Int64("chat_id", chat.ID))
				}
				return nil
			}
			return next(c)
		}
	}
}

func requestLog(log logx.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			fields := []logx.Field{
				logx.Int64("chat_id", c.Chat().ID),
				logx.String("text", c.Text()),
				logx.Duration("dur", time.Since(start)),
			}
			if err != nil {
				log.Warn("command failed", append(fields, logx.Err(err))...)
				return nil
			}
			log.Debug("command ok", fields...)
			return nil
		}
	}
}
