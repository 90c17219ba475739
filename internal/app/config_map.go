package app

import (
	"time"

	"focusflow/internal/config"
	"focusflow/internal/httpapi"
	"focusflow/internal/notifier"
	"focusflow/internal/reminder"
	"focusflow/internal/transport/telegram"
	logx "focusflow/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		JSON:    cfg.Logging.JSON,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// Zero values fall back to the notifier's own defaults.
func mapNotifierConfig(cfg *config.Config) notifier.Config {
	n := cfg.Notifier
	return notifier.Config{
		Enabled:       n.Enabled,
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     config.DurationOr(n.RetryBase, 500*time.Millisecond),
		RetryMaxDelay: config.DurationOr(n.RetryMaxDelay, 10*time.Second),
		HistorySize:   n.HistorySize,
	}
}

func mapReminderConfig(cfg *config.Config) reminder.Config {
	return reminder.Config{
		Spec:        cfg.Reminder.Spec,
		DedupWindow: config.DurationOr(cfg.Reminder.DedupWindow, 0),
		DedupSize:   cfg.Reminder.DedupSize,
		Location:    cfg.Location(),
	}
}

func mapHTTPConfig(cfg *config.Config) httpapi.Config {
	h := cfg.HTTP
	return httpapi.Config{
		Addr:            h.Addr,
		Pprof:           h.Pprof,
		ReadTimeout:     config.DurationOr(h.ReadTimeout, 10*time.Second),
		WriteTimeout:    config.DurationOr(h.WriteTimeout, 30*time.Second),
		ShutdownTimeout: config.DurationOr(h.ShutdownTimeout, 5*time.Second),
	}
}

func mapTelegramConfig(cfg *config.Config) telegram.Config {
	return telegram.Config{
		Token:       cfg.Telegram.Token,
		ChatIDs:     append([]int64(nil), cfg.Telegram.ChatIDs...),
		PollTimeout: config.DurationOr(cfg.Telegram.PollTimeout, 10*time.Second),
	}
}

// validate runs the checks that need other packages; it guards hot reloads.
func validate(cfg *config.Config) error {
	return reminder.ValidateSpec(cfg.Reminder.Spec)
}
