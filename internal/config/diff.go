package config

import (
	"reflect"

	logx "focusflow/pkg/logx"
)

// Sections that are applied live on reload; the rest need a restart.
var liveSections = map[string]bool{
	"logging":  true,
	"notifier": true,
	"reminder": true,
}

// SummarizeChange lists changed sections, the subset that needs a restart,
// and log fields describing the new values. Secrets are never included.
func SummarizeChange(oldCfg, newCfg *Config) (changed, restart []string, attrs []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	sections := []struct {
		name          string
		before, after any
		fields        func() []logx.Field
	}{
		{"logging", oldCfg.Logging, newCfg.Logging, func() []logx.Field {
			return []logx.Field{logx.String("logging.level", newCfg.Logging.Level), logx.Bool("logging.file", newCfg.Logging.File.Enabled)}
		}},
		{"store", oldCfg.Store, newCfg.Store, func() []logx.Field {
			return []logx.Field{logx.String("store.driver", newCfg.Store.Driver)}
		}},
		{"notifier", oldCfg.Notifier, newCfg.Notifier, func() []logx.Field {
			return []logx.Field{logx.Bool("notifier.enabled", newCfg.Notifier.Enabled), logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec)}
		}},
		{"reminder", oldCfg.Reminder, newCfg.Reminder, func() []logx.Field {
			return []logx.Field{logx.String("reminder.spec", newCfg.Reminder.Spec), logx.String("reminder.dedup_window", newCfg.Reminder.DedupWindow)}
		}},
		{"http", oldCfg.HTTP, newCfg.HTTP, func() []logx.Field {
			return []logx.Field{logx.Bool("http.enabled", newCfg.HTTP.Enabled), logx.String("http.addr", newCfg.HTTP.Addr)}
		}},
		{"telegram", oldCfg.Telegram, newCfg.Telegram, func() []logx.Field {
			return []logx.Field{logx.Bool("telegram.enabled", newCfg.Telegram.Enabled), logx.Int("telegram.chats", len(newCfg.Telegram.ChatIDs))}
		}},
	}
	for _, s := range sections {
		if reflect.DeepEqual(s.before, s.after) {
			continue
		}
		changed = append(changed, s.name)
		if !liveSections[s.name] {
			restart = append(restart, s.name)
		}
		attrs = append(attrs, s.fields()...)
	}
	return changed, restart, attrs
}
