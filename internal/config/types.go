package config

// Config is the daemon configuration file (JSON or YAML).
//
// Durations are Go duration strings ("500ms", "2s", "1m"). Fields omitted from
// the file keep the values from Default.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Store    StoreConfig    `json:"store"`
	Notifier NotifierConfig `json:"notifier"`
	Reminder ReminderConfig `json:"reminder"`
	HTTP     HTTPConfig     `json:"http"`
	Telegram TelegramConfig `json:"telegram"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	JSON    bool        `json:"json,omitempty"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StoreConfig selects the persistence driver.
//
// Example:
//
//	"store": { "driver": "sqlite", "path": "./focusflow.db", "poll_interval": "2s" }
type StoreConfig struct {
	Driver       string           `json:"driver"`
	Path         string           `json:"path,omitempty"`
	BusyTimeout  string           `json:"busy_timeout,omitempty"`  // sqlite
	PollInterval string           `json:"poll_interval,omitempty"` // sqlite
	Redis        RedisStoreConfig `json:"redis,omitempty"`
}

type RedisStoreConfig struct {
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

// NotifierConfig controls the async notification pipeline.
type NotifierConfig struct {
	Enabled       bool   `json:"enabled"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	HistorySize   int    `json:"history_size,omitempty"`
}

// ReminderConfig controls the periodic schedule check.
type ReminderConfig struct {
	// Spec is a cron expression or descriptor; default "@every 1m".
	Spec string `json:"spec,omitempty"`
	// DedupWindow suppresses repeated notifications for the same block and
	// kind; "0s" (default) disables it.
	DedupWindow string `json:"dedup_window,omitempty"`
	DedupSize   int    `json:"dedup_size,omitempty"`
	// Timezone is an IANA name; empty means the local zone.
	Timezone string `json:"timezone,omitempty"`
}

// HTTPConfig controls the JSON API.
//
// Prefer binding to localhost; the API has no authentication.
type HTTPConfig struct {
	Enabled         bool   `json:"enabled"`
	Addr            string `json:"addr,omitempty"`
	Pprof           bool   `json:"pprof,omitempty"`
	ReadTimeout     string `json:"read_timeout,omitempty"`
	WriteTimeout    string `json:"write_timeout,omitempty"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	// ChatIDs receive notifications and may use the bot commands.
	ChatIDs []int64 `json:"chat_ids,omitempty"`
	// PollTimeout is the long-poll timeout.
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// Default is the configuration used when no file exists.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Store:   StoreConfig{Driver: "file", Path: "./focusflow.json"},
		Notifier: NotifierConfig{
			Enabled:    true,
			Workers:    2,
			QueueSize:  64,
			RatePerSec: 3,
			RetryMax:   3,
		},
		Reminder: ReminderConfig{Spec: "@every 1m"},
		HTTP:     HTTPConfig{Addr: "127.0.0.1:8787"},
		Telegram: TelegramConfig{PollTimeout: "10s"},
	}
}
