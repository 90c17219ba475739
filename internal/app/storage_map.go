package app

import (
	"strings"
	"time"

	"focusflow/internal/config"
	"focusflow/internal/storage"
)

func mapStorageConfig(cfg *config.Config) storage.Config {
	sc := cfg.Store
	return storage.Config{
		Driver:       strings.ToLower(strings.TrimSpace(sc.Driver)),
		Path:         strings.TrimSpace(sc.Path),
		BusyTimeout:  config.DurationOr(sc.BusyTimeout, time.Second),
		PollInterval: config.DurationOr(sc.PollInterval, 2*time.Second),
		Redis: storage.RedisConfig{
			Addr:     strings.TrimSpace(sc.Redis.Addr),
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
			Prefix:   sc.Redis.Prefix,
		},
	}
}
