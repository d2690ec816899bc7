package app

import (
	"lifepath/internal/config"
	"lifepath/internal/diag"
	"lifepath/internal/task/scheduler"
	logx "lifepath/pkg/logx"
)

// logConfig maps the logging section. forward=false keeps the Telegram
// sink off regardless of the file.
func logConfig(cfg *config.Config, forward bool) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    forward && l.Telegram.Enabled,
			ThreadID:   l.Telegram.ThreadID,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

func diagConfig(cfg *config.Config) diag.Config { return diag.Config(cfg.Diag) }

func schedConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{Timezone: cfg.Schedule.Timezone}
}
