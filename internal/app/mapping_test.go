package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lifepath/internal/config"
)

func TestMapConfigSections(t *testing.T) {
	cfg := &config.Config{
		Schedule: config.ScheduleConfig{Timezone: "Europe/Berlin"},
		Logging: config.LoggingConfig{
			Level:    "debug",
			Console:  true,
			File:     config.LoggingFile{Enabled: true, Path: "/var/log/lifepath.log"},
			Telegram: config.LoggingTelegram{Enabled: true, ThreadID: 3, MinLevel: "warn", RatePerSec: 2},
		},
		Diag: config.DiagConfig{Enabled: true, Addr: "127.0.0.1:9191", Token: "x", Pprof: true},
	}

	lc := logConfig(cfg, true)
	assert.Equal(t, "debug", lc.Level)
	assert.True(t, lc.Console)
	assert.Equal(t, "/var/log/lifepath.log", lc.File.Path)
	assert.Equal(t, 3, lc.Telegram.ThreadID)
	assert.Equal(t, "warn", lc.Telegram.MinLevel)
	assert.Equal(t, 2, lc.Telegram.RatePerSec)

	assert.True(t, lc.Telegram.Enabled)
	assert.False(t, logConfig(cfg, false).Telegram.Enabled)

	dc := diagConfig(cfg)
	assert.True(t, dc.Enabled)
	assert.Equal(t, "127.0.0.1:9191", dc.Addr)
	assert.True(t, dc.Pprof)
	assert.Equal(t, "x", dc.Token)

	assert.Equal(t, "Europe/Berlin", schedConfig(cfg).Timezone)
}
