package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", `
telegram:
  token: "123:abc"
  target_chat_id: -1001
schedule:
  enabled: true
`)
	m := NewStore(p)
	m.SetEnv(env(nil))
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, "08:00", cfg.Schedule.At)
	assert.Equal(t, "America/Los_Angeles", cfg.Schedule.Timezone)
	assert.Equal(t, "Daily 7CatYear", cfg.Post.Title)
	assert.Equal(t, "7catyear.com", cfg.Post.URLHost)
	assert.Equal(t, "/", cfg.Telegram.CommandPrefix)
	assert.True(t, cfg.Schedule.IsEnabled())
	assert.Same(t, cfg, m.Current())

	assert.Equal(t, 10*time.Second, cfg.PollTimeout())
	assert.Equal(t, time.Minute, cfg.PostTimeout())

	cfg.Schedule.Timeout = "0s"
	assert.Zero(t, cfg.PostTimeout())
}

func TestLoadRejectsUnknownYAMLKeys(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yml", "telegram: {token: x, target_chat_id: 1}
owner_user_ids: [1]
")
	m := NewStore(p)
	m.SetEnv(env(nil))
	_, err := m.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner_user_ids")
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.json", `{"telegram":{"token":"x","target_chat_id":1},"owner_user_ids":[1]}`)
	m := NewStore(p)
	m.SetEnv(env(nil))
	_, err := m.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestMissingFileFallsBackToEnv(t *testing.T) {
	m := NewStore(filepath.Join(t.TempDir(), "absent.yaml"))
	m.SetEnv(env(map[string]string{
		EnvToken:        "123:abc",
		EnvTargetChatID: "-100200",
		EnvTimezone:     "Europe/Berlin",
		EnvPostAt:       "07:30",
		EnvLogLevel:     "debug",
	}))
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(-100200), cfg.Telegram.TargetChatID)
	assert.Equal(t, "Europe/Berlin", cfg.Schedule.Timezone)
	assert.Equal(t, "07:30", cfg.Schedule.At)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvInvalidChatID(t *testing.T) {
	m := NewStore("")
	m.SetEnv(env(map[string]string{EnvToken: "t", EnvTargetChatID: "general"}))
	_, err := m.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvTargetChatID)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{Telegram: TelegramConfig{Token: "t", TargetChatID: 42}}
		c.ApplyDefaults()
		return c
	}
	require.NoError(t, Validate(valid()))

	tests := []struct {
		name   string
		mutate func(c *Config)
		target error
	}{
		{"no token", func(c *Config) { c.Telegram.Token = " " }, ErrMissingToken},
		{"no target", func(c *Config) { c.Telegram.TargetChatID = 0 }, ErrMissingTarget},
		{"bad zone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, nil},
		{"bad time", func(c *Config) { c.Schedule.At = "25:00" }, nil},
		{"bad time format", func(c *Config) { c.Schedule.At = "8am" }, nil},
		{"bad timeout", func(c *Config) { c.Schedule.Timeout = "-1s" }, nil},
		{"bad group log", func(c *Config) { c.Telegram.GroupLog = "logs" }, nil},
		{"bad host", func(c *Config) { c.Post.URLHost = "https://x.com/" }, nil},
		{"public diag without token", func(c *Config) { c.Diag = DiagConfig{Enabled: true, Addr: "0.0.0.0:9090"} }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := Validate(c)
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target))
			}
		})
	}

	c := valid()
	c.Diag = DiagConfig{Enabled: true, Addr: "localhost:9090"}
	assert.NoError(t, Validate(c))
}

func TestReloadRejectsInvalidAndKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "telegram: {token: t, target_chat_id: 1}\nschedule: {at: \"08:00\"}\n")
	m := NewStore(p)
	m.SetEnv(env(nil))
	first, err := m.Load()
	require.NoError(t, err)
	ctx := context.Background()

	writeFile(t, dir, "config.yaml", "telegram: {token: t, target_chat_id: 1}\nschedule: {at: \"99:00\"}\n")
	next, err := m.Reload(ctx)
	require.Error(t, err)
	assert.Nil(t, next)
	assert.Same(t, first, m.Current())

	writeFile(t, dir, "config.yaml", "telegram: {token: t, target_chat_id: 1}\nschedule: {at: \"09:15\"}\n")
	next, err = m.Reload(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "09:15", next.Schedule.At)
	assert.Same(t, next, m.Current())

	next, err = m.Reload(ctx)
	require.NoError(t, err)
	assert.Nil(t, next, "unchanged file")
}

func TestReloadCheckHook(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "telegram: {token: t, target_chat_id: 1}\n")
	m := NewStore(p)
	m.SetEnv(env(nil))
	_, err := m.Load()
	require.NoError(t, err)

	m.SetCheck(func(ctx context.Context, cfg *Config) error {
		if cfg.Telegram.Token != "t" {
			return errors.New("token change requires restart")
		}
		return nil
	})
	writeFile(t, dir, "config.yaml", "telegram: {token: other, target_chat_id: 1}\n")
	_, err = m.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, "t", m.Current().Telegram.Token)
}

func TestWatchAppliesFileChange(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "telegram: {token: t, target_chat_id: 1}\n")
	m := NewStore(p)
	m.SetEnv(env(nil))
	first, err := m.Load()
	require.NoError(t, err)

	type change struct{ prev, next *Config }
	changes := make(chan change, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, func(prev, next *Config) { changes <- change{prev, next} })
	}()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// let the watcher register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "config.yaml", "telegram: {token: t, target_chat_id: 1}\npost: {title: Weekly}\n")

	select {
	case c := <-changes:
		assert.Same(t, first, c.prev)
		assert.Equal(t, "Weekly", c.next.Post.Title)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not applied")
	}
}

func TestSectionsAndLogFields(t *testing.T) {
	a := &Config{Telegram: TelegramConfig{Token: "secret", TargetChatID: -100}}
	a.ApplyDefaults()
	b := *a
	b.Schedule.At = "09:00"
	b.Telegram.Token = "other"

	assert.Equal(t, []string{"telegram", "schedule"}, Sections(a, &b))
	assert.Empty(t, Sections(a, a))

	for _, f := range b.LogFields() {
		assert.NotEqual(t, "other", f.Value)
	}
}
