package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DefaultPostAt        = "08:00"
	DefaultTimezone      = "America/Los_Angeles"
	DefaultTitle         = "Daily 7CatYear"
	DefaultURLHost       = "7catyear.com"
	DefaultCommandPrefix = "/"
	DefaultDiagAddr      = "127.0.0.1:9090"
)

// Environment overrides. They win over the file so a token never has to live on disk.
const (
	EnvToken         = "LIFEPATH_TELEGRAM_TOKEN"
	EnvTargetChatID  = "LIFEPATH_TARGET_CHAT_ID"
	EnvTimezone      = "LIFEPATH_TIMEZONE"
	EnvPostAt        = "LIFEPATH_POST_AT"
	EnvCommandPrefix = "LIFEPATH_COMMAND_PREFIX"
	EnvLogLevel      = "LIFEPATH_LOG_LEVEL"
)

// ApplyDefaults fills omitted fields in place.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Schedule.At) == "" {
		c.Schedule.At = DefaultPostAt
	}
	if strings.TrimSpace(c.Schedule.Timezone) == "" {
		c.Schedule.Timezone = DefaultTimezone
	}
	if strings.TrimSpace(c.Post.Title) == "" {
		c.Post.Title = DefaultTitle
	}
	if strings.TrimSpace(c.Post.URLHost) == "" {
		c.Post.URLHost = DefaultURLHost
	}
	if c.Telegram.CommandPrefix == "" {
		c.Telegram.CommandPrefix = DefaultCommandPrefix
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Diag.Enabled && strings.TrimSpace(c.Diag.Addr) == "" {
		c.Diag.Addr = DefaultDiagAddr
	}
}

// ApplyEnv overlays environment variables read through getenv (os.Getenv when nil).
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvTargetChatID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid chat id %q", EnvTargetChatID, v)
		}
		c.Telegram.TargetChatID = id
	}
	if v := strings.TrimSpace(getenv(EnvTimezone)); v != "" {
		c.Schedule.Timezone = v
	}
	if v := strings.TrimSpace(getenv(EnvPostAt)); v != "" {
		c.Schedule.At = v
	}
	if v := strings.TrimSpace(getenv(EnvCommandPrefix)); v != "" {
		c.Telegram.CommandPrefix = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	return nil
}

var (
	ErrMissingToken  = errors.New("telegram.token is required")
	ErrMissingTarget = errors.New("telegram.target_chat_id is required")
)

// Validate reports the first configuration problem. The process must not start
// (or a reload must not be applied) when it returns an error.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingToken
	}
	if c.Telegram.TargetChatID == 0 {
		return ErrMissingTarget
	}
	if g := strings.TrimSpace(c.Telegram.GroupLog); g != "" && c.Telegram.GroupLogID() == 0 {
		return fmt.Errorf("telegram.group_log: invalid chat id %q", g)
	}
	if p := c.Telegram.CommandPrefix; p != "" && strings.TrimSpace(p) != p {
		return fmt.Errorf("telegram.command_prefix: must not contain spaces")
	}
	if _, err := durationOr("telegram.poll_timeout", c.Telegram.PollTimeout, 0); err != nil {
		return err
	}
	if _, err := time.LoadLocation(strings.TrimSpace(c.Schedule.Timezone)); err != nil || strings.TrimSpace(c.Schedule.Timezone) == "" {
		return fmt.Errorf("schedule.timezone: unknown zone %q", c.Schedule.Timezone)
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(c.Schedule.At)); err != nil {
		return fmt.Errorf("schedule.at: invalid time %q, expected HH:MM", c.Schedule.At)
	}
	if _, err := durationOr("schedule.timeout", c.Schedule.Timeout, 0); err != nil {
		return err
	}
	if strings.ContainsAny(c.Post.URLHost, "/?# ") {
		return fmt.Errorf("post.url_host: expected a bare host, got %q", c.Post.URLHost)
	}
	if c.Diag.Enabled {
		host, _, err := net.SplitHostPort(strings.TrimSpace(c.Diag.Addr))
		if err != nil {
			return fmt.Errorf("diag.addr: %w", err)
		}
		if !isLoopbackHost(host) && strings.TrimSpace(c.Diag.Token) == "" {
			return fmt.Errorf("diag.addr %q is not loopback; diag.token is required", c.Diag.Addr)
		}
	}
	return nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Location loads the configured zone. Call after Validate.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(strings.TrimSpace(c.Schedule.Timezone))
}
