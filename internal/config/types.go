package config

import (
	"strconv"
	"strings"
)

// Config is the bot configuration file. JSON and YAML share the same keys.
type Config struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
	Post     PostConfig     `json:"post" yaml:"post"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Diag     DiagConfig     `json:"diag,omitempty" yaml:"diag,omitempty"`
}

type TelegramConfig struct {
	Token          string `json:"token" yaml:"token"`
	TargetChatID   int64  `json:"target_chat_id" yaml:"target_chat_id"`
	TargetThreadID int    `json:"target_thread_id,omitempty" yaml:"target_thread_id,omitempty"` // forum topic, 0 for none
	// GroupLog is the chat that receives forwarded error logs.
	GroupLog      string `json:"group_log,omitempty" yaml:"group_log,omitempty"`
	PollTimeout   string `json:"poll_timeout,omitempty" yaml:"poll_timeout,omitempty"`
	CommandPrefix string `json:"command_prefix,omitempty" yaml:"command_prefix,omitempty"`
}

// GroupLogID is 0 when group_log is empty or not a number.
func (t TelegramConfig) GroupLogID() int64 {
	id, _ := strconv.ParseInt(strings.TrimSpace(t.GroupLog), 10, 64)
	return id
}

type ScheduleConfig struct {
	// nil means on
	Enabled  *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	At       string `json:"at" yaml:"at"`             // HH:MM
	Timezone string `json:"timezone" yaml:"timezone"` // IANA name
	// Timeout bounds one post. Empty means a minute, "0s" means none.
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (s ScheduleConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

type PostConfig struct {
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	URLHost string `json:"url_host,omitempty" yaml:"url_host,omitempty"`
	TZLabel string `json:"tz_label,omitempty" yaml:"tz_label,omitempty"` // header zone label, e.g. "PT"
}

type LoggingConfig struct {
	Level    string          `json:"level" yaml:"level"`
	Console  bool            `json:"console" yaml:"console"`
	File     LoggingFile     `json:"file" yaml:"file"`
	Telegram LoggingTelegram `json:"telegram" yaml:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// LoggingTelegram forwards records at or above MinLevel to telegram.group_log.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ThreadID   int    `json:"thread_id" yaml:"thread_id"`
	MinLevel   string `json:"min_level" yaml:"min_level"`
	RatePerSec int    `json:"rate_per_sec" yaml:"rate_per_sec"`
}

// DiagConfig is the health/metrics/pprof listener. Token is required off loopback.
type DiagConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
	Pprof   bool   `json:"pprof,omitempty" yaml:"pprof,omitempty"`
}
