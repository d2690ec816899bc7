package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultPollTimeout = 10 * time.Second
	defaultPostTimeout = time.Minute
)

// durationOr parses a non-negative duration, returning def for an empty string.
func durationOr(key, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %w", key, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", key, raw)
	}
	return d, nil
}

// PollTimeout is the long-poll wait. Zero falls back to the default.
func (c *Config) PollTimeout() time.Duration {
	d, _ := durationOr("telegram.poll_timeout", c.Telegram.PollTimeout, defaultPollTimeout)
	if d == 0 {
		return defaultPollTimeout
	}
	return d
}

// PostTimeout bounds one scheduled post. Zero disables the bound.
func (c *Config) PostTimeout() time.Duration {
	d, _ := durationOr("schedule.timeout", c.Schedule.Timeout, defaultPostTimeout)
	return d
}
