package config

import (
	"reflect"
	"strings"

	logx "lifepath/pkg/logx"
)

// Sections names the top-level sections that differ, in file order.
func Sections(prev, next *Config) []string {
	if prev == nil {
		prev = &Config{}
	}
	if next == nil {
		next = &Config{}
	}
	a, b := reflect.ValueOf(*prev), reflect.ValueOf(*next)
	var out []string
	for i := range a.NumField() {
		if reflect.DeepEqual(a.Field(i).Interface(), b.Field(i).Interface()) {
			continue
		}
		name, _, _ := strings.Cut(a.Type().Field(i).Tag.Get("yaml"), ",")
		out = append(out, name)
	}
	return out
}

// LogFields summarizes c for logs. Secrets only show as set or unset.
func (c *Config) LogFields() []logx.Field {
	return []logx.Field{
		logx.ChatID(c.Telegram.TargetChatID),
		logx.String("at", c.Schedule.At),
		logx.String("tz", c.Schedule.Timezone),
		logx.Bool("enabled", c.Schedule.IsEnabled()),
		logx.String("prefix", c.Telegram.CommandPrefix),
		logx.Bool("group_log", c.Telegram.GroupLogID() != 0),
		logx.String("log_level", c.Logging.Level),
		logx.Bool("diag", c.Diag.Enabled),
		logx.Bool("diag_token", strings.TrimSpace(c.Diag.Token) != ""),
	}
}
