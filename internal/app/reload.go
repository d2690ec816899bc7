package app

import (
	"context"
	"strings"

	"lifepath/internal/config"
	"lifepath/internal/daily"
	logx "lifepath/pkg/logx"
)

// applyConfig pushes an accepted config into the running services.
// The bot token and poll timeout only take effect on restart.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	changed := config.Sections(prev, next)
	if len(changed) == 0 {
		return
	}
	if prev.Telegram.Token != next.Telegram.Token || prev.PollTimeout() != next.PollTimeout() {
		a.log.Warn("telegram token or poll_timeout changed; restart to apply")
	}

	a.logs.SetTelegramTarget(next.Telegram.GroupLogID(), next.Logging.Telegram.ThreadID)
	a.logs.Apply(logConfig(next, true))
	a.router.SetPrefix(next.Telegram.CommandPrefix)

	// zone before time: a zone change rebuilds cron, then the daily entry is re-added
	a.sched.Apply(schedConfig(next))
	if st, err := daily.SettingsFromConfig(next); err != nil {
		a.log.Warn("schedule kept", logx.Err(err))
	} else if err := a.daily.Apply(st); err != nil {
		a.log.Error("re-arm failed", logx.Err(err))
	}

	if err := a.diag.Reconfigure(ctx, diagConfig(next)); err != nil {
		a.log.Warn("diag reconfigure failed", logx.Err(err))
	}

	a.log.Info("config applied", append(next.LogFields(), logx.String("changed", strings.Join(changed, ",")))...)
}
