package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"lifepath/internal/runtime/supervisor"
	logx "lifepath/pkg/logx"
)

type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopSIGINT     StopReason = "sigint"
	StopSIGTERM    StopReason = "sigterm"
	StopFatalError StopReason = "fatal_error"
)

type stopStep struct {
	name  string
	limit time.Duration
	run   func(ctx context.Context) error
}

// Stop disarms the daily post first so nothing fires mid-shutdown, then
// tears the rest down in dependency order. Each step gets its own bound
// inside ctx.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, daemon.SdNotifyStopping)
	a.sup.Cancel()
	if a.daily == nil {
		// Start failed before anything was wired
		return a.logs.Close()
	}

	steps := []stopStep{
		{"daily", time.Second, func(context.Context) error { a.daily.Disarm(); return nil }},
		{"scheduler", 2 * time.Second, func(c context.Context) error { a.sched.Stop(c); return nil }},
		{"diag", time.Second, func(c context.Context) error { a.diag.Stop(c); return nil }},
		{"telegram", 2 * time.Second, a.tg.Stop},
		// router, config watch, in-flight posts
		{"supervisor", 5 * time.Second, a.sup.Wait},
	}
	for _, st := range steps {
		a.runStep(ctx, st)
	}

	a.log.Info("stopped")
	return a.logs.Close()
}

// runStep gives st at most its limit. A step that overruns is abandoned and
// the shutdown moves on.
func (a *App) runStep(ctx context.Context, st stopStep) {
	ctx, cancel := context.WithTimeout(ctx, st.limit)
	defer cancel()
	start := time.Now()

	step := supervisor.New(ctx, supervisor.WithLogger(a.log))
	step.Fire("stop."+st.name, 0, st.run)
	if err := step.Wait(ctx); err != nil {
		a.log.Warn("stop step overran", logx.String("step", st.name), logx.Duration("limit", st.limit), logx.Err(err))
		return
	}
	a.log.Debug("stop step done", logx.String("step", st.name), logx.Duration("took", time.Since(start)))
}
