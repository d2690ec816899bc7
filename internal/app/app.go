// Package app wires the daily dispatcher, Telegram client, scheduler and
// side services together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"lifepath/internal/config"
	"lifepath/internal/daily"
	"lifepath/internal/diag"
	"lifepath/internal/eventbus"
	"lifepath/internal/metrics"
	"lifepath/internal/runtime/supervisor"
	"lifepath/internal/task/scheduler"
	kit "lifepath/internal/transport"
	telegram "lifepath/internal/transport/telegram/adapter"
	"lifepath/internal/transport/telegram/router"
	logx "lifepath/pkg/logx"
)

type App struct {
	store *config.Store
	sup   *supervisor.Supervisor

	root    logx.Logger
	log     logx.Logger
	logs    *logx.Service
	bus     eventbus.Bus
	metrics *metrics.Metrics

	tg     *telegram.Client
	sched  *scheduler.Service
	daily  *daily.Service
	router *router.Router
	diag   *diag.Service

	inbox chan kit.Message
}

// NewApp loads the config and logs in to Telegram. A bad config or token
// fails here, before anything runs.
func NewApp(cfgPath string) (*App, error) {
	store := config.NewStore(cfgPath)
	cfg, err := store.Load()
	if err != nil {
		return nil, err
	}

	tg, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.PollTimeout(),
	}, logx.NewConsole(cfg.Logging.Level).With(logx.Comp("telegram")))
	if err != nil {
		return nil, err
	}

	// the log chat is set before Apply turns forwarding on
	logs, root := logx.New(logConfig(cfg, false), tg)
	logs.SetTelegramTarget(cfg.Telegram.GroupLogID(), cfg.Logging.Telegram.ThreadID)
	logs.Apply(logConfig(cfg, true))

	m := metrics.New()
	a := &App{
		store:   store,
		root:    root,
		log:     root.With(logx.Comp("app")),
		logs:    logs,
		bus:     eventbus.New(),
		metrics: m,
		tg:      tg,
		inbox:   make(chan kit.Message, 256),
	}
	a.diag = diag.New(root, m.Registry(), a.readiness)
	return a, nil
}

// Done closes once the app is stopping, by Stop or by a fatal service error.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) State() daily.State {
	if a.daily == nil {
		return daily.StateIdle
	}
	return a.daily.State()
}

// readiness backs /readyz: ready once the daily trigger left idle.
func (a *App) readiness() (bool, string) {
	st := a.State()
	return st != daily.StateIdle, st.String()
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.store.Current()
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.FailFast())

	if err := a.build(cfg); err != nil {
		return err
	}
	if err := a.tg.Start(a.sup.Context(), a.inbox); err != nil {
		return err
	}
	a.sched.Start()

	a.sup.Go("router", func(c context.Context) error { return a.router.Run(c, a.inbox) })
	a.sup.Go("daily.arm", a.armWhenReady)
	a.sup.Go("events", a.logEvents)
	a.sup.Loop("config.watch", 250*time.Millisecond, 5*time.Second, func(c context.Context) error {
		return a.store.Watch(c, func(prev, next *config.Config) { a.applyConfig(c, prev, next) })
	})

	if dc := diagConfig(cfg); dc.Enabled {
		// diag is optional; a bind failure is logged by diag itself
		_ = a.diag.Reconfigure(a.sup.Context(), dc)
	}

	a.log.Info("app started", cfg.LogFields()...)
	return nil
}

func (a *App) build(cfg *config.Config) error {
	settings, err := daily.SettingsFromConfig(cfg)
	if err != nil {
		return err
	}
	a.store.SetLogger(a.root.With(logx.Comp("config")))
	a.store.SetCheck(func(_ context.Context, next *config.Config) error {
		_, err := daily.SettingsFromConfig(next)
		return err
	})

	a.sched = scheduler.New(schedConfig(cfg), a.sup, a.root.With(logx.Comp("scheduler")), a.bus)
	a.daily = daily.New(settings, daily.Deps{
		Sink:      a.tg,
		Scheduler: a.sched,
		Log:       a.root,
		Bus:       a.bus,
		Metrics:   a.metrics,
	})
	a.router = router.New(a.root.With(logx.Comp("router")), a.tg, a.sup, cfg.Telegram.CommandPrefix)
	a.router.SetBotUsername(a.tg.Username())
	a.router.SetCommands(a.daily.Commands())
	return nil
}

// armWhenReady registers the daily post once polling is up, so the first
// fire always has a working sink, then publishes the command menu.
func (a *App) armWhenReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-a.tg.Ready():
	}
	if err := a.daily.Arm(); err != nil {
		return fmt.Errorf("arm: %w", err)
	}
	menuCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.tg.UpdateMenuCommands(menuCtx, a.router.MenuCommands()); err != nil {
		a.log.Warn("command menu not updated", logx.Err(err))
	}
	sdNotify(a.log, daemon.SdNotifyReady)
	return nil
}

func (a *App) logEvents(ctx context.Context) error {
	events, unsub := a.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			a.log.Debug("event", logx.String("kind", string(e.Kind)), logx.Time("at", e.At), logx.Any("data", e.Data))
		}
	}
}
