package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lifepath/internal/app"
	"lifepath/internal/config"
	"lifepath/internal/daily"
	"lifepath/internal/numerology"
	"lifepath/internal/task/scheduler"
	logx "lifepath/pkg/logx"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:          "lifepath",
		Short:        "Daily Life Path numbers for a Telegram chat",
		SilenceUsage: true,
		RunE: func(c *cobra.Command, _ []string) error {
			return runBot(c.Context(), cfgPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./config.yaml", "path to config (yaml or json); env LIFEPATH_* overrides")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the bot (default)",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return runBot(c.Context(), cfgPath)
			},
		},
		&cobra.Command{
			Use:     "calc MM/DD/YYYY",
			Short:   "Print the post for a date",
			Example: "  lifepath calc 08/21/2025",
			Args:    cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return printCalc(c.OutOrStdout(), cfgPath, args[0])
			},
		},
		&cobra.Command{
			Use:   "next [count]",
			Short: "Print upcoming scheduled post times",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				n := 5
				if len(args) == 1 {
					v, err := strconv.Atoi(args[0])
					if err != nil || v < 1 {
						return fmt.Errorf("count must be a positive number, got %q", args[0])
					}
					n = v
				}
				return printNext(c.OutOrStdout(), cfgPath, n, time.Now())
			},
		},
	)
	return cmd
}

func runBot(parent context.Context, cfgPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	a, err := app.NewApp(cfgPath)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	reason := app.StopUnknown
	select {
	case s := <-sigs:
		reason = app.StopSIGINT
		if s == syscall.SIGTERM {
			reason = app.StopSIGTERM
		}
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if err := a.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// offlineConfig loads the config without requiring a token or chat id.
func offlineConfig(cfgPath string) (*config.Config, error) {
	return config.NewStore(cfgPath).Read()
}

func printCalc(w io.Writer, cfgPath, input string) error {
	d, err := numerology.ParseDate(input)
	if err != nil {
		return fmt.Errorf("use MM/DD/YYYY, e.g. 08/21/2025: %w", err)
	}
	cfg, err := offlineConfig(cfgPath)
	if err != nil {
		return err
	}
	st, err := daily.SettingsFromConfig(cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, daily.Render(st.Post, d).Plain())
	return err
}

func printNext(w io.Writer, cfgPath string, n int, now time.Time) error {
	cfg, err := offlineConfig(cfgPath)
	if err != nil {
		return err
	}
	if !cfg.Schedule.IsEnabled() {
		_, err = fmt.Fprintln(w, "schedule disabled")
		return err
	}
	sched := scheduler.New(scheduler.Config{Timezone: cfg.Schedule.Timezone}, nil, logx.Nop(), nil)
	sched.SetClock(func() time.Time { return now })
	if err := sched.AddDaily(daily.JobName, cfg.Schedule.At, 0, func(context.Context) error { return nil }); err != nil {
		return err
	}
	runs, err := sched.Next(daily.JobName, n)
	if err != nil {
		return err
	}
	for _, t := range runs {
		r := numerology.Reduce(numerology.DateOf(t))
		if _, err := fmt.Fprintf(w, "%s  Life Path %d / %d\n", t.Format("Mon Jan 02 2006 15:04 MST"), r.Primary, r.DigitTotal); err != nil {
			return err
		}
	}
	return nil
}
