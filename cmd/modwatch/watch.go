package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/modwatch/pkg/modwatch/config"
	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/notify"
	"github.com/jamesainslie/modwatch/pkg/modwatch/snapshot"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check the server on a schedule",
	Long: `Watch runs a check immediately and then on the configured cron schedule
(watch.schedule, default "@every 15m") until interrupted.

Edits to the config file are picked up without a restart. A check that is
still running when the next one is due causes that next one to be skipped.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule overriding watch.schedule (e.g. \"*/10 * * * *\")")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	w := newWatcher(ctx, runCycle)
	if err := w.apply(c); err != nil {
		return err
	}

	if c.File != "" {
		if _, err := config.Watch(c.File, w.reload); err != nil {
			cliLogger.Warn("config hot reload disabled", "error", err)
		}
	}

	printInfo("Watching %s on schedule %q (Ctrl+C to stop)", describeSource(c), w.currentSchedule())
	w.start()
	go w.job.Run()

	<-ctx.Done()
	printInfo("Stopping...")
	<-w.stop().Done()
	return nil
}

// cycleFunc performs one check with the given configuration.
type cycleFunc func(ctx context.Context, c *config.Config)

// watcher owns the cron scheduler and swaps its job when the configuration
// changes. Scheduled and immediate checks share job, so both recover from
// panics and never overlap.
type watcher struct {
	ctx  context.Context
	run  cycleFunc
	cron *cron.Cron
	job  cron.Job

	mu       sync.Mutex
	cfg      *config.Config
	schedule string
	entry    cron.EntryID
}

func newWatcher(ctx context.Context, run cycleFunc) *watcher {
	log := cronLogger{logging.Get("cli")}
	w := &watcher{
		ctx:  ctx,
		run:  run,
		cron: cron.New(),
	}
	w.job = cron.NewChain(cron.Recover(log), cron.SkipIfStillRunning(log)).Then(cron.FuncJob(w.runNow))
	return w
}

// apply installs c, rescheduling the job when the schedule changed.
func (w *watcher) apply(c *config.Config) error {
	schedule := c.Watch.Schedule
	if watchSchedule != "" {
		schedule = watchSchedule
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if schedule == w.schedule && w.entry != 0 {
		w.cfg = c
		return nil
	}

	id, err := w.cron.AddJob(schedule, w.job)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	if w.entry != 0 {
		w.cron.Remove(w.entry)
	}
	w.cfg = c
	w.entry = id
	w.schedule = schedule
	return nil
}

// reload is the config.Watch callback. A broken config is logged and the
// previous one stays in effect.
func (w *watcher) reload(next *config.Config, err error) {
	if err != nil {
		cliLogger.Error("ignoring config change", "error", err)
		return
	}
	if err := w.apply(next); err != nil {
		cliLogger.Error("ignoring config change", "error", err)
		return
	}
	cliLogger.Info("configuration reloaded", "schedule", w.currentSchedule())
}

func (w *watcher) runNow() {
	w.mu.Lock()
	c := w.cfg
	w.mu.Unlock()

	if w.ctx.Err() != nil {
		return
	}
	w.run(w.ctx, c)
}

func (w *watcher) currentSchedule() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.schedule
}

func (w *watcher) start() {
	w.cron.Start()
}

func (w *watcher) stop() context.Context {
	return w.cron.Stop()
}

// runCycle performs one scheduled check and logs the outcome.
func runCycle(ctx context.Context, c *config.Config) {
	deliverer := notify.FromChannels(c.Channels())
	m, err := newMonitor(c, deliverer, false, nil)
	if err != nil {
		cliLogger.Error("check not started", "error", err)
		return
	}

	rep, err := m.Run(ctx)
	switch {
	case errors.Is(err, snapshot.ErrLocked):
		cliLogger.Info("previous check still running, skipping")
		return
	case errors.Is(err, context.Canceled):
		cliLogger.Info("check cancelled")
		return
	case err != nil:
		cliLogger.Error("check failed", "error", err)
		return
	}

	summary := rep.Summary()
	log := cliLogger.With("run", rep.RunID)
	log.Info("check finished",
		"mods", rep.Current.Len(),
		"added", summary.Added,
		"updated", summary.Updated,
		"removed", summary.Removed,
		"duration", rep.Duration().Round(time.Millisecond),
	)
	if rep.DeliveryErr != nil {
		log.Warn("notification failed", "channel", deliverer.Name(), "error", rep.DeliveryErr)
	}
}

// cronLogger adapts a component logger to cron.Logger.
type cronLogger struct {
	log *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
