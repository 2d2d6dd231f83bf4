// Package app wires config, storage, the pipeline, the scheduler and the
// HTTP server into one process and keeps them in sync with config reloads.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trendpush/internal/channels"
	"trendpush/internal/config"
	"trendpush/internal/pipeline"
	"trendpush/internal/runtime/supervisor"
	"trendpush/internal/scheduler"
	"trendpush/internal/server"
	"trendpush/internal/storage"
	"trendpush/pkg/logx"
	"trendpush/pkg/systemd"
)

type Options struct {
	Version string
	// Brand names the sender in DingTalk titles, bark groups and email From.
	Brand string
}

type App struct {
	cfgm *config.Manager
	opts Options

	log   logx.Logger
	logs  *logx.Service
	store storage.Store
	pipe  *pipeline.Pipeline
	sched *scheduler.Service
	srv   *server.Server
	sd    *systemd.Notifier

	sup *supervisor.Supervisor
	// schedOn is only touched by Start and the reload goroutine.
	schedOn bool
}

// New builds every component from the manager's committed config.
func New(cfgm *config.Manager, opts Options) (*App, error) {
	if cfgm == nil || cfgm.Get() == nil {
		return nil, errors.New("app: config not loaded")
	}
	if strings.TrimSpace(opts.Brand) == "" {
		opts.Brand = "trendpush"
	}
	cfg := cfgm.Get()

	logSvc, root := logx.New(cfg.LogConfig())
	log := root.With(logx.String("comp", "app"))
	cfgm.SetLogger(root.With(logx.String("comp", "config")))

	a := &App{cfgm: cfgm, opts: opts, log: log, logs: logSvc, sd: systemd.New(root)}

	sc, err := cfg.StorageConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	if store != nil {
		a.store = store
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	if err := a.build(cfg, root); err != nil {
		a.close()
		return nil, err
	}

	if err := cfg.CheckChannels(); err != nil {
		log.Warn("no notification channel configured; runs will be skipped")
	} else if chs, errs := a.pipe.Channels(); len(chs) > 0 || len(errs) > 0 {
		log.Info("channels configured", logx.Strings("channels", channels.Summary(chs)), logx.Int("invalid", len(errs)))
	}
	return a, nil
}

func (a *App) build(cfg *config.Config, root logx.Logger) error {
	pcfg, err := cfg.Pipeline()
	if err != nil {
		return err
	}
	senders, err := buildSenders(cfg, a.opts.Brand)
	if err != nil {
		return err
	}
	a.pipe, err = pipeline.New(pcfg, a.reportSource(), senders, a.store, root)
	if err != nil {
		return err
	}
	scfg, err := cfg.Scheduler()
	if err != nil {
		return err
	}
	a.sched, err = scheduler.New(scfg, a.runScheduled, root)
	if err != nil {
		return err
	}
	a.srv = server.New(a.serverOptions(cfg), a.pipe, root)
	return nil
}

func (a *App) Pipeline() *pipeline.Pipeline { return a.pipe }

// Done is closed when the supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// RunOnce executes a single push and returns its outcome.
func (a *App) RunOnce(ctx context.Context) (pipeline.Outcome, error) {
	return a.pipe.Run(ctx)
}

func (a *App) runScheduled(ctx context.Context) error {
	out, err := a.pipe.Run(ctx)
	if errors.Is(err, pipeline.ErrBusy) {
		a.log.Warn("scheduled run skipped: a run is already in progress")
		return nil
	}
	a.sd.Status(statusLine(out, err))
	return err
}

func statusLine(out pipeline.Outcome, err error) string {
	at := out.FinishedAt.Format(time.RFC3339)
	switch {
	case err != nil:
		return fmt.Sprintf("last run failed at %s", at)
	case out.Skipped:
		return fmt.Sprintf("last run skipped at %s: %s", at, out.Reason)
	case out.Succeeded():
		return fmt.Sprintf("last push at %s", at)
	default:
		return fmt.Sprintf("last run delivered nothing at %s", at)
	}
}

// Start launches the long-lived goroutines. It returns once they are running.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	cfg := a.cfgm.Get()

	if cfg.Schedule.Enabled {
		if err := a.sched.Start(a.sup.Context()); err != nil {
			return err
		}
		a.schedOn = true
	}
	if cfg.Server.Enabled {
		a.sup.Go("server", a.srv.Serve)
	}

	if a.cfgm.Path() != "" {
		sub := a.cfgm.Subscribe(8)
		a.sup.Go("config.reload", func(c context.Context) error {
			defer a.cfgm.Unsubscribe(sub)
			a.reloadLoop(c, sub)
			return nil
		})
		a.sup.Go("config.watch", a.cfgm.Watch)
	}
	a.sup.Go("systemd.watchdog", a.sd.Watchdog)

	a.sd.Ready()
	a.log.Info("app started",
		logx.Bool("schedule", a.schedOn),
		logx.Bool("server", cfg.Server.Enabled),
		logx.String("version", a.opts.Version),
	)
	return nil
}

// Stop shuts everything down in order. Each step is bounded so one
// component cannot stall the whole stop.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sd.Stopping()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok && time.Until(dl) < max {
				max = time.Until(dl)
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	if a.sup != nil {
		step("supervisor", 5*time.Second, func(c context.Context) error {
			if err := a.sup.Stop(c); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	// A manual run is detached from request contexts; let it record its push.
	step("pipeline", 30*time.Second, func(c context.Context) error { return waitIdle(c, a.pipe) })

	a.log.Info("stopped")
	a.close()
	return nil
}

// Close releases storage and log sinks without the shutdown sequence; for
// one-shot commands.
func (a *App) Close() { a.close() }

func (a *App) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
		a.store = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

func waitIdle(ctx context.Context, p *pipeline.Pipeline) error {
	if p == nil {
		return nil
	}
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for p.Running() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
