package app

import (
	"context"
	"slices"
	"time"

	"trendpush/internal/config"
	"trendpush/pkg/logx"
)

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			if newCfg == nil {
				continue
			}
			a.apply(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// apply pushes a validated config into the running components. A component
// that rejects it keeps its previous settings.
func (a *App) apply(ctx context.Context, prev, cfg *config.Config) {
	a.sd.Reloading()
	defer a.sd.Ready()

	sections, _ := config.SummarizeChange(prev, cfg)
	for _, s := range []string{"storage", "server"} {
		if slices.Contains(sections, s) {
			a.log.Warn(s + " config changed; restart required for changes to take effect")
		}
	}

	a.logs.Apply(cfg.LogConfig())

	if pcfg, err := cfg.Pipeline(); err != nil {
		a.log.Warn("invalid pipeline config; keeping previous", logx.Err(err))
	} else if err := a.pipe.Apply(pcfg); err != nil {
		a.log.Warn("pipeline rejected config; keeping previous", logx.Err(err))
	}
	if senders, err := buildSenders(cfg, a.opts.Brand); err != nil {
		a.log.Warn("invalid sender config; keeping previous", logx.Err(err))
	} else {
		a.pipe.SetSenders(senders)
	}
	if err := cfg.CheckChannels(); err != nil {
		a.log.Warn("no notification channel configured; runs will be skipped")
	}

	scfg, err := cfg.Scheduler()
	if err != nil {
		a.log.Warn("invalid schedule config; keeping previous", logx.Err(err))
		return
	}
	if err := a.sched.Apply(scfg); err != nil {
		a.log.Warn("scheduler rejected config; keeping previous", logx.Err(err))
		return
	}
	switch {
	case a.schedOn && !cfg.Schedule.Enabled:
		a.log.Info("scheduler disabled via config")
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
		a.schedOn = false
	case !a.schedOn && cfg.Schedule.Enabled:
		a.log.Info("scheduler enabled via config")
		if err := a.sched.Start(ctx); err != nil {
			a.log.Warn("scheduler start failed", logx.Err(err))
			return
		}
		a.schedOn = true
	}
}
