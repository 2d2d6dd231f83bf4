package app

import (
	"context"

	"trendpush/internal/channels"
	"trendpush/internal/config"
	"trendpush/internal/dispatch"
	"trendpush/internal/report"
	"trendpush/internal/server"
	"trendpush/internal/transport"
	"trendpush/internal/transport/webhook"
)

// buildSenders binds channel credentials into a fresh sender registry.
func buildSenders(cfg *config.Config, brand string) (*transport.Registry, error) {
	settings, err := cfg.ChannelSettings()
	if err != nil {
		return nil, err
	}
	timeout, err := config.ParseDurationOrDefault("notification.send_timeout", cfg.Notification.SendTimeout, dispatch.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	client, err := webhook.NewHTTPClient(cfg.Notification.Proxy, timeout)
	if err != nil {
		return nil, err
	}
	return channels.NewSenders(settings, channels.SenderOptions{
		Client:      client,
		TelegramAPI: cfg.Notification.TelegramAPI,
		Brand:       brand,
	}), nil
}

// reportSource resolves report.path on every run so a reload takes effect
// without rebuilding the pipeline.
func (a *App) reportSource() report.Source {
	return report.SourceFunc(func(ctx context.Context) (*report.Data, error) {
		src, err := a.cfgm.Get().ReportSource()
		if err != nil {
			return nil, err
		}
		return src.Build(ctx)
	})
}

func (a *App) serverOptions(cfg *config.Config) server.Options {
	return server.Options{
		Addr:    cfg.Server.Addr,
		Token:   cfg.Server.Token,
		Pprof:   cfg.Server.Pprof,
		Version: a.opts.Version,
		Next:    a.sched.Next,
	}
}
