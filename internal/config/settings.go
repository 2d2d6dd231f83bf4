package config

import (
	"fmt"
	"strings"
	"time"

	"trendpush/internal/channels"
	"trendpush/internal/pipeline"
	"trendpush/internal/profile"
	"trendpush/internal/pushgate"
	"trendpush/internal/report"
	"trendpush/internal/scheduler"
	"trendpush/internal/storage"
	"trendpush/pkg/logx"
)

// The methods below convert the file schema into each component's own
// settings. They assume defaults were applied (Load does that).

func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
	}
}

func (c *Config) StorageConfig() (storage.Config, error) {
	bt, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      c.Storage.Driver,
		Path:        c.Storage.Path,
		DSN:         c.Storage.DSN,
		BusyTimeout: bt,
	}, nil
}

func (c *Config) Profiles() (*profile.Registry, error) {
	reg, err := profile.New(profile.Options{
		Budgets:       c.Notification.BatchSizes,
		RankThreshold: c.Notification.RankThreshold,
		Separator:     c.Notification.FeishuSeparator,
	})
	if err != nil {
		return nil, fmt.Errorf("notification.batch_sizes: %w", err)
	}
	return reg, nil
}

// ChannelSettings returns empty settings when notifications are disabled.
func (c *Config) ChannelSettings() (channels.Settings, error) {
	interval, err := ParseDurationOrDefault("notification.batch_interval", c.Notification.BatchInterval, time.Second)
	if err != nil {
		return channels.Settings{}, err
	}
	if !c.NotificationsEnabled() {
		return channels.Settings{}, nil
	}
	w := c.Notification.Webhooks
	return channels.Settings{
		FeishuURL:        w.FeishuURL,
		FeishuOutsideURL: w.FeishuOutsideURL,
		DingTalkURL:      w.DingTalkURL,
		WeWorkURL:        w.WeWorkURL,
		WeWorkMsgType:    w.WeWorkMsgType,
		TelegramToken:    w.TelegramBotToken,
		TelegramChatID:   w.TelegramChatID,
		NtfyServer:       w.NtfyServerURL,
		NtfyTopic:        w.NtfyTopic,
		NtfyToken:        w.NtfyToken,
		BarkURL:          w.BarkURL,
		SlackURL:         w.SlackWebhookURL,
		EmailFrom:        w.EmailFrom,
		EmailPassword:    w.EmailPassword,
		EmailTo:          w.EmailTo,
		EmailServer:      w.EmailSMTPServer,
		EmailPort:        w.EmailSMTPPort,
		MaxAccounts:      c.Notification.MaxAccountsPerChannel,
		Interval:         interval,
	}, nil
}

func (c *Config) PushWindow() (pushgate.Config, error) {
	pw := c.Notification.PushWindow
	loc, err := location(pw.Timezone)
	if err != nil {
		return pushgate.Config{}, fmt.Errorf("notification.push_window.timezone: %w", err)
	}
	return pushgate.Config{
		Enabled:       pw.Enabled,
		Start:         pw.Start,
		End:           pw.End,
		OncePerDay:    pw.OncePerDay == nil || *pw.OncePerDay,
		RetentionDays: pw.RetentionDays,
		Location:      loc,
	}, nil
}

func (c *Config) Pipeline() (pipeline.Config, error) {
	mode, err := report.ParseMode(c.Report.Mode)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("report.mode: %w", err)
	}
	chs, err := c.ChannelSettings()
	if err != nil {
		return pipeline.Config{}, err
	}
	profiles, err := c.Profiles()
	if err != nil {
		return pipeline.Config{}, err
	}
	window, err := c.PushWindow()
	if err != nil {
		return pipeline.Config{}, err
	}
	// Validate the window here so a bad reload is rejected before commit.
	if _, err := pushgate.New(window, nil, logx.Nop()); err != nil {
		return pipeline.Config{}, fmt.Errorf("notification.push_window: %w", err)
	}
	timeout, err := ParseDurationOrDefault("notification.send_timeout", c.Notification.SendTimeout, 30*time.Second)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Mode:     mode,
		Channels: chs,
		Profiles: profiles,
		Window:   window,
		Notice:   c.Report.Notice,
		NewFirst: c.Report.ReverseContentOrder,
		Timeout:  timeout,
	}, nil
}

func (c *Config) Scheduler() (scheduler.Config, error) {
	timeout, err := ParseDurationField("schedule.timeout", c.Schedule.Timeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{Spec: c.Schedule.Spec, Timezone: c.Schedule.Timezone, Timeout: timeout}, nil
}

// ReportSource reads the configured report file on every run.
func (c *Config) ReportSource() (report.Source, error) {
	path := strings.TrimSpace(c.Report.Path)
	if path == "" {
		return nil, fmt.Errorf("report.path is required")
	}
	mode, err := report.ParseMode(c.Report.Mode)
	if err != nil {
		return nil, err
	}
	return report.FileSource{Path: path, Mode: mode}, nil
}

func location(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// ParseDurationField parses the Go duration at a config path. Blank is 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %w", path, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}

// ParseDurationOrDefault falls back to def when the field is blank or 0.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
