package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trendpush/internal/pushgate"
	"trendpush/internal/report"
	"trendpush/internal/scheduler"
	"trendpush/pkg/logx"
)

var ErrNoChannels = errors.New("config: no notification channel configured")

const (
	DefaultMaxAccounts   = 3
	DefaultBatchInterval = "1s"
	DefaultSendTimeout   = "30s"
	DefaultWindowStart   = "08:00"
	DefaultWindowEnd     = "22:00"
	DefaultServerAddr    = "127.0.0.1:8088"
	DefaultScheduleSpec  = "@hourly"
)

// applyDefaults fills omitted fields in place.
func applyDefaults(cfg *Config) {
	n := &cfg.Notification
	if n.Enabled == nil {
		on := true
		n.Enabled = &on
	}
	if n.MaxAccountsPerChannel <= 0 {
		n.MaxAccountsPerChannel = DefaultMaxAccounts
	}
	if strings.TrimSpace(n.BatchInterval) == "" {
		n.BatchInterval = DefaultBatchInterval
	}
	if strings.TrimSpace(n.SendTimeout) == "" {
		n.SendTimeout = DefaultSendTimeout
	}
	pw := &n.PushWindow
	if strings.TrimSpace(pw.Start) == "" {
		pw.Start = DefaultWindowStart
	}
	if strings.TrimSpace(pw.End) == "" {
		pw.End = DefaultWindowEnd
	}
	if pw.OncePerDay == nil {
		on := true
		pw.OncePerDay = &on
	}
	if pw.RetentionDays <= 0 {
		pw.RetentionDays = pushgate.DefaultRetentionDays
	}
	if strings.TrimSpace(cfg.Report.Mode) == "" {
		cfg.Report.Mode = string(report.ModeDaily)
	}
	if strings.TrimSpace(cfg.Schedule.Spec) == "" {
		cfg.Schedule.Spec = DefaultScheduleSpec
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
}

// Validate checks everything that can be checked without network access.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if _, err := report.ParseMode(cfg.Report.Mode); err != nil {
		return fmt.Errorf("report.mode: %w", err)
	}
	if _, err := cfg.StorageConfig(); err != nil {
		return err
	}
	if _, err := cfg.Pipeline(); err != nil {
		return err
	}
	sc, err := cfg.Scheduler()
	if err != nil {
		return err
	}
	// A throwaway service parses the cron expression and the timezone.
	if _, err := scheduler.New(sc, func(context.Context) error { return nil }, logx.Nop()); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "none", "memory", "file", "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	return nil
}

func (c *Config) NotificationsEnabled() bool {
	return c.Notification.Enabled == nil || *c.Notification.Enabled
}

// HasChannels reports whether any channel has credentials.
func (c *Config) HasChannels() bool { return len(c.configuredChannels()) > 0 }

// CheckChannels returns ErrNoChannels when notifications are enabled but
// nothing is configured.
func (c *Config) CheckChannels() error {
	if c.NotificationsEnabled() && !c.HasChannels() {
		return ErrNoChannels
	}
	return nil
}
