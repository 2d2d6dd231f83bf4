package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trendpush/internal/profile"
	"trendpush/internal/report"
	"trendpush/pkg/logx"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

const sampleYAML = `
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: ./data/trendpush.db
  busy_timeout: 2s
report:
  mode: incremental
  path: ./output/report.json
schedule:
  enabled: true
  spec: "*/30 8-22 * * *"
notification:
  batch_sizes:
    dingtalk: 15000
  push_window:
    enabled: true
    start: "09:00"
    end: "21:00"
  webhooks:
    slack_webhook_url: https://hooks.slack.test/x
    telegram_bot_token: "t1;t2"
    telegram_chat_id: "c1;c2"
`

func TestLoadYAMLWithDefaults(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.yaml", sampleYAML))
	m.SetLookup(noEnv)
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if m.Get() != cfg {
		t.Fatal("Load did not commit")
	}
	if cfg.Notification.MaxAccountsPerChannel != DefaultMaxAccounts || cfg.Notification.SendTimeout != DefaultSendTimeout {
		t.Fatalf("defaults not applied: %+v", cfg.Notification)
	}
	if !cfg.NotificationsEnabled() {
		t.Fatal("notifications should default to enabled")
	}

	pc, err := cfg.Pipeline()
	if err != nil {
		t.Fatal(err)
	}
	if pc.Mode != report.ModeIncremental || pc.Timeout != 30*time.Second {
		t.Fatalf("pipeline config = %+v", pc)
	}
	if !pc.Window.Enabled || !pc.Window.OncePerDay || pc.Window.Start != "09:00" || pc.Window.RetentionDays != 7 {
		t.Fatalf("window = %+v", pc.Window)
	}
	if pc.Channels.Interval != time.Second || pc.Channels.TelegramChatID != "c1;c2" {
		t.Fatalf("channels = %+v", pc.Channels)
	}
	p, err := pc.Profiles.Lookup(profile.DingTalk)
	if err != nil || p.ByteBudget != 15000 {
		t.Fatalf("dingtalk profile = %+v, %v", p, err)
	}

	sc, err := cfg.StorageConfig()
	if err != nil || sc.Driver != "sqlite" || sc.BusyTimeout != 2*time.Second {
		t.Fatalf("storage = %+v, %v", sc, err)
	}
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", `{"report":{"mode":"daily"},"telegram":{}}`))
	m.SetLookup(noEnv)
	if _, err := m.Load(); err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", `{} {}`))
	m.SetLookup(noEnv)
	if _, err := m.Load(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestEmptyYAMLIsValid(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.yml", ""))
	m.SetLookup(noEnv)
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Report.Mode != "daily" {
		t.Fatalf("mode = %q", cfg.Report.Mode)
	}
	if cfg.Schedule.Spec != DefaultScheduleSpec || cfg.Schedule.Enabled {
		t.Fatalf("schedule = %+v", cfg.Schedule)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.yaml", sampleYAML))
	m.SetLookup(envOf(map[string]string{
		"SLACK_WEBHOOK_URL":        "https://hooks.slack.test/env",
		"NTFY_TOPIC":               "alerts",
		"MAX_ACCOUNTS_PER_CHANNEL": "5",
		"PUSH_WINDOW_ONCE_PER_DAY": "false",
		"REVERSE_CONTENT_ORDER":    "true",
		"REPORT_MODE":              "current",
		"EMAIL_SMTP_PORT":          "465",
		"BARK_URL":                 "   ",
		"LOG_LEVEL":                "warn",
		"REPORT_PATH":              "/srv/report.json",
	}))
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	w := cfg.Notification.Webhooks
	if w.SlackWebhookURL != "https://hooks.slack.test/env" || w.NtfyTopic != "alerts" || w.EmailSMTPPort != 465 || w.BarkURL != "" {
		t.Fatalf("webhooks = %+v", w)
	}
	if cfg.Notification.MaxAccountsPerChannel != 5 || *cfg.Notification.PushWindow.OncePerDay {
		t.Fatalf("notification = %+v", cfg.Notification)
	}
	if !cfg.Report.ReverseContentOrder || cfg.Report.Mode != "current" || cfg.Report.Path != "/srv/report.json" {
		t.Fatalf("report = %+v", cfg.Report)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("logging.level = %q", cfg.Logging.Level)
	}
}

func TestEnvRejectsBadValues(t *testing.T) {
	t.Parallel()

	for key, val := range map[string]string{
		"MAX_ACCOUNTS_PER_CHANNEL": "many",
		"PUSH_WINDOW_ENABLED":      "sometimes",
		"PUSH_WINDOW_ONCE_PER_DAY": "maybe",
	} {
		cfg := &Config{}
		if err := ApplyEnv(cfg, envOf(map[string]string{key: val})); err == nil {
			t.Errorf("%s=%q accepted", key, val)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Report.Mode = "weekly" }},
		{"bad driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"bad schedule", func(c *Config) { c.Schedule.Enabled = true; c.Schedule.Spec = "whenever" }},
		{"bad cron field", func(c *Config) { c.Schedule.Spec = "61 * * * *" }},
		{"bad schedule timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"inverted window", func(c *Config) {
			c.Notification.PushWindow.Enabled = true
			c.Notification.PushWindow.Start = "22:00"
			c.Notification.PushWindow.End = "08:00"
		}},
		{"bad timezone", func(c *Config) { c.Notification.PushWindow.Timezone = "Nowhere/City" }},
		{"unknown batch size", func(c *Config) { c.Notification.BatchSizes = map[string]int{"pager": 100} }},
		{"bad interval", func(c *Config) { c.Notification.BatchInterval = "fast" }},
		{"bad busy timeout", func(c *Config) { c.Storage.BusyTimeout = "-1s" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mut(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCheckChannels(t *testing.T) {
	t.Parallel()

	cfg, err := Default(noEnv)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(cfg.CheckChannels(), ErrNoChannels) {
		t.Fatal("expected ErrNoChannels")
	}
	off := false
	cfg.Notification.Enabled = &off
	if err := cfg.CheckChannels(); err != nil {
		t.Fatalf("disabled notifications: %v", err)
	}
	if cs, _ := cfg.ChannelSettings(); cs.SlackURL != "" {
		t.Fatal("disabled notifications must yield empty channel settings")
	}
}

func TestSummarizeChangeHidesSecrets(t *testing.T) {
	t.Parallel()

	a, _ := Default(noEnv)
	b, _ := Default(envOf(map[string]string{"TELEGRAM_BOT_TOKEN": "secret-token", "TELEGRAM_CHAT_ID": "1"}))
	b.Logging.Level = "debug"

	changed, fields := SummarizeChange(a, b)
	if strings.Join(changed, ",") != "logging,notification" {
		t.Fatalf("changed = %v", changed)
	}

	var sb strings.Builder
	log := logx.NewWriter(&sb, "debug")
	log.Info("reload", fields...)
	if strings.Contains(sb.String(), "secret-token") {
		t.Fatalf("secret leaked: %s", sb.String())
	}
	if !strings.Contains(sb.String(), "telegram") {
		t.Fatalf("channel list missing: %s", sb.String())
	}
}

func TestWatchPublishesReload(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", "report:\n  mode: daily\n")
	m := NewManager(path)
	m.SetLookup(noEnv)
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, []byte("report:\n  mode: current\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-sub:
		if cfg.Report.Mode != "current" {
			t.Fatalf("published mode = %q", cfg.Report.Mode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
	cancel()
	<-done
}
