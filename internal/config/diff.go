package config

import (
	"reflect"
	"strings"

	"trendpush/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and safe fields for
// logging. Credentials are reported only as set/unset.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.Bool("storage.dsn_set", strings.TrimSpace(newCfg.Storage.DSN) != ""),
		)
	}

	if oldCfg.Report != newCfg.Report {
		changed = append(changed, "report")
		attrs = append(attrs,
			logx.String("report.mode", newCfg.Report.Mode),
			logx.String("report.path", newCfg.Report.Path),
			logx.Bool("report.reverse_content_order", newCfg.Report.ReverseContentOrder),
		)
	}

	if oldCfg.Schedule != newCfg.Schedule {
		changed = append(changed, "schedule")
		attrs = append(attrs,
			logx.Bool("schedule.enabled", newCfg.Schedule.Enabled),
			logx.String("schedule.spec", newCfg.Schedule.Spec),
			logx.String("schedule.timezone", newCfg.Schedule.Timezone),
		)
	}

	if oldCfg.Server != newCfg.Server {
		changed = append(changed, "server")
		attrs = append(attrs,
			logx.Bool("server.enabled", newCfg.Server.Enabled),
			logx.String("server.addr", newCfg.Server.Addr),
		)
	}

	if !reflect.DeepEqual(oldCfg.Notification, newCfg.Notification) {
		changed = append(changed, "notification")
		n := newCfg.Notification
		attrs = append(attrs,
			logx.Bool("notification.enabled", newCfg.NotificationsEnabled()),
			logx.Int("notification.max_accounts", n.MaxAccountsPerChannel),
			logx.Bool("notification.push_window", n.PushWindow.Enabled),
			logx.Strings("notification.channels_set", newCfg.configuredChannels()),
		)
	}
	return changed, attrs
}

// configuredChannels lists channel ids with credentials, never the values.
func (c *Config) configuredChannels() []string {
	w := c.Notification.Webhooks
	pairs := []struct {
		name string
		val  string
	}{
		{"feishu", w.FeishuURL},
		{"feishu_outside", w.FeishuOutsideURL},
		{"dingtalk", w.DingTalkURL},
		{"wework", w.WeWorkURL},
		{"telegram", w.TelegramBotToken},
		{"ntfy", w.NtfyTopic},
		{"bark", w.BarkURL},
		{"slack", w.SlackWebhookURL},
		{"email", w.EmailTo},
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if strings.TrimSpace(p.val) != "" {
			out = append(out, p.name)
		}
	}
	return out
}
