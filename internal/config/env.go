package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides credentials and switches from the environment. Empty
// variables are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	w := &cfg.Notification.Webhooks
	strs := map[string]*string{
		"FEISHU_WEBHOOK_URL":         &w.FeishuURL,
		"FEISHU_OUTSIDE_WEBHOOK_URL": &w.FeishuOutsideURL,
		"DINGTALK_WEBHOOK_URL":       &w.DingTalkURL,
		"WEWORK_WEBHOOK_URL":         &w.WeWorkURL,
		"WEWORK_MSG_TYPE":            &w.WeWorkMsgType,
		"TELEGRAM_BOT_TOKEN":         &w.TelegramBotToken,
		"TELEGRAM_CHAT_ID":           &w.TelegramChatID,
		"NTFY_SERVER_URL":            &w.NtfyServerURL,
		"NTFY_TOPIC":                 &w.NtfyTopic,
		"NTFY_TOKEN":                 &w.NtfyToken,
		"BARK_URL":                   &w.BarkURL,
		"SLACK_WEBHOOK_URL":          &w.SlackWebhookURL,
		"EMAIL_FROM":                 &w.EmailFrom,
		"EMAIL_PASSWORD":             &w.EmailPassword,
		"EMAIL_TO":                   &w.EmailTo,
		"EMAIL_SMTP_SERVER":          &w.EmailSMTPServer,
		"REPORT_MODE":                &cfg.Report.Mode,
		"REPORT_PATH":                &cfg.Report.Path,
		"LOG_LEVEL":                  &cfg.Logging.Level,
		"PUSH_WINDOW_START":          &cfg.Notification.PushWindow.Start,
		"PUSH_WINDOW_END":            &cfg.Notification.PushWindow.End,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"EMAIL_SMTP_PORT":            &w.EmailSMTPPort,
		"MAX_ACCOUNTS_PER_CHANNEL":   &cfg.Notification.MaxAccountsPerChannel,
		"PUSH_WINDOW_RETENTION_DAYS": &cfg.Notification.PushWindow.RetentionDays,
	}
	for key, dst := range ints {
		v, ok := get(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: invalid integer %q", key, v)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"REVERSE_CONTENT_ORDER": &cfg.Report.ReverseContentOrder,
		"PUSH_WINDOW_ENABLED":   &cfg.Notification.PushWindow.Enabled,
	}
	for key, dst := range bools {
		v, ok := get(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env %s: invalid boolean %q", key, v)
		}
		*dst = b
	}

	if v, ok := get("PUSH_WINDOW_ONCE_PER_DAY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env PUSH_WINDOW_ONCE_PER_DAY: invalid boolean %q", v)
		}
		cfg.Notification.PushWindow.OncePerDay = &b
	}
	return nil
}
