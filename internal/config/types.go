package config

// Config is the whole configuration file. Once committed it is never
// mutated; reloads publish a new value.
type Config struct {
	Logging      LoggingConfig      `json:"logging"`
	Storage      StorageConfig      `json:"storage"`
	Report       ReportConfig       `json:"report"`
	Schedule     ScheduleConfig     `json:"schedule"`
	Server       ServerConfig       `json:"server"`
	Notification NotificationConfig `json:"notification"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig selects the push record store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/trendpush.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`          // postgres only (do not log)
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ReportConfig describes where the report comes from and how it is laid out.
type ReportConfig struct {
	// Mode is "daily", "current" or "incremental".
	Mode string `json:"mode"`
	// Path is a JSON or YAML report file read on every run.
	Path   string `json:"path"`
	Notice string `json:"notice,omitempty"`
	// ReverseContentOrder puts new titles before the keyword statistics.
	ReverseContentOrder bool `json:"reverse_content_order,omitempty"`
}

// ScheduleConfig controls the trigger used by `serve`.
type ScheduleConfig struct {
	Enabled bool `json:"enabled"`
	// Spec is a cron expression, a Go duration or an HH:MM interval.
	Spec     string `json:"spec"`
	Timezone string `json:"timezone,omitempty"`
	// Timeout bounds a single run (Go duration string; "0s" disables).
	Timeout string `json:"timeout,omitempty"`
}

// ServerConfig controls the HTTP control surface.
//
// Prefer binding to localhost. A non-empty token is required as a bearer
// token on the trigger endpoint.
type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8088"
	Token   string `json:"token,omitempty"`
	// Pprof mounts net/http/pprof under /debug (token protected when set).
	Pprof bool `json:"pprof,omitempty"`
}

// NotificationConfig holds the delivery settings.
//
// All durations are Go duration strings. Multi-account values join accounts
// with ";".
type NotificationConfig struct {
	// Enabled defaults to true when omitted.
	Enabled               *bool  `json:"enabled,omitempty"`
	MaxAccountsPerChannel int    `json:"max_accounts_per_channel,omitempty"`
	BatchInterval         string `json:"batch_interval,omitempty"`
	SendTimeout           string `json:"send_timeout,omitempty"`
	RankThreshold         int    `json:"rank_threshold,omitempty"`
	FeishuSeparator       string `json:"feishu_separator,omitempty"`
	// BatchSizes overrides byte budgets by channel id.
	BatchSizes map[string]int `json:"batch_sizes,omitempty"`
	// Proxy is an HTTP proxy URL used by the webhook and telegram senders.
	Proxy       string `json:"proxy,omitempty"`
	TelegramAPI string `json:"telegram_api,omitempty"`

	PushWindow PushWindowConfig `json:"push_window"`
	Webhooks   WebhooksConfig   `json:"webhooks"`
}

// PushWindowConfig limits when pushes may happen.
//
// OncePerDay is a pointer so an omitted value can default to true.
type PushWindowConfig struct {
	Enabled       bool   `json:"enabled"`
	Start         string `json:"start,omitempty"` // HH:MM, inclusive
	End           string `json:"end,omitempty"`   // HH:MM, exclusive
	Timezone      string `json:"timezone,omitempty"`
	OncePerDay    *bool  `json:"once_per_day,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty"`
}

// WebhooksConfig holds channel credentials. Never log these values.
type WebhooksConfig struct {
	FeishuURL        string `json:"feishu_url,omitempty"`
	FeishuOutsideURL string `json:"feishu_outside_url,omitempty"`
	DingTalkURL      string `json:"dingtalk_url,omitempty"`
	WeWorkURL        string `json:"wework_url,omitempty"`
	WeWorkMsgType    string `json:"wework_msg_type,omitempty"`
	TelegramBotToken string `json:"telegram_bot_token,omitempty"`
	TelegramChatID   string `json:"telegram_chat_id,omitempty"`
	NtfyServerURL    string `json:"ntfy_server_url,omitempty"`
	NtfyTopic        string `json:"ntfy_topic,omitempty"`
	NtfyToken        string `json:"ntfy_token,omitempty"`
	BarkURL          string `json:"bark_url,omitempty"`
	SlackWebhookURL  string `json:"slack_webhook_url,omitempty"`
	EmailFrom        string `json:"email_from,omitempty"`
	EmailPassword    string `json:"email_password,omitempty"`
	EmailTo          string `json:"email_to,omitempty"`
	EmailSMTPServer  string `json:"email_smtp_server,omitempty"`
	EmailSMTPPort    int    `json:"email_smtp_port,omitempty"`
}
