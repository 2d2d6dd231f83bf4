package channels

import (
	"net/http"

	"trendpush/internal/profile"
	"trendpush/internal/transport"
	"trendpush/internal/transport/email"
	"trendpush/internal/transport/telegram"
	"trendpush/internal/transport/webhook"
)

// SenderOptions configure the built-in senders.
type SenderOptions struct {
	Client      *http.Client
	TelegramAPI string
	Brand       string
}

// NewSenders registers a sender for every profile kind.
func NewSenders(s Settings, opts SenderOptions) *transport.Registry {
	c := opts.Client
	reg := transport.NewRegistry()

	reg.Register(profile.Feishu, webhook.Feishu{Client: c})
	reg.Register(profile.FeishuOutside, webhook.Feishu{Client: c})
	reg.Register(profile.DingTalk, webhook.DingTalk{Client: c, Brand: opts.Brand})
	reg.Register(profile.WeWork, webhook.WeWork{Client: c})
	reg.Register(profile.WeWorkText, webhook.WeWork{Client: c, Text: true})
	reg.Register(profile.Telegram, telegram.New(opts.TelegramAPI, c))
	reg.Register(profile.Ntfy, webhook.Ntfy{Client: c, Server: s.NtfyServer})
	reg.Register(profile.Bark, webhook.Bark{Client: c, Group: opts.Brand})
	reg.Register(profile.Slack, webhook.Slack{Client: c})
	reg.Register(profile.Email, &email.Sender{
		From:     s.EmailFrom,
		FromName: opts.Brand,
		Password: s.EmailPassword,
		Server:   email.ResolveServer(s.EmailFrom, s.EmailServer, s.EmailPort),
	})
	return reg
}
