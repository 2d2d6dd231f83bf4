package webhook

import (
	"context"
	"net/http"
	"strings"

	"trendpush/internal/accounts"
	"trendpush/internal/transport"
)

// Feishu posts to a Lark/Feishu custom bot webhook.
type Feishu struct {
	Client *http.Client
}

func (s Feishu) Send(ctx context.Context, acct accounts.Account, msg transport.Message) transport.Result {
	payload := map[string]any{
		"msg_type": "text",
		"content": map[string]any{
			"report_type": msg.Title,
			"text":        msg.Content,
		},
	}
	r, err := postJSON(ctx, s.Client, acct.Get(transport.FieldURL), payload)
	if err != nil {
		return failure(err)
	}
	if r.status != http.StatusOK {
		return httpFailure(r)
	}
	ack, err := decodeAck(r.body)
	if err != nil {
		return failure(err)
	}
	if is(ack.StatusCode, 0) || is(ack.Code, 0) {
		return transport.Accepted()
	}
	return transport.Rejected(firstNonEmpty(ack.Msg, ack.StatusMessage, snippet(r.body)))
}

// DingTalk posts markdown to a DingTalk robot webhook.
type DingTalk struct {
	Client *http.Client
	// Brand prefixes the markdown title shown in notifications.
	Brand string
}

func (s DingTalk) Send(ctx context.Context, acct accounts.Account, msg transport.Message) transport.Result {
	title := msg.Title
	if s.Brand != "" {
		title = s.Brand + " - " + title
	}
	payload := map[string]any{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  msg.Content,
		},
	}
	return errcodeSend(ctx, s.Client, acct.Get(transport.FieldURL), payload)
}

// WeWork posts to a WeCom group robot, as markdown or plain text.
type WeWork struct {
	Client *http.Client
	Text   bool
}

func (s WeWork) Send(ctx context.Context, acct accounts.Account, msg transport.Message) transport.Result {
	var payload map[string]any
	if s.Text {
		payload = map[string]any{"msgtype": "text", "text": map[string]string{"content": msg.Content}}
	} else {
		payload = map[string]any{"msgtype": "markdown", "markdown": map[string]string{"content": msg.Content}}
	}
	return errcodeSend(ctx, s.Client, acct.Get(transport.FieldURL), payload)
}

func errcodeSend(ctx context.Context, c *http.Client, target string, payload any) transport.Result {
	r, err := postJSON(ctx, c, target, payload)
	if err != nil {
		return failure(err)
	}
	if r.status != http.StatusOK {
		return httpFailure(r)
	}
	ack, err := decodeAck(r.body)
	if err != nil {
		return failure(err)
	}
	if is(ack.ErrCode, 0) {
		return transport.Accepted()
	}
	// 45009 is WeCom's "api freq out of limit".
	if is(ack.ErrCode, 45009) {
		return transport.Throttled(ack.ErrMsg)
	}
	return transport.Rejected(firstNonEmpty(ack.ErrMsg, snippet(r.body)))
}

// Slack posts mrkdwn text to an incoming webhook.
type Slack struct {
	Client *http.Client
}

func (s Slack) Send(ctx context.Context, acct accounts.Account, msg transport.Message) transport.Result {
	r, err := postJSON(ctx, s.Client, acct.Get(transport.FieldURL), map[string]string{"text": msg.Content})
	if err != nil {
		return failure(err)
	}
	if r.status != http.StatusOK {
		return httpFailure(r)
	}
	if strings.TrimSpace(string(r.body)) != "ok" {
		return transport.Rejected(snippet(r.body))
	}
	return transport.Accepted()
}
