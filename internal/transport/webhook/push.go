package webhook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"trendpush/internal/accounts"
	"trendpush/internal/transport"
)

// Bark posts markdown to a Bark server. The account URL is
// <scheme>://<host>/<device_key>[/...].
type Bark struct {
	Client *http.Client
	Group  string
}

// BarkEndpoint splits a Bark device URL into its push endpoint and device key.
func BarkEndpoint(raw string) (endpoint, deviceKey string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("bark: invalid url %q", raw)
	}
	key := strings.Split(strings.Trim(u.Path, "/"), "/")[0]
	if key == "" {
		return "", "", fmt.Errorf("bark: url %q has no device key", raw)
	}
	return u.Scheme + "://" + u.Host + "/push", key, nil
}

func (s Bark) Send(ctx context.Context, acct accounts.Account, msg transport.Message) transport.Result {
	endpoint, key, err := BarkEndpoint(acct.Get(transport.FieldURL))
	if err != nil {
		return failure(err)
	}
	group := s.Group
	if group == "" {
		group = "trendpush"
	}
	payload := map[string]string{
		"title":      msg.Title,
		"markdown":   msg.Content,
		"device_key": key,
		"group":      group,
		"sound":      "default",
		"action":     "none",
	}
	r, err := postJSON(ctx, s.Client, endpoint, payload)
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
	if is(ack.Code, 200) {
		return transport.Accepted()
	}
	return transport.Rejected(firstNonEmpty(ack.Message, snippet(r.body)))
}

// DefaultNtfyServer is used when no server is configured.
const DefaultNtfyServer = "https://ntfy.sh"

// Ntfy publishes markdown to an ntfy topic.
type Ntfy struct {
	Client *http.Client
	Server string
}

// NtfyBase normalizes a server URL: scheme defaults to https, no trailing slash.
func NtfyBase(server string) string {
	s := strings.TrimRight(strings.TrimSpace(server), "/")
	if s == "" {
		return DefaultNtfyServer
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}
	return s
}

// IsPublicNtfy reports whether server is the shared ntfy.sh instance.
func IsPublicNtfy(server string) bool {
	return strings.Contains(NtfyBase(server), "ntfy.sh")
}

func (s Ntfy) Send(ctx context.Context, acct accounts.Account, msg transport.Message) transport.Result {
	topic := acct.Get(transport.FieldTopic)
	if topic == "" {
		return transport.Rejected("ntfy: empty topic")
	}
	title := msg.Title
	if title == "" {
		title = "News Report"
	}
	if msg.Total > 1 {
		title = fmt.Sprintf("%s (%d/%d)", title, msg.Index, msg.Total)
	}
	hdr := map[string]string{
		"Markdown": "yes",
		"Title":    title,
		"Priority": "default",
		"Tags":     "news",
	}
	if tok := acct.Get(transport.FieldToken); tok != "" {
		hdr["Authorization"] = "Bearer " + tok
	}

	target := NtfyBase(s.Server) + "/" + url.PathEscape(topic)
	r, err := post(ctx, s.Client, target, "text/plain; charset=utf-8", []byte(msg.Content), hdr)
	if err != nil {
		return failure(err)
	}
	if r.status != http.StatusOK {
		return httpFailure(r)
	}
	return transport.Accepted()
}
