// Package channels binds configured credentials, profiles and senders into
// the dispatchable channel set of one run.
package channels

import (
	"fmt"
	"strings"
	"time"

	"trendpush/internal/accounts"
	"trendpush/internal/profile"
	"trendpush/internal/transport"
	"trendpush/internal/transport/webhook"
	"trendpush/pkg/logx"
)

// Settings are the raw notification credentials. Multi-account values are
// ";"-joined.
type Settings struct {
	FeishuURL        string
	FeishuOutsideURL string
	DingTalkURL      string
	WeWorkURL        string
	// WeWorkMsgType is "markdown" (default) or "text".
	WeWorkMsgType  string
	TelegramToken  string
	TelegramChatID string
	NtfyServer     string
	NtfyTopic      string
	NtfyToken      string
	BarkURL        string
	SlackURL       string

	EmailFrom     string
	EmailPassword string
	EmailTo       string
	EmailServer   string
	EmailPort     int

	MaxAccounts int
	// Interval paces consecutive batches to one account.
	Interval time.Duration
}

// Channel is one resolved delivery target set.
type Channel struct {
	// Name keys the run's result map.
	Name string
	// Kind selects the profile and the sender; it differs from Name when a
	// channel has alternative formats (wework text, feishu outside groups).
	Kind     string
	Profile  profile.Profile
	Sender   transport.Sender
	Accounts []accounts.Account
	Interval time.Duration
}

// ConfigError disables one channel for the run.
type ConfigError struct {
	Channel string
	Err     error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("channel %s: %v", e.Channel, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

type binding struct {
	name string
	kind string
	spec accounts.Spec
	raw  map[string]string
}

func bindings(s Settings) []binding {
	weworkKind := profile.WeWork
	if strings.EqualFold(strings.TrimSpace(s.WeWorkMsgType), "text") {
		weworkKind = profile.WeWorkText
	}
	url := func(name, kind, raw string) binding {
		return binding{
			name: name,
			kind: kind,
			spec: accounts.Spec{Channel: name, Primary: transport.FieldURL},
			raw:  map[string]string{transport.FieldURL: raw},
		}
	}

	out := []binding{
		url(profile.Feishu, profile.Feishu, s.FeishuURL),
		url(profile.FeishuOutside, profile.FeishuOutside, s.FeishuOutsideURL),
		url(profile.DingTalk, profile.DingTalk, s.DingTalkURL),
		url(profile.WeWork, weworkKind, s.WeWorkURL),
		{
			name: profile.Telegram,
			kind: profile.Telegram,
			spec: accounts.Spec{Channel: profile.Telegram, Primary: transport.FieldToken, Paired: []string{transport.FieldChatID}},
			raw:  map[string]string{transport.FieldToken: s.TelegramToken, transport.FieldChatID: s.TelegramChatID},
		},
		{
			name: profile.Ntfy,
			kind: profile.Ntfy,
			spec: accounts.Spec{Channel: profile.Ntfy, Primary: transport.FieldTopic, Optional: []string{transport.FieldToken}},
			raw:  map[string]string{transport.FieldTopic: s.NtfyTopic, transport.FieldToken: s.NtfyToken},
		},
		url(profile.Bark, profile.Bark, s.BarkURL),
		url(profile.Slack, profile.Slack, s.SlackURL),
	}
	for i := range out {
		out[i].spec.Max = s.MaxAccounts
	}
	return out
}

// Resolve returns the channels that have at least one usable account.
// Misconfigured channels are left out and reported as *ConfigError; they
// never affect the others.
func Resolve(s Settings, profiles *profile.Registry, senders *transport.Registry, log logx.Logger) ([]Channel, []error) {
	var (
		out  []Channel
		errs []error
	)
	add := func(name, kind string, accts []accounts.Account, interval time.Duration) {
		p, err := profiles.Lookup(kind)
		if err != nil {
			errs = append(errs, &ConfigError{Channel: name, Err: err})
			return
		}
		snd, ok := senders.Get(kind)
		if !ok {
			errs = append(errs, &ConfigError{Channel: name, Err: fmt.Errorf("no sender registered for %q", kind)})
			return
		}
		if p.Interval > 0 {
			interval = p.Interval
		}
		out = append(out, Channel{Name: name, Kind: kind, Profile: p, Sender: snd, Accounts: accts, Interval: interval})
	}

	for _, b := range bindings(s) {
		accts, err := accounts.Resolve(b.spec, b.raw, log)
		if err != nil {
			log.Error("channel disabled: inconsistent multi-account configuration", logx.String("channel", b.name), logx.Err(err))
			errs = append(errs, &ConfigError{Channel: b.name, Err: err})
			continue
		}
		if len(accts) == 0 {
			continue
		}
		interval := s.Interval
		if b.name == profile.Ntfy {
			interval = ntfyInterval(s.NtfyServer)
		}
		add(b.name, b.kind, accts, interval)
	}

	if s.EmailFrom != "" && s.EmailPassword != "" && strings.TrimSpace(s.EmailTo) != "" {
		acct := accounts.Account{Fields: map[string]string{transport.FieldTo: s.EmailTo}}
		add(profile.Email, profile.Email, []accounts.Account{acct}, s.Interval)
	}
	return out, errs
}

// ntfyInterval is slower against the shared public server.
func ntfyInterval(server string) time.Duration {
	if webhook.IsPublicNtfy(server) {
		return 2 * time.Second
	}
	return time.Second
}

// Summary describes the configured channels for the startup log.
func Summary(chs []Channel) []string {
	out := make([]string, 0, len(chs))
	for _, c := range chs {
		out = append(out, fmt.Sprintf("%s(%d)", c.Name, len(c.Accounts)))
	}
	return out
}
