// Package telegram delivers batches through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"trendpush/internal/accounts"
	"trendpush/internal/transport"
)

// DefaultAPI is the public Bot API endpoint.
const DefaultAPI = "https://api.telegram.org"

type chatID string

func (c chatID) Recipient() string { return string(c) }

// Sender sends HTML batches. Account fields: token, chat_id.
// One offline bot is kept per token.
type Sender struct {
	API    string
	Client *http.Client

	mu   sync.Mutex
	bots map[string]*tele.Bot
}

func New(api string, client *http.Client) *Sender {
	if strings.TrimSpace(api) == "" {
		api = DefaultAPI
	}
	return &Sender{API: strings.TrimRight(api, "/"), Client: client, bots: make(map[string]*tele.Bot)}
}

func (s *Sender) bot(token string) (*tele.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bots[token]; ok {
		return b, nil
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     s.API,
		Token:   token,
		Client:  s.Client,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	s.bots[token] = b
	return b, nil
}

func (s *Sender) Send(ctx context.Context, acct accounts.Account, msg transport.Message) transport.Result {
	token, chat := acct.Get(transport.FieldToken), acct.Get(transport.FieldChatID)
	if token == "" || chat == "" {
		return transport.Rejected("telegram: token and chat_id are required")
	}
	b, err := s.bot(token)
	if err != nil {
		return transport.Rejected(err.Error())
	}

	// telebot has no per-call context; run the call aside so ctx still bounds it.
	done := make(chan error, 1)
	go func() {
		_, err := b.Send(chatID(chat), msg.Content, &tele.SendOptions{
			ParseMode:             tele.ModeHTML,
			DisableWebPagePreview: true,
		})
		done <- err
	}()

	select {
	case <-ctx.Done():
		return transport.Rejected(ctx.Err().Error())
	case err := <-done:
		if err == nil {
			return transport.Accepted()
		}
		if isFlood(err) {
			return transport.Throttled(err.Error())
		}
		return transport.Rejected(err.Error())
	}
}

func isFlood(err error) bool {
	var fv tele.FloodError
	if errors.As(err, &fv) {
		return true
	}
	var fp *tele.FloodError
	if errors.As(err, &fp) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "too many requests") || strings.Contains(s, "retry after")
}
