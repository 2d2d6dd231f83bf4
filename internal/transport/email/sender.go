package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"trendpush/internal/accounts"
	"trendpush/internal/transport"
)

// Sender submits each batch as one mail. The account's "to" field holds a
// comma-separated recipient list.
type Sender struct {
	From     string
	FromName string
	Password string
	Server   Server
	// TLSConfig overrides the default client TLS settings (tests).
	TLSConfig *tls.Config
	// Now is the clock used for subjects and Date headers.
	Now func() time.Time
}

func (s *Sender) tlsConfig() *tls.Config {
	if s.TLSConfig != nil {
		return s.TLSConfig
	}
	return &tls.Config{ServerName: s.Server.Host, MinVersion: tls.VersionTLS12}
}

func (s *Sender) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sender) subject(msg transport.Message, at time.Time) string {
	subj := fmt.Sprintf("trendpush report - %s - %s", msg.Title, at.Format("01-02 15:04"))
	if msg.Total > 1 {
		subj += fmt.Sprintf(" (%d/%d)", msg.Index, msg.Total)
	}
	return subj
}

func (s *Sender) Send(ctx context.Context, acct accounts.Account, msg transport.Message) transport.Result {
	to := SplitRecipients(acct.Get(transport.FieldTo))
	if s.From == "" || len(to) == 0 {
		return transport.Rejected("email: sender and recipients are required")
	}
	at := s.now()
	name := s.FromName
	if name == "" {
		name = "trendpush"
	}
	raw, err := Build(Envelope{
		FromName: name,
		From:     s.From,
		To:       to,
		Subject:  s.subject(msg, at),
		Markdown: msg.Content,
		Date:     at,
	})
	if err != nil {
		return transport.Rejected(err.Error())
	}
	if err := s.submit(ctx, to, raw); err != nil {
		return transport.Rejected(err.Error())
	}
	return transport.Accepted()
}

func (s *Sender) submit(ctx context.Context, to []string, raw []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.Server.Addr())
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	if s.Server.Security == ImplicitTLS {
		conn = tls.Client(conn, s.tlsConfig())
	}

	c, err := smtp.NewClient(conn, s.Server.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if s.Server.Security == StartTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.tlsConfig()); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.Password != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.From, s.Password, s.Server.Host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := c.Mail(s.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp submit: %w", err)
	}
	return c.Quit()
}
