package email

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"trendpush/internal/accounts"
	"trendpush/internal/transport"
)

func TestResolveServer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from string
		host string
		port int
		want Server
	}{
		{"me@gmail.com", "", 0, Server{"smtp.gmail.com", 587, StartTLS}},
		{"me@QQ.com", "", 0, Server{"smtp.qq.com", 465, ImplicitTLS}},
		{"me@example.org", "", 0, Server{"smtp.example.org", 587, StartTLS}},
		{"me@gmail.com", "mail.local", 465, Server{"mail.local", 465, ImplicitTLS}},
		{"me@gmail.com", "mail.local", 2525, Server{"mail.local", 2525, StartTLS}},
	}
	for _, tc := range tests {
		if got := ResolveServer(tc.from, tc.host, tc.port); got != tc.want {
			t.Fatalf("ResolveServer(%q,%q,%d)=%+v want %+v", tc.from, tc.host, tc.port, got, tc.want)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	raw, err := Build(Envelope{
		FromName: "trendpush",
		From:     "bot@example.org",
		To:       []string{"a@example.org", "b@example.org"},
		Subject:  "Daily Summary",
		Markdown: "**Total news:** 3\n\n[title](https://x.test)",
		Date:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	for _, want := range []string{
		"To: a@example.org, b@example.org\r\n",
		"multipart/alternative",
		"<strong>Total news:</strong>",
		`<a href="https://x.test">title</a>`,
		"Total news: 3",
		"Message-ID: <",
		"@example.org>",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("message missing %q:\n%s", want, s)
		}
	}
}

func TestSplitRecipients(t *testing.T) {
	t.Parallel()

	got := SplitRecipients(" a@x.test, ,b@x.test ")
	if len(got) != 2 || got[0] != "a@x.test" || got[1] != "b@x.test" {
		t.Fatalf("SplitRecipients=%v", got)
	}
}

// fakeSMTP accepts one session without TLS and records the transcript.
type fakeSMTP struct {
	mu    sync.Mutex
	cmds  []string
	data  string
	ln    net.Listener
	relay bool
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeSMTP{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })
	go f.serve()
	return f
}

func (f *fakeSMTP) serve() {
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	reply := func(s string) {
		_, _ = w.WriteString(s + "\r\n")
		_ = w.Flush()
	}
	reply("220 fake ready")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		f.mu.Lock()
		f.cmds = append(f.cmds, line)
		f.mu.Unlock()

		switch cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0]); cmd {
		case "EHLO":
			reply("250-fake\r\n250-AUTH PLAIN\r\n250 OK")
		case "AUTH":
			reply("235 authenticated")
		case "MAIL", "RCPT":
			reply("250 OK")
		case "DATA":
			reply("354 go ahead")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			f.mu.Lock()
			f.data = b.String()
			f.mu.Unlock()
			reply("250 queued")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 unsupported")
		}
	}
}

func TestSendOverSMTP(t *testing.T) {
	t.Parallel()

	f := startFakeSMTP(t)
	port := f.ln.Addr().(*net.TCPAddr).Port

	s := &Sender{
		From:     "bot@example.org",
		Password: "secret",
		Server:   Server{Host: "127.0.0.1", Port: port, Security: StartTLS},
		Now:      func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	acct := accounts.Account{Fields: map[string]string{transport.FieldTo: "a@example.org,b@example.org"}}
	res := s.Send(ctx, acct, transport.Message{Title: "Daily Summary", Content: "**hi**", Index: 1, Total: 2})
	if !res.Accepted {
		t.Fatalf("result=%+v", res)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	joined := strings.Join(f.cmds, "\n")
	for _, want := range []string{"AUTH PLAIN", "MAIL FROM:<bot@example.org>", "RCPT TO:<a@example.org>", "RCPT TO:<b@example.org>", "QUIT"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("transcript missing %q:\n%s", want, joined)
		}
	}
	if !strings.Contains(f.data, "Daily Summary") || !strings.Contains(f.data, "(1/2)") || !strings.Contains(f.data, "<strong>hi</strong>") {
		t.Fatalf("unexpected data:\n%s", f.data)
	}
}

func TestSendRequiresRecipients(t *testing.T) {
	t.Parallel()

	s := &Sender{From: "bot@example.org"}
	if res := s.Send(context.Background(), accounts.Account{}, transport.Message{}); res.Accepted {
		t.Fatalf("accepted without recipients")
	}
}
