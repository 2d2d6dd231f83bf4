package email

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"trendpush/pkg/markup"
)

var md = goldmark.New()

// renderHTML converts a markdown batch into a standalone HTML document.
func renderHTML(title, content string) string {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	buf.WriteString(markup.Esc(title))
	buf.WriteString("</title></head><body>\n")
	if err := md.Convert([]byte(content), &buf); err != nil {
		buf.WriteString("<pre>" + markup.Esc(content) + "</pre>")
	}
	buf.WriteString("</body></html>\n")
	return buf.String()
}

// Envelope is everything needed to build one mail.
type Envelope struct {
	FromName string
	From     string
	To       []string
	Subject  string
	Markdown string
	Date     time.Time
}

// Build renders the RFC 5322 message with text/plain and text/html parts.
func Build(e Envelope) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	plain, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := plain.Write([]byte(markup.StripMarkdown(e.Markdown))); err != nil {
		return nil, err
	}

	html, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := html.Write([]byte(renderHTML(e.Subject, e.Markdown))); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	date := e.Date
	if date.IsZero() {
		date = time.Now()
	}
	from := (&mail.Address{Name: e.FromName, Address: e.From}).String()

	var out bytes.Buffer
	hdr := [][2]string{
		{"From", from},
		{"To", strings.Join(e.To, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", e.Subject)},
		{"Date", date.Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%d.trendpush@%s>", date.UnixNano(), domainOf(e.From))},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	for _, h := range hdr {
		out.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// SplitRecipients parses a comma-separated recipient list.
func SplitRecipients(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
