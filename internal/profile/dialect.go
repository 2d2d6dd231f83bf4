package profile

import (
	"fmt"
	"strings"

	"trendpush/pkg/markup"
)

// Dialect is the markup language a channel renders.
type Dialect int

const (
	// Markdown is CommonMark-ish: **bold**, [title](url).
	Markdown Dialect = iota
	// Lark is markdown plus <font color='...'> tags.
	Lark
	// HTML is the Telegram HTML-lite subset.
	HTML
	// Mrkdwn is Slack's *bold* and <url|title> syntax.
	Mrkdwn
	// Plain carries no markup at all.
	Plain
)

func (d Dialect) String() string {
	switch d {
	case Markdown:
		return "markdown"
	case Lark:
		return "lark"
	case HTML:
		return "html"
	case Mrkdwn:
		return "mrkdwn"
	case Plain:
		return "plain"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// Escape makes free text safe to embed in the dialect.
func (d Dialect) Escape(s string) string {
	if d == HTML {
		return markup.Esc(s)
	}
	return s
}

// Link renders a linked title. title must be unescaped; url may be empty.
func (d Dialect) Link(title, url string) string {
	if url == "" {
		return d.Escape(title)
	}
	switch d {
	case HTML:
		return markup.Link(title, url)
	case Mrkdwn:
		return "<" + url + "|" + title + ">"
	case Plain:
		return title + " " + url
	default:
		return "[" + title + "](" + url + ")"
	}
}

// Expand replaces {name} placeholders in tmpl. Unknown placeholders are left as-is.
func Expand(tmpl string, vars map[string]string) string {
	if tmpl == "" || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
