package markup

import (
	"fmt"
	"html"
)

// Esc escapes text for HTML-lite surfaces (Telegram ParseMode="HTML", email bodies).
func Esc(s string) string { return html.EscapeString(s) }

func wrap(tag, inner string) string { return "<" + tag + ">" + inner + "</" + tag + ">" }

// B wraps already-safe inner HTML in <b>.
func B(inner string) string { return wrap("b", inner) }

// Code wraps already-safe inner HTML in <code>.
func Code(inner string) string { return wrap("code", inner) }

// Font wraps inner markdown in a lark-style <font color='...'> tag.
func Font(color, inner string) string {
	return fmt.Sprintf("<font color='%s'>%s</font>", color, inner)
}

// Link builds an HTML link. Both text and url are escaped.
func Link(text, url string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text))
}
