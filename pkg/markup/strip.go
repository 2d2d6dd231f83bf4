package markup

import (
	"regexp"
	"strings"
)

type rewrite struct {
	re  *regexp.Regexp
	out string
}

// Order matters: bold before italics, images before links.
var stripRules = []rewrite{
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "$1"},
	{regexp.MustCompile(`__(.+?)__`), "$1"},
	{regexp.MustCompile(`\*(.+?)\*`), "$1"},
	{regexp.MustCompile(`_(.+?)_`), "$1"},
	{regexp.MustCompile(`~~(.+?)~~`), "$1"},
	{regexp.MustCompile(`!\[(.+?)\]\(.+?\)`), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`), "$1 $2"},
	{regexp.MustCompile("`(.+?)`"), "$1"},
	{regexp.MustCompile(`(?m)^>\s*`), ""},
	{regexp.MustCompile(`(?m)^#+\s*`), ""},
	{regexp.MustCompile(`(?m)^[\-\*]{3,}\s*$`), ""},
	{regexp.MustCompile(`<font[^>]*>(.+?)</font>`), "$1"},
	{regexp.MustCompile(`<[^>]+>`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// StripMarkdown removes markdown and lark font markup, keeping link URLs as
// plain text after the link label.
func StripMarkdown(s string) string {
	for _, r := range stripRules {
		s = r.re.ReplaceAllString(s, r.out)
	}
	return strings.TrimSpace(s)
}
