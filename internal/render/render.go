// Package render turns report values into channel text using a profile's
// templates. Every function is pure: identical inputs give identical bytes.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"trendpush/internal/profile"
	"trendpush/internal/report"
	"trendpush/pkg/markup"
)

const TimeLayout = "2006-01-02 15:04:05"

// Meta carries the per-run values that headers and footers interpolate.
type Meta struct {
	Total      int
	Now        time.Time
	ReportType string
	Notice     string
}

// Item renders one news line (without the list number).
func Item(p profile.Profile, n report.NewsRef, showSource bool) string {
	d := p.Dialect
	title := markup.CleanTitle(n.Title)

	var out string
	if showSource {
		out = fmt.Sprintf(p.SourcePrefix, d.Escape(n.Source))
	}
	if n.IsNew {
		out += p.NewMarker
	}
	out += d.Link(title, n.Link())

	if badge := RankBadge(p, n.Ranks); badge != "" {
		out += " " + badge
	}
	if td := n.TimeDisplay(); td != "" {
		out += fmt.Sprintf(p.TimeSuffix, d.Escape(td))
	}
	if n.Count > 1 {
		out += fmt.Sprintf(p.CountSuffix, n.Count)
	}
	return out
}

// RankBadge renders "[min]" or "[min - max]" over the distinct ranks,
// highlighted when the best rank is within the profile's threshold.
func RankBadge(p profile.Profile, ranks []int) string {
	if len(ranks) == 0 {
		return ""
	}
	uniq := append([]int(nil), ranks...)
	sort.Ints(uniq)
	lo, hi := uniq[0], uniq[len(uniq)-1]

	badge := "[" + strconv.Itoa(lo) + "]"
	if lo != hi {
		badge = "[" + strconv.Itoa(lo) + " - " + strconv.Itoa(hi) + "]"
	}
	if lo <= p.RankThreshold {
		return fmt.Sprintf(p.RankHot, badge)
	}
	return badge
}

// Numbered renders a list entry: "  N. line\n".
func Numbered(i int, line string) string {
	return "  " + strconv.Itoa(i) + ". " + line + "\n"
}

func heatEmoji(count int) string {
	switch {
	case count >= 10:
		return "🔥"
	case count >= 5:
		return "📈"
	default:
		return "📌"
	}
}

// GroupHeading renders a keyword group heading. idx is 1-based.
func GroupHeading(p profile.Profile, idx, total int, keyword string, count int) string {
	var c string
	switch {
	case count >= 10:
		c = fmt.Sprintf(p.HotCount, count)
	case count >= 5:
		c = fmt.Sprintf(p.WarmCount, count)
	default:
		c = fmt.Sprintf(p.Count, count)
	}
	seq := fmt.Sprintf(p.Seq, idx, total)
	kw := fmt.Sprintf(p.Keyword, p.Dialect.Escape(keyword))
	return fmt.Sprintf(p.GroupHeading, heatEmoji(count), seq, kw, c)
}

func NewHeading(p profile.Profile, totalNew int) string {
	return fmt.Sprintf(p.NewHeading, totalNew)
}

func SourceHeading(p profile.Profile, source string, n int) string {
	return fmt.Sprintf(p.SourceHeading, p.Dialect.Escape(source), n)
}

func FailedLine(p profile.Profile, id report.FailedSource) string {
	return fmt.Sprintf(p.FailedLine, p.Dialect.Escape(string(id)))
}

func Header(p profile.Profile, m Meta) string {
	return profile.Expand(p.Header, map[string]string{
		"total": strconv.Itoa(m.Total),
		"time":  m.Now.Format(TimeLayout),
		"type":  p.Dialect.Escape(m.ReportType),
	})
}

func Footer(p profile.Profile, m Meta) string {
	out := profile.Expand(p.Footer, map[string]string{"time": m.Now.Format(TimeLayout)})
	if m.Notice != "" {
		out += profile.Expand(p.Notice, map[string]string{"notice": p.Dialect.Escape(m.Notice)})
	}
	return out
}

// EmptyText is the "no results" sentence for the mode.
func EmptyText(mode report.Mode) string {
	switch mode {
	case report.ModeIncremental:
		return "No new matching keywords in incremental mode"
	case report.ModeCurrent:
		return "No matching keywords in the current ranking"
	default:
		return "No matching keywords"
	}
}

func Empty(p profile.Profile, mode report.Mode) string {
	return fmt.Sprintf(p.Empty, EmptyText(mode))
}
