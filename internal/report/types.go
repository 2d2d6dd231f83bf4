package report

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the reporting mode of a run.
type Mode string

const (
	ModeDaily       Mode = "daily"
	ModeCurrent     Mode = "current"
	ModeIncremental Mode = "incremental"
)

// Label is the human report type used in titles and headers.
func (m Mode) Label() string {
	switch m {
	case ModeCurrent:
		return "Current Ranking"
	case ModeIncremental:
		return "Incremental Update"
	default:
		return "Daily Summary"
	}
}

// ParseMode normalizes s. Empty input means daily.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDaily:
		return ModeDaily, nil
	case ModeCurrent:
		return ModeCurrent, nil
	case ModeIncremental:
		return ModeIncremental, nil
	default:
		return "", fmt.Errorf("report: unknown mode %q", s)
	}
}

// NewsRef is one news item as it appears in a report.
type NewsRef struct {
	Title     string `json:"title" yaml:"title"`
	Source    string `json:"source" yaml:"source"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	MobileURL string `json:"mobile_url,omitempty" yaml:"mobile_url,omitempty"`
	// Ranks observed across scans, ascending.
	Ranks     []int  `json:"ranks,omitempty" yaml:"ranks,omitempty"`
	FirstSeen string `json:"first_seen,omitempty" yaml:"first_seen,omitempty"`
	LastSeen  string `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
	Count     int    `json:"count,omitempty" yaml:"count,omitempty"`
	IsNew     bool   `json:"is_new,omitempty" yaml:"is_new,omitempty"`
}

// Link prefers the mobile URL.
func (n NewsRef) Link() string {
	if n.MobileURL != "" {
		return n.MobileURL
	}
	return n.URL
}

// TimeDisplay renders the first/last seen range, e.g. "[08:10 ~ 11:40]".
func (n NewsRef) TimeDisplay() string {
	first, last := strings.TrimSpace(n.FirstSeen), strings.TrimSpace(n.LastSeen)
	switch {
	case first == "" && last == "":
		return ""
	case first == "" || last == "" || first == last:
		if first == "" {
			first = last
		}
		return "[" + first + "]"
	default:
		return "[" + first + " ~ " + last + "]"
	}
}

// Section is one keyword group with its matched items.
type Section struct {
	Keyword string    `json:"keyword" yaml:"keyword"`
	Count   int       `json:"count" yaml:"count"`
	Titles  []NewsRef `json:"titles" yaml:"titles"`
}

// NewTitleGroup lists the items a source surfaced since the prior scan.
type NewTitleGroup struct {
	Source string    `json:"source" yaml:"source"`
	Titles []NewsRef `json:"titles" yaml:"titles"`
}

// FailedSource identifies a source that failed to refresh.
type FailedSource string

// Data is one run's report. Built by a Source and never mutated afterwards.
type Data struct {
	Sections  []Section       `json:"sections,omitempty" yaml:"sections,omitempty"`
	NewTitles []NewTitleGroup `json:"new_titles,omitempty" yaml:"new_titles,omitempty"`
	Failed    []FailedSource  `json:"failed,omitempty" yaml:"failed,omitempty"`
	TotalNew  int             `json:"total_new,omitempty" yaml:"total_new,omitempty"`
	Mode      Mode            `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// Empty reports whether there is nothing to show at all.
func (d *Data) Empty() bool {
	return d == nil || (len(d.Sections) == 0 && len(d.NewTitles) == 0 && len(d.Failed) == 0)
}

// TotalTitles counts the items carried by sections with a positive count.
func (d *Data) TotalTitles() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.Sections {
		if s.Count > 0 {
			n += len(s.Titles)
		}
	}
	return n
}

var ErrInvalid = errors.New("report: invalid data")

// Validate checks the structural invariants of a report.
func (d *Data) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil report", ErrInvalid)
	}
	if _, err := ParseMode(string(d.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for i, s := range d.Sections {
		if strings.TrimSpace(s.Keyword) == "" {
			return fmt.Errorf("%w: section %d has no keyword", ErrInvalid, i)
		}
		if s.Count < len(s.Titles) {
			return fmt.Errorf("%w: section %q count %d < %d titles", ErrInvalid, s.Keyword, s.Count, len(s.Titles))
		}
	}
	if d.TotalNew < 0 {
		return fmt.Errorf("%w: negative total_new", ErrInvalid)
	}
	return nil
}
