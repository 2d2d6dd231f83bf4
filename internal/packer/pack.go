package packer

import (
	"time"

	"trendpush/internal/profile"
	"trendpush/internal/render"
	"trendpush/internal/report"
)

// Options are the per-run inputs besides the report and the profile.
type Options struct {
	Now        time.Time
	ReportType string
	// Notice is appended to every footer when set.
	Notice string
	// NewFirst puts the new-titles block before the statistics block.
	NewFirst bool
}

type packer struct {
	p      profile.Profile
	limit  int
	header string
	footer string

	cur string
	has bool
	out []string
}

func (k *packer) fits(s string) bool {
	return len(k.cur)+len(s)+len(k.footer) <= k.limit
}

func (k *packer) add(s string) {
	k.cur += s
	k.has = true
}

func (k *packer) flush() {
	if k.has {
		k.out = append(k.out, k.cur+k.footer)
	}
	k.cur = k.header
	k.has = false
}

// place appends unit when it fits; otherwise it closes the current batch and
// opens a new one holding header + carry.
func (k *packer) place(unit, carry string) {
	if k.fits(unit) {
		k.add(unit)
		return
	}
	k.flush()
	k.add(carry)
}

// Pack renders d for profile p. Each returned batch is at most
// p.ContentBudget() bytes unless a single atomic unit is larger on its own.
// The result is never empty.
func Pack(d *report.Data, p profile.Profile, opts Options) []string {
	mode := report.ModeDaily
	if d != nil && d.Mode != "" {
		mode = d.Mode
	}
	meta := render.Meta{
		Total:      d.TotalTitles(),
		Now:        opts.Now,
		ReportType: opts.ReportType,
		Notice:     opts.Notice,
	}
	k := &packer{
		p:      p,
		limit:  p.ContentBudget(),
		header: render.Header(p, meta),
		footer: render.Footer(p, meta),
	}
	k.cur = k.header

	if d.Empty() {
		return []string{k.header + render.Empty(p, mode) + k.footer}
	}

	if opts.NewFirst {
		k.newTitles(d)
		k.stats(d)
	} else {
		k.stats(d)
		k.newTitles(d)
	}
	k.failed(d)
	k.flush()

	if len(k.out) == 0 {
		return []string{k.header + k.footer}
	}
	return k.out
}

func (k *packer) stats(d *report.Data) {
	if len(d.Sections) == 0 {
		return
	}
	heading := k.p.StatsHeading
	total := len(d.Sections)

	for i, s := range d.Sections {
		group := render.GroupHeading(k.p, i+1, total, s.Keyword, s.Count)
		first := ""
		if len(s.Titles) > 0 {
			first = render.Numbered(1, render.Item(k.p, s.Titles[0], true))
		}
		unit := group + first
		if i == 0 {
			unit = heading + unit
		}
		k.place(unit, heading+group+first)

		for j := 1; j < len(s.Titles); j++ {
			line := render.Numbered(j+1, render.Item(k.p, s.Titles[j], true))
			k.place(line, heading+group+line)
		}

		if i < total-1 && k.fits(k.p.Separator) {
			k.cur += k.p.Separator
		}
	}
}

func (k *packer) newTitles(d *report.Data) {
	if len(d.NewTitles) == 0 {
		return
	}
	totalNew := d.TotalNew
	if totalNew <= 0 {
		for _, g := range d.NewTitles {
			totalNew += len(g.Titles)
		}
	}
	heading := render.NewHeading(k.p, totalNew)

	// Every entry in this block is new, so the marker and the source prefix are dropped.
	line := func(i int, n report.NewsRef) string {
		n.IsNew = false
		return render.Numbered(i, render.Item(k.p, n, false))
	}

	for gi, g := range d.NewTitles {
		src := render.SourceHeading(k.p, g.Source, len(g.Titles))
		first := ""
		if len(g.Titles) > 0 {
			first = line(1, g.Titles[0])
		}
		unit := src + first
		if gi == 0 {
			unit = heading + unit
		}
		k.place(unit, heading+src+first)

		for j := 1; j < len(g.Titles); j++ {
			l := line(j+1, g.Titles[j])
			k.place(l, heading+src+l)
		}

		if k.fits("\n") {
			k.cur += "\n"
		}
	}
}

func (k *packer) failed(d *report.Data) {
	if len(d.Failed) == 0 {
		return
	}
	heading := k.p.FailedHeading
	for i, id := range d.Failed {
		l := render.FailedLine(k.p, id)
		unit := l
		if i == 0 {
			unit = heading + l
		}
		k.place(unit, heading+l)
	}
}
