package packer

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"trendpush/internal/profile"
	"trendpush/internal/render"
	"trendpush/internal/report"
)

var fixedNow = time.Date(2026, 5, 4, 12, 30, 0, 0, time.UTC)

func lookup(t *testing.T, r *profile.Registry, ch string) profile.Profile {
	t.Helper()
	p, err := r.Lookup(ch)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func aiReport() *report.Data {
	return &report.Data{
		Mode: report.ModeDaily,
		Sections: []report.Section{{
			Keyword: "AI",
			Count:   12,
			Titles: []report.NewsRef{
				{Title: "title-one", Source: "src"},
				{Title: "title-two", Source: "src"},
			},
		}},
	}
}

func TestEmptyReportYieldsOneBatch(t *testing.T) {
	t.Parallel()

	r := profile.Default()
	for _, ch := range r.Channels() {
		p := lookup(t, r, ch)
		for _, mode := range []report.Mode{report.ModeDaily, report.ModeCurrent, report.ModeIncremental} {
			got := Batches(&report.Data{Mode: mode}, p, Options{Now: fixedNow})
			if len(got) != 1 {
				t.Fatalf("%s/%s: %d batches", ch, mode, len(got))
			}
			if !strings.Contains(got[0], render.EmptyText(mode)) {
				t.Fatalf("%s/%s: missing empty sentence in %q", ch, mode, got[0])
			}
			if strings.Contains(got[0], "[batch") {
				t.Fatalf("%s: unexpected marker", ch)
			}
		}
	}
}

func TestSingleBatchScenario(t *testing.T) {
	t.Parallel()

	p := lookup(t, profile.Default(), profile.WeWork)
	got := Batches(aiReport(), p, Options{Now: fixedNow})
	if len(got) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(got))
	}
	b := got[0]
	for _, want := range []string{"🔥", "title-one", "title-two", "**12**", "**Total news:** 2"} {
		if !strings.Contains(b, want) {
			t.Fatalf("batch missing %q:\n%s", want, b)
		}
	}
	if strings.Contains(b, "[batch") {
		t.Fatalf("single batch must not carry a marker:\n%s", b)
	}
}

func TestTwoBatchScenario(t *testing.T) {
	t.Parallel()

	base := lookup(t, profile.Default(), profile.WeWork)
	d := aiReport()
	meta := render.Meta{Total: d.TotalTitles(), Now: fixedNow}
	group := render.GroupHeading(base, 1, 1, "AI", 12)
	first := render.Numbered(1, render.Item(base, d.Sections[0].Titles[0], true))
	exact := len(render.Header(base, meta)) + len(base.StatsHeading) + len(group) + len(first) + len(render.Footer(base, meta))
	budget := exact + base.MaxBatchHeaderSize()

	r, err := profile.New(profile.Options{Budgets: map[string]int{profile.WeWork: budget}})
	if err != nil {
		t.Fatal(err)
	}
	p := lookup(t, r, profile.WeWork)

	got := Batches(d, p, Options{Now: fixedNow})
	if len(got) != 2 {
		t.Fatalf("expected 2 batches, got %d:\n%q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "**[batch 1/2]**\n") || !strings.HasPrefix(got[1], "**[batch 2/2]**\n") {
		t.Fatalf("markers missing:\n%q", got)
	}
	if !strings.Contains(got[0], "title-one") || strings.Contains(got[0], "title-two") {
		t.Fatalf("batch 1 content wrong:\n%s", got[0])
	}
	if !strings.Contains(got[1], "title-two") || strings.Contains(got[1], "title-one") {
		t.Fatalf("batch 2 content wrong:\n%s", got[1])
	}
	// The continuation batch repeats the group heading and keeps numbering.
	if !strings.Contains(got[1], group) || !strings.Contains(got[1], "  2. ") {
		t.Fatalf("batch 2 lost its heading or numbering:\n%s", got[1])
	}
	for i, b := range got {
		if len(b) > budget {
			t.Fatalf("batch %d is %d bytes, budget %d", i+1, len(b), budget)
		}
	}
}

func TestNewFirstOrder(t *testing.T) {
	t.Parallel()

	p := lookup(t, profile.Default(), profile.Telegram)
	d := aiReport()
	d.NewTitles = []report.NewTitleGroup{{Source: "zhihu", Titles: []report.NewsRef{{Title: "fresh", Source: "zhihu", IsNew: true}}}}
	d.TotalNew = 1

	natural := Pack(d, p, Options{Now: fixedNow})[0]
	reversed := Pack(d, p, Options{Now: fixedNow, NewFirst: true})[0]

	if strings.Index(natural, "Trending keywords") > strings.Index(natural, "New this run") {
		t.Fatalf("stats should come first:\n%s", natural)
	}
	if strings.Index(reversed, "New this run") > strings.Index(reversed, "Trending keywords") {
		t.Fatalf("new titles should come first:\n%s", reversed)
	}
	// New titles drop both the marker and the source prefix.
	if !strings.Contains(natural, "  1. fresh\n") {
		t.Fatalf("new title line not plain:\n%s", natural)
	}
}

func TestFailedSourcesListed(t *testing.T) {
	t.Parallel()

	p := lookup(t, profile.Default(), profile.DingTalk)
	d := &report.Data{Failed: []report.FailedSource{"weibo", "douyin"}}
	got := Batches(d, p, Options{Now: fixedNow, ReportType: "Daily Summary"})
	if len(got) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(got))
	}
	for _, want := range []string{"Sources that failed to refresh", "  • **weibo**\n", "  • **douyin**\n", "Daily Summary"} {
		if !strings.Contains(got[0], want) {
			t.Fatalf("missing %q:\n%s", want, got[0])
		}
	}
}

func TestNoticeInEveryFooter(t *testing.T) {
	t.Parallel()

	r, err := profile.New(profile.Options{Budgets: map[string]int{profile.Ntfy: 400}})
	if err != nil {
		t.Fatal(err)
	}
	p := lookup(t, r, profile.Ntfy)
	got := Batches(randomReport(rand.New(rand.NewSource(7)), 4, 6), p, Options{Now: fixedNow, Notice: "v9 is out"})
	if len(got) < 2 {
		t.Fatalf("expected several batches, got %d", len(got))
	}
	for i, b := range got {
		if !strings.Contains(b, "v9 is out") {
			t.Fatalf("batch %d lacks notice:\n%s", i+1, b)
		}
	}
}

func randomReport(rng *rand.Rand, sections, items int) *report.Data {
	d := &report.Data{Mode: report.ModeDaily}
	for i := 0; i < sections; i++ {
		s := report.Section{Keyword: fmt.Sprintf("kw%d", i), Count: rng.Intn(15) + items}
		for j := 0; j < items; j++ {
			s.Titles = append(s.Titles, report.NewsRef{
				Title:     fmt.Sprintf("headline %d-%d %s", i, j, strings.Repeat("热", rng.Intn(8))),
				Source:    "src",
				URL:       fmt.Sprintf("https://n.test/%d/%d", i, j),
				Ranks:     []int{rng.Intn(20) + 1},
				FirstSeen: "08:00",
				LastSeen:  "09:00",
				Count:     rng.Intn(3) + 1,
			})
		}
		d.Sections = append(d.Sections, s)
	}
	for g := 0; g < 2; g++ {
		grp := report.NewTitleGroup{Source: fmt.Sprintf("source%d", g)}
		for j := 0; j < items; j++ {
			grp.Titles = append(grp.Titles, report.NewsRef{Title: fmt.Sprintf("new %d-%d", g, j), Source: grp.Source, IsNew: true})
		}
		d.NewTitles = append(d.NewTitles, grp)
	}
	d.Failed = []report.FailedSource{"a", "b", "c"}
	return d
}

func TestBudgetAndAtomicityProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		d := randomReport(rng, rng.Intn(6)+1, rng.Intn(6)+1)
		budget := 700 + rng.Intn(1500)

		budgets := map[string]int{}
		for ch := range profile.DefaultBudgets {
			budgets[ch] = budget
		}
		r, err := profile.New(profile.Options{Budgets: budgets})
		if err != nil {
			t.Fatal(err)
		}

		for _, ch := range r.Channels() {
			p := lookup(t, r, ch)
			newFirst := round%2 == 1
			got := Batches(d, p, Options{Now: fixedNow, NewFirst: newFirst})
			if len(got) == 0 {
				t.Fatalf("%s: no batches", ch)
			}
			for i, b := range got {
				if len(b) > p.ByteBudget {
					t.Fatalf("%s round %d: batch %d is %d bytes > %d", ch, round, i+1, len(b), p.ByteBudget)
				}
			}

			joined := strings.Join(got, "\x00")
			for si, s := range d.Sections {
				heading := render.GroupHeading(p, si+1, len(d.Sections), s.Keyword, s.Count)
				firstLine := render.Numbered(1, render.Item(p, s.Titles[0], true))
				assertTogether(t, ch, got, heading, firstLine)
				for j, n := range s.Titles {
					if line := render.Numbered(j+1, render.Item(p, n, true)); !strings.Contains(joined, line) {
						t.Fatalf("%s: lost item %q", ch, line)
					}
				}
			}
			for _, g := range d.NewTitles {
				src := render.SourceHeading(p, g.Source, len(g.Titles))
				n := g.Titles[0]
				n.IsNew = false
				assertTogether(t, ch, got, src, render.Numbered(1, render.Item(p, n, false)))
			}
			if len(got) > 1 {
				for i, b := range got {
					if !strings.HasPrefix(b, p.BatchHeader(i+1, len(got))) {
						t.Fatalf("%s: batch %d lacks marker", ch, i+1)
					}
				}
			}
		}
	}
}

// assertTogether checks that the first batch containing heading also contains
// the line right after it.
func assertTogether(t *testing.T, ch string, batches []string, heading, line string) {
	t.Helper()
	for i, b := range batches {
		idx := strings.Index(b, heading)
		if idx < 0 {
			continue
		}
		if !strings.HasPrefix(b[idx+len(heading):], line) {
			t.Fatalf("%s: batch %d has heading %q without its first item %q", ch, i+1, heading, line)
		}
		return
	}
	t.Fatalf("%s: heading %q never emitted", ch, heading)
}

func TestAnnotate(t *testing.T) {
	t.Parallel()

	r, err := profile.New(profile.Options{Budgets: map[string]int{profile.Bark: 40}})
	if err != nil {
		t.Fatal(err)
	}
	p := lookup(t, r, profile.Bark)

	one := []string{"short"}
	if got := Annotate(one, p); len(got) != 1 || got[0] != "short" {
		t.Fatalf("single batch modified: %q", got)
	}

	long := strings.Repeat("热", 30)
	got := Annotate([]string{long, "b"}, p)
	if !strings.HasPrefix(got[0], "[batch 1/2]\n") || got[1] != "[batch 2/2]\nb" {
		t.Fatalf("markers wrong: %q", got)
	}
	if len(got[0]) > 40 {
		t.Fatalf("batch not truncated: %d bytes", len(got[0]))
	}
	body := strings.TrimPrefix(got[0], "[batch 1/2]\n")
	if len(body)%3 != 0 {
		t.Fatalf("truncation split a rune: %q", body)
	}

	if got := Annotate([]string{long}, p); len(got[0]) > 40 {
		t.Fatalf("oversized single batch kept: %d bytes", len(got[0]))
	}
}
