package packer

import (
	"trendpush/internal/profile"
	"trendpush/internal/report"
	"trendpush/pkg/markup"
)

// Annotate prefixes every batch with the profile's "[batch i/N]" marker when
// there is more than one, and cuts anything still over p.ByteBudget at a rune
// boundary. A lone batch carries no marker.
func Annotate(batches []string, p profile.Profile) []string {
	if len(batches) == 1 {
		return []string{markup.TruncateBytes(batches[0], p.ByteBudget)}
	}
	total := len(batches)
	out := make([]string, 0, total)
	for i, content := range batches {
		h := p.BatchHeader(i+1, total)
		if max := p.ByteBudget - len(h); len(content) > max {
			content = markup.TruncateBytes(content, max)
		}
		out = append(out, h+content)
	}
	return out
}

// Batches packs and annotates d for p.
func Batches(d *report.Data, p profile.Profile, opts Options) []string {
	return Annotate(Pack(d, p, opts), p)
}
