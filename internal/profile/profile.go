package profile

import (
	"fmt"
	"time"
)

// Order is the sequence in which an account receives its batches.
type Order int

const (
	Natural  Order = iota // batch 1 first
	Reversed              // last batch first
)

func (o Order) String() string {
	if o == Reversed {
		return "reversed"
	}
	return "natural"
}

// RetryPolicy retries a batch that was answered with a rate-limit response.
type RetryPolicy struct {
	Backoff    time.Duration
	MaxRetries int
}

// Templates are the literal text fragments of a channel.
//
// Fields documented with {placeholders} are expanded with Expand; the others
// are fmt format strings taking the arguments listed.
type Templates struct {
	// Report level. {total}, {time}, {type}.
	Header string
	// {time}.
	Footer string
	// {notice}. Appended to Footer when a notice is configured.
	Notice string
	// Single "no results" line. %s: mode-specific sentence.
	Empty string

	// Stats block.
	StatsHeading string
	// %s emoji, %s sequence, %s keyword, %s count.
	GroupHeading string
	// %d index, %d total.
	Seq string
	// %s keyword.
	Keyword string
	// %d count. HotCount applies at >= 10, WarmCount at >= 5.
	HotCount  string
	WarmCount string
	Count     string
	// Between keyword groups. Dropped when it does not fit.
	Separator string

	// New titles block. %d total new.
	NewHeading string
	// %s source, %d titles.
	SourceHeading string

	// Failed sources block.
	FailedHeading string
	// %s source id.
	FailedLine string

	// Item line pieces.
	SourcePrefix string // %s source
	NewMarker    string
	RankHot      string // %s badge
	TimeSuffix   string // %s time range
	CountSuffix  string // %d occurrences

	// %d index, %d total.
	BatchHeader string
}

// Profile is one channel's formatting and delivery rules.
type Profile struct {
	Channel string
	Dialect Dialect
	// ByteBudget bounds every annotated batch, in UTF-8 bytes.
	ByteBudget int
	// Items whose best rank is <= RankThreshold get the highlighted badge.
	RankThreshold int
	Order         Order
	// Retry is nil for channels that treat rate limiting as a plain failure.
	Retry *RetryPolicy
	// Interval overrides the global inter-batch delay when > 0.
	Interval time.Duration

	Templates
}

// BatchHeader renders the "[batch i/N]" marker.
func (p Profile) BatchHeader(i, n int) string {
	return fmt.Sprintf(p.Templates.BatchHeader, i, n)
}

// MaxBatchHeaderSize is the worst-case marker size, assuming up to 99 batches.
func (p Profile) MaxBatchHeaderSize() int {
	return len(p.BatchHeader(99, 99))
}

// ContentBudget is what the packer may use per batch before annotation.
func (p Profile) ContentBudget() int {
	return p.ByteBudget - p.MaxBatchHeaderSize()
}
