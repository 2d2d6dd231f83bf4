package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownChannel = errors.New("profile: unknown channel")

// Options tune the built-in table.
type Options struct {
	// Budgets overrides ByteBudget per channel id.
	Budgets map[string]int
	// RankThreshold applies to every channel. 0 means DefaultRankThreshold.
	RankThreshold int
	// Separator is the feishu inter-group rule. Empty means DefaultSeparator.
	Separator string
}

// Registry is an immutable channel -> Profile table.
type Registry struct {
	byChannel map[string]Profile
}

// New builds the registry from the built-in table and opts.
func New(opts Options) (*Registry, error) {
	sep := opts.Separator
	if strings.TrimSpace(sep) == "" {
		sep = DefaultSeparator
	}
	threshold := opts.RankThreshold
	if threshold <= 0 {
		threshold = DefaultRankThreshold
	}

	r := &Registry{byChannel: make(map[string]Profile)}
	for _, p := range builtin(sep) {
		p.RankThreshold = threshold
		p.ByteBudget = DefaultBudgets[p.Channel]
		if p.ByteBudget <= 0 {
			p.ByteBudget = DefaultBudget
		}
		r.byChannel[p.Channel] = p
	}

	for ch, n := range opts.Budgets {
		p, ok := r.byChannel[ch]
		if !ok {
			return nil, fmt.Errorf("%w: batch size for %q", ErrUnknownChannel, ch)
		}
		if n <= 0 {
			continue
		}
		if n <= p.MaxBatchHeaderSize() {
			return nil, fmt.Errorf("profile: batch size for %q (%d) leaves no room for content", ch, n)
		}
		p.ByteBudget = n
		r.byChannel[ch] = p
	}
	return r, nil
}

// Default is New with zero Options.
func Default() *Registry {
	r, err := New(Options{})
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns a copy of the channel's profile.
func (r *Registry) Lookup(channel string) (Profile, error) {
	p, ok := r.byChannel[channel]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	return p, nil
}

// Channels lists the known channel ids, sorted.
func (r *Registry) Channels() []string {
	out := make([]string, 0, len(r.byChannel))
	for ch := range r.byChannel {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}
