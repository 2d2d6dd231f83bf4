package transport

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps channel ids to senders.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[string]Sender)}
}

// Register binds s to channel, replacing any previous sender.
func (r *Registry) Register(channel string, s Sender) {
	if s == nil {
		panic(fmt.Sprintf("transport: nil sender for %q", channel))
	}
	r.mu.Lock()
	r.senders[channel] = s
	r.mu.Unlock()
}

func (r *Registry) Get(channel string) (Sender, bool) {
	r.mu.RLock()
	s, ok := r.senders[channel]
	r.mu.RUnlock()
	return s, ok
}

// Channels lists registered channel ids, sorted.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
