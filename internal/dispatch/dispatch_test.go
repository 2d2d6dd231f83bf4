package dispatch

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"trendpush/internal/accounts"
	"trendpush/internal/channels"
	"trendpush/internal/profile"
	"trendpush/internal/transport"
	"trendpush/pkg/logx"
)

type recorder struct {
	mu    sync.Mutex
	calls []transport.Message
	reply func(n int, acct accounts.Account, msg transport.Message) transport.Result
}

func (r *recorder) Send(_ context.Context, acct accounts.Account, msg transport.Message) transport.Result {
	r.mu.Lock()
	r.calls = append(r.calls, msg)
	n := len(r.calls)
	r.mu.Unlock()
	if r.reply == nil {
		return transport.Accepted()
	}
	return r.reply(n, acct, msg)
}

func (r *recorder) indexes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.calls))
	for _, m := range r.calls {
		out = append(out, m.Index)
	}
	return out
}

func acct(i int) accounts.Account {
	return accounts.Account{Index: i, Fields: map[string]string{transport.FieldURL: "u"}}
}

func channel(name string, s transport.Sender, p profile.Profile, accts ...accounts.Account) channels.Channel {
	p.Channel = name
	return channels.Channel{Name: name, Kind: name, Profile: p, Sender: s, Accounts: accts}
}

func TestDispatchNaturalAndReversedOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		order profile.Order
		want  []int
	}{
		{profile.Natural, []int{1, 2, 3}},
		{profile.Reversed, []int{3, 2, 1}},
	}
	for _, tt := range tests {
		rec := &recorder{}
		job := Job{
			Channel: channel("x", rec, profile.Profile{Order: tt.order}, acct(0)),
			Title:   "Daily Summary",
			Batches: []string{"a", "b", "c"},
		}
		rep := New(Options{}, logx.Nop()).Dispatch(context.Background(), []Job{job})
		if !rep.Results["x"] {
			t.Fatalf("order %v: channel failed: %+v", tt.order, rep)
		}
		got := rec.indexes()
		if len(got) != len(tt.want) {
			t.Fatalf("order %v: indexes = %v", tt.order, got)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("order %v: indexes = %v, want %v", tt.order, got, tt.want)
			}
		}
		if rec.calls[0].Total != 3 || rec.calls[0].Title != "Daily Summary" {
			t.Fatalf("message = %+v", rec.calls[0])
		}
	}
}

func TestDispatchAccountSucceedsOnAnyBatch(t *testing.T) {
	t.Parallel()

	rec := &recorder{reply: func(n int, _ accounts.Account, _ transport.Message) transport.Result {
		if n == 1 {
			return transport.Rejected("boom")
		}
		return transport.Accepted()
	}}
	job := Job{Channel: channel("x", rec, profile.Profile{}, acct(0)), Batches: []string{"a", "b"}}
	rep := New(Options{}, logx.Nop()).Dispatch(context.Background(), []Job{job})
	if !rep.Results["x"] {
		t.Fatal("expected success when one batch is accepted")
	}
	if len(rep.Diagnostics) != 1 || rep.Diagnostics[0].Batch != 1 || rep.Diagnostics[0].Message != "boom" {
		t.Fatalf("diagnostics = %+v", rep.Diagnostics)
	}
}

func TestDispatchChannelIsOrOverAccounts(t *testing.T) {
	t.Parallel()

	failing := transport.SenderFunc(func(_ context.Context, a accounts.Account, _ transport.Message) transport.Result {
		if a.Index == 0 {
			return transport.Rejected("bad token")
		}
		return transport.Accepted()
	})
	allBad := transport.SenderFunc(func(context.Context, accounts.Account, transport.Message) transport.Result {
		return transport.Rejected("down")
	})
	jobs := []Job{
		{Channel: channel("mixed", failing, profile.Profile{}, acct(0), acct(1)), Batches: []string{"a"}},
		{Channel: channel("down", allBad, profile.Profile{}, acct(0)), Batches: []string{"a"}},
		{Channel: channel("unconfigured", allBad, profile.Profile{}), Batches: []string{"a"}},
	}
	rep := New(Options{}, logx.Nop()).Dispatch(context.Background(), jobs)

	if !rep.Results["mixed"] {
		t.Fatal("mixed should succeed")
	}
	if ok, present := rep.Results["down"]; !present || ok {
		t.Fatalf("down = %v, present %v", ok, present)
	}
	if _, present := rep.Results["unconfigured"]; present {
		t.Fatal("channel without accounts must be absent")
	}
	if !rep.Succeeded() {
		t.Fatal("report should count as succeeded")
	}
}

func TestDispatchRetriesOnlyWithPolicy(t *testing.T) {
	t.Parallel()

	throttleFirst := func() *recorder {
		return &recorder{reply: func(n int, _ accounts.Account, _ transport.Message) transport.Result {
			if n == 1 {
				return transport.Throttled("429")
			}
			return transport.Accepted()
		}}
	}

	withRetry := throttleFirst()
	p := profile.Profile{Retry: &profile.RetryPolicy{Backoff: time.Millisecond, MaxRetries: 1}}
	rep := New(Options{}, logx.Nop()).Dispatch(context.Background(), []Job{
		{Channel: channel("retry", withRetry, p, acct(0)), Batches: []string{"a"}},
	})
	if !rep.Results["retry"] || len(withRetry.calls) != 2 {
		t.Fatalf("with policy: result %v after %d calls", rep.Results["retry"], len(withRetry.calls))
	}

	noRetry := throttleFirst()
	rep = New(Options{}, logx.Nop()).Dispatch(context.Background(), []Job{
		{Channel: channel("plain", noRetry, profile.Profile{}, acct(0)), Batches: []string{"a"}},
	})
	if rep.Results["plain"] || len(noRetry.calls) != 1 {
		t.Fatalf("without policy: result %v after %d calls", rep.Results["plain"], len(noRetry.calls))
	}
}

func TestDispatchPacesBatches(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		stamp []time.Time
	)
	s := transport.SenderFunc(func(context.Context, accounts.Account, transport.Message) transport.Result {
		mu.Lock()
		stamp = append(stamp, time.Now())
		mu.Unlock()
		return transport.Accepted()
	})
	ch := channel("x", s, profile.Profile{}, acct(0))
	ch.Interval = 40 * time.Millisecond

	New(Options{}, logx.Nop()).Dispatch(context.Background(), []Job{{Channel: ch, Batches: []string{"a", "b", "c"}}})
	if len(stamp) != 3 {
		t.Fatalf("calls = %d", len(stamp))
	}
	if gap := stamp[2].Sub(stamp[0]); gap < 70*time.Millisecond {
		t.Fatalf("batches not paced: %v", gap)
	}
}

func TestDispatchTimeoutIsBatchFailure(t *testing.T) {
	t.Parallel()

	slow := transport.SenderFunc(func(ctx context.Context, _ accounts.Account, _ transport.Message) transport.Result {
		<-ctx.Done()
		return transport.Result{}
	})
	rep := New(Options{Timeout: 10 * time.Millisecond}, logx.Nop()).Dispatch(context.Background(), []Job{
		{Channel: channel("slow", slow, profile.Profile{}, acct(0)), Batches: []string{"a"}},
		{Channel: channel("fast", &recorder{}, profile.Profile{}, acct(0)), Batches: []string{"a"}},
	})
	if rep.Results["slow"] || !rep.Results["fast"] {
		t.Fatalf("results = %v", rep.Results)
	}
	if len(rep.Diagnostics) != 1 || !strings.Contains(rep.Diagnostics[0].Message, "deadline") {
		t.Fatalf("diagnostics = %+v", rep.Diagnostics)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	t.Parallel()

	bad := transport.SenderFunc(func(context.Context, accounts.Account, transport.Message) transport.Result {
		panic("kaboom")
	})
	rep := New(Options{}, logx.Nop()).Dispatch(context.Background(), []Job{
		{Channel: channel("bad", bad, profile.Profile{}, acct(0)), Batches: []string{"a"}},
	})
	if ok, present := rep.Results["bad"]; !present || ok {
		t.Fatalf("bad = %v present %v", ok, present)
	}
	if len(rep.Diagnostics) != 1 || !strings.Contains(rep.Diagnostics[0].Message, "kaboom") {
		t.Fatalf("diagnostics = %+v", rep.Diagnostics)
	}
}

func TestDispatchStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	rec.reply = func(int, accounts.Account, transport.Message) transport.Result {
		cancel()
		return transport.Accepted()
	}
	rep := New(Options{}, logx.Nop()).Dispatch(ctx, []Job{
		{Channel: channel("x", rec, profile.Profile{}, acct(0)), Batches: []string{"a", "b", "c"}},
	})
	if len(rec.calls) != 1 {
		t.Fatalf("sends after cancel: %d", len(rec.calls))
	}
	if !rep.Results["x"] {
		t.Fatal("accepted batch must keep the account successful")
	}
}

func TestDispatchSkipsEmptyBatch(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	rep := New(Options{}, logx.Nop()).Dispatch(context.Background(), []Job{
		{Channel: channel("x", rec, profile.Profile{}, acct(0)), Batches: []string{"", "b"}},
	})
	if len(rec.calls) != 1 || rec.calls[0].Index != 2 {
		t.Fatalf("calls = %+v", rec.calls)
	}
	if !rep.Results["x"] || len(rep.Diagnostics) != 1 {
		t.Fatalf("report = %+v", rep)
	}
}
