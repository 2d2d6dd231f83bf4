// Package dispatch delivers annotated batches to every resolved account.
//
// Channels and accounts are sent to in parallel. Batches to one account are
// strictly sequential and paced, and a rate-limit retry for batch k finishes
// before batch k+1 is attempted.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"trendpush/internal/accounts"
	"trendpush/internal/channels"
	"trendpush/internal/profile"
	"trendpush/internal/transport"
	"trendpush/pkg/logx"
)

const DefaultTimeout = 30 * time.Second

// Job is one channel's packed output.
type Job struct {
	Channel channels.Channel
	// Title is the report type label.
	Title   string
	Batches []string
}

// Diagnostic records one failed send.
type Diagnostic struct {
	Channel string `json:"channel"`
	Account string `json:"account,omitempty"`
	Batch   int    `json:"batch,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	s := d.Channel
	if d.Account != "" {
		s += " " + d.Account
	}
	if d.Batch > 0 {
		s += fmt.Sprintf(" batch %d", d.Batch)
	}
	return s + ": " + d.Message
}

// Report maps channel name to success. Channels without accounts are absent.
type Report struct {
	Results     map[string]bool
	Diagnostics []Diagnostic
}

// Succeeded reports whether any channel succeeded.
func (r Report) Succeeded() bool {
	for _, ok := range r.Results {
		if ok {
			return true
		}
	}
	return false
}

type Options struct {
	// Timeout bounds every single send.
	Timeout time.Duration
}

type Dispatcher struct {
	log     logx.Logger
	timeout time.Duration
}

func New(opts Options, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Dispatcher{log: log.With(logx.String("comp", "dispatch")), timeout: opts.Timeout}
}

// Dispatch sends every job and waits for all accounts to finish. Once ctx is
// cancelled no further sends are issued; accepted batches stay accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []Job) Report {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		rep = Report{Results: make(map[string]bool)}
	)
	for _, job := range jobs {
		if len(job.Channel.Accounts) == 0 || len(job.Batches) == 0 {
			continue
		}
		mu.Lock()
		rep.Results[job.Channel.Name] = false
		mu.Unlock()

		for _, acct := range job.Channel.Accounts {
			wg.Add(1)
			go func(job Job, acct accounts.Account) {
				defer wg.Done()
				ok, diags := d.account(ctx, job, acct)

				mu.Lock()
				defer mu.Unlock()
				if ok {
					rep.Results[job.Channel.Name] = true
				}
				rep.Diagnostics = append(rep.Diagnostics, diags...)
			}(job, acct)
		}
	}
	wg.Wait()
	return rep
}

// account sends all batches to one account. Success means at least one batch
// was accepted.
func (d *Dispatcher) account(ctx context.Context, job Job, acct accounts.Account) (ok bool, diags []Diagnostic) {
	ch := job.Channel
	log := d.log.With(logx.String("channel", ch.Name))
	if acct.Label != "" {
		log = log.With(logx.String("account", acct.Label))
	}
	fail := func(batch int, msg string) {
		diags = append(diags, Diagnostic{Channel: ch.Name, Account: acct.Label, Batch: batch, Message: msg})
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in send path", logx.Any("panic", r))
			fail(0, fmt.Sprintf("panic: %v", r))
			ok = false
		}
	}()

	lim := rate.NewLimiter(rate.Inf, 1)
	if ch.Interval > 0 {
		lim = rate.NewLimiter(rate.Every(ch.Interval), 1)
	}

	total := len(job.Batches)
	sent := 0
	for _, i := range order(total, ch.Profile.Order) {
		if ctx.Err() != nil {
			log.Warn("dispatch cancelled", logx.Int("sent", sent), logx.Int("total", total))
			fail(0, "cancelled: "+ctx.Err().Error())
			break
		}
		content := job.Batches[i]
		if content == "" {
			fail(i+1, "empty batch after truncation")
			continue
		}
		if err := lim.Wait(ctx); err != nil {
			fail(0, "cancelled: "+err.Error())
			break
		}

		msg := transport.Message{Title: job.Title, Content: content, Index: i + 1, Total: total}
		res := d.send(ctx, ch, acct, msg)
		sent++
		if res.Accepted {
			ok = true
			log.Info("batch sent", logx.Int("batch", i+1), logx.Int("total", total), logx.Int("bytes", len(content)))
			continue
		}
		log.Warn("batch rejected", logx.Int("batch", i+1), logx.Int("total", total), logx.Bool("rate_limited", res.RateLimited), logx.String("reason", res.Diagnostic))
		fail(i+1, res.Diagnostic)
	}

	if ok {
		log.Info("account delivery finished", logx.Int("batches", total))
	} else {
		log.Warn("account delivery failed", logx.Int("batches", total))
	}
	return ok, diags
}

// send performs one send, retrying rate-limited responses when the profile
// carries a retry policy.
func (d *Dispatcher) send(ctx context.Context, ch channels.Channel, acct accounts.Account, msg transport.Message) transport.Result {
	res := d.call(ctx, ch.Sender, acct, msg)
	policy := ch.Profile.Retry
	if policy == nil {
		return res
	}
	for attempt := 1; res.RateLimited && attempt <= policy.MaxRetries; attempt++ {
		d.log.Info("rate limited, retrying",
			logx.String("channel", ch.Name),
			logx.Int("batch", msg.Index),
			logx.Int("attempt", attempt),
			logx.Duration("delay", policy.Backoff),
		)
		if err := sleep(ctx, policy.Backoff); err != nil {
			return res
		}
		res = d.call(ctx, ch.Sender, acct, msg)
	}
	return res
}

func (d *Dispatcher) call(ctx context.Context, s transport.Sender, acct accounts.Account, msg transport.Message) transport.Result {
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	res := s.Send(cctx, acct, msg)
	if !res.Accepted && res.Diagnostic == "" && cctx.Err() != nil {
		res.Diagnostic = cctx.Err().Error()
	}
	return res
}

// order lists batch indexes in delivery order.
func order(n int, o profile.Order) []int {
	out := make([]int, n)
	for i := range out {
		if o == profile.Reversed {
			out[i] = n - 1 - i
		} else {
			out[i] = i
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		if !t.Stop() {
			<-t.C
		}
		return ctx.Err()
	}
}
