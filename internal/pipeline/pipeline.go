// Package pipeline runs one full push: gate, report, pack, dispatch, record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"trendpush/internal/channels"
	"trendpush/internal/dispatch"
	"trendpush/internal/packer"
	"trendpush/internal/profile"
	"trendpush/internal/pushgate"
	"trendpush/internal/report"
	"trendpush/internal/storage"
	"trendpush/internal/transport"
	"trendpush/pkg/logx"
)

var (
	ErrBusy     = errors.New("pipeline: a run is already in progress")
	ErrNoReport = errors.New("pipeline: report source returned nothing")
)

// Config is the immutable per-run configuration.
type Config struct {
	Mode     report.Mode
	Channels channels.Settings
	// Profiles defaults to profile.Default().
	Profiles *profile.Registry
	Window   pushgate.Config
	Notice   string
	NewFirst bool
	// Timeout bounds each send.
	Timeout time.Duration
}

// Outcome summarizes one run. Results is empty when the run was skipped.
type Outcome struct {
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
	Mode        report.Mode           `json:"mode"`
	Skipped     bool                  `json:"skipped"`
	Reason      string                `json:"reason,omitempty"`
	Results     map[string]bool       `json:"results"`
	Diagnostics []dispatch.Diagnostic `json:"diagnostics,omitempty"`
	Recorded    bool                  `json:"recorded"`
	Error       string                `json:"error,omitempty"`
}

// Succeeded reports whether any channel accepted the report.
func (o Outcome) Succeeded() bool {
	for _, ok := range o.Results {
		if ok {
			return true
		}
	}
	return false
}

type state struct {
	cfg  Config
	gate *pushgate.Gate
	disp *dispatch.Dispatcher
}

type Pipeline struct {
	src   report.Source
	store storage.Store
	log   logx.Logger
	now   func() time.Time

	senders atomic.Pointer[transport.Registry]

	mu sync.Mutex
	st state

	running atomic.Bool
	last    atomic.Pointer[Outcome]
}

type Option func(*Pipeline)

// WithClock injects the time source used by the gate and the headers.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// New wires the pipeline. The report source, the sender registry and the
// push record store are explicit; store may be nil when once-per-day is off.
func New(cfg Config, src report.Source, senders *transport.Registry, store storage.Store, log logx.Logger, opts ...Option) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("pipeline: nil report source")
	}
	if senders == nil {
		return nil, errors.New("pipeline: nil sender registry")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Pipeline{
		src:   src,
		store: store,
		log:   log.With(logx.String("comp", "pipeline")),
		now:   time.Now,
	}
	p.senders.Store(senders)
	for _, o := range opts {
		o(p)
	}
	if err := p.Apply(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply swaps the configuration used by subsequent runs.
func (p *Pipeline) Apply(cfg Config) error {
	if cfg.Profiles == nil {
		cfg.Profiles = profile.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = report.ModeDaily
	}
	gate, err := pushgate.New(cfg.Window, p.store, p.log, pushgate.WithClock(p.now))
	if err != nil {
		return err
	}
	disp := dispatch.New(dispatch.Options{Timeout: cfg.Timeout}, p.log)

	p.mu.Lock()
	p.st = state{cfg: cfg, gate: gate, disp: disp}
	p.mu.Unlock()
	return nil
}

// SetSenders swaps the sender registry for subsequent runs. Credentials
// bound into senders (email, ntfy server) change on reload.
func (p *Pipeline) SetSenders(reg *transport.Registry) {
	if reg != nil {
		p.senders.Store(reg)
	}
}

func (p *Pipeline) snapshot() state {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st
}

// Last returns the most recent outcome, if any.
func (p *Pipeline) Last() (Outcome, bool) {
	o := p.last.Load()
	if o == nil {
		return Outcome{}, false
	}
	return *o, true
}

// Running reports whether a run is in progress.
func (p *Pipeline) Running() bool { return p.running.Load() }

// Channels resolves the currently configured channels.
func (p *Pipeline) Channels() ([]channels.Channel, []error) {
	st := p.snapshot()
	return channels.Resolve(st.cfg.Channels, st.cfg.Profiles, p.senders.Load(), p.log)
}

// Run executes one full push. Channel failures are reported in the outcome;
// the returned error covers overlapping runs and report source failures.
func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer p.running.Store(false)

	st := p.snapshot()
	out := Outcome{StartedAt: p.now(), Mode: st.cfg.Mode, Results: map[string]bool{}}
	defer func() {
		out.FinishedAt = p.now()
		o := out
		p.last.Store(&o)
	}()

	reportType := string(st.cfg.Mode)
	decision := st.gate.Check(ctx, reportType)
	if !decision.Allowed {
		out.Skipped = true
		out.Reason = decision.Reason
		return out, nil
	}

	chs, cerrs := channels.Resolve(st.cfg.Channels, st.cfg.Profiles, p.senders.Load(), p.log)
	for _, err := range cerrs {
		out.Diagnostics = append(out.Diagnostics, diagnosticOf(err))
	}
	if len(chs) == 0 {
		out.Skipped = true
		out.Reason = "no channel configured"
		p.log.Warn("nothing to do: no channel configured")
		return out, nil
	}

	data, err := p.src.Build(ctx)
	if err == nil && data == nil {
		err = ErrNoReport
	}
	if err == nil {
		err = data.Validate()
	}
	if err != nil {
		out.Error = err.Error()
		p.log.Error("report build failed", logx.Err(err))
		return out, fmt.Errorf("build report: %w", err)
	}
	if data.Mode == "" {
		data.Mode = st.cfg.Mode
	}

	jobs := Jobs(data, chs, packer.Options{
		Now:        p.now(),
		ReportType: data.Mode.Label(),
		Notice:     st.cfg.Notice,
		NewFirst:   st.cfg.NewFirst,
	})
	for _, j := range jobs {
		p.log.Debug("report packed", logx.String("channel", j.Channel.Name), logx.Int("batches", len(j.Batches)))
	}

	rep := st.disp.Dispatch(ctx, jobs)
	out.Results = rep.Results
	out.Diagnostics = append(out.Diagnostics, rep.Diagnostics...)

	if rep.Succeeded() {
		created, err := st.gate.Record(ctx, reportType, decision)
		if err != nil {
			p.log.Warn("push record write failed", logx.Err(err))
		}
		out.Recorded = created
	}

	p.log.Info("run finished",
		logx.String("mode", string(out.Mode)),
		logx.Any("results", out.Results),
		logx.Int("diagnostics", len(out.Diagnostics)),
	)
	return out, nil
}

// Jobs packs data once per channel.
func Jobs(data *report.Data, chs []channels.Channel, opts packer.Options) []dispatch.Job {
	title := opts.ReportType
	if title == "" && data != nil {
		title = data.Mode.Label()
		opts.ReportType = title
	}
	jobs := make([]dispatch.Job, 0, len(chs))
	for _, ch := range chs {
		jobs = append(jobs, dispatch.Job{
			Channel: ch,
			Title:   title,
			Batches: packer.Batches(data, ch.Profile, opts),
		})
	}
	return jobs
}

func diagnosticOf(err error) dispatch.Diagnostic {
	var ce *channels.ConfigError
	if errors.As(err, &ce) {
		return dispatch.Diagnostic{Channel: ce.Channel, Message: ce.Err.Error()}
	}
	return dispatch.Diagnostic{Message: err.Error()}
}
