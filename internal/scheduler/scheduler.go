// Package scheduler triggers pipeline runs from a cron expression or a fixed
// interval. It only triggers; a tick that finds the previous run still going
// is skipped.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"trendpush/pkg/logx"
)

// Job is invoked once per tick.
type Job func(ctx context.Context) error

type Config struct {
	Spec     string
	Timezone string
	// Timeout bounds one triggered run; 0 means no bound.
	Timeout time.Duration
}

type Service struct {
	log    logx.Logger
	job    Job
	parser cron.Parser

	mu   sync.Mutex
	cfg  Config
	spec Spec
	loc  *time.Location
	c    *cron.Cron
	id   cron.EntryID
	ctx  context.Context
}

func New(cfg Config, job Job, log logx.Logger) (*Service, error) {
	if job == nil {
		return nil, errors.New("scheduler: nil job")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		log: log.With(logx.String("comp", "scheduler")),
		job: job,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	if err := s.validate(cfg); err != nil {
		return nil, err
	}
	s.cfg = cfg
	return s, nil
}

func (s *Service) validate(cfg Config) error {
	spec, err := ParseSpec(cfg.Spec)
	if err != nil {
		return err
	}
	if _, err := s.schedule(spec); err != nil {
		return err
	}
	_, err = loadLocation(cfg.Timezone)
	return err
}

func (s *Service) schedule(spec Spec) (cron.Schedule, error) {
	if spec.Kind == KindInterval {
		return cron.Every(spec.Every), nil
	}
	return s.parser.Parse(spec.Cron)
}

func loadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// Start begins triggering until ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.ctx = ctx
	return s.startLocked()
}

func (s *Service) startLocked() error {
	spec, err := ParseSpec(s.cfg.Spec)
	if err != nil {
		return err
	}
	sched, err := s.schedule(spec)
	if err != nil {
		return err
	}
	loc, err := loadLocation(s.cfg.Timezone)
	if err != nil {
		return err
	}

	logger := cronLogger{log: s.log}
	s.c = cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s.id = s.c.Schedule(sched, cron.FuncJob(s.tick))
	s.spec, s.loc = spec, loc
	s.c.Start()

	s.log.Info("scheduler started", logx.String("schedule", spec.String()), logx.String("tz", loc.String()), logx.Time("next", s.nextLocked()))
	return nil
}

func (s *Service) tick() {
	s.mu.Lock()
	ctx, timeout := s.ctx, s.cfg.Timeout
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	s.log.Debug("tick")
	if err := s.job(ctx); err != nil {
		s.log.Warn("scheduled run failed", logx.Err(err), logx.Duration("took", time.Since(start)))
		return
	}
	s.log.Debug("scheduled run finished", logx.Duration("took", time.Since(start)))
}

// Apply swaps the schedule. A running scheduler is restarted with it.
func (s *Service) Apply(cfg Config) error {
	if err := s.validate(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	changed := cfg.Spec != s.cfg.Spec || cfg.Timezone != s.cfg.Timezone
	s.cfg = cfg
	c := s.c
	if c == nil || !changed {
		s.mu.Unlock()
		return nil
	}
	s.c = nil
	s.mu.Unlock()

	// A running tick needs s.mu, so wait for it unlocked.
	<-c.Stop().Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	return s.startLocked()
}

// Next returns the next trigger time; zero when stopped.
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked()
}

func (s *Service) nextLocked() time.Time {
	if s.c == nil {
		return time.Time{}
	}
	return s.c.Entry(s.id).Next
}

// Stop halts triggering and waits for a running job until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug(msg, logx.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error(msg, logx.Err(err), logx.Any("kv", kv))
}
