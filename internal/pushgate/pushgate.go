// Package pushgate decides whether a run may push at all: a daily time
// window and an optional once-per-day limit backed by storage.
package pushgate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trendpush/internal/storage"
	"trendpush/pkg/logx"
)

const DefaultRetentionDays = 7

// Clock is a time-of-day in minutes since midnight.
type Clock int

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("pushgate: invalid time %q (want HH:MM)", s)
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("pushgate: invalid time %q (want HH:MM)", s)
	}
	return Clock(hh*60 + mm), nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60) }

func clockOf(t time.Time) Clock { return Clock(t.Hour()*60 + t.Minute()) }

type Config struct {
	Enabled bool
	// Start is inclusive, End exclusive. Windows do not wrap midnight.
	Start string
	End   string
	// OncePerDay only applies while the window is enabled.
	OncePerDay    bool
	RetentionDays int
	// Location defaults to time.Local.
	Location *time.Location
}

// Decision is the gate's verdict for one run.
type Decision struct {
	Allowed bool
	Reason  string
	// Day is the local calendar day the decision was made for.
	Day string
}

type Gate struct {
	cfg   Config
	start Clock
	end   Clock
	store storage.Store
	log   logx.Logger
	now   func() time.Time
}

type Option func(*Gate)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

func New(cfg Config, store storage.Store, log logx.Logger, opts ...Option) (*Gate, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	g := &Gate{cfg: cfg, store: store, log: log.With(logx.String("comp", "pushgate")), now: time.Now}
	if cfg.Enabled {
		var err error
		if g.start, err = ParseClock(cfg.Start); err != nil {
			return nil, err
		}
		if g.end, err = ParseClock(cfg.End); err != nil {
			return nil, err
		}
		if g.start >= g.end {
			return nil, fmt.Errorf("pushgate: window start %s must be before end %s", g.start, g.end)
		}
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

func (g *Gate) local() time.Time { return g.now().In(g.cfg.Location) }

func (g *Gate) oncePerDay() bool { return g.cfg.Enabled && g.cfg.OncePerDay }

// Check evaluates the window and the once-per-day record. A failing record
// lookup lets the run proceed.
func (g *Gate) Check(ctx context.Context, reportType string) Decision {
	now := g.local()
	d := Decision{Allowed: true, Day: now.Format(storage.DayLayout)}
	if !g.cfg.Enabled {
		return d
	}

	if c := clockOf(now); c < g.start || c >= g.end {
		d.Allowed = false
		d.Reason = fmt.Sprintf("outside push window %s-%s (now %s)", g.start, g.end, c)
		g.log.Info("push suppressed", logx.String("reason", d.Reason))
		return d
	}

	if !g.oncePerDay() {
		return d
	}
	if g.store == nil {
		g.log.Warn("once-per-day enabled without storage; not enforced")
		return d
	}
	pushed, err := g.store.HasPushed(ctx, reportType, d.Day)
	if err != nil {
		g.log.Warn("push record lookup failed; proceeding", logx.String("report_type", reportType), logx.Err(err))
		return d
	}
	if pushed {
		d.Allowed = false
		d.Reason = "already pushed today (" + d.Day + ")"
		g.log.Info("push suppressed", logx.String("reason", d.Reason), logx.String("report_type", reportType))
	}
	return d
}

// Record writes today's push record when once-per-day is active, then prunes
// records past the retention period. It reports whether a new record was
// written.
func (g *Gate) Record(ctx context.Context, reportType string, d Decision) (bool, error) {
	if !g.oncePerDay() || g.store == nil {
		return false, nil
	}
	now := g.local()
	day := d.Day
	if day == "" {
		day = now.Format(storage.DayLayout)
	}
	created, err := g.store.RecordPush(ctx, storage.PushRecord{ReportType: reportType, Day: day, PushedAt: now})
	if err != nil {
		return false, fmt.Errorf("record push: %w", err)
	}
	if created {
		g.log.Info("push recorded", logx.String("report_type", reportType), logx.String("day", day))
	}

	cutoff := now.AddDate(0, 0, -g.cfg.RetentionDays).Format(storage.DayLayout)
	if n, err := g.store.Prune(ctx, cutoff); err != nil {
		g.log.Warn("push record prune failed", logx.Err(err))
	} else if n > 0 {
		g.log.Debug("push records pruned", logx.Int("removed", n), logx.String("before", cutoff))
	}
	return created, nil
}
