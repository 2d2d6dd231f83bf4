package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"trendpush/internal/config"
	"trendpush/internal/pipeline"
	"trendpush/internal/report"
)

const sampleReport = `{"sections":[{"keyword":"AI","count":2,"titles":[{"title":"Model A released","source":"hn","url":"https://a.test","ranks":[1]}]}]}`

type slackHook struct {
	mu     sync.Mutex
	bodies []string
}

func (h *slackHook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	h.mu.Lock()
	h.bodies = append(h.bodies, string(b))
	h.mu.Unlock()
	_, _ = io.WriteString(w, "ok")
}

func (h *slackHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.bodies)
}

func noEnv(string) (string, bool) { return "", false }

func writeConfig(t *testing.T, path string, mutate func(m map[string]any)) {
	t.Helper()
	m := map[string]any{
		"logging": map[string]any{"level": "error", "console": true},
		"storage": map[string]any{"driver": "memory"},
		"report":  map[string]any{"mode": "daily", "path": filepath.Join(filepath.Dir(path), "report.json")},
		"notification": map[string]any{
			"push_window": map[string]any{"enabled": false},
			"webhooks":    map[string]any{},
		},
	}
	if mutate != nil {
		mutate(m)
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newApp(t *testing.T, hookURL string, mutate func(m map[string]any)) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "report.json"), []byte(sampleReport), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, func(m map[string]any) {
		m["notification"].(map[string]any)["webhooks"] = map[string]any{"slack_webhook_url": hookURL}
		if mutate != nil {
			mutate(m)
		}
	})

	cfgm := config.NewManager(path)
	cfgm.SetLookup(noEnv)
	if _, err := cfgm.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, err := New(cfgm, Options{Version: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a, path
}

func TestRunOnceDelivers(t *testing.T) {
	hook := &slackHook{}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	a, _ := newApp(t, srv.URL, nil)
	out, err := a.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !out.Results["slack"] {
		t.Fatalf("slack not delivered: %+v", out)
	}
	if hook.count() != 1 {
		t.Fatalf("hook got %d requests, want 1", hook.count())
	}
	if !strings.Contains(hook.bodies[0], "Model A released") {
		t.Fatalf("unexpected body: %s", hook.bodies[0])
	}
}

func TestNewRequiresLoadedConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(config.NewManager(filepath.Join(t.TempDir(), "missing.json")), Options{}); err == nil {
		t.Fatalf("expected error for an unloaded manager")
	}
}

func TestApplySwapsModeAndSchedule(t *testing.T) {
	hook := &slackHook{}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	a, path := newApp(t, srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writeConfig(t, path, func(m map[string]any) {
		m["report"].(map[string]any)["mode"] = "current"
		m["schedule"] = map[string]any{"enabled": true, "spec": "@every 1h"}
		m["notification"].(map[string]any)["webhooks"] = map[string]any{"slack_webhook_url": srv.URL}
	})
	cfgm := config.NewManager(path)
	cfgm.SetLookup(noEnv)
	next, err := cfgm.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	a.apply(ctx, a.cfgm.Get(), next)
	defer a.sched.Stop(context.Background())

	if !a.schedOn || a.sched.Next().IsZero() {
		t.Fatalf("scheduler not started after reload")
	}
	out, err := a.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if out.Mode != report.ModeCurrent {
		t.Fatalf("mode = %q, want current", out.Mode)
	}

	disabled := *next
	disabled.Schedule.Enabled = false
	a.apply(ctx, next, &disabled)
	if a.schedOn || !a.sched.Next().IsZero() {
		t.Fatalf("scheduler still running after disable")
	}
}

func TestStartServesAndStops(t *testing.T) {
	a, _ := newApp(t, "https://hooks.slack.test/x", func(m map[string]any) {
		m["server"] = map[string]any{"enabled": true, "addr": "127.0.0.1:0"}
	})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-a.Done():
		t.Fatalf("app stopped right after start: %v", a.Err())
	case <-time.After(50 * time.Millisecond):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Stop(ctx, StopAppStop); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	<-a.Done()
	if err := a.Err(); err != nil {
		t.Fatalf("unexpected supervisor error: %v", err)
	}
}

func TestStatusLine(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		out  pipeline.Outcome
		err  error
		want string
	}{
		{"skipped", pipeline.Outcome{FinishedAt: at, Skipped: true, Reason: "outside push window"}, nil, "skipped at 2026-06-01T09:00:00Z: outside push window"},
		{"pushed", pipeline.Outcome{FinishedAt: at, Results: map[string]bool{"slack": true}}, nil, "last push"},
		{"nothing", pipeline.Outcome{FinishedAt: at, Results: map[string]bool{"slack": false}}, nil, "delivered nothing"},
		{"failed", pipeline.Outcome{FinishedAt: at}, errors.New("boom"), "failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := statusLine(tc.out, tc.err)
			if !strings.Contains(got, tc.want) {
				t.Fatalf("statusLine = %q, want %q", got, tc.want)
			}
		})
	}
}
