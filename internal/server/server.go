// Package server exposes a small HTTP control surface: health, the last run
// outcome and a manual trigger.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trendpush/internal/pipeline"
	"trendpush/pkg/logx"
)

// Runner is the pipeline as seen by the server.
type Runner interface {
	Run(ctx context.Context) (pipeline.Outcome, error)
	Last() (pipeline.Outcome, bool)
	Running() bool
}

type Options struct {
	Addr string
	// Token, when set, is required as a bearer token (or ?token=) on /api.
	Token string
	// Pprof mounts net/http/pprof under /debug.
	Pprof   bool
	Version string
	// Next reports the next scheduled run; nil when there is no scheduler.
	Next func() time.Time
}

type Server struct {
	opts   Options
	runner Runner
	log    logx.Logger
	router chi.Router
}

func New(opts Options, runner Runner, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{opts: opts, runner: runner, log: log.With(logx.String("comp", "server"))}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.withAuth)
		r.Route("/api", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/runs/last", s.handleLast)
			r.Post("/runs", s.handleRun)
		})
		if s.opts.Pprof {
			r.Mount("/debug", middleware.Profiler())
		}
	})
	s.router = r
}

func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on opts.Addr until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("server started", logx.String("addr", ln.Addr().String()), logx.Bool("token_set", s.opts.Token != ""), logx.Bool("pprof", s.opts.Pprof))
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type statusResponse struct {
	Version string            `json:"version,omitempty"`
	Running bool              `json:"running"`
	NextRun *time.Time        `json:"next_run,omitempty"`
	Last    *pipeline.Outcome `json:"last,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Version: s.opts.Version, Running: s.runner.Running()}
	if s.opts.Next != nil {
		if next := s.opts.Next(); !next.IsZero() {
			resp.NextRun = &next
		}
	}
	if last, ok := s.runner.Last(); ok {
		resp.Last = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLast(w http.ResponseWriter, _ *http.Request) {
	last, ok := s.runner.Last()
	if !ok {
		writeError(w, http.StatusNotFound, "no run yet")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// handleRun runs synchronously. The run is detached from the request so a
// client disconnect does not abort delivery halfway.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	out, err := s.runner.Run(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	tok := strings.TrimSpace(s.opts.Token)
	if tok == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "" {
			if got == tok {
				next.ServeHTTP(w, r)
				return
			}
			unauthorized(w)
			return
		}
		const p = "Bearer "
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, p) && strings.TrimSpace(ah[len(p):]) == tok {
			next.ServeHTTP(w, r)
			return
		}
		unauthorized(w)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Int("status", ww.Status()),
			logx.Duration("took", time.Since(start)),
			logx.String("req_id", middleware.GetReqID(r.Context())),
		)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
