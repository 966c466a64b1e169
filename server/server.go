// Package server is the HTTP dashboard of fsa.
//
// A client uploads a workbook, which creates a session holding its report.
// The session can then be rendered, commented by the model, or chatted
// about, until it is deleted or expires.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/etnz/fsa"
	"github.com/etnz/fsa/agent"
	"github.com/etnz/fsa/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"
)

// memoCapacity is the number of reports kept by the memo.
const memoCapacity = 64

// Server serves the dashboard API.
type Server struct {
	cfg      config.Server
	analyzer fsa.Analyzer
	options  agent.Options
	logger   *log.Logger

	memo     *fsa.Memo
	sessions *store
	metrics  *metrics
	limiter  *rate.Limiter

	commentator *agent.Commentator
	chats       agent.Chats
}

// Option configures a Server.
type Option func(*Server)

// WithAI enables the commentary and chat routes.
func WithAI(commentator *agent.Commentator, chats agent.Chats) Option {
	return func(s *Server) {
		s.commentator = commentator
		s.chats = chats
	}
}

// New creates a Server. Without WithAI, the AI routes answer 503.
func New(cfg *config.Config, logger *log.Logger, opts ...Option) *Server {
	limit := rate.Inf
	burst := 1
	if rpm := cfg.Server.RequestsPerMinute; rpm > 0 {
		limit = rate.Limit(rpm / 60)
		burst = max(1, int(rpm/6)) // ten seconds worth of requests
	}
	s := &Server{
		cfg:      cfg.Server,
		analyzer: cfg.Analyzer(),
		options:  cfg.AgentOptions(),
		logger:   logger,
		memo:     fsa.NewMemo(memoCapacity),
		sessions: newStore(cfg.Server.SessionTTL, cfg.Server.MaxSessions),
		limiter:  rate.NewLimiter(limit, burst),
	}
	s.metrics = newMetrics(func() float64 { return float64(s.sessions.len()) })
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler of the dashboard.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.metrics.instrument)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	r.Route("/api/sessions", s.RegisterRoutes)
	return r
}

// RegisterRoutes registers the session routes.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/", s.createSession)
	r.Route("/{id}", func(r chi.Router) {
		r.Use(s.loadSession)
		r.Get("/", s.getSession)
		r.Delete("/", s.deleteSession)
		r.Get("/report.md", s.getMarkdown)
		r.Get("/report.html", s.getHTML)
		r.Get("/messages", s.getMessages)
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/commentary", s.postCommentary)
			r.Post("/messages", s.postMessage)
		})
	})
}

// ListenAndServe serves on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving dashboard", "addr", s.cfg.Addr, "ai", s.commentator != nil)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down")
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// logRequests logs every request once served.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// rateLimit rejects the requests beyond the configured rate.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn("rate limit exceeded", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			w.Header().Set("Retry-After", "60")
			s.fail(w, r, newError(http.StatusTooManyRequests, "rate_limited", errors.New("too many requests, retry later")))
			return
		}
		next.ServeHTTP(w, r)
	})
}
