// Package server exposes the bot's HTTP surface: health checks and, in
// webhook mode, the update endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/reportbot/core/logger"
)

// Options configures the HTTP surface.
type Options struct {
	Listen string
	Port   int
	// Webhook is mounted at POST /webhook/{secret} when non-nil.
	Webhook http.Handler
}

// Server serves health checks and the webhook endpoint.
type Server struct {
	srv    *http.Server
	router chi.Router
}

// New builds the router and the underlying http.Server.
func New(opts Options) *Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "Bot is running!"})
	})
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Webhook != nil {
		r.Method(http.MethodPost, "/webhook/{secret}", opts.Webhook)
	}

	return &Server{
		router: r,
		srv: &http.Server{
			Addr:              net.JoinHostPort(opts.Listen, strconv.Itoa(opts.Port)),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.srv.Addr }

// Run listens until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Run() error {
	logger.HTTP.Info("http server started",
		slog.String("event", "listen"),
		slog.String("addr", s.Addr()),
	)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	logger.HTTP.Info("http server stopped", slog.String("event", "shutdown"))
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		// The webhook path carries the shared secret.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		logger.HTTP.Debug("http request",
			slog.String("event", "request"),
			slog.String("method", r.Method),
			slog.String("path", path),
			slog.Int("status", ww.Status()),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	})
}
