// Package server assembles the HTTP surface: router, middleware,
// service registrars and lifecycle.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emberly-app/emberly/internal/app"
)

// Registrar is implemented by each service package; it mounts the
// service's routes on the shared router.
type Registrar interface {
	Register(r chi.Router)
}

// Server wraps the HTTP listener and the assembled router.
type Server struct {
	appCtx *app.AppContext
	srv    *http.Server
}

// New builds the router and mounts every registrar under /api/v1.
func New(appCtx *app.AppContext, registry *prometheus.Registry, registrars ...Registrar) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(appCtx))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(api chi.Router) {
		for _, reg := range registrars {
			reg.Register(api)
		}
	})

	addr := net.JoinHostPort(appCtx.Config.HTTP.Host, appCtx.Config.HTTP.Port)
	return &Server{
		appCtx: appCtx,
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until the context is canceled, then shuts down
// gracefully with a 10s drain window.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.appCtx.Logger.Info("http server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.appCtx.Logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

// Handler exposes the assembled router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// requestLogger logs one line per request with status and latency.
func requestLogger(appCtx *app.AppContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			appCtx.Logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"took", time.Since(started),
				"remote", r.RemoteAddr,
			)
		})
	}
}
