// Package server exposes the registry over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"landClaim/internal/registry"
)

// CallerHeader carries the authenticated caller address set by the gateway.
const CallerHeader = "X-Caller-Address"

// Server wires registry operations to HTTP routes.
type Server struct {
	registry *registry.Registry
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

func New(reg *registry.Registry, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{registry: reg, gatherer: gatherer, logger: logger}
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/lands/{land}", s.handleGetLand)
		r.Post("/lands/{land}/claim", s.handleClaim)
		r.Post("/lands/{land}/release", s.handleRelease)
		r.Delete("/profile", s.handleDeleteProfile)
		r.Get("/me/lands", s.handleMyLands)
		r.Get("/me/offers/made", s.handleOffersMade)
		r.Get("/me/offers/received", s.handleOffersReceived)
		r.Get("/owners/{owner}/lands/{index}", s.handleLandOfOwnerAt)
		r.Post("/trades", s.handleProposeTrade)
		r.Get("/trades/counter", s.handleTradeCounter)
		r.Get("/trades/{id}", s.handleGetTrade)
		r.Post("/trades/{id}/accept", s.handleAcceptTrade)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down within timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
