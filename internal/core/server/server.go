package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/listing-search/internal/core/health"
	middleware "github.com/mohammed-shakir/listing-search/internal/core/middleware"
	"github.com/mohammed-shakir/listing-search/internal/core/router"
)

type Routes struct {
	Search  router.Options
	Handler router.SearchHandler
	// Ready serves /readyz; nil reports always ready.
	Ready http.HandlerFunc
	// Metrics serves /metrics; nil leaves the route out.
	Metrics http.Handler
}

// NewHandler wires the gateway routes behind the shared middleware.
func NewHandler(logger *slog.Logger, rt Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	ready := rt.Ready
	if ready == nil {
		ready = health.Readiness(nil)
	}
	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", ready)
	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics)
	}
	r.Get("/search", router.HandleSearch(logger, rt.Search, rt.Handler))
	r.Get("/filters", router.HandleFilters(rt.Search.Registry))
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, addr string, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
