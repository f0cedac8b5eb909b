// Package server wires the HTTP routes and runs the listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dante-alig/lovelyplace-back/internal/core/config"
	"github.com/dante-alig/lovelyplace-back/internal/core/health"
	middleware "github.com/dante-alig/lovelyplace-back/internal/core/middleware"
	"github.com/dante-alig/lovelyplace-back/internal/core/router"
	"github.com/dante-alig/lovelyplace-back/internal/hotness"
)

type Deps struct {
	Searcher  router.Searcher
	Locations *router.Locations
	Hot       hotness.Interface
	Metrics   http.Handler
	Probes    []health.Probe
	// PhotosDir is served under /photos/ when set.
	PhotosDir string
}

func NewHandler(logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(2*time.Second, d.Probes...))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
	if d.Hot != nil {
		r.Get("/hotspots", router.Instrument("/hotspots", router.HandleHotspots(d.Hot)))
	}

	r.Get("/filter-nearby", router.Instrument("/filter-nearby", router.HandleSearch(logger, d.Searcher)))

	if h := d.Locations; h != nil {
		r.Post("/location", router.Instrument("/location", h.Create))
		r.Get("/items", router.Instrument("/items", h.List))
		r.Get("/items/{id}", router.Instrument("/items/{id}", h.Get))
		r.Put("/items/{id}", router.Instrument("/items/{id}", h.Update))
		r.Delete("/items/{id}/photo", router.Instrument("/items/{id}/photo", h.DeletePhoto))
		r.Get("/filterCategories", router.Instrument("/filterCategories", h.FilterCategories))
		r.Get("/drink", router.Instrument("/drink", h.Drink))
		r.Get("/eat", router.Instrument("/eat", h.Eat))
		r.Get("/fun", router.Instrument("/fun", h.Fun))
	}

	if d.PhotosDir != "" {
		r.Handle("/photos/*", http.StripPrefix("/photos/", http.FileServer(http.Dir(d.PhotosDir))))
	}
	return r
}

// Run serves h on cfg.Addr until ctx is done.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, h http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.SearchTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
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
