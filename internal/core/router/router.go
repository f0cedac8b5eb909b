// Package router holds the HTTP handlers of the public API.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/observability"
	"github.com/dante-alig/lovelyplace-back/internal/photos"
	"github.com/dante-alig/lovelyplace-back/internal/search"
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument records the request count and latency of h under route.
func Instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeError maps err to a status. Client errors echo the full message;
// upstream failures only name the failing dependency.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= 500 {
		logger.LogAttrs(r.Context(), slog.LevelWarn, "request failed",
			slog.String("path", r.URL.Path), slog.Int("status", status), slog.Any("err", err))
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, search.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, search.ErrOriginGeocodeFailed):
		return http.StatusBadGateway, search.ErrOriginGeocodeFailed.Error()
	case errors.Is(err, search.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, search.ErrCatalogUnavailable.Error()
	case errors.Is(err, search.ErrTimeout):
		return http.StatusGatewayTimeout, search.ErrTimeout.Error()
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, catalog.ErrNotFound.Error()
	case errors.Is(err, photos.ErrNotFound):
		return http.StatusNotFound, photos.ErrNotFound.Error()
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "request canceled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
