package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dante-alig/lovelyplace-back/internal/catalog/memstore"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
	"github.com/dante-alig/lovelyplace-back/internal/core/router"
	"github.com/dante-alig/lovelyplace-back/internal/hotness/expdecay"
	"github.com/dante-alig/lovelyplace-back/internal/logger"
	"github.com/dante-alig/lovelyplace-back/internal/photos"
)

type noSearch struct{}

func (noSearch) Search(context.Context, model.SearchCriteria) ([]model.RankedResult, error) {
	return []model.RankedResult{}, nil
}

func newTestHandler(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	ph, err := photos.NewFS(dir, "http://test/photos", logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	st := memstore.New(model.Location{ID: "a", Name: "A", Address: "x", Description: "d"})
	return NewHandler(logger.Discard(), Deps{
		Searcher:  noSearch{},
		Locations: router.NewLocations(st, ph, logger.Discard()),
		Hot:       expdecay.New(0),
		Metrics:   http.NotFoundHandler(),
		PhotosDir: dir,
	}), dir
}

func TestRoutes(t *testing.T) {
	h, dir := newTestHandler(t)
	if err := os.WriteFile(filepath.Join(dir, "p.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/hotspots", http.StatusOK},
		{http.MethodGet, "/filter-nearby?address=Paris&maxDistance=1", http.StatusOK},
		{http.MethodGet, "/filter-nearby", http.StatusBadRequest},
		{http.MethodGet, "/items", http.StatusOK},
		{http.MethodGet, "/items/a", http.StatusOK},
		{http.MethodGet, "/items/zz", http.StatusNotFound},
		{http.MethodGet, "/eat", http.StatusOK},
		{http.MethodGet, "/drink", http.StatusNotFound},
		{http.MethodGet, "/photos/p.png", http.StatusOK},
		{http.MethodOptions, "/location", http.StatusNoContent},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != tc.want {
			t.Errorf("%s %s: status=%d want %d body=%s", tc.method, tc.path, rr.Code, tc.want, rr.Body)
		}
	}
}

func TestRoutes_CreateThenGet(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/location",
		strings.NewReader(`{"locationName":"B","locationAddress":"Paris","locationDescription":"d"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items", nil))
	if !strings.Contains(rr.Body.String(), `"locationName":"B"`) {
		t.Fatalf("created location missing from list: %s", rr.Body)
	}
}
