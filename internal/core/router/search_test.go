package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
	"github.com/dante-alig/lovelyplace-back/internal/logger"
	"github.com/dante-alig/lovelyplace-back/internal/photos"
	"github.com/dante-alig/lovelyplace-back/internal/search"
)

type fakeSearcher struct {
	calls int
	got   model.SearchCriteria
	res   []model.RankedResult
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, c model.SearchCriteria) ([]model.RankedResult, error) {
	f.calls++
	f.got = c
	return f.res, f.err
}

func TestParseSearchRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/filter-nearby?address=Paris&maxDistance=2.5&placeCategory=manger_ensemble&keywords=pizza,+pasta&filters=decor:cozy", nil)
	c, err := ParseSearchRequest(r)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.OriginAddress != "Paris" || c.MaxDistanceKm != 2.5 {
		t.Fatalf("got %+v", c)
	}
	if c.Category == nil || *c.Category != "manger_ensemble" {
		t.Fatalf("category = %v", c.Category)
	}
	if c.PostalCode != nil || c.PriceRange != nil {
		t.Fatal("absent parameters should stay nil")
	}
	if len(c.Keywords) != 2 || c.Keywords[1] != "pasta" {
		t.Fatalf("keywords = %v", c.Keywords)
	}
	if len(c.RequiredTags) != 1 || c.RequiredTags[0] != "decor:cozy" {
		t.Fatalf("filters = %v", c.RequiredTags)
	}
}

func TestParseSearchRequest_Invalid(t *testing.T) {
	for _, q := range []string{
		"maxDistance=3",
		"address=Paris",
		"address=+&maxDistance=3",
		"address=Paris&maxDistance=far",
	} {
		r := httptest.NewRequest(http.MethodGet, "/filter-nearby?"+q, nil)
		if _, err := ParseSearchRequest(r); !errors.Is(err, search.ErrInvalidRequest) {
			t.Errorf("%q: expected ErrInvalidRequest, got %v", q, err)
		}
	}
}

func TestHandleSearch_MissingAddressSkipsSearch(t *testing.T) {
	s := &fakeSearcher{}
	rec := httptest.NewRecorder()
	HandleSearch(logger.Discard(), s)(rec, httptest.NewRequest(http.MethodGet, "/filter-nearby?maxDistance=3", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if s.calls != 0 {
		t.Fatal("searcher must not be called on invalid input")
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error == "" {
		t.Fatalf("expected error body, got %q (%v)", rec.Body.String(), err)
	}
}

func TestHandleSearch_OK(t *testing.T) {
	s := &fakeSearcher{res: []model.RankedResult{{
		Location:   model.Location{ID: "1", Name: "Café", Photos: []string{}},
		DistanceKm: 0.4, Latitude: 48.86, Longitude: 2.35,
	}}}
	rec := httptest.NewRecorder()
	HandleSearch(logger.Discard(), s)(rec, httptest.NewRequest(http.MethodGet, "/filter-nearby?address=Paris&maxDistance=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var got []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["locationName"] != "Café" || got[0]["distance"] != 0.4 {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestHandleSearch_EmptyIsArray(t *testing.T) {
	s := &fakeSearcher{res: []model.RankedResult{}}
	rec := httptest.NewRecorder()
	HandleSearch(logger.Discard(), s)(rec, httptest.NewRequest(http.MethodGet, "/filter-nearby?address=Paris&maxDistance=1", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", search.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: boom", search.ErrOriginGeocodeFailed), http.StatusBadGateway},
		{search.ErrCatalogUnavailable, http.StatusServiceUnavailable},
		{search.ErrTimeout, http.StatusGatewayTimeout},
		{fmt.Errorf("get: %w", catalog.ErrNotFound), http.StatusNotFound},
		{photos.ErrNotFound, http.StatusNotFound},
		{context.Canceled, http.StatusRequestTimeout},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := classify(tc.err); got != tc.want {
			t.Errorf("%v: got %d want %d", tc.err, got, tc.want)
		}
	}
}

func TestClassify_HidesUpstreamDetail(t *testing.T) {
	_, msg := classify(fmt.Errorf("%w: key=secret", search.ErrOriginGeocodeFailed))
	if msg != search.ErrOriginGeocodeFailed.Error() {
		t.Fatalf("upstream detail leaked: %q", msg)
	}
}
