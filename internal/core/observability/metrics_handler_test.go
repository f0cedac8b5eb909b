package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/filter-nearby", 200, 0.001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "app_build_info") || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics payload did not contain expected metric names; got:\n%s", body)
	}
}

func TestInit_CustomRegistry_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg, true)
	Init(reg, true)

	ObserveSearch("ok", 3, 0.02)
	ObserveGeocode("google", "ok")

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestInit_Disabled_DoesNotRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg, false)
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 0 {
		t.Fatalf("expected empty registry, got %d families", len(mfs))
	}
}

func TestObserveCacheOp_ResultLabel(t *testing.T) {
	okBefore := testutil.ToFloat64(cacheOpTotal.WithLabelValues("get", "ok"))
	errBefore := testutil.ToFloat64(cacheOpTotal.WithLabelValues("get", "error"))

	ObserveCacheOp("get", nil, 0.001)
	ObserveCacheOp("get", errors.New("boom"), 0.001)
	ObserveCacheOp("get", nil, 0.001)

	if got := testutil.ToFloat64(cacheOpTotal.WithLabelValues("get", "ok")) - okBefore; got != 2 {
		t.Fatalf("ok delta=%v want 2", got)
	}
	if got := testutil.ToFloat64(cacheOpTotal.WithLabelValues("get", "error")) - errBefore; got != 1 {
		t.Fatalf("error delta=%v want 1", got)
	}
}

func TestAddCandidatesDropped_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(candidatesDropped.WithLabelValues("geocode_failed"))
	AddCandidatesDropped("geocode_failed", 0)
	AddCandidatesDropped("geocode_failed", -2)
	AddCandidatesDropped("geocode_failed", 3)
	if got := testutil.ToFloat64(candidatesDropped.WithLabelValues("geocode_failed")) - before; got != 3 {
		t.Fatalf("delta=%v want 3", got)
	}
}
