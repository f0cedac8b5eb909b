package metricswrap

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dante-alig/lovelyplace-back/internal/core/observability"
	"github.com/dante-alig/lovelyplace-back/internal/hotness/expdecay"
	"github.com/dante-alig/lovelyplace-back/internal/metrics"
)

func Test_HotCellsGauge_Updates(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer(), true)

	tr := expdecay.New(30 * time.Second)
	w := New(tr, Options{Tier: "origin"})

	w.Inc("cellA")
	w.Inc("cellB")
	w.Reset("cellA")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	body := rr.Body.String()

	if !strings.Contains(body, `search_hot_cells{tier="origin"} 1`) {
		t.Fatalf("expected search_hot_cells == 1, got:\n%s", body)
	}
}

func Test_ThresholdLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	w := New(expdecay.New(time.Minute), Options{Threshold: 1.5, LogSample: 1, Logger: logger})

	w.Inc("881fb46625fffff")
	if buf.Len() != 0 {
		t.Fatalf("logged below threshold: %s", buf.String())
	}
	w.Inc("881fb46625fffff")
	if !strings.Contains(buf.String(), `"event":"hotness_threshold"`) {
		t.Fatalf("missing threshold log: %s", buf.String())
	}
	if got := w.Top(1); len(got) != 1 || got[0].Cell != "881fb46625fffff" {
		t.Fatalf("top = %v", got)
	}
}

func Test_ShouldLogBounds(t *testing.T) {
	if shouldLog(0, "x") || !shouldLog(1, "x") {
		t.Fatal("sample bounds")
	}
}
