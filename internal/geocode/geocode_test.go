package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func googleServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("api key not forwarded: %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogle_OK(t *testing.T) {
	srv := googleServer(t, 200, `{"status":"OK","results":[{"geometry":{"location":{"lat":48.8566,"lng":2.3522}}}]}`, nil)
	g, err := NewGoogle(Config{APIKey: "k", BaseURL: srv.URL, BaseTimeout: time.Second}, srv.Client(), discard())
	if err != nil {
		t.Fatal(err)
	}
	c, err := g.Resolve(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.Lat != 48.8566 || c.Lng != 2.3522 {
		t.Fatalf("coord = %+v", c)
	}
}

func TestGoogle_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   *Error
	}{
		{"zero results", 200, `{"status":"ZERO_RESULTS","results":[]}`, ErrNotFound},
		{"denied", 200, `{"status":"REQUEST_DENIED","error_message":"bad key"}`, ErrProviderUnavailable},
		{"quota", 200, `{"status":"OVER_QUERY_LIMIT"}`, ErrProviderUnavailable},
		{"invalid", 200, `{"status":"INVALID_REQUEST"}`, ErrInvalidInput},
		{"5xx", 503, `oops`, ErrProviderUnavailable},
		{"garbage", 200, `not json`, ErrProviderUnavailable},
		{"out of range", 200, `{"status":"OK","results":[{"geometry":{"location":{"lat":123,"lng":0}}}]}`, ErrProviderUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := googleServer(t, tc.status, tc.body, nil)
			g, _ := NewGoogle(Config{APIKey: "k", BaseURL: srv.URL, BaseTimeout: time.Second}, srv.Client(), discard())
			_, err := g.Resolve(context.Background(), "somewhere")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want reason %s", err, tc.want.Reason)
			}
		})
	}
}

func TestGoogle_EmptyAddressMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := googleServer(t, 200, `{"status":"OK"}`, &calls)
	g, _ := NewGoogle(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client(), discard())

	for _, a := range []string{"", "   ", "\t\n"} {
		_, err := g.Resolve(context.Background(), a)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q: err = %v", a, err)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no outbound calls, got %d", calls.Load())
	}
}

func TestGoogle_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	g, _ := NewGoogle(Config{APIKey: "k", BaseURL: srv.URL, BaseTimeout: 30 * time.Millisecond}, srv.Client(), discard())
	_, err := g.Resolve(context.Background(), "slow street")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("deadline should stay visible in the chain: %v", err)
	}
}

func TestNominatim(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		if r.URL.Path != "/search" || r.URL.Query().Get("format") != "jsonv2" {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		if strings.Contains(r.URL.Query().Get("q"), "nowhere") {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[{"lat":"51.5074","lon":"-0.1278","display_name":"London"}]`)
	}))
	defer srv.Close()

	n, err := NewNominatim(Config{BaseURL: srv.URL + "/"}, srv.Client(), discard())
	if err != nil {
		t.Fatal(err)
	}
	c, err := n.Resolve(context.Background(), "London")
	if err != nil {
		t.Fatal(err)
	}
	if c.Lat != 51.5074 || c.Lng != -0.1278 {
		t.Fatalf("coord = %+v", c)
	}
	if ua != defaultUserAgent {
		t.Fatalf("user agent = %q", ua)
	}
	if _, err := n.Resolve(context.Background(), "nowhere land"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestErrorIsAndReason(t *testing.T) {
	err := fmt.Errorf("wrap: %w", newError(ReasonNotFound, "x", nil))
	if !errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		t.Fatalf("errors.Is mismatch for %v", err)
	}
	if ReasonOf(err) != ReasonNotFound {
		t.Fatalf("reason = %s", ReasonOf(err))
	}
	if ReasonOf(errors.New("plain")) != ReasonProviderUnavailable {
		t.Fatal("plain errors should count as provider unavailable")
	}
}

func TestRegistryFallback(t *testing.T) {
	r, err := New("does-not-exist", Config{APIKey: "k"}, nil, discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(*Google); !ok {
		t.Fatalf("fallback resolver = %T", r)
	}
	r, err = New("nominatim", Config{}, nil, discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(*Nominatim); !ok {
		t.Fatalf("resolver = %T", r)
	}
	if got := Providers(); len(got) < 2 {
		t.Fatalf("providers = %v", got)
	}
}

func TestCheckAddress_TooLongTruncatesOnRuneBoundary(t *testing.T) {
	long := "a" + strings.Repeat("é", 300)
	_, err := checkAddress(long)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("err is %T", err)
	}
	if !utf8.ValidString(ge.Address) || !utf8.ValidString(err.Error()) {
		t.Fatalf("invalid utf-8 in %q", ge.Address)
	}
	if !strings.HasSuffix(ge.Address, "...") || len(ge.Address) > 32+len("...") {
		t.Fatalf("address = %q", ge.Address)
	}
}
