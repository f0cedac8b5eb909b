package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dante-alig/lovelyplace-back/internal/core/observability"
)

// getJSON performs one GET under the per-call deadline and decodes the body
// into out. Transport failures, timeouts and 5xx/429 map to
// ProviderUnavailable; other 4xx map to InvalidInput.
func getJSON(ctx context.Context, client *http.Client, provider, rawURL, userAgent string, timeout time.Duration, address string, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return newError(ReasonInvalidInput, address, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	start := time.Now()
	resp, err := client.Do(req)
	observability.ObserveUpstreamLatency("geocode_"+provider, time.Since(start).Seconds())
	if err != nil {
		// url.Error carries the request URL, which holds the API key
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return newError(ReasonProviderUnavailable, address, fmt.Errorf("%s request: %w", provider, err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return newError(ReasonProviderUnavailable, address, statusErr(provider, resp))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(ReasonProviderUnavailable, address, statusErr(provider, resp))
	case resp.StatusCode == http.StatusNotFound:
		return newError(ReasonNotFound, address, statusErr(provider, resp))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return newError(ReasonInvalidInput, address, statusErr(provider, resp))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return newError(ReasonProviderUnavailable, address, err)
		}
		return newError(ReasonProviderUnavailable, address, fmt.Errorf("%s decode: %w", provider, err))
	}
	return nil
}

func statusErr(provider string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s status=%d body=%q", provider, resp.StatusCode, strings.TrimSpace(string(b)))
}

func observe(provider string, err error) {
	if err == nil {
		observability.ObserveGeocode(provider, "ok")
		return
	}
	observability.ObserveGeocode(provider, string(ReasonOf(err)))
}
