// Package httpclient configures the HTTP client used to call geocoding providers.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const defaultUserAgent = "lovelyplace-back/1.0"

type Options struct {
	// Timeout caps a whole exchange; providers also apply a per-call deadline.
	Timeout time.Duration
	// MaxConnsPerHost bounds parallel calls to one provider. A search fans out
	// over its candidates, so this is the real upstream concurrency limit.
	MaxConnsPerHost int
	// UserAgent is set on requests that do not carry one.
	UserAgent string
}

// NewOutbound creates the client shared by every geocoder.
func NewOutbound(opts Options) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxConnsPerHost <= 0 {
		opts.MaxConnsPerHost = 32
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   opts.MaxConnsPerHost,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: userAgent{next: transport, ua: opts.UserAgent},
		Timeout:   opts.Timeout,
	}
}

type userAgent struct {
	next http.RoundTripper
	ua   string
}

func (t userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(r)
}
