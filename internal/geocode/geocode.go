// Package geocode resolves free-text addresses to coordinates through an
// external provider. A Resolver makes exactly one outbound call per Resolve
// and never retries; callers decide whether a failure is worth retrying.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dante-alig/lovelyplace-back/internal/core/model"
)

type Resolver interface {
	Resolve(ctx context.Context, address string) (model.Coordinate, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, address string) (model.Coordinate, error)

func (f ResolverFunc) Resolve(ctx context.Context, address string) (model.Coordinate, error) {
	return f(ctx, address)
}

type Reason string

const (
	ReasonNotFound            Reason = "not_found"
	ReasonProviderUnavailable Reason = "provider_unavailable"
	ReasonInvalidInput        Reason = "invalid_input"
)

// Error is returned by every Resolver. Match it with errors.Is against the
// Err* sentinels or inspect Reason via errors.As.
type Error struct {
	Reason  Reason
	Address string
	Err     error
}

var (
	ErrNotFound            = &Error{Reason: ReasonNotFound}
	ErrProviderUnavailable = &Error{Reason: ReasonProviderUnavailable}
	ErrInvalidInput        = &Error{Reason: ReasonInvalidInput}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("geocode ")
	b.WriteString(string(e.Reason))
	if e.Address != "" {
		fmt.Fprintf(&b, " for %q", e.Address)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Address == "" && t.Err == nil && t.Reason == e.Reason
}

// ReasonOf extracts the failure reason, defaulting to ProviderUnavailable for
// errors that did not come from a Resolver.
func ReasonOf(err error) Reason {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return ReasonProviderUnavailable
}

func newError(reason Reason, address string, err error) *Error {
	return &Error{Reason: reason, Address: address, Err: err}
}

// Config is injected into providers at construction.
type Config struct {
	APIKey      string
	BaseURL     string
	BaseTimeout time.Duration
	CacheTTL    time.Duration
	UserAgent   string
}

const maxAddressLen = 512

func checkAddress(address string) (string, error) {
	a := strings.TrimSpace(address)
	if a == "" {
		return "", newError(ReasonInvalidInput, address, errors.New("empty address"))
	}
	if len(a) > maxAddressLen {
		return "", newError(ReasonInvalidInput, truncate(a, 32), fmt.Errorf("address longer than %d bytes", maxAddressLen))
	}
	return a, nil
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
