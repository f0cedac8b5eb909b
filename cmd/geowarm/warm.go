package main

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dante-alig/lovelyplace-back/internal/cache/keys"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
	"github.com/dante-alig/lovelyplace-back/internal/geocode"
)

// addresses returns the distinct non-blank addresses, by normalized form.
func addresses(locs []model.Location) []string {
	seen := make(map[string]struct{}, len(locs))
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		a := strings.TrimSpace(l.Address)
		if a == "" {
			continue
		}
		k := keys.NormalizeAddress(a)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

// warm resolves each address with at most limit calls in flight. Failures
// are counted, not returned.
func warm(ctx context.Context, r geocode.Resolver, addrs []string, limit int, perCall time.Duration) (int, int) {
	if limit <= 0 {
		limit = 1
	}
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, a := range addrs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			cctx := gctx
			if perCall > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(gctx, perCall)
				defer cancel()
			}
			if _, err := r.Resolve(cctx, a); err != nil {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return len(addrs), int(failed.Load())
}
