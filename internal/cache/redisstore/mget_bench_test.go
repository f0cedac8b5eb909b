package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/dante-alig/lovelyplace-back/internal/cache/keys"
)

// seeds n geocode entries, the shape the geocode tier reads back per search
func prepGeocodes(b *testing.B, n int) (*Client, []string, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		b.Fatalf("miniredis: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		b.Fatalf("New: %v", err)
	}

	ks := make([]string, n)
	for i := range n {
		ks[i] = keys.GeocodeKey(fmt.Sprintf("%d rue de rivoli, 75001 paris", i))
		if err := rc.Set(ctx, ks[i], []byte(`{"lat":48.8566,"lng":2.3522}`), time.Hour); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}

	cleanup := func() {
		cancel()
		_ = rc.Close()
		mr.Close()
	}
	return rc, ks, cleanup
}

func benchMGet(b *testing.B, n int) {
	rc, ks, cleanup := prepGeocodes(b, n)
	defer cleanup()

	ctx := context.Background()
	b.ReportAllocs()

	for b.Loop() {
		if _, err := rc.MGet(ctx, ks); err != nil {
			b.Fatal(err)
		}
	}
}

func benchGetLoop(b *testing.B, n int) {
	rc, ks, cleanup := prepGeocodes(b, n)
	defer cleanup()

	ctx := context.Background()
	b.ReportAllocs()

	for b.Loop() {
		for _, k := range ks {
			if _, err := rc.Get(ctx, k); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkGeocodeReads_32(b *testing.B) {
	b.Run("MGET", func(b *testing.B) { benchMGet(b, 32) })
	b.Run("GETx32", func(b *testing.B) { benchGetLoop(b, 32) })
}

func BenchmarkGeocodeReads_256(b *testing.B) {
	b.Run("MGET", func(b *testing.B) { benchMGet(b, 256) })
	b.Run("GETx256", func(b *testing.B) { benchGetLoop(b, 256) })
}
