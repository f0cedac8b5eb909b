// Command geowarm resolves every catalog address once so the shared Redis
// geocode tier is populated before traffic arrives.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dante-alig/lovelyplace-back/internal/cache/redisstore"
	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	_ "github.com/dante-alig/lovelyplace-back/internal/catalog/memstore"
	_ "github.com/dante-alig/lovelyplace-back/internal/catalog/pgcatalog"
	_ "github.com/dante-alig/lovelyplace-back/internal/catalog/rediscatalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/config"
	"github.com/dante-alig/lovelyplace-back/internal/core/httpclient"
	"github.com/dante-alig/lovelyplace-back/internal/geocode"
	"github.com/dante-alig/lovelyplace-back/internal/geocode/geocodecache"
	"github.com/dante-alig/lovelyplace-back/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	concurrency := flag.Int("c", 4, "concurrent geocode calls")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline")
	flag.Parse()

	cfg := config.FromEnv()
	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Service: "lovelyplace", Component: "geowarm"}, os.Stdout)
	log := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
		return 1
	}
	defer func() { _ = rc.Close() }()

	store, err := catalog.Open(ctx, cfg.CatalogDriver, catalog.Deps{Redis: rc, PostgresDSN: cfg.PostgresDSN}, log)
	if err != nil {
		log.Error("catalog setup failed", "driver", cfg.CatalogDriver, "err", err)
		return 1
	}
	if c, ok := store.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	provider, err := geocode.New(cfg.Geocoder.Provider, geocode.Config{
		APIKey:      cfg.Geocoder.APIKey,
		BaseURL:     cfg.Geocoder.URL,
		BaseTimeout: cfg.Geocoder.Timeout,
		UserAgent:   cfg.Geocoder.UserAgent,
	}, httpclient.NewOutbound(httpclient.Options{
		MaxConnsPerHost: *concurrency,
		UserAgent:       cfg.Geocoder.UserAgent,
	}), log)
	if err != nil {
		log.Error("geocoder setup failed", "err", err)
		return 1
	}
	gcache := geocodecache.New(geocodecache.Options{
		Size:      cfg.Geocoder.CacheSize,
		TTL:       cfg.Geocoder.CacheTTL,
		Remote:    rc,
		OpTimeout: cfg.CacheOpTimeout,
		// remote lookup, provider call and remote write
		ResolveTimeout: cfg.Geocoder.Timeout + 3*cfg.CacheOpTimeout,
	}, log)

	locs, err := store.Find(ctx, catalog.Predicate{})
	if err != nil {
		log.Error("catalog read failed", "err", err)
		return 1
	}

	n, failed := warm(ctx, gcache.Bind(provider), addresses(locs), *concurrency, cfg.Geocoder.CandidateTimeout)
	log.Info("geocode warm-up done", "addresses", n, "failed", failed)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Warn("warm-up hit the overall deadline")
		return 1
	}
	return 0
}
