package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dante-alig/lovelyplace-back/internal/cache/redisstore"
	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	_ "github.com/dante-alig/lovelyplace-back/internal/catalog/memstore"
	_ "github.com/dante-alig/lovelyplace-back/internal/catalog/pgcatalog"
	_ "github.com/dante-alig/lovelyplace-back/internal/catalog/rediscatalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/config"
	"github.com/dante-alig/lovelyplace-back/internal/core/health"
	"github.com/dante-alig/lovelyplace-back/internal/core/httpclient"
	"github.com/dante-alig/lovelyplace-back/internal/core/observability"
	"github.com/dante-alig/lovelyplace-back/internal/core/router"
	"github.com/dante-alig/lovelyplace-back/internal/core/server"
	"github.com/dante-alig/lovelyplace-back/internal/events"
	"github.com/dante-alig/lovelyplace-back/internal/geocode"
	"github.com/dante-alig/lovelyplace-back/internal/geocode/geocodecache"
	"github.com/dante-alig/lovelyplace-back/internal/hotness/expdecay"
	"github.com/dante-alig/lovelyplace-back/internal/hotness/metricswrap"
	"github.com/dante-alig/lovelyplace-back/internal/logger"
	"github.com/dante-alig/lovelyplace-back/internal/metrics"
	"github.com/dante-alig/lovelyplace-back/internal/photos"
	"github.com/dante-alig/lovelyplace-back/internal/search"
	"github.com/dante-alig/lovelyplace-back/pkg/invalidation/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

type pinger interface {
	Ping(ctx context.Context) error
}

func run() int {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		SampleN:   envInt("LOG_SAMPLE_N", 0),
		Service:   "lovelyplace",
		Component: "api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mp := metrics.Init(metrics.Config{
		Enabled: cfg.MetricsEnabled,
		Addr:    cfg.MetricsAddr,
		Build: metrics.BuildInfo{
			Version:   os.Getenv("BUILD_VERSION"),
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	observability.Init(mp.Registerer(), true)
	observability.ExposeBuildInfo(Version)

	appLog.Info("starting lovelyplace",
		"addr", cfg.Addr,
		"version", Version,
		"geocoder", cfg.Geocoder.Provider,
		"catalog", cfg.CatalogDriver)

	var probes []health.Probe

	var rc *redisstore.Client
	if cfg.CatalogDriver == "redis" || cfg.Geocoder.CacheRedis {
		var err error
		rc, err = redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			appLog.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		probes = append(probes, health.Probe{Name: "redis", Check: rc.Ping})
	}

	store, err := catalog.Open(ctx, cfg.CatalogDriver, catalog.Deps{Redis: rc, PostgresDSN: cfg.PostgresDSN}, appLog)
	if err != nil {
		appLog.Error("catalog setup failed", "driver", cfg.CatalogDriver, "err", err)
		return 1
	}
	if c, ok := store.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	if p, ok := store.(pinger); ok {
		probes = append(probes, health.Probe{Name: "catalog", Check: p.Ping})
	}

	provider, err := geocode.New(cfg.Geocoder.Provider, geocode.Config{
		APIKey:      cfg.Geocoder.APIKey,
		BaseURL:     cfg.Geocoder.URL,
		BaseTimeout: cfg.Geocoder.Timeout,
		CacheTTL:    cfg.Geocoder.CacheTTL,
		UserAgent:   cfg.Geocoder.UserAgent,
	}, httpclient.NewOutbound(httpclient.Options{
		MaxConnsPerHost: cfg.SearchMaxWorkers * 4,
		UserAgent:       cfg.Geocoder.UserAgent,
	}), appLog)
	if err != nil {
		appLog.Error("geocoder setup failed", "err", err)
		return 1
	}

	cacheOpts := geocodecache.Options{
		Size:      cfg.Geocoder.CacheSize,
		TTL:       cfg.Geocoder.CacheTTL,
		OpTimeout: cfg.CacheOpTimeout,
		// remote lookup, provider call and remote write
		ResolveTimeout: cfg.Geocoder.Timeout + 3*cfg.CacheOpTimeout,
	}
	if cfg.Geocoder.CacheRedis {
		cacheOpts.Remote = rc
	}
	gcache := geocodecache.New(cacheOpts, appLog)

	hot := metricswrap.New(expdecay.New(cfg.HotHalfLife), metricswrap.Options{
		Threshold: cfg.HotThreshold,
		LogSample: 0.1,
		Logger:    appLog,
	})

	opts := []search.Option{search.WithHotness(hot)}
	if cfg.EventsEnabled {
		pub, err := events.NewPublisher(cfg.Brokers(), cfg.EventsTopic, cfg.EventsQueue, appLog)
		if err != nil {
			appLog.Error("events publisher setup failed", "err", err)
			return 1
		}
		defer func() { _ = pub.Close() }()
		opts = append(opts, search.WithPublisher(pub))
	}

	engine := search.New(search.Config{
		Timeout:          cfg.SearchTimeout,
		OriginTimeout:    cfg.Geocoder.OriginTimeout,
		CandidateTimeout: cfg.Geocoder.CandidateTimeout,
		MaxWorkers:       cfg.SearchMaxWorkers,
		RequireScope:     cfg.SearchRequireScope,
		H3Res:            cfg.H3Res,
	}, gcache.Bind(provider), store, appLog, opts...)

	ph, err := photos.NewFS(cfg.PhotosDir, cfg.PhotosBaseURL, appLog)
	if err != nil {
		appLog.Error("photo store setup failed", "err", err)
		return 1
	}

	invCfg := kafka.FromEnv()
	inv := kafka.New(invCfg, gcache, kafka.Options{Logger: appLog, Register: mp.Registerer()})
	if invCfg.Enabled && invCfg.Driver == kafka.DriverKafka {
		probes = append(probes, health.FromReporter("invalidation", inv))
	}

	handler := server.NewHandler(appLog, server.Deps{
		Searcher:  engine,
		Locations: router.NewLocations(store, ph, appLog),
		Hot:       hot,
		Metrics:   mp.Handler(),
		Probes:    probes,
		PhotosDir: ph.Dir(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mp.Serve(gctx, appLog) })
	g.Go(func() error {
		if err := inv.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		inv.Stop()
		return nil
	})
	g.Go(func() error { return server.Run(gctx, cfg, appLog, handler) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
