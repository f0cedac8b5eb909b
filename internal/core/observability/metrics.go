package observability

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)

	geocodeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Outbound geocoding calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	geocodeCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_cache_hits_total",
			Help: "Geocode cache hits by tier.",
		},
		[]string{"tier"},
	)

	geocodeCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geocode_cache_misses_total",
			Help: "Geocode lookups that reached the resolver.",
		},
	)

	geocodeCacheShared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geocode_cache_coalesced_total",
			Help: "Lookups that shared an in-flight resolver call.",
		},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"op"},
	)

	searchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Proximity searches by outcome.",
		},
		[]string{"outcome"},
	)

	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "End-to-end proximity search latency.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"outcome"},
	)

	searchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_results",
			Help:    "Number of ranked results returned per search.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
		},
	)

	candidatesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_candidates_dropped_total",
			Help: "Candidates excluded from a search, by reason.",
		},
		[]string{"reason"},
	)

	hotCells = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "search_hot_cells",
			Help: "Number of tracked origin cells.",
		},
		[]string{"tier"},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Kafka consumer errors by kind.",
		},
		[]string{"kind"},
	)

	kafkaProducerErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_producer_errors_total",
			Help: "Events the producer failed to deliver or dropped.",
		},
	)

	invalidationLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geocode_invalidation_lag_seconds",
			Help: "Approximate lag of the last applied invalidation.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, upstreamLatencySeconds, buildInfo,
		geocodeRequests, geocodeCacheHits, geocodeCacheMisses, geocodeCacheShared,
		cacheOpTotal, redisOpDuration,
		searchTotal, searchDuration, searchResults, candidatesDropped, hotCells,
		kafkaConsumerErrors, kafkaProducerErrors, invalidationLag,
	}
}

var defaultOnce sync.Once

func init() {
	defaultOnce.Do(func() { register(prometheus.DefaultRegisterer) })
}

// Init registers the service collectors on reg as well as on the default
// registry. Calling it more than once for the same registry is harmless.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		return
	}
	register(reg)
}

func register(reg prometheus.Registerer) {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

func ObserveGeocode(provider, outcome string) {
	geocodeRequests.WithLabelValues(provider, outcome).Inc()
}

func IncGeocodeCacheHit(tier string) {
	geocodeCacheHits.WithLabelValues(tier).Inc()
}

func IncGeocodeCacheMiss() {
	geocodeCacheMisses.Inc()
}

func IncGeocodeCoalesced() {
	geocodeCacheShared.Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, result).Inc()
	redisOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func ObserveSearch(outcome string, results int, durationSeconds float64) {
	searchTotal.WithLabelValues(outcome).Inc()
	searchDuration.WithLabelValues(outcome).Observe(durationSeconds)
	if outcome == "ok" {
		searchResults.Observe(float64(results))
	}
}

func AddCandidatesDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	candidatesDropped.WithLabelValues(reason).Add(float64(n))
}

func SetHotCellsGauge(tier string, n int) {
	hotCells.WithLabelValues(tier).Set(float64(n))
}

func IncKafkaConsumerError(kind string) {
	kafkaConsumerErrors.WithLabelValues(kind).Inc()
}

func IncKafkaProducerError() {
	kafkaProducerErrors.Inc()
}

func SetInvalidationLagSeconds(v float64) {
	invalidationLag.Set(v)
}
