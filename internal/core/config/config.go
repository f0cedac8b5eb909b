package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type GeocoderCfg struct {
	Provider         string
	APIKey           string
	URL              string
	UserAgent        string
	Timeout          time.Duration
	OriginTimeout    time.Duration
	CandidateTimeout time.Duration
	CacheTTL         time.Duration
	CacheSize        int
	CacheRedis       bool
}

type Config struct {
	Addr     string
	LogLevel string

	Geocoder GeocoderCfg

	SearchTimeout      time.Duration
	SearchMaxWorkers   int
	SearchRequireScope bool
	H3Res              int
	HotHalfLife        time.Duration
	HotThreshold       float64

	CatalogDriver  string
	RedisAddr      string
	PostgresDSN    string
	CacheOpTimeout time.Duration

	PhotosDir     string
	PhotosBaseURL string

	EventsEnabled bool
	KafkaBrokers  string
	EventsTopic   string
	EventsQueue   int

	MetricsEnabled bool
	MetricsAddr    string
}

func FromEnv() Config {
	res := getint("H3_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}

	apiKey := getenv("GEOCODER_API_KEY", os.Getenv("GOOGLE_MAPS_API_KEY"))
	addr := getenv("ADDR", ":8090")

	return Config{
		Addr:     addr,
		LogLevel: getenv("LOG_LEVEL", "info"),

		Geocoder: GeocoderCfg{
			Provider:         strings.ToLower(getenv("GEOCODER_PROVIDER", "google")),
			APIKey:           apiKey,
			URL:              getenv("GEOCODER_URL", ""),
			UserAgent:        getenv("GEOCODER_USER_AGENT", ""),
			Timeout:          getduration("GEOCODE_TIMEOUT", 3*time.Second),
			OriginTimeout:    getduration("GEOCODE_ORIGIN_TIMEOUT", 4*time.Second),
			CandidateTimeout: getduration("GEOCODE_CANDIDATE_TIMEOUT", 3*time.Second),
			CacheTTL:         getduration("GEOCODE_CACHE_TTL", 0),
			CacheSize:        getint("GEOCODE_CACHE_SIZE", 10_000),
			CacheRedis:       getbool("GEOCODE_CACHE_REDIS", false),
		},

		SearchTimeout:      getduration("SEARCH_TIMEOUT", 15*time.Second),
		SearchMaxWorkers:   getint("SEARCH_MAX_WORKERS", 8),
		SearchRequireScope: getbool("SEARCH_REQUIRE_SCOPE", false),
		H3Res:              res,
		HotHalfLife:        getduration("HOT_HALF_LIFE", 10*time.Minute),
		HotThreshold:       getfloat("HOT_THRESHOLD", 0),

		CatalogDriver:  strings.ToLower(getenv("CATALOG_DRIVER", "memory")),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		PostgresDSN:    getenv("POSTGRES_DSN", ""),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		PhotosDir:     getenv("PHOTOS_DIR", "./data/photos"),
		PhotosBaseURL: getenv("PHOTOS_BASE_URL", "http://localhost"+portOf(addr)+"/photos"),

		EventsEnabled: getbool("EVENTS_ENABLED", false),
		KafkaBrokers:  getenv("KAFKA_BROKERS", "localhost:9092"),
		EventsTopic:   getenv("KAFKA_EVENTS_TOPIC", "search-events"),
		EventsQueue:   getint("EVENTS_QUEUE_SIZE", 1024),

		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsAddr:    getenv("METRICS_ADDR", ":9090"),
	}
}

// Brokers splits KafkaBrokers.
func (c Config) Brokers() []string {
	var out []string
	for p := range strings.SplitSeq(c.KafkaBrokers, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}

func portOf(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return ""
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
