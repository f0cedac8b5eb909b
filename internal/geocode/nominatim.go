package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dante-alig/lovelyplace-back/internal/core/model"
	"github.com/dante-alig/lovelyplace-back/internal/geo"
)

const (
	nominatimDefaultURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent    = "lovelyplace-back/1.0"
)

func init() { Register("nominatim", newNominatim) }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Nominatim calls the OpenStreetMap search endpoint. The public instance
// requires an identifying User-Agent.
type Nominatim struct {
	cfg    Config
	base   string
	http   *http.Client
	logger *slog.Logger
}

func NewNominatim(cfg Config, client *http.Client, logger *slog.Logger) (*Nominatim, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = nominatimDefaultURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("nominatim url: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Nominatim{cfg: cfg, base: base, http: client, logger: logger}, nil
}

func newNominatim(cfg Config, client *http.Client, logger *slog.Logger) (Resolver, error) {
	return NewNominatim(cfg, client, logger)
}

func (n *Nominatim) Resolve(ctx context.Context, address string) (c model.Coordinate, err error) {
	defer func() { observe("nominatim", err) }()

	addr, err := checkAddress(address)
	if err != nil {
		return model.Coordinate{}, err
	}

	q := url.Values{}
	q.Set("q", addr)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	var places []nominatimPlace
	if err := getJSON(ctx, n.http, "nominatim", n.base+"/search?"+q.Encode(), n.cfg.UserAgent, n.cfg.BaseTimeout, addr, &places); err != nil {
		return model.Coordinate{}, err
	}
	if len(places) == 0 {
		return model.Coordinate{}, newError(ReasonNotFound, addr, nil)
	}

	lat, err1 := strconv.ParseFloat(places[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(places[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return model.Coordinate{}, newError(ReasonProviderUnavailable, addr,
			fmt.Errorf("nominatim coordinates %q,%q", places[0].Lat, places[0].Lon))
	}
	c = model.Coordinate{Lat: lat, Lng: lng}
	if err := geo.Validate(c); err != nil {
		return model.Coordinate{}, newError(ReasonProviderUnavailable, addr, err)
	}
	n.logger.Debug("geocoded", "provider", "nominatim", "address", addr, "coord", c.String())
	return c, nil
}
