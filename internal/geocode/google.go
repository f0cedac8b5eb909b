package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dante-alig/lovelyplace-back/internal/core/model"
	"github.com/dante-alig/lovelyplace-back/internal/geo"
)

const googleDefaultURL = "https://maps.googleapis.com/maps/api/geocode/json"

func init() { Register("google", newGoogle) }

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Google calls the Google Maps Geocoding API.
type Google struct {
	cfg    Config
	base   string
	http   *http.Client
	logger *slog.Logger
}

func NewGoogle(cfg Config, client *http.Client, logger *slog.Logger) (*Google, error) {
	base := cfg.BaseURL
	if base == "" {
		base = googleDefaultURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("google geocoder url: %w", err)
	}
	if cfg.APIKey == "" {
		logger.Warn("google geocoder configured without api key")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Google{cfg: cfg, base: base, http: client, logger: logger}, nil
}

func newGoogle(cfg Config, client *http.Client, logger *slog.Logger) (Resolver, error) {
	return NewGoogle(cfg, client, logger)
}

func (g *Google) Resolve(ctx context.Context, address string) (c model.Coordinate, err error) {
	defer func() { observe("google", err) }()

	addr, err := checkAddress(address)
	if err != nil {
		return model.Coordinate{}, err
	}

	q := url.Values{}
	q.Set("address", addr)
	if g.cfg.APIKey != "" {
		q.Set("key", g.cfg.APIKey)
	}

	var body googleResponse
	if err := getJSON(ctx, g.http, "google", g.base+"?"+q.Encode(), g.cfg.UserAgent, g.cfg.BaseTimeout, addr, &body); err != nil {
		return model.Coordinate{}, err
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return model.Coordinate{}, newError(ReasonNotFound, addr, nil)
	case "INVALID_REQUEST":
		return model.Coordinate{}, newError(ReasonInvalidInput, addr, errors.New(body.ErrorMessage))
	default:
		return model.Coordinate{}, newError(ReasonProviderUnavailable, addr,
			fmt.Errorf("google status %s: %s", body.Status, body.ErrorMessage))
	}
	if len(body.Results) == 0 {
		return model.Coordinate{}, newError(ReasonNotFound, addr, nil)
	}

	loc := body.Results[0].Geometry.Location
	c = model.Coordinate{Lat: loc.Lat, Lng: loc.Lng}
	if err := geo.Validate(c); err != nil {
		return model.Coordinate{}, newError(ReasonProviderUnavailable, addr, err)
	}
	g.logger.Debug("geocoded", "provider", "google", "address", addr, "coord", c.String())
	return c, nil
}
