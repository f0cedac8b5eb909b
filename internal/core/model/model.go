// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"strings"
)

// Location is a catalog record. JSON names follow the public API.
type Location struct {
	ID          string            `json:"_id" db:"id"`
	Name        string            `json:"locationName" db:"name" validate:"required"`
	Address     string            `json:"locationAddress" db:"address" validate:"required"`
	Description string            `json:"locationDescription" db:"description" validate:"required"`
	Tips        string            `json:"tips,omitempty" db:"tips"`
	SocialMedia string            `json:"socialmedia,omitempty" db:"social_media"`
	MediaLinks  []string          `json:"mediaLink,omitempty" db:"-"`
	Hours       map[string]string `json:"hours,omitempty" db:"-"`
	PriceRange  string            `json:"priceRange,omitempty" db:"price_range"`
	Keywords    []string          `json:"keywords,omitempty" db:"-"`
	Filters     []string          `json:"filters,omitempty" db:"-"`
	PostalCode  string            `json:"postalCode,omitempty" db:"postal_code"`
	Category    string            `json:"placeCategory,omitempty" db:"category"`
	Photos      []string          `json:"photos" db:"-"`
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// RankedResult is a search hit; Location fields are flattened in JSON.
type RankedResult struct {
	Location
	DistanceKm float64 `json:"distance"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Cell       string  `json:"h3Cell,omitempty"`
}

// SearchCriteria is the input of a proximity search. Optional scalar fields
// are nil when absent; optional sets are nil when absent.
type SearchCriteria struct {
	OriginAddress string
	MaxDistanceKm float64

	Category     *string
	PostalCode   *string
	PriceRange   *string
	Keywords     []string
	RequiredTags []string
}

func NewCriteria(origin string, maxDistanceKm float64) *SearchCriteria {
	return &SearchCriteria{OriginAddress: origin, MaxDistanceKm: maxDistanceKm}
}

func (c *SearchCriteria) WithCategory(v string) *SearchCriteria {
	c.Category = optString(v)
	return c
}

func (c *SearchCriteria) WithPostalCode(v string) *SearchCriteria {
	c.PostalCode = optString(v)
	return c
}

func (c *SearchCriteria) WithPriceRange(v string) *SearchCriteria {
	c.PriceRange = optString(v)
	return c
}

func (c *SearchCriteria) WithKeywords(v ...string) *SearchCriteria {
	c.Keywords = optSet(v)
	return c
}

func (c *SearchCriteria) WithRequiredTags(v ...string) *SearchCriteria {
	c.RequiredTags = optSet(v)
	return c
}

// Build returns a copy so the builder can be reused.
func (c *SearchCriteria) Build() SearchCriteria {
	out := *c
	out.Keywords = append([]string(nil), c.Keywords...)
	out.RequiredTags = append([]string(nil), c.RequiredTags...)
	if len(out.Keywords) == 0 {
		out.Keywords = nil
	}
	if len(out.RequiredTags) == 0 {
		out.RequiredTags = nil
	}
	return out
}

// blank input means "absent"
func optString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func optSet(vs []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SplitList splits a comma separated query value into trimmed, non-empty tokens.
func SplitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
