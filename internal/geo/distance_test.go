package geo

import (
	"math"
	"testing"

	"github.com/dante-alig/lovelyplace-back/internal/core/model"
)

var (
	paris  = model.Coordinate{Lat: 48.8566, Lng: 2.3522}
	london = model.Coordinate{Lat: 51.5074, Lng: -0.1278}
	sydney = model.Coordinate{Lat: -33.8688, Lng: 151.2093}
)

func TestDistanceKm_SameCoordinateIsZero(t *testing.T) {
	for _, c := range []model.Coordinate{paris, london, sydney, {Lat: 90, Lng: 180}, {}} {
		if d := DistanceKm(c, c); d != 0 {
			t.Fatalf("DistanceKm(%v,%v)=%g want 0", c, c, d)
		}
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := [][2]model.Coordinate{
		{paris, london},
		{london, sydney},
		{paris, sydney},
		{{Lat: 0, Lng: 179.9}, {Lat: 0, Lng: -179.9}},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1])
		ba := DistanceKm(p[1], p[0])
		if ab != ba {
			t.Fatalf("asymmetric: %g vs %g for %v", ab, ba, p)
		}
	}
}

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name     string
		a, b     model.Coordinate
		want     float64
		tolerant float64
	}{
		{"paris-london", paris, london, 343.5, 2},
		{"antimeridian", model.Coordinate{Lat: 0, Lng: 179.5}, model.Coordinate{Lat: 0, Lng: -179.5}, 111.19, 0.5},
		{"antipodal", model.Coordinate{Lat: 0, Lng: 0}, model.Coordinate{Lat: 0, Lng: 180}, math.Pi * EarthRadiusKm, 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerant {
				t.Fatalf("got %g want %g±%g", got, tt.want, tt.tolerant)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(paris); err != nil {
		t.Fatalf("paris: %v", err)
	}
	bad := []model.Coordinate{
		{Lat: 91, Lng: 0},
		{Lat: 0, Lng: -181},
		{Lat: math.NaN(), Lng: 0},
	}
	for _, c := range bad {
		if err := Validate(c); err == nil {
			t.Fatalf("expected error for %v", c)
		}
	}
}

func TestCellOf(t *testing.T) {
	c1, err := CellOf(paris, 8)
	if err != nil {
		t.Fatalf("CellOf: %v", err)
	}
	c2, err := CellOf(model.Coordinate{Lat: 48.85661, Lng: 2.35221}, 8)
	if err != nil {
		t.Fatalf("CellOf: %v", err)
	}
	if c1 == "" || c1 != c2 {
		t.Fatalf("nearby points should share a res-8 cell: %q vs %q", c1, c2)
	}
	if _, err := CellOf(paris, 16); err == nil {
		t.Fatal("expected error for resolution 16")
	}
}
