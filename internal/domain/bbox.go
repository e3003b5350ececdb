package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BoundingBox is a geographic rectangle in degrees.
// Longitudes may be in either convention and may wrap across the antimeridian.
type BoundingBox struct {
	LatMin float64 `json:"lat_min" toml:"lat_min"`
	LatMax float64 `json:"lat_max" toml:"lat_max"`
	LonMin float64 `json:"lon_min" toml:"lon_min"`
	LonMax float64 `json:"lon_max" toml:"lon_max"`
}

// Validate checks that the box is usable.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.LatMin, b.LatMax, b.LonMin, b.LonMax} {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: %s has NaN bounds", ErrMalformedBoundingBox, b)
		}
	}
	if b.LatMin > b.LatMax {
		return fmt.Errorf("%w: lat_min %g > lat_max %g", ErrMalformedBoundingBox, b.LatMin, b.LatMax)
	}
	return nil
}

// LonSpan returns LonMax - LonMin as given, before any convention change.
func (b BoundingBox) LonSpan() float64 {
	return b.LonMax - b.LonMin
}

// String formats the box as [lat_min, lat_max, lon_min, lon_max].
func (b BoundingBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.LatMin, b.LatMax, b.LonMin, b.LonMax)
}

// ParseBoundingBox parses "lat_min,lat_max,lon_min,lon_max".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: expected lat_min,lat_max,lon_min,lon_max, got %q", ErrMalformedBoundingBox, s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %v", ErrMalformedBoundingBox, err)
		}
		vals[i] = v
	}
	b := BoundingBox{LatMin: vals[0], LatMax: vals[1], LonMin: vals[2], LonMax: vals[3]}
	return b, b.Validate()
}

// Selection is the outcome of a spatial query: a non-empty grid, or an empty
// result tagged with the box that produced it.
type Selection struct {
	Grid   *Grid // Zero-sized when nothing matched; nil if the query never ran.
	Bounds BoundingBox
}

// Found reports whether the selection holds at least one point.
func (s Selection) Found() bool {
	return s.Grid != nil && !s.Grid.Empty()
}
