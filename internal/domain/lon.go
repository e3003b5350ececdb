package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ToSignedLon maps a longitude in any convention to [-180, 180).
func ToSignedLon(lon float64) float64 {
	return floorMod(lon+180, 360) - 180
}

// ToLon360 maps a longitude in any convention to [0, 360).
func ToLon360(lon float64) float64 {
	return floorMod(lon, 360)
}

func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// NormalizeLongitude rewrites a 0..360 longitude axis to the signed convention
// and reorders it ascending. Grids with no longitude above 180 are returned as is.
func NormalizeLongitude(g *Grid) *Grid {
	lon := g.Lon()
	if len(lon) == 0 || floats.Max(lon) <= 180 {
		return g
	}

	for i, v := range lon {
		lon[i] = ToSignedLon(v)
	}
	perm := make([]int, len(lon))
	floats.ArgsortStable(lon, perm)
	return g.relabelLon(lon, perm)
}
