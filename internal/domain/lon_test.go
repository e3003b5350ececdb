package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToSignedLon(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{179.5, 179.5},
		{180, -180},
		{190, -170},
		{282, -78},
		{298, -62},
		{359, -1},
		{360, 0},
		{-180, -180},
		{-190, 170},
		{720.5, 0.5},
	}
	for _, tt := range tests {
		if got := ToSignedLon(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ToSignedLon(%g): expected %g, got %g", tt.in, tt.want, got)
		}
	}
}

func TestLonRoundTrip(t *testing.T) {
	for v := 0.0; v < 360; v += 0.25 {
		got := ToLon360(ToSignedLon(v))
		if math.Abs(got-v) > 1e-9 {
			t.Fatalf("round trip of %g gave %g", v, got)
		}
	}
}

func TestNormalizeLongitudeReordersAndPermutesData(t *testing.T) {
	g := newTestGrid(t, []float64{0, 1}, []float64{0, 90, 180, 270})

	norm := NormalizeLongitude(g)
	require.Equal(t, []float64{-180, -90, 0, 90}, norm.Lon())
	require.Equal(t, g.Lat(), norm.Lat())

	values, err := norm.Materialize()
	require.NoError(t, err)
	require.Equal(t, []float64{2, 3, 0, 1, 102, 103, 100, 101}, values)

	// The input view is unchanged.
	require.Equal(t, []float64{0, 90, 180, 270}, g.Lon())
}

func TestNormalizeLongitudeIsIdempotent(t *testing.T) {
	g := newTestGrid(t, []float64{0}, seq(0, 30, 12))
	once := NormalizeLongitude(g)
	twice := NormalizeLongitude(once)
	require.Same(t, once, twice)
	require.Equal(t, once.Lon(), twice.Lon())

	signed := newTestGrid(t, []float64{0}, seq(-180, 30, 12))
	require.Same(t, signed, NormalizeLongitude(signed))

	for _, v := range once.Lon() {
		require.GreaterOrEqual(t, v, -180.0)
		require.Less(t, v, 180.0)
	}
}
