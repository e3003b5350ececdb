package usecase

import (
	"bytes"
	"errors"
	"log"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go.ngs.io/grid-subset/internal/domain"
)

type countingSource struct {
	data  []float64
	loads int
}

func (s *countingSource) Load() ([]float64, error) {
	s.loads++
	return s.data, nil
}

func axis(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// cellValue encodes a point so selections can be checked against coordinates.
func cellValue(lat, lon float64) float64 {
	return lat*1000 + domain.ToLon360(lon)
}

func newGrid(t *testing.T, lat, lon []float64) (*domain.Grid, *countingSource) {
	t.Helper()
	src := &countingSource{}
	for _, la := range lat {
		for _, lo := range lon {
			src.data = append(src.data, cellValue(la, lo))
		}
	}
	g, err := domain.NewGrid("z", src, nil, lat, lon)
	require.NoError(t, err)
	return g, src
}

func newTimeGrid(t *testing.T, timeName string, nTime int, lat, lon []float64) *domain.Grid {
	t.Helper()
	var data []float64
	for k := 0; k < nTime; k++ {
		for _, la := range lat {
			for _, lo := range lon {
				data = append(data, float64(k)*1e6+cellValue(la, lo))
			}
		}
	}
	g, err := domain.NewGrid("t2m", domain.SliceSource(data), &domain.Axis{Name: timeName, Values: axis(0, 1, nTime)}, lat, lon)
	require.NoError(t, err)
	return g
}

func newTestUseCase() (*SubsetUseCase, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewSubsetUseCase(log.New(&buf, "", 0)), &buf
}

func logLines(buf *bytes.Buffer) []string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// requireMatchesCoords checks every value against the coordinates it was selected at.
func requireMatchesCoords(t *testing.T, g *domain.Grid) {
	t.Helper()
	values, err := g.Materialize()
	require.NoError(t, err)
	lat, lon := g.Lat(), g.Lon()
	for i, la := range lat {
		for j, lo := range lon {
			require.Equal(t, cellValue(la, lo), values[i*len(lon)+j], "lat %g lon %g", la, lo)
		}
	}
}

func TestSelectBoundingBoxWrapsAntimeridian(t *testing.T) {
	uc, buf := newTestUseCase()
	grid, _ := newGrid(t, axis(-90, 5, 37), axis(0, 5, 72))

	sel, err := uc.SelectBoundingBox(grid, domain.BoundingBox{LatMin: 0, LatMax: 10, LonMin: 170, LonMax: 190})
	require.NoError(t, err)
	require.True(t, sel.Found())
	require.Empty(t, logLines(buf))

	require.Equal(t, []float64{0, 5, 10}, sel.Grid.Lat())
	require.Equal(t, []float64{170, 175, -180, -175, -170}, sel.Grid.Lon())
	requireMatchesCoords(t, sel.Grid)
}

func TestSelectBoundingBoxPresetWithoutWrap(t *testing.T) {
	uc, _ := newTestUseCase()
	grid, _ := newGrid(t, axis(-60, 1, 121), axis(0, 1, 360))
	andes := domain.BoundingBox{LatMin: -32, LatMax: -14, LonMin: 282, LonMax: 298}

	require.Equal(t, -78.0, domain.ToSignedLon(andes.LonMin))
	require.Equal(t, -62.0, domain.ToSignedLon(andes.LonMax))

	sel, err := uc.SelectBoundingBox(grid, andes)
	require.NoError(t, err)
	require.True(t, sel.Found())
	require.Equal(t, axis(-78, 1, 17), sel.Grid.Lon())
	require.Equal(t, axis(-32, 1, 19), sel.Grid.Lat())
	require.Equal(t, andes, sel.Bounds)
	requireMatchesCoords(t, sel.Grid)
}

func TestSelectBoundingBoxOnSignedGrid(t *testing.T) {
	uc, _ := newTestUseCase()
	grid, _ := newGrid(t, axis(-60, 1, 121), axis(-180, 1, 360))

	sel, err := uc.SelectBoundingBox(grid, domain.BoundingBox{LatMin: -32, LatMax: -14, LonMin: 282, LonMax: 298})
	require.NoError(t, err)
	require.Equal(t, axis(-78, 1, 17), sel.Grid.Lon())

	sel, err = uc.SelectBoundingBox(grid, domain.BoundingBox{LatMin: -1, LatMax: 1, LonMin: 178, LonMax: -178})
	require.NoError(t, err)
	require.Equal(t, []float64{178, 179, -180, -179, -178}, sel.Grid.Lon())
	requireMatchesCoords(t, sel.Grid)
}

func TestSelectBoundingBoxGlobalSpan(t *testing.T) {
	uc, _ := newTestUseCase()
	grid, _ := newGrid(t, axis(-60, 1, 121), axis(0, 1, 360))

	boxes := []domain.BoundingBox{
		{LatMin: 0, LatMax: 10, LonMin: 0, LonMax: 359},
		{LatMin: 0, LatMax: 10, LonMin: 0, LonMax: 360},
		{LatMin: 0, LatMax: 10, LonMin: -180, LonMax: 180},
		// Signed bounds wrapping into the seam still take the global branch.
		{LatMin: 0, LatMax: 10, LonMin: -179.5, LonMax: 179.5},
	}
	for _, box := range boxes {
		sel, err := uc.SelectBoundingBox(grid, box)
		require.NoError(t, err, box.String())
		require.Equal(t, []int{11, 360}, sel.Grid.Shape(), box.String())
		require.Equal(t, axis(-180, 1, 360), sel.Grid.Lon(), box.String())
	}
}

func TestSelectBoundingBoxOrientationInvariant(t *testing.T) {
	uc, _ := newTestUseCase()
	lat := axis(-60, 2, 61)
	lon := axis(0, 2, 180)
	desc := slices.Clone(lat)
	slices.Reverse(desc)

	ascGrid, _ := newGrid(t, lat, lon)
	descGrid, _ := newGrid(t, desc, lon)
	box := domain.BoundingBox{LatMin: -32, LatMax: -14, LonMin: 282, LonMax: 298}

	ascSel, err := uc.SelectBoundingBox(ascGrid, box)
	require.NoError(t, err)
	descSel, err := uc.SelectBoundingBox(descGrid, box)
	require.NoError(t, err)
	require.True(t, ascSel.Found())

	ascLat := ascSel.Grid.Lat()
	descLat := descSel.Grid.Lat()
	slices.Reverse(descLat)
	require.Equal(t, ascLat, descLat)

	ascValues, err := ascSel.Grid.Materialize()
	require.NoError(t, err)
	descValues, err := descSel.Grid.Materialize()
	require.NoError(t, err)
	slices.Sort(ascValues)
	slices.Sort(descValues)
	require.Equal(t, ascValues, descValues)
	requireMatchesCoords(t, descSel.Grid)
}

func TestSelectBoundingBoxEmptyIsSoft(t *testing.T) {
	uc, buf := newTestUseCase()
	grid, src := newGrid(t, axis(-60, 1, 121), axis(0, 1, 360))
	box := domain.BoundingBox{LatMin: 85, LatMax: 89, LonMin: 0, LonMax: 10}

	sel, err := uc.SelectBoundingBox(grid, box)
	require.NoError(t, err)
	require.False(t, sel.Found())
	require.Equal(t, box, sel.Bounds)
	require.Zero(t, src.loads)

	lines := logLines(buf)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "[85, 89, 0, 10]")
}

func TestSelectBoundingBoxRejectsMalformedBox(t *testing.T) {
	uc, buf := newTestUseCase()
	grid, _ := newGrid(t, axis(-60, 1, 121), axis(0, 1, 360))

	_, err := uc.SelectBoundingBox(grid, domain.BoundingBox{LatMin: 10, LatMax: 0, LonMin: 0, LonMax: 10})
	require.True(t, errors.Is(err, domain.ErrMalformedBoundingBox))
	require.Empty(t, logLines(buf))
}

func TestMaskAndFilterRequiresTimeIndex(t *testing.T) {
	uc, _ := newTestUseCase()
	grid, src := newGrid(t, axis(0, 1, 3), axis(0, 1, 3))

	_, err := uc.MaskAndFilter(grid, FilterRequest{ByTime: true, ByLatLon: true})
	require.True(t, errors.Is(err, domain.ErrInvalidArgument))
	require.Zero(t, src.loads)
}

func TestMaskAndFilterTimeAxisNames(t *testing.T) {
	uc, _ := newTestUseCase()
	idx := 1
	lat, lon := axis(0, 1, 2), axis(0, 1, 2)

	for _, name := range []string{"valid_time", "time"} {
		grid := newTimeGrid(t, name, 3, lat, lon)
		sel, err := uc.MaskAndFilter(grid, FilterRequest{ByTime: true, TimeIndex: &idx})
		require.NoError(t, err, name)
		require.Equal(t, []int{2, 2}, sel.Grid.Shape(), name)
		values, err := sel.Grid.Materialize()
		require.NoError(t, err)
		require.Equal(t, 1e6+cellValue(0, 0), values[0], name)
	}

	grid := newTimeGrid(t, "step", 3, lat, lon)
	_, err := uc.MaskAndFilter(grid, FilterRequest{ByTime: true, TimeIndex: &idx})
	require.True(t, errors.Is(err, domain.ErrAxisNotFound))

	plain, _ := newGrid(t, lat, lon)
	_, err = uc.MaskAndFilter(plain, FilterRequest{ByTime: true, TimeIndex: &idx})
	require.True(t, errors.Is(err, domain.ErrAxisNotFound))

	bad := 7
	_, err = uc.MaskAndFilter(newTimeGrid(t, "time", 3, lat, lon), FilterRequest{ByTime: true, TimeIndex: &bad})
	require.True(t, errors.Is(err, domain.ErrTimeIndexOutOfRange))
}

func TestMaskAndFilterIdentity(t *testing.T) {
	uc, buf := newTestUseCase()
	grid, src := newGrid(t, axis(0, 1, 3), axis(0, 1, 3))

	sel, err := uc.MaskAndFilter(grid, FilterRequest{})
	require.NoError(t, err)
	require.Same(t, grid, sel.Grid)
	require.True(t, sel.Found())
	require.Zero(t, src.loads)
	require.Empty(t, logLines(buf))
}

func TestMaskAndFilterUsesRawCoordinates(t *testing.T) {
	uc, buf := newTestUseCase()
	grid, _ := newGrid(t, axis(-60, 1, 121), axis(0, 1, 360))

	sel, err := uc.MaskAndFilter(grid, FilterRequest{
		ByLatLon: true,
		Bounds:   domain.BoundingBox{LatMin: -32, LatMax: -14, LonMin: 282, LonMax: 298},
	})
	require.NoError(t, err)
	require.True(t, sel.Found())
	require.Equal(t, axis(282, 1, 17), sel.Grid.Lon())
	require.Equal(t, axis(-32, 1, 19), sel.Grid.Lat())
	requireMatchesCoords(t, sel.Grid)
	require.Empty(t, logLines(buf))

	// Signed bounds on a 0..360 grid are not converted, so nothing matches.
	box := domain.BoundingBox{LatMin: -32, LatMax: -14, LonMin: -78, LonMax: -62}
	sel, err = uc.MaskAndFilter(grid, FilterRequest{ByLatLon: true, Bounds: box})
	require.NoError(t, err)
	require.False(t, sel.Found())
	require.NotNil(t, sel.Grid)
	require.Equal(t, []int{0, 0}, sel.Grid.Shape())
	require.Len(t, logLines(buf), 1)
}

func TestMaskAndFilterTimeThenMask(t *testing.T) {
	uc, _ := newTestUseCase()
	idx := 2
	grid := newTimeGrid(t, "valid_time", 3, axis(0, 1, 5), axis(0, 1, 5))

	sel, err := uc.MaskAndFilter(grid, FilterRequest{
		ByTime:    true,
		TimeIndex: &idx,
		ByLatLon:  true,
		Bounds:    domain.BoundingBox{LatMin: 1, LatMax: 2, LonMin: 3, LonMax: 4},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"lat", "lon"}, sel.Grid.Dims())
	values, err := sel.Grid.Materialize()
	require.NoError(t, err)
	require.Equal(t, []float64{
		2e6 + cellValue(1, 3), 2e6 + cellValue(1, 4),
		2e6 + cellValue(2, 3), 2e6 + cellValue(2, 4),
	}, values)
}

func TestMaskAndFilterRejectsMalformedBox(t *testing.T) {
	uc, _ := newTestUseCase()
	grid, _ := newGrid(t, axis(0, 1, 3), axis(0, 1, 3))

	_, err := uc.MaskAndFilter(grid, FilterRequest{ByLatLon: true, Bounds: domain.BoundingBox{LatMin: 2, LatMax: 1}})
	require.True(t, errors.Is(err, domain.ErrMalformedBoundingBox))
}
