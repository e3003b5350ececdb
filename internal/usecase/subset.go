package usecase

import (
	"fmt"
	"log"

	"go.ngs.io/grid-subset/internal/domain"
)

const (
	// Time-like axis names, checked in this order.
	primaryTimeAxis   = "valid_time"
	secondaryTimeAxis = "time"

	// Boxes spanning at least this many degrees of longitude skip longitude filtering.
	globalLonSpan = 359.0
)

// FilterRequest selects an optional time index and an optional plain lat/lon mask.
type FilterRequest struct {
	ByTime    bool
	TimeIndex *int // Required when ByTime is set.
	ByLatLon  bool
	Bounds    domain.BoundingBox
}

// SubsetUseCase extracts spatial and temporal subsets from grids.
type SubsetUseCase struct {
	logger *log.Logger
}

// NewSubsetUseCase creates a subset use case. Empty selections are reported to logger;
// a nil logger uses the standard logger.
func NewSubsetUseCase(logger *log.Logger) *SubsetUseCase {
	if logger == nil {
		logger = log.Default()
	}
	return &SubsetUseCase{logger: logger}
}

// SelectBoundingBox selects box from grid, handling either longitude convention,
// boxes that cross the antimeridian, and either latitude orientation.
// An empty result is not an error: it is logged and returned with Found() == false.
func (uc *SubsetUseCase) SelectBoundingBox(grid *domain.Grid, box domain.BoundingBox) (domain.Selection, error) {
	if err := box.Validate(); err != nil {
		return domain.Selection{}, err
	}

	grid = domain.NormalizeLongitude(grid)
	lonMin := domain.ToSignedLon(box.LonMin)
	lonMax := domain.ToSignedLon(box.LonMax)

	lat := &domain.LabelRange{Start: box.LatMin, Stop: box.LatMax}
	if !grid.LatAscending() {
		lat = &domain.LabelRange{Start: box.LatMax, Stop: box.LatMin}
	}

	var subset *domain.Grid
	switch {
	case box.LonSpan() >= globalLonSpan:
		subset = grid.SelectLabels(lat, nil)
	case lonMin > lonMax:
		// Crosses the antimeridian: east part first, then west part.
		east := grid.SelectLabels(lat, &domain.LabelRange{Start: lonMin, Stop: 180})
		west := grid.SelectLabels(lat, &domain.LabelRange{Start: -180, Stop: lonMax})
		var err error
		subset, err = domain.ConcatLon(east, west)
		if err != nil {
			return domain.Selection{}, fmt.Errorf("failed to join antimeridian segments: %w", err)
		}
	default:
		subset = grid.SelectLabels(lat, &domain.LabelRange{Start: lonMin, Stop: lonMax})
	}

	return uc.result(subset, box), nil
}

// MaskAndFilter optionally reduces grid to one time index and then drops points
// outside the box. The mask compares raw coordinates and does not wrap longitude.
func (uc *SubsetUseCase) MaskAndFilter(grid *domain.Grid, req FilterRequest) (domain.Selection, error) {
	if req.ByTime && req.TimeIndex == nil {
		return domain.Selection{}, fmt.Errorf("%w: a time index is required when filtering by time", domain.ErrInvalidArgument)
	}
	if req.ByLatLon {
		if err := req.Bounds.Validate(); err != nil {
			return domain.Selection{}, err
		}
	}

	out := grid
	if req.ByTime {
		var err error
		out, err = SelectTimeIndex(out, *req.TimeIndex)
		if err != nil {
			return domain.Selection{}, err
		}
	}

	if req.ByLatLon {
		b := req.Bounds
		out = out.Where(func(lat, lon float64) bool {
			return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
		})
	}

	return uc.result(out, req.Bounds), nil
}

// SelectTimeIndex reduces the grid's time-like axis to the given position.
// The primary axis name is used when present, otherwise the secondary one.
func SelectTimeIndex(grid *domain.Grid, index int) (*domain.Grid, error) {
	name, err := TimeAxisName(grid)
	if err != nil {
		return nil, err
	}
	out, err := grid.SelectTime(name, index)
	if err != nil {
		return nil, fmt.Errorf("failed to select time index %d: %w", index, err)
	}
	return out, nil
}

// TimeAxisName returns the name of the grid's time-like axis.
func TimeAxisName(grid *domain.Grid) (string, error) {
	for _, name := range []string{primaryTimeAxis, secondaryTimeAxis} {
		if grid.HasAxis(name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: dataset %q has neither %q nor %q", domain.ErrAxisNotFound,
		grid.Name, primaryTimeAxis, secondaryTimeAxis)
}

func (uc *SubsetUseCase) result(subset *domain.Grid, box domain.BoundingBox) domain.Selection {
	sel := domain.Selection{Grid: subset, Bounds: box}
	if !sel.Found() {
		uc.logger.Printf("Warning: no data found for bounds %s in %q", box, subset.Name)
	}
	return sel
}
