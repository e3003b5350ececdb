package usecase

import (
	"errors"
	"fmt"

	"go.ngs.io/grid-subset/internal/adapter/store"
	"go.ngs.io/grid-subset/internal/config"
	"go.ngs.io/grid-subset/internal/domain"
)

// ErrDatasetNotFound is returned for a dataset name missing from the configuration.
var ErrDatasetNotFound = errors.New("dataset not found")

// Mode picks the spatial selection used by Extract.
type Mode string

const (
	// ModeBoundingBox uses the antimeridian-aware bounding-box selection.
	ModeBoundingBox Mode = "bbox"
	// ModeMask uses the plain lat/lon mask without longitude wrapping.
	ModeMask Mode = "mask"
)

// ParseMode parses a mode name; empty means ModeBoundingBox.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeBoundingBox:
		return ModeBoundingBox, nil
	case ModeMask:
		return ModeMask, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q (expected %q or %q)", domain.ErrInvalidArgument, s, ModeBoundingBox, ModeMask)
}

// ExtractRequest selects a region, and optionally one time step, from a configured dataset.
type ExtractRequest struct {
	Dataset   string
	Bounds    domain.BoundingBox
	Mode      Mode
	TimeIndex *int
}

// ExtractionUseCase resolves configured datasets and subsets them.
type ExtractionUseCase struct {
	cfg    *config.Config
	loader store.GridLoader
	subset *SubsetUseCase
}

// NewExtractionUseCase creates an extraction use case.
func NewExtractionUseCase(cfg *config.Config, loader store.GridLoader, subset *SubsetUseCase) *ExtractionUseCase {
	return &ExtractionUseCase{cfg: cfg, loader: loader, subset: subset}
}

// Config returns the configuration the use case serves.
func (uc *ExtractionUseCase) Config() *config.Config {
	return uc.cfg
}

// Extract opens the dataset and applies the requested selection.
func (uc *ExtractionUseCase) Extract(req ExtractRequest) (domain.Selection, error) {
	ds, ok := uc.cfg.Datasets[req.Dataset]
	if !ok {
		return domain.Selection{}, fmt.Errorf("%w: %q", ErrDatasetNotFound, req.Dataset)
	}
	grid, err := uc.loader.OpenGrid(ds.Path, ds.Variable)
	if err != nil {
		return domain.Selection{}, fmt.Errorf("failed to open dataset %q: %w", req.Dataset, err)
	}
	return uc.ExtractGrid(grid, req)
}

// ExtractGrid applies the requested selection to an already opened grid.
func (uc *ExtractionUseCase) ExtractGrid(grid *domain.Grid, req ExtractRequest) (domain.Selection, error) {
	switch req.Mode {
	case ModeMask:
		return uc.subset.MaskAndFilter(grid, FilterRequest{
			ByTime:    req.TimeIndex != nil,
			TimeIndex: req.TimeIndex,
			ByLatLon:  true,
			Bounds:    req.Bounds,
		})
	case "", ModeBoundingBox:
		if req.TimeIndex != nil {
			if err := req.Bounds.Validate(); err != nil {
				return domain.Selection{}, err
			}
			var err error
			grid, err = SelectTimeIndex(grid, *req.TimeIndex)
			if err != nil {
				return domain.Selection{}, err
			}
		}
		return uc.subset.SelectBoundingBox(grid, req.Bounds)
	}
	return domain.Selection{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidArgument, req.Mode)
}
