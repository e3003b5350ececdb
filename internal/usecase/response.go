package usecase

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"go.ngs.io/grid-subset/internal/domain"
)

// SubsetResponse is the serialized form of a selection.
type SubsetResponse struct {
	Found    bool               `json:"found"`
	Variable string             `json:"variable,omitempty"`
	Bounds   domain.BoundingBox `json:"bounds"`
	Dims     []string           `json:"dims,omitempty"`
	Shape    []int              `json:"shape,omitempty"`
	Time     *TimeCoord         `json:"time,omitempty"`
	Lat      []float64          `json:"lat,omitempty"`
	Lon      []float64          `json:"lon,omitempty"`
	Stats    *SubsetStats       `json:"stats,omitempty"`
	Values   []*float64         `json:"values,omitempty"` // Row-major in Shape order; null for missing points.
}

// TimeCoord describes the time-like axis of a selection.
type TimeCoord struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// SubsetStats summarizes the non-missing values of a selection.
type SubsetStats struct {
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
}

// NewSubsetResponse describes sel. Values are materialized only when withValues is set.
func NewSubsetResponse(sel domain.Selection, withValues bool) (*SubsetResponse, error) {
	resp := &SubsetResponse{Found: sel.Found(), Bounds: sel.Bounds}
	if !resp.Found {
		return resp, nil
	}

	g := sel.Grid
	resp.Variable = g.Name
	resp.Dims = g.Dims()
	resp.Shape = g.Shape()
	resp.Lat = g.Lat()
	resp.Lon = g.Lon()
	if axis, ok := g.Time(); ok {
		resp.Time = &TimeCoord{Name: axis.Name, Values: axis.Values}
	}
	if !withValues {
		return resp, nil
	}

	data, err := g.Materialize()
	if err != nil {
		return nil, fmt.Errorf("failed to materialize selection: %w", err)
	}
	resp.Values = make([]*float64, len(data))
	present := make([]float64, 0, len(data))
	for i := range data {
		if math.IsNaN(data[i]) {
			continue
		}
		resp.Values[i] = &data[i]
		present = append(present, data[i])
	}
	resp.Stats = summarize(present, len(data))
	return resp, nil
}

func summarize(present []float64, total int) *SubsetStats {
	stats := &SubsetStats{Count: len(present), Missing: total - len(present)}
	if len(present) == 0 {
		return stats
	}
	stats.Min = floats.Min(present)
	stats.Max = floats.Max(present)
	stats.Mean = floats.Sum(present) / float64(len(present))
	return stats
}
