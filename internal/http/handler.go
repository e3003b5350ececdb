package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/grid-subset/internal/domain"
	"go.ngs.io/grid-subset/internal/usecase"
)

// Handler handles HTTP requests for grid subsets.
type Handler struct {
	extractUC *usecase.ExtractionUseCase
}

// NewHandler creates a new HTTP handler.
func NewHandler(extractUC *usecase.ExtractionUseCase) *Handler {
	return &Handler{
		extractUC: extractUC,
	}
}

// GetSubset handles GET /v1/datasets/:name/subset.
func (h *Handler) GetSubset(c *gin.Context) {
	req := usecase.ExtractRequest{Dataset: c.Param("name")}

	bounds, err := h.parseBounds(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Bounds = bounds

	mode, err := usecase.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Mode = mode

	if timeStr := c.Query("time"); timeStr != "" {
		idx, err := strconv.Atoi(timeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid time index: %v", err)})
			return
		}
		req.TimeIndex = &idx
	}

	withValues := true
	if v := c.Query("values"); v != "" {
		withValues, err = strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid values flag: %v", err)})
			return
		}
	}

	// Execute use case.
	sel, err := h.extractUC.Extract(req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	response, err := usecase.NewSubsetResponse(sel, withValues)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// parseBounds reads either a named region or all four lat/lon bounds.
func (h *Handler) parseBounds(c *gin.Context) (domain.BoundingBox, error) {
	if name := c.Query("region"); name != "" {
		box, ok := h.extractUC.Config().Region(name)
		if !ok {
			return domain.BoundingBox{}, fmt.Errorf("unknown region %q", name)
		}
		return box, nil
	}

	var vals [4]float64
	for i, key := range []string{"lat_min", "lat_max", "lon_min", "lon_max"} {
		s := c.Query(key)
		if s == "" {
			return domain.BoundingBox{}, fmt.Errorf("%s parameter is required (or use region)", key)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.BoundingBox{}, fmt.Errorf("invalid %s: %v", key, err)
		}
		vals[i] = v
	}
	return domain.BoundingBox{LatMin: vals[0], LatMax: vals[1], LonMin: vals[2], LonMax: vals[3]}, nil
}

// GetRegions handles GET /v1/regions.
func (h *Handler) GetRegions(c *gin.Context) {
	cfg := h.extractUC.Config()

	type RegionInfo struct {
		Name   string             `json:"name"`
		Bounds domain.BoundingBox `json:"bounds"`
	}

	names := cfg.RegionNames()
	response := make([]RegionInfo, len(names))
	for i, name := range names {
		response[i] = RegionInfo{Name: name, Bounds: cfg.Regions[name]}
	}

	c.JSON(http.StatusOK, gin.H{
		"regions": response,
	})
}

// GetDatasets handles GET /v1/datasets.
func (h *Handler) GetDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"datasets": h.extractUC.Config().DatasetNames(),
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrDatasetNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMalformedBoundingBox),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrTimeIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAxisNotFound):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
