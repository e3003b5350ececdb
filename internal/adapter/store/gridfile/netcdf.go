// Package gridfile opens gridded variables from NetCDF files as lazily loaded grids.
package gridfile

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/grid-subset/internal/domain"
)

// FileConfig lists the coordinate variable names tried, in order.
// TimeDimNames are the accepted names for the leading dimension of a 3D variable.
type FileConfig struct {
	LatVarNames  []string
	LonVarNames  []string
	TimeDimNames []string
}

// DefaultConfig returns the default coordinate names (ERA5 and CF style).
func DefaultConfig() FileConfig {
	return FileConfig{
		LatVarNames:  []string{"lat", "latitude", "y"},
		LonVarNames:  []string{"lon", "longitude", "x"},
		TimeDimNames: []string{"valid_time", "time"},
	}
}

// Store opens NetCDF grids.
type Store struct {
	config FileConfig
}

// NewStore creates a NetCDF grid store with the default configuration.
func NewStore() *Store {
	return NewStoreWithConfig(DefaultConfig())
}

// NewStoreWithConfig creates a NetCDF grid store with custom coordinate names.
func NewStoreWithConfig(config FileConfig) *Store {
	return &Store{config: config}
}

// VariableInfo describes a gridded variable in a file.
type VariableInfo struct {
	Name  string   `json:"name"`
	Dims  []string `json:"dims"`
	Shape []int    `json:"shape"`
}

// OpenGrid reads the coordinates of variable and returns a grid whose values
// are read from the file when it is materialized.
// The variable must be laid out as [lat, lon], [lon, lat] or [time, lat, lon],
// where time is one of the configured TimeDimNames.
func (s *Store) OpenGrid(path, variable string) (*domain.Grid, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	latName, latData, err := readFirstCoord(nc, s.config.LatVarNames)
	if err != nil {
		return nil, fmt.Errorf("latitude variable not found (tried: %v): %w", s.config.LatVarNames, err)
	}
	lonName, lonData, err := readFirstCoord(nc, s.config.LonVarNames)
	if err != nil {
		return nil, fmt.Errorf("longitude variable not found (tried: %v): %w", s.config.LonVarNames, err)
	}

	v, err := nc.Var(variable)
	if err != nil {
		return nil, fmt.Errorf("data variable %q not found: %w", variable, err)
	}
	dimNames, dimLens, err := varDims(v)
	if err != nil {
		return nil, err
	}

	src := &varSource{path: path, variable: variable, nTime: 1, nLat: len(latData), nLon: len(lonData)}
	var timeAxis *domain.Axis

	switch {
	case len(dimNames) == 2 && dimLens[0] == len(latData) && dimLens[1] == len(lonData):
	case len(dimNames) == 2 && dimLens[0] == len(lonData) && dimLens[1] == len(latData):
		// Data is [lon, lat] - transposed on load.
		src.transpose = true
	case len(dimNames) == 3 && dimLens[1] == len(latData) && dimLens[2] == len(lonData):
		if !slices.Contains(s.config.TimeDimNames, dimNames[0]) {
			return nil, fmt.Errorf("%q: leading dimension %q is not a time axis (expected one of %v)",
				variable, dimNames[0], s.config.TimeDimNames)
		}
		timeAxis, err = readTimeAxis(nc, dimNames[0], dimLens[0])
		if err != nil {
			return nil, err
		}
		src.nTime = dimLens[0]
		src.hasTime = true
	default:
		return nil, fmt.Errorf("dimension mismatch: %q is %v %v, expected [%s, %s] with optional leading time axis",
			variable, dimNames, dimLens, latName, lonName)
	}

	grid, err := domain.NewGrid(variable, src, timeAxis, latData, lonData)
	if err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	return grid, nil
}

// ListVariables lists the variables in path with two or more dimensions.
func (s *Store) ListVariables(path string) ([]VariableInfo, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	n, err := nc.NVars()
	if err != nil {
		return nil, fmt.Errorf("failed to count variables: %w", err)
	}
	var out []VariableInfo
	for i := 0; i < n; i++ {
		v := nc.VarN(i)
		name, err := v.Name()
		if err != nil {
			return nil, fmt.Errorf("failed to get variable name: %w", err)
		}
		dims, lens, err := varDims(v)
		if err != nil {
			return nil, err
		}
		if len(dims) < 2 {
			continue
		}
		out = append(out, VariableInfo{Name: name, Dims: dims, Shape: lens})
	}
	return out, nil
}

// varSource reads hyperslabs of a variable on demand. Each read opens the file.
type varSource struct {
	path      string
	variable  string
	nTime     int
	nLat      int
	nLon      int
	hasTime   bool
	transpose bool // Stored as [lon, lat].
}

// Load reads the whole variable.
func (s *varSource) Load() ([]float64, error) {
	return s.LoadWindow(domain.Window{
		Time: domain.Span{Count: s.nTime},
		Lat:  domain.Span{Count: s.nLat},
		Lon:  domain.Span{Count: s.nLon},
	})
}

// LoadWindow reads w as [time][lat][lon].
func (s *varSource) LoadWindow(w domain.Window) ([]float64, error) {
	nc, err := netcdf.OpenFile(s.path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	v, err := nc.Var(s.variable)
	if err != nil {
		return nil, fmt.Errorf("data variable %q not found: %w", s.variable, err)
	}

	var start, count []uint64
	switch {
	case s.hasTime:
		start, count = hyperslab(w.Time, w.Lat, w.Lon)
	case s.transpose:
		start, count = hyperslab(w.Lon, w.Lat)
	default:
		start, count = hyperslab(w.Lat, w.Lon)
	}
	data, err := readFloat64Slice(v, start, count, w.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	applyPacking(v, data)

	if s.transpose {
		data = transpose(data, w.Lon.Count, w.Lat.Count)
	}
	return data, nil
}

// hyperslab converts spans, outermost dimension first, to NetCDF start and count.
func hyperslab(spans ...domain.Span) (start, count []uint64) {
	start = make([]uint64, len(spans))
	count = make([]uint64, len(spans))
	for i, sp := range spans {
		start[i] = uint64(sp.Start) //nolint:gosec // G115: positions are non-negative.
		count[i] = uint64(sp.Count) //nolint:gosec // G115: counts are non-negative.
	}
	return start, count
}

func readFirstCoord(nc netcdf.Dataset, names []string) (string, []float64, error) {
	lastErr := errors.New("no candidate names")
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := readFloat64Var(v)
		if err != nil {
			lastErr = err
			continue
		}
		return name, data, nil
	}
	return "", nil, lastErr
}

// readTimeAxis reads the coordinate of the leading dimension. A dimension
// without a coordinate variable gets positional labels.
func readTimeAxis(nc netcdf.Dataset, name string, n int) (*domain.Axis, error) {
	axis := &domain.Axis{Name: name}
	if v, err := nc.Var(name); err == nil {
		values, err := readFloat64Var(v)
		if err != nil {
			return nil, fmt.Errorf("failed to read time axis %q: %w", name, err)
		}
		axis.Values = values
		return axis, nil
	}
	axis.Values = make([]float64, n)
	for i := range axis.Values {
		axis.Values[i] = float64(i)
	}
	return axis, nil
}

func varDims(v netcdf.Var) ([]string, []int, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	names := make([]string, len(dims))
	lens := make([]int, len(dims))
	for i, d := range dims {
		if names[i], err = d.Name(); err != nil {
			return nil, nil, fmt.Errorf("failed to get dim%d name: %w", i, err)
		}
		n, err := d.Len()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		lens[i] = int(n) //nolint:gosec // G115: dimension lengths fit in int.
	}
	return names, lens, nil
}

// readFloat64Var reads a 1D variable as float64.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	_, lens, err := varDims(v)
	if err != nil {
		return nil, err
	}
	if len(lens) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(lens))
	}
	data, err := readFloat64s(v, lens[0])
	if err != nil {
		return nil, err
	}
	applyPacking(v, data)
	return data, nil
}

// readFloat64s reads n values of a DOUBLE, FLOAT, INT or SHORT variable as float64.
func readFloat64s(v netcdf.Var, n int) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	out := make([]float64, n)
	switch varType {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64s(out); err != nil {
			return nil, fmt.Errorf("failed to read float64: %w", err)
		}
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if err := v.ReadFloat32s(buf); err != nil {
			return nil, fmt.Errorf("failed to read float32: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.INT:
		buf := make([]int32, n)
		if err := v.ReadInt32s(buf); err != nil {
			return nil, fmt.Errorf("failed to read int32: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		buf := make([]int16, n)
		if err := v.ReadInt16s(buf); err != nil {
			return nil, fmt.Errorf("failed to read int16: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	}
	return out, nil
}

// readFloat64Slice reads the hyperslab at start/count (n values) as float64.
// Supports the same data types as readFloat64s.
func readFloat64Slice(v netcdf.Var, start, count []uint64, n int) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	out := make([]float64, n)
	switch varType {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(out, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64 subset: %w", err)
		}
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if err := v.ReadFloat32Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32 subset: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.INT:
		buf := make([]int32, n)
		if err := v.ReadInt32Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32 subset: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		buf := make([]int16, n)
		if err := v.ReadInt16Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16 subset: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	}
	return out, nil
}

// applyPacking replaces _FillValue with NaN and applies scale_factor and add_offset.
func applyPacking(v netcdf.Var, data []float64) {
	fill, hasFill := readScalarAttr(v.Attr("_FillValue"))
	scale, hasScale := readScalarAttr(v.Attr("scale_factor"))
	offset, hasOffset := readScalarAttr(v.Attr("add_offset"))
	if !hasScale || scale == 0 {
		scale = 1
	}
	if !hasOffset {
		offset = 0
	}
	for i, val := range data {
		if hasFill && val == fill {
			data[i] = math.NaN()
			continue
		}
		data[i] = val*scale + offset
	}
}

func readScalarAttr(a netcdf.Attr) (float64, bool) {
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	t, err := a.Type()
	if err != nil {
		return 0, false
	}
	switch t {
	case netcdf.DOUBLE:
		buf := make([]float64, n)
		if a.ReadFloat64s(buf) == nil {
			return buf[0], true
		}
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if a.ReadFloat32s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.INT:
		buf := make([]int32, n)
		if a.ReadInt32s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.SHORT:
		buf := make([]int16, n)
		if a.ReadInt16s(buf) == nil {
			return float64(buf[0]), true
		}
	}
	return 0, false
}

// transpose turns a row-major [rows][cols] block into [cols][rows].
func transpose(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = data[i*cols+j]
		}
	}
	return out
}
