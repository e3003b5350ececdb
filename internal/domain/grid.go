package domain

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Source supplies the values behind a Grid.
// Values are row-major [time][lat][lon], or [lat][lon] when there is no time axis.
// Load may be deferred I/O; Grid only calls it from Materialize.
type Source interface {
	Load() ([]float64, error)
}

// WindowSource is a Source that can read a hyperslab without loading everything.
// LoadWindow returns w.Size() values, row-major [time][lat][lon] within w.
type WindowSource interface {
	Source
	LoadWindow(w Window) ([]float64, error)
}

// Span is a contiguous run of source positions on one axis.
type Span struct {
	Start int
	Count int
}

// End returns the position one past the span.
func (s Span) End() int {
	return s.Start + s.Count
}

// Window is a hyperslab of a Source in source positions.
// Time is {0, 1} for grids without a time axis.
type Window struct {
	Time Span
	Lat  Span
	Lon  Span
}

// Size returns the number of values in the window.
func (w Window) Size() int {
	return w.Time.Count * w.Lat.Count * w.Lon.Count
}

// SliceSource is an in-memory Source.
type SliceSource []float64

// Load returns the slice itself.
func (s SliceSource) Load() ([]float64, error) {
	return s, nil
}

// Axis is a named one-dimensional coordinate.
type Axis struct {
	Name   string
	Values []float64
}

// LabelRange is a closed coordinate range for select-by-label.
// Start and Stop follow the stored axis order: on a descending axis Start is the larger value.
type LabelRange struct {
	Start float64
	Stop  float64
}

// backing is the source shared by every view derived from the same NewGrid call.
type backing struct {
	src   Source
	nTime int // 1 when the grid has no time axis.
	nLat  int
	nLon  int
}

// view is the selected part of one axis: coordinate labels plus positions in the source.
type view struct {
	values []float64
	idx    []int
}

func newView(values []float64) view {
	v := view{values: append([]float64(nil), values...), idx: make([]int, len(values))}
	for i := range v.idx {
		v.idx[i] = i
	}
	return v
}

func (v view) take(positions []int) view {
	out := view{values: make([]float64, len(positions)), idx: make([]int, len(positions))}
	for k, p := range positions {
		out.values[k] = v.values[p]
		out.idx[k] = v.idx[p]
	}
	return out
}

// Grid is a read-only labeled view over a Source with lat/lon axes and an
// optional time-like axis. Selections return new views and never read data.
type Grid struct {
	Name string

	b          *backing
	timeName   string // Empty when the grid has no time-like axis.
	time       view
	timeScalar bool // Time was reduced by position and is no longer a dimension.
	lat        view
	lon        view
	mask       func(lat, lon float64) bool // Nil keeps every point.
}

// NewGrid creates a grid over src. timeAxis may be nil.
func NewGrid(name string, src Source, timeAxis *Axis, lat, lon []float64) (*Grid, error) {
	if src == nil {
		return nil, fmt.Errorf("grid %q: nil source", name)
	}
	if len(lat) == 0 || len(lon) == 0 {
		return nil, fmt.Errorf("grid %q: lat and lon must not be empty", name)
	}
	if floats.HasNaN(lat) || floats.HasNaN(lon) {
		return nil, fmt.Errorf("grid %q: lat and lon must not contain NaN", name)
	}
	if !isMonotonic(lat) {
		return nil, fmt.Errorf("grid %q: lat coordinates must be strictly monotonic", name)
	}
	if !isMonotonic(lon) {
		return nil, fmt.Errorf("grid %q: lon coordinates must be strictly monotonic", name)
	}

	g := &Grid{
		Name: name,
		b:    &backing{src: src, nTime: 1, nLat: len(lat), nLon: len(lon)},
		lat:  newView(lat),
		lon:  newView(lon),
	}
	if timeAxis != nil {
		if timeAxis.Name == "" || len(timeAxis.Values) == 0 {
			return nil, fmt.Errorf("grid %q: time axis needs a name and at least one value", name)
		}
		g.timeName = timeAxis.Name
		g.time = newView(timeAxis.Values)
		g.b.nTime = len(timeAxis.Values)
	}
	return g, nil
}

// Lat returns the latitude labels of the view.
func (g *Grid) Lat() []float64 {
	return append([]float64(nil), g.lat.values...)
}

// Lon returns the longitude labels of the view.
func (g *Grid) Lon() []float64 {
	return append([]float64(nil), g.lon.values...)
}

// Time returns the time-like axis. ok is false when the grid never had one.
// A reduced (scalar) time axis is returned with its single selected value.
func (g *Grid) Time() (axis Axis, ok bool) {
	if g.timeName == "" {
		return Axis{}, false
	}
	return Axis{Name: g.timeName, Values: append([]float64(nil), g.time.values...)}, true
}

// HasAxis reports whether name is a dimension of the view.
func (g *Grid) HasAxis(name string) bool {
	switch name {
	case "lat", "lon":
		return true
	case "":
		return false
	}
	return name == g.timeName && !g.timeScalar
}

// Dims returns the dimension names in storage order.
func (g *Grid) Dims() []string {
	if g.HasAxis(g.timeName) {
		return []string{g.timeName, "lat", "lon"}
	}
	return []string{"lat", "lon"}
}

// Shape returns the size of each dimension in Dims order.
func (g *Grid) Shape() []int {
	if g.HasAxis(g.timeName) {
		return []int{len(g.time.idx), len(g.lat.idx), len(g.lon.idx)}
	}
	return []int{len(g.lat.idx), len(g.lon.idx)}
}

// Size returns the number of points in the view.
func (g *Grid) Size() int {
	n := 1
	for _, d := range g.Shape() {
		n *= d
	}
	return n
}

// Empty reports whether any dimension has zero length.
func (g *Grid) Empty() bool {
	return g.Size() == 0
}

// LatAscending reports whether the stored latitude runs south to north,
// judged from the first and last labels.
func (g *Grid) LatAscending() bool {
	return isAscending(g.lat.values)
}

func (g *Grid) clone() *Grid {
	c := *g
	return &c
}

// SelectLabels selects closed label ranges on lat and lon. A nil range keeps the axis.
func (g *Grid) SelectLabels(lat, lon *LabelRange) *Grid {
	out := g.clone()
	if lat != nil {
		out.lat = g.lat.take(sliceIndices(g.lat.values, lat.Start, lat.Stop))
	}
	if lon != nil {
		out.lon = g.lon.take(sliceIndices(g.lon.values, lon.Start, lon.Stop))
	}
	return out
}

// Where keeps the rows and columns holding at least one point for which pred is true.
// Points inside kept rows and columns that fail pred read back as NaN.
func (g *Grid) Where(pred func(lat, lon float64) bool) *Grid {
	keepLat := make([]bool, len(g.lat.values))
	keepLon := make([]bool, len(g.lon.values))
	for i, la := range g.lat.values {
		for j, lo := range g.lon.values {
			if pred(la, lo) {
				keepLat[i] = true
				keepLon[j] = true
			}
		}
	}

	out := g.clone()
	out.lat = g.lat.take(positionsOf(keepLat))
	out.lon = g.lon.take(positionsOf(keepLon))
	if prev := g.mask; prev != nil {
		out.mask = func(la, lo float64) bool { return prev(la, lo) && pred(la, lo) }
	} else {
		out.mask = pred
	}
	return out
}

// SelectTime reduces the named time-like axis to a single position.
// Negative indices count from the end. The axis stays as a scalar coordinate.
func (g *Grid) SelectTime(name string, index int) (*Grid, error) {
	if !g.HasAxis(name) || name == "lat" || name == "lon" {
		return nil, fmt.Errorf("%w: %q", ErrAxisNotFound, name)
	}
	n := len(g.time.idx)
	pos := index
	if pos < 0 {
		pos += n
	}
	if pos < 0 || pos >= n {
		return nil, fmt.Errorf("%w: index %d on %q of length %d", ErrTimeIndexOutOfRange, index, name, n)
	}
	out := g.clone()
	out.time = g.time.take([]int{pos})
	out.timeScalar = true
	return out, nil
}

// relabelLon reorders the longitude axis and gives it new labels.
// perm[k] is the current position placed at k and labels[k] its new label.
func (g *Grid) relabelLon(labels []float64, perm []int) *Grid {
	out := g.clone()
	out.lon = g.lon.take(perm)
	copy(out.lon.values, labels)
	return out
}

// ConcatLon joins two views of the same grid along longitude, a first.
func ConcatLon(a, b *Grid) (*Grid, error) {
	if a.b != b.b {
		return nil, fmt.Errorf("concat lon: grids %q and %q have different sources", a.Name, b.Name)
	}
	if !slices.Equal(a.lat.idx, b.lat.idx) || !slices.Equal(a.time.idx, b.time.idx) || a.timeScalar != b.timeScalar {
		return nil, fmt.Errorf("concat lon: grids differ outside the lon axis")
	}
	out := a.clone()
	out.lon = view{
		values: append(append([]float64(nil), a.lon.values...), b.lon.values...),
		idx:    append(append([]int(nil), a.lon.idx...), b.lon.idx...),
	}
	return out, nil
}

// Materialize reads the view's values in Shape order. Only the hyperslabs
// covering the selection are requested from a WindowSource, one per contiguous
// run of source longitudes.
func (g *Grid) Materialize() ([]float64, error) {
	times := []int{0}
	if g.timeName != "" {
		times = g.time.idx
	}
	out := make([]float64, 0, len(times)*len(g.lat.idx)*len(g.lon.idx))
	if g.Empty() {
		return out, nil
	}

	timeSpan := coverSpan(times)
	latSpan := coverSpan(g.lat.idx)
	runs := lonRuns(g.lon.idx)
	load := g.windowLoader()
	blocks := make([][]float64, len(runs))
	for r, run := range runs {
		w := Window{Time: timeSpan, Lat: latSpan, Lon: run}
		data, err := load(w)
		if err != nil {
			return nil, fmt.Errorf("failed to load %q: %w", g.Name, err)
		}
		if len(data) != w.Size() {
			return nil, fmt.Errorf("source for %q returned %d values for window %+v, expected %d",
				g.Name, len(data), w, w.Size())
		}
		blocks[r] = data
	}

	// Block and offset of each selected column.
	colRun := make([]int, len(g.lon.idx))
	colOff := make([]int, len(g.lon.idx))
	for j, lj := range g.lon.idx {
		r := sort.Search(len(runs), func(k int) bool { return runs[k].End() > lj })
		colRun[j], colOff[j] = r, lj-runs[r].Start
	}

	for _, t := range times {
		for i, li := range g.lat.idx {
			row := (t-timeSpan.Start)*latSpan.Count + li - latSpan.Start
			for j := range g.lon.idx {
				if g.mask != nil && !g.mask(g.lat.values[i], g.lon.values[j]) {
					out = append(out, math.NaN())
					continue
				}
				r := colRun[j]
				out = append(out, blocks[r][row*runs[r].Count+colOff[j]])
			}
		}
	}
	return out, nil
}

// windowLoader reads windows through LoadWindow when the source supports it.
// Otherwise the whole source is loaded once and windows are cut from it.
func (g *Grid) windowLoader() func(Window) ([]float64, error) {
	if ws, ok := g.b.src.(WindowSource); ok {
		return ws.LoadWindow
	}
	var full []float64
	return func(w Window) ([]float64, error) {
		if full == nil {
			data, err := g.b.src.Load()
			if err != nil {
				return nil, err
			}
			if want := g.b.nTime * g.b.nLat * g.b.nLon; len(data) != want {
				return nil, fmt.Errorf("source has %d values, expected %d", len(data), want)
			}
			full = data
		}
		return cutWindow(full, w, g.b.nLat, g.b.nLon), nil
	}
}

func cutWindow(data []float64, w Window, nLat, nLon int) []float64 {
	out := make([]float64, 0, w.Size())
	for t := w.Time.Start; t < w.Time.End(); t++ {
		for i := w.Lat.Start; i < w.Lat.End(); i++ {
			row := (t*nLat + i) * nLon
			out = append(out, data[row+w.Lon.Start:row+w.Lon.End()]...)
		}
	}
	return out
}

// coverSpan returns the smallest span holding every position in idx.
func coverSpan(idx []int) Span {
	lo, hi := slices.Min(idx), slices.Max(idx)
	return Span{Start: lo, Count: hi - lo + 1}
}

// lonRuns splits the distinct positions in idx into ascending contiguous spans.
func lonRuns(idx []int) []Span {
	sorted := slices.Compact(slices.Sorted(slices.Values(idx)))
	var runs []Span
	for _, p := range sorted {
		if n := len(runs); n > 0 && runs[n-1].End() == p {
			runs[n-1].Count++
			continue
		}
		runs = append(runs, Span{Start: p, Count: 1})
	}
	return runs
}

// sliceIndices returns the positions of values inside the closed range [start, stop]
// read in stored order. A range against the stored order matches nothing.
func sliceIndices(values []float64, start, stop float64) []int {
	var out []int
	asc := isAscending(values)
	for i, v := range values {
		if asc && v >= start && v <= stop || !asc && v <= start && v >= stop {
			out = append(out, i)
		}
	}
	return out
}

func isAscending(values []float64) bool {
	return len(values) < 2 || values[0] < values[len(values)-1]
}

func isMonotonic(values []float64) bool {
	asc := isAscending(values)
	for i := 1; i < len(values); i++ {
		if asc && values[i] <= values[i-1] || !asc && values[i] >= values[i-1] {
			return false
		}
	}
	return true
}

func positionsOf(keep []bool) []int {
	var out []int
	for i, k := range keep {
		if k {
			out = append(out, i)
		}
	}
	return out
}
