// Package raster implements the preliminary risk phase: building heights
// burned onto an AOI grid, a focal-maximum neighborhood pass, normalized
// risk / sky-view proxies, quantile classification and the stratified
// site selection. Cell value 0 is nodata throughout, matching the
// original GIS products.
package raster

import (
	"fmt"
	"math"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/layer"
	"github.com/0319-2004/PacificPNT-Reproducible/stat"
)

// Extent is an axis-aligned AOI in plane rectangular metres.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the AOI width in metres.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns the AOI height in metres.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }

// Grid is a single-band float raster. Row 0 is the southernmost row;
// values are stored row-major.
type Grid struct {
	Extent   Extent
	CellSize float64
	Cols     int
	Rows     int
	Values   []float64
}

// NewGrid allocates a zeroed grid covering the extent.
func NewGrid(e Extent, cellSize float64) *Grid {
	cols := int(math.Ceil(e.Width() / cellSize))
	rows := int(math.Ceil(e.Height() / cellSize))
	return &Grid{
		Extent:   e,
		CellSize: cellSize,
		Cols:     cols,
		Rows:     rows,
		Values:   make([]float64, cols*rows),
	}
}

// emptyLike returns a zeroed grid with the same shape.
func (g *Grid) emptyLike() *Grid {
	return &Grid{
		Extent:   g.Extent,
		CellSize: g.CellSize,
		Cols:     g.Cols,
		Rows:     g.Rows,
		Values:   make([]float64, len(g.Values)),
	}
}

// At returns the cell value at column c, row r.
func (g *Grid) At(c, r int) float64 { return g.Values[r*g.Cols+c] }

// Set assigns the cell value at column c, row r.
func (g *Grid) Set(c, r int, v float64) { g.Values[r*g.Cols+c] = v }

// CellCenter returns the metre coordinates of the cell center.
func (g *Grid) CellCenter(c, r int) (x, y float64) {
	return g.Extent.MinX + (float64(c)+0.5)*g.CellSize,
		g.Extent.MinY + (float64(r)+0.5)*g.CellSize
}

// CellIndex returns the cell holding the metre coordinates, or
// ok=false when the point falls outside the extent.
func (g *Grid) CellIndex(x, y float64) (c, r int, ok bool) {
	c = int(math.Floor((x - g.Extent.MinX) / g.CellSize))
	r = int(math.Floor((y - g.Extent.MinY) / g.CellSize))
	if c < 0 || c >= g.Cols || r < 0 || r >= g.Rows {
		return 0, 0, false
	}
	return c, r, true
}

// ValidValues returns all non-nodata (non-zero) cell values.
func (g *Grid) ValidValues() []float64 {
	var out []float64
	for _, v := range g.Values {
		if v != 0 && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// RasterizeHeights burns footprint heights onto the grid: each cell whose
// center lies inside a footprint takes the maximum covering height.
// Footprints without a measured height burn with defaultHeight.
func RasterizeHeights(l *layer.Layer, e Extent, cellSize, defaultHeight float64) *Grid {
	g := NewGrid(e, cellSize)
	for _, f := range l.Footprints {
		h := defaultHeight
		if f.HasHeight {
			h = f.HeightM
		}
		if h <= 0 {
			continue
		}
		for _, pg := range f.Polygons {
			burnPolygon(g, pg, h)
		}
	}
	glog.Infof("rasterized %d footprints at %.1fm: %d x %d cells", l.Len(), cellSize, g.Cols, g.Rows)
	return g
}

func burnPolygon(g *Grid, pg layer.Polygon, h float64) {
	min, max := boundsOf(pg)
	c0 := clamp(int(math.Floor((min.X-g.Extent.MinX)/g.CellSize)), 0, g.Cols-1)
	c1 := clamp(int(math.Ceil((max.X-g.Extent.MinX)/g.CellSize)), 0, g.Cols-1)
	r0 := clamp(int(math.Floor((min.Y-g.Extent.MinY)/g.CellSize)), 0, g.Rows-1)
	r1 := clamp(int(math.Ceil((max.Y-g.Extent.MinY)/g.CellSize)), 0, g.Rows-1)

	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			x, y := g.CellCenter(c, r)
			if pg.Contains(layer.Point2{X: x, Y: y}) && h > g.At(c, r) {
				g.Set(c, r, h)
			}
		}
	}
}

func boundsOf(pg layer.Polygon) (min, max layer.Point2) {
	min = layer.Point2{X: math.Inf(1), Y: math.Inf(1)}
	max = layer.Point2{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, v := range pg.Outer {
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
	}
	return min, max
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FocalMax returns a grid where each cell holds the maximum value within
// a square kernel approximating the given radius. Kernel half-width is
// round(radius/cell), floored at one cell.
func (g *Grid) FocalMax(radiusM float64) *Grid {
	k := int(math.Round(radiusM / g.CellSize))
	if k < 1 {
		k = 1
	}
	out := g.emptyLike()
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			max := 0.0
			for dr := -k; dr <= k; dr++ {
				rr := r + dr
				if rr < 0 || rr >= g.Rows {
					continue
				}
				for dc := -k; dc <= k; dc++ {
					cc := c + dc
					if cc < 0 || cc >= g.Cols {
						continue
					}
					if v := g.At(cc, rr); v > max {
						max = v
					}
				}
			}
			out.Set(c, r, max)
		}
	}
	return out
}

// GlobalMax returns the maximum cell value.
func (g *Grid) GlobalMax() float64 {
	max := 0.0
	for _, v := range g.Values {
		if v > max {
			max = v
		}
	}
	return max
}

// RiskProxy normalizes a local-maximum height grid by its global maximum
// into [0, 1]. It fails when the grid holds no height at all.
func RiskProxy(localMax *Grid) (*Grid, error) {
	globalMax := localMax.GlobalMax()
	if globalMax <= 0 {
		return nil, fmt.Errorf("raster: global maximum height is %.3f, nothing to normalize", globalMax)
	}
	out := localMax.emptyLike()
	for i, v := range localMax.Values {
		out.Values[i] = v / globalMax
	}
	return out, nil
}

// SVFProxy returns 1 - risk for valid cells, keeping nodata at 0.
func SVFProxy(risk *Grid) *Grid {
	out := risk.emptyLike()
	for i, v := range risk.Values {
		if v != 0 {
			out.Values[i] = 1 - v
		}
	}
	return out
}

// Thresholds returns the interpolated q30/q70 quantiles of valid cells.
func Thresholds(risk *Grid) (q30, q70 float64, err error) {
	values := risk.ValidValues()
	if len(values) == 0 {
		return 0, 0, fmt.Errorf("raster: no valid cells, cannot derive thresholds")
	}
	qs := stat.Quantiles(values, 0.30, 0.70)
	return qs[0], qs[1], nil
}
