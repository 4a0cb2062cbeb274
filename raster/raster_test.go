package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0319-2004/PacificPNT-Reproducible/layer"
)

func square(minX, minY, side float64) layer.Polygon {
	return layer.Polygon{Outer: layer.Ring{
		{X: minX, Y: minY},
		{X: minX + side, Y: minY},
		{X: minX + side, Y: minY + side},
		{X: minX, Y: minY + side},
	}}
}

var testExtent = Extent{MinX: 0, MinY: 0, MaxX: 30, MaxY: 30}

func TestNewGridShape(t *testing.T) {
	g := NewGrid(Extent{MinX: 0, MinY: 0, MaxX: 30, MaxY: 15}, 3)
	assert.Equal(t, 10, g.Cols)
	assert.Equal(t, 5, g.Rows)
	assert.Len(t, g.Values, 50)
}

func TestCellCenterIndexRoundtrip(t *testing.T) {
	g := NewGrid(testExtent, 3)
	x, y := g.CellCenter(2, 4)
	assert.Equal(t, 7.5, x)
	assert.Equal(t, 13.5, y)

	c, r, ok := g.CellIndex(x, y)
	require.True(t, ok)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4, r)

	_, _, ok = g.CellIndex(-1, 5)
	assert.False(t, ok)
	_, _, ok = g.CellIndex(5, 31)
	assert.False(t, ok)
}

func TestRasterizeHeights(t *testing.T) {
	l, err := layer.New("buildings", []*layer.Footprint{
		{Polygons: []layer.Polygon{square(3, 3, 6)}, HeightM: 12, HasHeight: true},
		// Overlaps the first footprint; the taller height wins.
		{Polygons: []layer.Polygon{square(3, 3, 3)}, HeightM: 20, HasHeight: true},
		// No measured height: burns with the default.
		{Polygons: []layer.Polygon{square(21, 21, 3)}},
	})
	require.NoError(t, err)

	g := RasterizeHeights(l, testExtent, 3, 15)
	assert.Equal(t, 20.0, g.At(1, 1))
	assert.Equal(t, 12.0, g.At(2, 2))
	assert.Equal(t, 15.0, g.At(7, 7))
	assert.Equal(t, 0.0, g.At(0, 0))
	assert.Equal(t, 0.0, g.At(5, 5))
}

func TestFocalMax(t *testing.T) {
	g := NewGrid(testExtent, 3)
	g.Set(5, 5, 9)

	// 3 m radius on a 3 m grid is a one-cell kernel.
	out := g.FocalMax(3)
	assert.Equal(t, 9.0, out.At(5, 5))
	assert.Equal(t, 9.0, out.At(4, 4))
	assert.Equal(t, 9.0, out.At(6, 5))
	assert.Equal(t, 0.0, out.At(3, 5))

	// The input grid is untouched.
	assert.Equal(t, 0.0, g.At(4, 4))
}

func TestRiskProxy(t *testing.T) {
	g := NewGrid(testExtent, 3)
	g.Set(0, 0, 10)
	g.Set(1, 0, 25)

	risk, err := RiskProxy(g)
	require.NoError(t, err)
	assert.Equal(t, 0.4, risk.At(0, 0))
	assert.Equal(t, 1.0, risk.At(1, 0))
	assert.Equal(t, 0.0, risk.At(2, 0))

	_, err = RiskProxy(NewGrid(testExtent, 3))
	assert.Error(t, err)
}

func TestSVFProxy(t *testing.T) {
	g := NewGrid(testExtent, 3)
	g.Set(0, 0, 0.4)

	svf := SVFProxy(g)
	assert.InDelta(t, 0.6, svf.At(0, 0), 1e-12)
	// Nodata stays nodata instead of becoming 1.
	assert.Equal(t, 0.0, svf.At(1, 0))
}

func TestThresholds(t *testing.T) {
	g := NewGrid(testExtent, 3)
	for i, v := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		g.Set(i, 0, v)
	}
	q30, q70, err := Thresholds(g)
	require.NoError(t, err)
	assert.InDelta(t, 0.22, q30, 1e-12)
	assert.InDelta(t, 0.38, q70, 1e-12)

	_, _, err = Thresholds(NewGrid(testExtent, 3))
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	g := NewGrid(testExtent, 3)
	g.Set(0, 0, 0.1)
	g.Set(1, 0, 0.5)
	g.Set(2, 0, 0.9)
	g.Set(3, 0, 0.3) // exactly q30
	g.Set(4, 0, 0.7) // exactly q70

	classes := Classify(g, 0.3, 0.7)
	assert.Equal(t, float64(ClassOpen), classes.At(0, 0))
	assert.Equal(t, float64(ClassStreet), classes.At(1, 0))
	assert.Equal(t, float64(ClassAlley), classes.At(2, 0))
	assert.Equal(t, float64(ClassStreet), classes.At(3, 0))
	assert.Equal(t, float64(ClassAlley), classes.At(4, 0))
	assert.Equal(t, 0.0, classes.At(5, 0))
}

func TestAOIStats(t *testing.T) {
	g := NewGrid(testExtent, 3)
	g.Set(0, 0, ClassOpen)
	g.Set(1, 0, ClassOpen)
	g.Set(2, 0, ClassStreet)
	g.Set(3, 0, ClassAlley)

	stats := AOIStats(g)
	require.Len(t, stats, 3)
	assert.Equal(t, "open", stats[0].Label)
	assert.Equal(t, 2, stats[0].Pixels)
	assert.Equal(t, 18.0, stats[0].AreaM2)
	assert.InDelta(t, 0.5, stats[0].Share, 1e-12)
	assert.Equal(t, 1, stats[1].Pixels)
	assert.Equal(t, 1, stats[2].Pixels)
}

func TestSelectSites(t *testing.T) {
	g := NewGrid(testExtent, 3)
	// Open cells: two adjacent (too close together) and one far away.
	g.Set(0, 0, ClassOpen)
	g.Set(1, 0, ClassOpen)
	g.Set(4, 0, ClassOpen)
	// Street cells well apart.
	g.Set(0, 5, ClassStreet)
	g.Set(9, 9, ClassStreet)
	// A single alley cell.
	g.Set(5, 5, ClassAlley)

	defs := SelectSites(g, 2, 5)
	require.Len(t, defs, 5)

	assert.Equal(t, "A01", defs[0].SiteID)
	assert.Equal(t, "open", defs[0].Class)
	// The adjacent open cell 3 m away is skipped for the far one.
	assert.Equal(t, 13.5, defs[1].CenterX)
	assert.Equal(t, "street", defs[2].Class)
	assert.Equal(t, "alley", defs[4].Class)
	assert.Equal(t, "A05", defs[4].SiteID)

	// Every pair respects the separation.
	for i := range defs {
		for j := i + 1; j < len(defs); j++ {
			d := math.Hypot(defs[i].CenterX-defs[j].CenterX, defs[i].CenterY-defs[j].CenterY)
			assert.GreaterOrEqual(t, d, 5.0, "%s vs %s", defs[i].SiteID, defs[j].SiteID)
		}
	}

	// Row-major selection is deterministic.
	again := SelectSites(g, 2, 5)
	assert.Equal(t, defs, again)
}
