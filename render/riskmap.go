package render

import (
	"image"
	"image/draw"
	"math"

	"github.com/0319-2004/PacificPNT-Reproducible/raster"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

// RiskMapOptions controls the spatial risk figure.
type RiskMapOptions struct {
	// PixelsPerCell scales one grid cell to a square of pixels.
	PixelsPerCell int
	// HighlightSite gets a green ring instead of the regular marker.
	HighlightSite string
	// MarkerRadius is the site marker radius in pixels.
	MarkerRadius int
}

func (o *RiskMapOptions) defaults() {
	if o.PixelsPerCell == 0 {
		o.PixelsPerCell = 2
	}
	if o.MarkerRadius == 0 {
		o.MarkerRadius = 4
	}
}

// RenderRiskMap paints the risk grid with the blue-to-red gradient and
// overlays the measurement sites. Grid row zero is the southernmost
// row, so rows are flipped into image space.
func RenderRiskMap(grid *raster.Grid, sites []site.RiskScores, path string, opts RiskMapOptions) error {
	opts.defaults()
	ppc := opts.PixelsPerCell

	width := grid.Cols * ppc
	height := grid.Rows * ppc
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)

	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			v := grid.At(col, row)
			col8 := nodataColor
			if v != 0 && !math.IsNaN(v) {
				col8 = riskColor(v)
			}
			py := (grid.Rows - 1 - row) * ppc
			px := col * ppc
			for dy := 0; dy < ppc; dy++ {
				for dx := 0; dx < ppc; dx++ {
					img.SetRGBA(px+dx, py+dy, col8)
				}
			}
		}
	}

	c := &canvas{img: img, x0: 0, y0: 0, x1: width, y1: height}
	for i := range sites {
		s := &sites[i]
		col, row, ok := grid.CellIndex(s.CenterX, s.CenterY)
		if !ok {
			continue
		}
		px := col*ppc + ppc/2
		py := (grid.Rows-1-row)*ppc + ppc/2
		if s.SiteID == opts.HighlightSite {
			c.circle(px, py, opts.MarkerRadius+3, highlightColor, false)
			c.circle(px, py, opts.MarkerRadius+4, highlightColor, false)
		} else {
			c.circle(px, py, opts.MarkerRadius, axisColor, true)
		}
		c.label(px+opts.MarkerRadius+3, py+4, s.SiteID, axisColor)
	}

	return WriteImage(path, img)
}

// RenderSiteScoreMap draws the sites as markers colored by a per-site
// score over a footprint backdrop: cells holding any burned height are
// shaded gray for context, the markers use the risk gradient.
func RenderSiteScoreMap(grid *raster.Grid, sites []site.RiskScores, score func(*site.RiskScores) float64, path string, opts RiskMapOptions) error {
	opts.defaults()
	ppc := opts.PixelsPerCell

	width := grid.Cols * ppc
	height := grid.Rows * ppc
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)

	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			v := grid.At(col, row)
			if v == 0 || math.IsNaN(v) {
				continue
			}
			py := (grid.Rows - 1 - row) * ppc
			px := col * ppc
			for dy := 0; dy < ppc; dy++ {
				for dx := 0; dx < ppc; dx++ {
					img.SetRGBA(px+dx, py+dy, nodataColor)
				}
			}
		}
	}

	c := &canvas{img: img, x0: 0, y0: 0, x1: width, y1: height}
	for i := range sites {
		s := &sites[i]
		col, row, ok := grid.CellIndex(s.CenterX, s.CenterY)
		if !ok {
			continue
		}
		px := col*ppc + ppc/2
		py := (grid.Rows-1-row)*ppc + ppc/2
		c.circle(px, py, opts.MarkerRadius, riskColor(score(s)), true)
		c.circle(px, py, opts.MarkerRadius, axisColor, false)
		if s.SiteID == opts.HighlightSite {
			c.circle(px, py, opts.MarkerRadius+3, highlightColor, false)
			c.circle(px, py, opts.MarkerRadius+4, highlightColor, false)
		}
		c.label(px+opts.MarkerRadius+3, py+4, s.SiteID, axisColor)
	}

	return WriteImage(path, img)
}
