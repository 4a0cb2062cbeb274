package raster

import (
	"fmt"
	"math"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

// Exposure classes of the preliminary risk map.
const (
	ClassOpen   = 1 // below q30: open sky
	ClassStreet = 2 // q30..q70: ordinary street canyon
	ClassAlley  = 3 // above q70: narrow or enclosed
)

// ClassLabel names a class for reports.
func ClassLabel(class int) string {
	switch class {
	case ClassOpen:
		return "open"
	case ClassStreet:
		return "street"
	case ClassAlley:
		return "alley"
	default:
		return "nodata"
	}
}

// Classify maps a risk-proxy grid to the 3-class exposure map using the
// q30/q70 thresholds. Nodata cells stay 0.
func Classify(risk *Grid, q30, q70 float64) *Grid {
	out := risk.emptyLike()
	for i, v := range risk.Values {
		switch {
		case v == 0 || math.IsNaN(v):
			// nodata
		case v < q30:
			out.Values[i] = ClassOpen
		case v < q70:
			out.Values[i] = ClassStreet
		default:
			out.Values[i] = ClassAlley
		}
	}
	return out
}

// ClassStats summarizes one exposure class over the AOI.
type ClassStats struct {
	Class  int
	Label  string
	Pixels int
	AreaM2 float64
	Share  float64
}

// AOIStats reports pixel counts, areas and shares per class.
func AOIStats(classGrid *Grid) []ClassStats {
	counts := map[int]int{}
	total := 0
	for _, v := range classGrid.Values {
		c := int(v)
		if c == 0 {
			continue
		}
		counts[c]++
		total++
	}

	areaPerPixel := classGrid.CellSize * classGrid.CellSize
	var out []ClassStats
	for _, class := range []int{ClassOpen, ClassStreet, ClassAlley} {
		n := counts[class]
		s := ClassStats{
			Class:  class,
			Label:  ClassLabel(class),
			Pixels: n,
			AreaM2: float64(n) * areaPerPixel,
		}
		if total > 0 {
			s.Share = float64(n) / float64(total)
		}
		out = append(out, s)
	}
	return out
}

// SelectSites picks up to perClass candidate cells per exposure class,
// spaced at least minSeparation metres apart, and emits site definitions
// with sequential IDs. Selection walks cells row-major so repeated runs
// over the same rasters pick the same sites.
func SelectSites(classGrid *Grid, perClass int, minSeparationM float64) []site.Definition {
	type picked struct{ x, y float64 }
	var accepted []picked
	var defs []site.Definition

	farEnough := func(x, y float64) bool {
		for _, p := range accepted {
			if math.Hypot(p.x-x, p.y-y) < minSeparationM {
				return false
			}
		}
		return true
	}

	next := 1
	for _, class := range []int{ClassOpen, ClassStreet, ClassAlley} {
		taken := 0
		for r := 0; r < classGrid.Rows && taken < perClass; r++ {
			for c := 0; c < classGrid.Cols && taken < perClass; c++ {
				if int(classGrid.At(c, r)) != class {
					continue
				}
				x, y := classGrid.CellCenter(c, r)
				if !farEnough(x, y) {
					continue
				}
				accepted = append(accepted, picked{x, y})
				defs = append(defs, site.Definition{
					SiteID:  fmt.Sprintf("A%02d", next),
					Class:   ClassLabel(class),
					CenterX: x,
					CenterY: y,
				})
				next++
				taken++
			}
		}
		if taken < perClass {
			glog.Warningf("class %s: wanted %d sites, found %d", ClassLabel(class), perClass, taken)
		}
	}
	return defs
}
