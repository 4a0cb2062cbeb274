// Package layer loads city-model footprint layers (buildings, viaducts)
// from GeoJSON and indexes them in an R-tree for radius queries. Heights
// come from the PLATEAU attribute set where present.
package layer

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/dhconnelly/rtreego"
	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/geodesy"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
)

// Height attribute candidates, in pickup order.
var heightProperties = []string{"measuredHeight", "bldg_measuredHeight", "height", "z"}

// Footprint is one obstacle footprint with an optional measured height.
type Footprint struct {
	Polygons  []Polygon
	HeightM   float64
	HasHeight bool

	rect *rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (f *Footprint) Bounds() *rtreego.Rect { return f.rect }

// Distance returns the planar distance from (x, y) to the footprint,
// 0 when the point lies inside any of its polygons.
func (f *Footprint) Distance(x, y float64) float64 {
	p := Point2{x, y}
	min := math.Inf(1)
	for _, pg := range f.Polygons {
		if d := pg.Distance(p); d < min {
			min = d
			if min == 0 {
				break
			}
		}
	}
	return min
}

// Layer is an indexed footprint collection.
type Layer struct {
	Name       string
	Footprints []*Footprint

	tree *rtreego.Rtree
}

// New builds an indexed layer from footprints.
func New(name string, footprints []*Footprint) (*Layer, error) {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for i, f := range footprints {
		if len(f.Polygons) == 0 {
			continue
		}
		min := Point2{math.Inf(1), math.Inf(1)}
		max := Point2{math.Inf(-1), math.Inf(-1)}
		for _, pg := range f.Polygons {
			lo, hi := pg.bbox()
			if lo.X < min.X {
				min.X = lo.X
			}
			if lo.Y < min.Y {
				min.Y = lo.Y
			}
			if hi.X > max.X {
				max.X = hi.X
			}
			if hi.Y > max.Y {
				max.Y = hi.Y
			}
		}
		rect, err := rtreego.NewRect(
			rtreego.Point{min.X, min.Y},
			[]float64{sideLength(max.X - min.X), sideLength(max.Y - min.Y)},
		)
		if err != nil {
			return nil, fmt.Errorf("layer %s: footprint %d: %w", name, i, err)
		}
		f.rect = rect
		tree.Insert(f)
	}
	return &Layer{Name: name, Footprints: footprints, tree: tree}, nil
}

// sideLength floors bounding-box side lengths so degenerate footprints
// (vertical walls, point-like geometry) still produce a valid rectangle.
func sideLength(d float64) float64 {
	const minSide = 0.01
	if d < minSide {
		return minSide
	}
	return d
}

// Len returns the number of footprints in the layer.
func (l *Layer) Len() int { return len(l.Footprints) }

// Bounds returns the bounding box of all footprints in metres.
func (l *Layer) Bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, f := range l.Footprints {
		for _, pg := range f.Polygons {
			for _, v := range pg.Outer {
				minX = math.Min(minX, v.X)
				minY = math.Min(minY, v.Y)
				maxX = math.Max(maxX, v.X)
				maxY = math.Max(maxY, v.Y)
			}
		}
	}
	return minX, minY, maxX, maxY
}

// Within returns footprints whose true distance from (x, y) is at most
// radius metres. The R-tree bounding-box query prefilters candidates and
// the exact polygon distance refines them.
func (l *Layer) Within(x, y, radius float64) []*Footprint {
	bounds, err := rtreego.NewRect(
		rtreego.Point{x - radius, y - radius},
		[]float64{2 * radius, 2 * radius},
	)
	if err != nil {
		return nil
	}
	var hits []*Footprint
	for _, item := range l.tree.SearchIntersect(bounds) {
		f := item.(*Footprint)
		if f.Distance(x, y) <= radius {
			hits = append(hits, f)
		}
	}
	return hits
}

// IntersectsBuffer reports whether any footprint comes within buffer
// metres of (x, y). A site directly under a footprint has distance 0.
func (l *Layer) IntersectsBuffer(x, y, buffer float64) bool {
	return len(l.Within(x, y, buffer)) > 0
}

// geojson decoding structures. Only the members the pipeline consumes are
// mapped; geometry coordinates stay raw until the type is known.
type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   geoJSONGeometry        `json:"geometry"`
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadGeoJSON reads a FeatureCollection of Polygon/MultiPolygon features.
// Coordinates in geographic degrees are projected to plane rectangular
// metres with proj; coordinates already in metres are kept as-is. The
// distinction is made per feature from the coordinate magnitudes.
func LoadGeoJSON(path, name string, proj *geodesy.PlaneRectangular) (*Layer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}
	var coll geoJSONCollection
	if err := json.Unmarshal(raw, &coll); err != nil {
		return nil, fmt.Errorf("layer %s: decoding %q: %w", name, path, err)
	}
	if coll.Type != "FeatureCollection" {
		return nil, fmt.Errorf("layer %s: %q is not a FeatureCollection", name, path)
	}

	var footprints []*Footprint
	skipped := 0
	for _, feat := range coll.Features {
		polys, err := decodePolygons(feat.Geometry)
		if err != nil {
			skipped++
			continue
		}
		if proj != nil {
			for pi := range polys {
				projectPolygon(&polys[pi], proj)
			}
		}
		f := &Footprint{Polygons: polys}
		if h, ok := pickHeight(feat.Properties); ok {
			f.HeightM = h
			f.HasHeight = true
		}
		footprints = append(footprints, f)
	}
	if skipped > 0 {
		glog.Warningf("layer %s: skipped %d features with unsupported geometry", name, skipped)
	}
	glog.Infof("layer %s: loaded %d footprints from %s", name, len(footprints), path)
	return New(name, footprints)
}

func decodePolygons(g geoJSONGeometry) ([]Polygon, error) {
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, err
		}
		p, err := buildPolygon(rings)
		if err != nil {
			return nil, err
		}
		return []Polygon{p}, nil
	case "MultiPolygon":
		var multi [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &multi); err != nil {
			return nil, err
		}
		var polys []Polygon
		for _, rings := range multi {
			p, err := buildPolygon(rings)
			if err != nil {
				return nil, err
			}
			polys = append(polys, p)
		}
		return polys, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func buildPolygon(rings [][][]float64) (Polygon, error) {
	if len(rings) == 0 {
		return Polygon{}, fmt.Errorf("polygon without rings")
	}
	toRing := func(coords [][]float64) (Ring, error) {
		r := make(Ring, 0, len(coords))
		for _, c := range coords {
			if len(c) < 2 {
				return nil, fmt.Errorf("coordinate with %d members", len(c))
			}
			r = append(r, Point2{X: c[0], Y: c[1]})
		}
		return r, nil
	}
	outer, err := toRing(rings[0])
	if err != nil {
		return Polygon{}, err
	}
	p := Polygon{Outer: outer}
	for _, hole := range rings[1:] {
		h, err := toRing(hole)
		if err != nil {
			return Polygon{}, err
		}
		p.Holes = append(p.Holes, h)
	}
	return p, nil
}

// projectPolygon converts geographic rings to plane rectangular metres.
// Vertices already outside the degree range are left untouched.
func projectPolygon(pg *Polygon, proj *geodesy.PlaneRectangular) {
	projectRing := func(r Ring) {
		for i, v := range r {
			if math.Abs(v.X) <= 180 && math.Abs(v.Y) <= 90 {
				// GeoJSON order is lon, lat.
				x, y := proj.Forward(v.Y, v.X)
				r[i] = Point2{X: x, Y: y}
			}
		}
	}
	projectRing(pg.Outer)
	for _, h := range pg.Holes {
		projectRing(h)
	}
}

func pickHeight(props map[string]interface{}) (float64, bool) {
	for _, key := range heightProperties {
		v, ok := props[key]
		if !ok || v == nil {
			continue
		}
		switch h := v.(type) {
		case float64:
			return h, true
		case string:
			if f, err := strconv.ParseFloat(h, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
