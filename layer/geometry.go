package layer

import "math"

// Point2 is a planar point in metres (plane rectangular X/Y).
type Point2 struct {
	X, Y float64
}

// Ring is a closed linear ring. The closing vertex may be present or not;
// the geometry routines treat the ring as implicitly closed.
type Ring []Point2

// Polygon is an outer ring with optional holes.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

func segmentDistance(p, a, b Point2) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

func (r Ring) distance(p Point2) float64 {
	min := math.Inf(1)
	for i := 0; i < len(r); i++ {
		a := r[i]
		b := r[(i+1)%len(r)]
		if d := segmentDistance(p, a, b); d < min {
			min = d
		}
	}
	return min
}

// contains reports whether p lies inside the ring (ray casting).
func (r Ring) contains(p Point2) bool {
	inside := false
	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		a, b := r[i], r[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Contains reports whether p lies inside the polygon, holes excluded.
func (pg Polygon) Contains(p Point2) bool {
	if !pg.Outer.contains(p) {
		return false
	}
	for _, h := range pg.Holes {
		if h.contains(p) {
			return false
		}
	}
	return true
}

// Distance returns the distance from p to the polygon, 0 when p is inside.
func (pg Polygon) Distance(p Point2) float64 {
	if pg.Contains(p) {
		return 0
	}
	d := pg.Outer.distance(p)
	for _, h := range pg.Holes {
		if hd := h.distance(p); hd < d {
			d = hd
		}
	}
	return d
}

// bbox returns min/max corners over all rings of the polygon.
func (pg Polygon) bbox() (min, max Point2) {
	min = Point2{math.Inf(1), math.Inf(1)}
	max = Point2{math.Inf(-1), math.Inf(-1)}
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
