// Package geodesy converts WGS84 geographic coordinates to the JGD2011
// plane rectangular coordinate systems (Gauss-Krüger projection on the
// GRS80 ellipsoid). The study area uses zone IX (EPSG:6677), which covers
// the Tokyo region. Axis convention follows the datasets produced by the
// measurement pipeline: X is easting and Y is northing, both in metres.
package geodesy

import "math"

// GRS80 ellipsoid and projection constants.
const (
	semiMajorAxisM    = 6378137.0
	inverseFlattening = 298.257222101
	scaleFactor       = 0.9999
)

// PlaneRectangular is one zone of the JGD2011 plane rectangular system.
type PlaneRectangular struct {
	originLatRad float64
	originLonRad float64

	// Series coefficients, precomputed from the third flattening.
	n     float64
	aBar  float64 // rectifying radius times scale
	sPhi0 float64 // meridian arc length to the zone origin times scale
	alpha [6]float64
	beta  [6]float64
	delta [6]float64
}

// ZoneIX returns the zone IX projection (EPSG:6677, origin 36°N 139°50'E).
func ZoneIX() *PlaneRectangular {
	return NewPlaneRectangular(36.0, 139.0+50.0/60.0)
}

// NewPlaneRectangular builds a projection for an arbitrary zone origin.
func NewPlaneRectangular(originLatDeg, originLonDeg float64) *PlaneRectangular {
	p := &PlaneRectangular{
		originLatRad: originLatDeg * math.Pi / 180,
		originLonRad: originLonDeg * math.Pi / 180,
	}
	n := 1.0 / (2*inverseFlattening - 1)
	p.n = n
	n2, n3, n4, n5 := n*n, n*n*n, n*n*n*n, n*n*n*n*n

	// Rectifying radius series.
	a0 := 1 + n2/4 + n4/64
	a := [6]float64{
		0,
		-3.0 / 2.0 * (n - n3/8 - n5/64),
		15.0 / 16.0 * (n2 - n4/4),
		-35.0 / 48.0 * (n3 - 5.0/16.0*n5),
		315.0 / 512.0 * n4,
		-693.0 / 1280.0 * n5,
	}
	p.aBar = scaleFactor * semiMajorAxisM / (1 + n) * a0

	s := a0 * p.originLatRad
	for j := 1; j <= 5; j++ {
		s += a[j] * math.Sin(2*float64(j)*p.originLatRad)
	}
	p.sPhi0 = scaleFactor * semiMajorAxisM / (1 + n) * s

	p.alpha = [6]float64{
		0,
		n/2 - 2.0/3.0*n2 + 5.0/16.0*n3 + 41.0/180.0*n4 - 127.0/288.0*n5,
		13.0/48.0*n2 - 3.0/5.0*n3 + 557.0/1440.0*n4 + 281.0/630.0*n5,
		61.0/240.0*n3 - 103.0/140.0*n4 + 15061.0/26880.0*n5,
		49561.0/161280.0*n4 - 179.0/168.0*n5,
		34729.0 / 80640.0 * n5,
	}
	p.beta = [6]float64{
		0,
		n/2 - 2.0/3.0*n2 + 37.0/96.0*n3 - 1.0/360.0*n4 - 81.0/512.0*n5,
		1.0/48.0*n2 + 1.0/15.0*n3 - 437.0/1440.0*n4 + 46.0/105.0*n5,
		17.0/480.0*n3 - 37.0/840.0*n4 - 209.0/4480.0*n5,
		4397.0/161280.0*n4 - 11.0/504.0*n5,
		4583.0 / 161280.0 * n5,
	}
	p.delta = [6]float64{
		0,
		2*n - 2.0/3.0*n2 - 2*n3 + 116.0/45.0*n4 + 26.0/45.0*n5,
		7.0/3.0*n2 - 8.0/5.0*n3 - 227.0/45.0*n4 + 2704.0/315.0*n5,
		56.0/15.0*n3 - 136.0/35.0*n4 - 1262.0/105.0*n5,
		4279.0/630.0*n4 - 332.0/35.0*n5,
		4174.0 / 315.0 * n5,
	}
	return p
}

// Forward projects geographic coordinates (degrees) to plane rectangular
// X (easting) and Y (northing) in metres relative to the zone origin.
func (p *PlaneRectangular) Forward(latDeg, lonDeg float64) (x, y float64) {
	phi := latDeg * math.Pi / 180
	dLon := lonDeg*math.Pi/180 - p.originLonRad

	c := 2 * math.Sqrt(p.n) / (1 + p.n)
	t := math.Sinh(math.Atanh(math.Sin(phi)) - c*math.Atanh(c*math.Sin(phi)))
	tBar := math.Sqrt(1 + t*t)

	xiP := math.Atan2(t, math.Cos(dLon))
	etaP := math.Atanh(math.Sin(dLon) / tBar)

	xi := xiP
	eta := etaP
	for j := 1; j <= 5; j++ {
		xi += p.alpha[j] * math.Sin(2*float64(j)*xiP) * math.Cosh(2*float64(j)*etaP)
		eta += p.alpha[j] * math.Cos(2*float64(j)*xiP) * math.Sinh(2*float64(j)*etaP)
	}

	northing := p.aBar*xi - p.sPhi0
	easting := p.aBar * eta
	return easting, northing
}

// Inverse converts plane rectangular X (easting) and Y (northing) in
// metres back to geographic latitude and longitude in degrees.
func (p *PlaneRectangular) Inverse(x, y float64) (latDeg, lonDeg float64) {
	xi := (y + p.sPhi0) / p.aBar
	eta := x / p.aBar

	xiP := xi
	etaP := eta
	for j := 1; j <= 5; j++ {
		xiP -= p.beta[j] * math.Sin(2*float64(j)*xi) * math.Cosh(2*float64(j)*eta)
		etaP -= p.beta[j] * math.Cos(2*float64(j)*xi) * math.Sinh(2*float64(j)*eta)
	}

	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	phi := chi
	for j := 1; j <= 5; j++ {
		phi += p.delta[j] * math.Sin(2*float64(j)*chi)
	}

	lon := p.originLonRad + math.Atan2(math.Sinh(etaP), math.Cos(xiP))
	return phi * 180 / math.Pi, lon * 180 / math.Pi
}
