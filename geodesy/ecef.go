package geodesy

import "math"

// ECEFFromLLA converts geodetic coordinates (degrees, metres above the
// ellipsoid) to Earth-centered Earth-fixed metres on GRS80.
func ECEFFromLLA(latDeg, lonDeg, altM float64) (x, y, z float64) {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180

	f := 1 / inverseFlattening
	e2 := f * (2 - f)
	sinLat := math.Sin(lat)
	n := semiMajorAxisM / math.Sqrt(1-e2*sinLat*sinLat)

	x = (n + altM) * math.Cos(lat) * math.Cos(lon)
	y = (n + altM) * math.Cos(lat) * math.Sin(lon)
	z = (n*(1-e2) + altM) * sinLat
	return x, y, z
}
