// Package dop computes horizontal dilution of precision from satellite
// sky geometry. HDOP describes how well the visible constellation pins
// down a horizontal position: clustered satellites give an
// ill-conditioned geometry matrix and a large HDOP.
package dop

import (
	"math"
)

// Sky is one satellite's direction as seen from the receiver.
type Sky struct {
	AzimuthDeg   float64
	ElevationDeg float64
}

// Elevation cutoffs used throughout the study: cut A keeps everything the
// receiver plausibly tracks, cut B masks the low sky that urban canyons
// obstruct first.
const (
	CutAElevationDeg = 5.0
	CutBElevationDeg = 15.0
)

// HDOP returns the horizontal dilution of precision for the given
// satellite directions. NaN with fewer than four satellites or a singular
// geometry matrix. Azimuth is clockwise from north.
func HDOP(sats []Sky) float64 {
	if len(sats) < 4 {
		return math.NaN()
	}

	// Normal matrix N = G^T G for rows (cosE sinA, cosE cosA, sinE, 1).
	var n [4][4]float64
	for _, s := range sats {
		az := s.AzimuthDeg * math.Pi / 180
		el := s.ElevationDeg * math.Pi / 180
		row := [4]float64{
			math.Cos(el) * math.Sin(az),
			math.Cos(el) * math.Cos(az),
			math.Sin(el),
			1,
		}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				n[i][j] += row[i] * row[j]
			}
		}
	}

	q, ok := invert4(n)
	if !ok {
		return math.NaN()
	}
	h := q[0][0] + q[1][1]
	if h < 0 {
		return math.NaN()
	}
	return math.Sqrt(h)
}

// invert4 inverts a 4x4 matrix by Gauss-Jordan elimination with partial
// pivoting. ok is false for singular input.
func invert4(m [4][4]float64) (inv [4][4]float64, ok bool) {
	var aug [4][8]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			aug[i][j] = m[i][j]
		}
		aug[i][4+i] = 1
	}

	for col := 0; col < 4; col++ {
		pivot := col
		for r := col + 1; r < 4; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return inv, false
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		p := aug[col][col]
		for j := 0; j < 8; j++ {
			aug[col][j] /= p
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			f := aug[r][col]
			for j := 0; j < 8; j++ {
				aug[r][j] -= f * aug[col][j]
			}
		}
	}

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			inv[i][j] = aug[i][4+j]
		}
	}
	return inv, true
}

// FilterElevation returns the satellites at or above the elevation mask.
func FilterElevation(sats []Sky, minElevationDeg float64) []Sky {
	var out []Sky
	for _, s := range sats {
		if s.ElevationDeg >= minElevationDeg {
			out = append(out, s)
		}
	}
	return out
}
