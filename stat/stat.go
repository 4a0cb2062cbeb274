// Package stat provides the small set of descriptive statistics the
// pipeline needs. Quantiles use linear interpolation between order
// statistics, matching the convention of the analysis the figures are
// validated against.
package stat

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, NaN for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator),
// NaN for fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	m := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// Quantile returns the interpolated quantile for p in [0, 1].
// The input does not need to be sorted. NaN for empty input.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	k := float64(n-1) * p
	lo := math.Floor(k)
	hi := math.Ceil(k)
	if lo == hi {
		return sorted[int(k)]
	}
	return sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*(k-lo)
}

// Quantiles returns several quantiles from a single sort.
func Quantiles(values []float64, ps ...float64) []float64 {
	out := make([]float64, len(ps))
	if len(values) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	for i, p := range ps {
		out[i] = quantileSorted(sorted, p)
	}
	return out
}

// Median returns the interpolated median, NaN for empty input.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Percentile returns the interpolated percentile for p in [0, 100].
func Percentile(values []float64, p float64) float64 {
	return Quantile(values, p/100)
}
