package stat

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3, 4}); !almostEqual(got, 2.5, 1e-12) {
		t.Errorf("Mean: got %f, want 2.5", got)
	}
	if got := Mean(nil); !math.IsNaN(got) {
		t.Errorf("Mean(nil): got %f, want NaN", got)
	}
}

func TestStdDev(t *testing.T) {
	// Sample standard deviation of {2, 4, 4, 4, 5, 5, 7, 9} is
	// sqrt(32/7).
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := math.Sqrt(32.0 / 7.0)
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("StdDev: got %f, want %f", got, want)
	}
	if got := StdDev([]float64{3}); !math.IsNaN(got) {
		t.Errorf("StdDev of one value: got %f, want NaN", got)
	}
}

func TestQuantileInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	cases := []struct{ q, want float64 }{
		{0, 1},
		{0.5, 2.5},
		{0.25, 1.75},
		{1, 4},
	}
	for _, c := range cases {
		if got := Quantile(values, c.q); !almostEqual(got, c.want, 1e-12) {
			t.Errorf("Quantile(%.2f): got %f, want %f", c.q, got, c.want)
		}
	}
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Quantile(values, 0.5)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestQuantilesMatchesSingle(t *testing.T) {
	values := []float64{5, 1, 9, 3, 7, 2}
	qs := Quantiles(values, 0.30, 0.70)
	if !almostEqual(qs[0], Quantile(values, 0.30), 1e-12) {
		t.Errorf("q30: %f vs %f", qs[0], Quantile(values, 0.30))
	}
	if !almostEqual(qs[1], Quantile(values, 0.70), 1e-12) {
		t.Errorf("q70: %f vs %f", qs[1], Quantile(values, 0.70))
	}
}

func TestMedianAndPercentile(t *testing.T) {
	if got := Median([]float64{1, 3, 2}); !almostEqual(got, 2, 1e-12) {
		t.Errorf("Median odd: got %f, want 2", got)
	}
	if got := Median([]float64{1, 2, 3, 4}); !almostEqual(got, 2.5, 1e-12) {
		t.Errorf("Median even: got %f, want 2.5", got)
	}
	if got := Percentile([]float64{1, 2, 3, 4}, 95); !almostEqual(got, Quantile([]float64{1, 2, 3, 4}, 0.95), 1e-12) {
		t.Errorf("Percentile(95) disagrees with Quantile(0.95): %f", got)
	}
}
