package eval

import (
	"math"
	"testing"
)

func TestAUCPerfectSeparation(t *testing.T) {
	y := []int{0, 0, 1, 1}
	got, err := AUC(y, []float64{0.1, 0.2, 0.8, 0.9})
	if err != nil {
		t.Fatalf("AUC: %v", err)
	}
	if got != 1.0 {
		t.Errorf("perfect separation: got %f, want 1", got)
	}

	got, err = AUC(y, []float64{0.9, 0.8, 0.2, 0.1})
	if err != nil {
		t.Fatalf("AUC: %v", err)
	}
	if got != 0.0 {
		t.Errorf("reversed separation: got %f, want 0", got)
	}
}

func TestAUCTies(t *testing.T) {
	// A constant score carries no information.
	got, err := AUC([]int{0, 1, 0, 1}, []float64{3, 3, 3, 3})
	if err != nil {
		t.Fatalf("AUC: %v", err)
	}
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("constant score: got %f, want 0.5", got)
	}

	// One tie crossing the classes: the tied pair contributes half.
	got, err = AUC([]int{0, 0, 1, 1}, []float64{0.1, 0.5, 0.5, 0.9})
	if err != nil {
		t.Fatalf("AUC: %v", err)
	}
	if math.Abs(got-0.875) > 1e-12 {
		t.Errorf("crossing tie: got %f, want 0.875", got)
	}
}

func TestAUCSingleClass(t *testing.T) {
	if _, err := AUC([]int{1, 1, 1}, []float64{1, 2, 3}); err != ErrSingleClass {
		t.Errorf("all positive: err = %v, want ErrSingleClass", err)
	}
	if _, err := AUC([]int{0, 0}, []float64{1, 2}); err != ErrSingleClass {
		t.Errorf("all negative: err = %v, want ErrSingleClass", err)
	}
}

func TestAUCRejectsNaN(t *testing.T) {
	// A missing score must fail loudly instead of stalling the tie scan.
	y := []int{0, 1, 0, 1}
	scores := []float64{0.1, math.NaN(), 0.3, 0.9}
	if _, err := AUC(y, scores); err != ErrNaNScore {
		t.Errorf("AUC: err = %v, want ErrNaNScore", err)
	}
	if _, err := ROCCurve(y, scores); err != ErrNaNScore {
		t.Errorf("ROCCurve: err = %v, want ErrNaNScore", err)
	}
}

func TestROCCurveEndpoints(t *testing.T) {
	y := []int{0, 1, 0, 1, 1, 0}
	scores := []float64{0.2, 0.8, 0.4, 0.6, 0.4, 0.1}
	points, err := ROCCurve(y, scores)
	if err != nil {
		t.Fatalf("ROCCurve: %v", err)
	}
	first, last := points[0], points[len(points)-1]
	if first.FPR != 0 || first.TPR != 0 {
		t.Errorf("first point: %+v, want (0,0)", first)
	}
	if last.FPR != 1 || last.TPR != 1 {
		t.Errorf("last point: %+v, want (1,1)", last)
	}
	for i := 1; i < len(points); i++ {
		if points[i].FPR < points[i-1].FPR || points[i].TPR < points[i-1].TPR {
			t.Errorf("point %d not monotone: %+v after %+v", i, points[i], points[i-1])
		}
	}
}

// The rank statistic and the trapezoidal area under the curve are two
// routes to the same number.
func TestAUCMatchesCurveArea(t *testing.T) {
	y := []int{0, 1, 0, 1, 1, 0, 0, 1, 0, 1}
	scores := []float64{0.1, 0.7, 0.3, 0.3, 0.9, 0.5, 0.2, 0.6, 0.5, 0.4}

	rankAUC, err := AUC(y, scores)
	if err != nil {
		t.Fatalf("AUC: %v", err)
	}
	points, err := ROCCurve(y, scores)
	if err != nil {
		t.Fatalf("ROCCurve: %v", err)
	}
	area := 0.0
	for i := 1; i < len(points); i++ {
		area += (points[i].FPR - points[i-1].FPR) * (points[i].TPR + points[i-1].TPR) / 2
	}
	if math.Abs(rankAUC-area) > 1e-12 {
		t.Errorf("rank AUC %f vs curve area %f", rankAUC, area)
	}
}

func TestQuantileLabels(t *testing.T) {
	errs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	threshold, labels := QuantileLabels(errs, 0.70)
	if math.Abs(threshold-7.3) > 1e-12 {
		t.Errorf("threshold: got %f, want 7.3", threshold)
	}
	wantPos := map[int]bool{7: true, 8: true, 9: true}
	for i, l := range labels {
		if l == 1 != wantPos[i] {
			t.Errorf("label[%d] = %d", i, l)
		}
	}
}

func TestQuantileLabelsNaN(t *testing.T) {
	errs := []float64{1, math.NaN(), 10}
	threshold, labels := QuantileLabels(errs, 0.5)
	if math.Abs(threshold-5.5) > 1e-12 {
		t.Errorf("threshold: got %f, want 5.5 over valid values only", threshold)
	}
	if labels[1] != 0 {
		t.Errorf("NaN error labeled %d, want 0", labels[1])
	}
	if labels[0] != 0 || labels[2] != 1 {
		t.Errorf("labels: %v", labels)
	}
}

func TestStrictLabels(t *testing.T) {
	labels := StrictLabels([]float64{4.9, 5.0, 5.1, math.NaN()}, 5.0)
	want := []int{0, 0, 1, 0}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels = %v, want %v", labels, want)
			break
		}
	}
}
