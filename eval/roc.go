// Package eval implements the classifier evaluation of the study: ROC
// curves and AUC over the high-error ground truth, orientation-aware
// safety metrics with focus-site ranks, and the bootstrap comparison of
// the hybrid model against the HDOP benchmark.
package eval

import (
	"errors"
	"math"
	"sort"
)

// ErrSingleClass is returned when the label vector holds only one class.
var ErrSingleClass = errors.New("eval: labels contain a single class")

// ErrNaNScore is returned when a score vector holds NaN. Callers filter
// missing scores with dropMissing before ranking.
var ErrNaNScore = errors.New("eval: scores contain NaN")

func checkScores(scores []float64) error {
	for _, s := range scores {
		if math.IsNaN(s) {
			return ErrNaNScore
		}
	}
	return nil
}

// ROCPoint is one operating point of a ROC curve.
type ROCPoint struct {
	FPR float64
	TPR float64
}

func countClasses(y []int) (pos, neg int) {
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

// ROCCurve sweeps the score thresholds from high to low and returns the
// operating points, starting at (0,0) and ending at (1,1). Ties on the
// score produce a single point.
func ROCCurve(y []int, scores []float64) ([]ROCPoint, error) {
	if len(y) != len(scores) {
		return nil, errors.New("eval: labels and scores differ in length")
	}
	if err := checkScores(scores); err != nil {
		return nil, err
	}
	pos, neg := countClasses(y)
	if pos == 0 || neg == 0 {
		return nil, ErrSingleClass
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	points := []ROCPoint{{0, 0}}
	tp, fp := 0, 0
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && scores[idx[j]] == scores[idx[i]] {
			if y[idx[j]] == 1 {
				tp++
			} else {
				fp++
			}
			j++
		}
		points = append(points, ROCPoint{
			FPR: float64(fp) / float64(neg),
			TPR: float64(tp) / float64(pos),
		})
		i = j
	}
	return points, nil
}

// AUC computes the area under the ROC curve via the tie-aware rank
// statistic (Mann-Whitney with average ranks), which equals the
// trapezoidal area under ROCCurve on the same inputs.
func AUC(y []int, scores []float64) (float64, error) {
	if len(y) != len(scores) {
		return 0, errors.New("eval: labels and scores differ in length")
	}
	if err := checkScores(scores); err != nil {
		return 0, err
	}
	pos, neg := countClasses(y)
	if pos == 0 || neg == 0 {
		return 0, ErrSingleClass
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	// Average ranks over tie groups, 1-based.
	ranks := make([]float64, len(scores))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // mean of ranks i+1 .. j
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	rankSum := 0.0
	for i, label := range y {
		if label == 1 {
			rankSum += ranks[i]
		}
	}
	u := rankSum - float64(pos)*float64(pos+1)/2
	return u / (float64(pos) * float64(neg)), nil
}

// dropMissing filters out rows whose score is NaN and returns the kept
// row indices alongside the filtered vectors.
func dropMissing(y []int, scores []float64) (kept []int, yOut []int, sOut []float64) {
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		kept = append(kept, i)
		yOut = append(yOut, y[i])
		sOut = append(sOut, s)
	}
	return kept, yOut, sOut
}
