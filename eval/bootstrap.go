package eval

import (
	"errors"
	"math"
	"math/rand"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/site"
	"github.com/0319-2004/PacificPNT-Reproducible/stat"
)

// Bootstrap defaults matching the statistical validation run.
const (
	DefaultBootstrapIterations = 10000
	DefaultBootstrapSeed       = 42
)

// BootstrapResult compares two oriented scores by paired AUC resampling.
type BootstrapResult struct {
	Iterations int
	// Skipped counts resamples whose labels collapsed to a single class.
	Skipped int

	MeanAUCA float64
	MeanAUCB float64
	// CI bounds are 2.5 / 97.5 percentiles of the resampled AUCs.
	CIA [2]float64
	CIB [2]float64

	// PValue is the one-sided share of resamples where AUC(A) - AUC(B)
	// was zero or negative.
	PValue float64

	// AUCDiffs holds the per-resample AUC(A) - AUC(B) values, kept for
	// the distribution histogram.
	AUCDiffs []float64
}

// BootstrapCompare resamples (with replacement) the label/score triples
// and measures how often score A fails to beat score B. Both scores must
// already be oriented so that higher means more dangerous.
func BootstrapCompare(y []int, scoreA, scoreB []float64, iterations int, seed int64) (*BootstrapResult, error) {
	n := len(y)
	if n == 0 || len(scoreA) != n || len(scoreB) != n {
		return nil, errors.New("eval: bootstrap inputs empty or mismatched")
	}
	if iterations <= 0 {
		iterations = DefaultBootstrapIterations
	}

	rng := rand.New(rand.NewSource(seed))
	res := &BootstrapResult{Iterations: iterations}

	var aucsA, aucsB, diffs []float64
	yRes := make([]int, n)
	aRes := make([]float64, n)
	bRes := make([]float64, n)

	for it := 0; it < iterations; it++ {
		pos := 0
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			yRes[i] = y[j]
			aRes[i] = scoreA[j]
			bRes[i] = scoreB[j]
			pos += y[j]
		}
		if pos == 0 || pos == n {
			res.Skipped++
			continue
		}

		aucA, errA := AUC(yRes, aRes)
		aucB, errB := AUC(yRes, bRes)
		if errA != nil || errB != nil {
			res.Skipped++
			continue
		}
		aucsA = append(aucsA, aucA)
		aucsB = append(aucsB, aucB)
		diffs = append(diffs, aucA-aucB)
	}
	if len(diffs) == 0 {
		return nil, errors.New("eval: every bootstrap resample was degenerate")
	}

	res.MeanAUCA = stat.Mean(aucsA)
	res.MeanAUCB = stat.Mean(aucsB)
	qa := stat.Quantiles(aucsA, 0.025, 0.975)
	qb := stat.Quantiles(aucsB, 0.025, 0.975)
	res.CIA = [2]float64{qa[0], qa[1]}
	res.CIB = [2]float64{qb[0], qb[1]}

	nonPositive := 0
	for _, d := range diffs {
		if d <= 0 {
			nonPositive++
		}
	}
	res.PValue = float64(nonPositive) / float64(len(diffs))
	res.AUCDiffs = diffs

	glog.Infof("bootstrap: %d/%d resamples used, p=%.4f", len(diffs), iterations, res.PValue)
	return res, nil
}

// ValidationScores extracts the oriented score pair of the statistical
// validation: the hybrid model (overhead-forced horizon score) against
// the negated HDOP benchmark. Sites missing either score are dropped,
// the paired resampling needs a value in every column.
func ValidationScores(records []site.Record) (y []int, hybrid, hdop []float64) {
	var errs []float64
	for i := range records {
		r := &records[i]
		h := r.HybridScore()
		// Negated so that higher means more dangerous, like the
		// geometric scores.
		neg := -r.HDOPCutAMedian
		if math.IsNaN(h) || math.IsNaN(neg) {
			glog.Warningf("validation: dropping %s, missing score", r.SiteID)
			continue
		}
		errs = append(errs, r.ErrP95M)
		hybrid = append(hybrid, h)
		hdop = append(hdop, neg)
	}
	y = StrictLabels(errs, StrictErrorThresholdM)
	return y, hybrid, hdop
}
