package eval

import (
	"math"
	"sort"

	"github.com/0319-2004/PacificPNT-Reproducible/site"
	"github.com/0319-2004/PacificPNT-Reproducible/stat"
)

// Default ground-truth parameters.
const (
	// HighErrorQuantile marks the top 30% err_p95_m sites as high error.
	HighErrorQuantile = 0.70
	// StrictErrorThresholdM is the absolute hazard bound used by the
	// statistical validation (metres).
	StrictErrorThresholdM = 5.0
)

// DefaultFocusSites are the sites whose danger rank the paper reports:
// A11 sits under a viaduct, A06 showed the largest observed error.
var DefaultFocusSites = []string{"A11", "A06"}

// QuantileLabels labels errors at or above the given quantile as high
// error and returns the threshold alongside the labels. NaN errors label 0.
func QuantileLabels(errs []float64, quantile float64) (threshold float64, labels []int) {
	var valid []float64
	for _, e := range errs {
		if !math.IsNaN(e) {
			valid = append(valid, e)
		}
	}
	threshold = stat.Quantile(valid, quantile)
	labels = make([]int, len(errs))
	for i, e := range errs {
		if !math.IsNaN(e) && e >= threshold {
			labels[i] = 1
		}
	}
	return threshold, labels
}

// StrictLabels labels errors strictly above the absolute threshold.
func StrictLabels(errs []float64, thresholdM float64) []int {
	labels := make([]int, len(errs))
	for i, e := range errs {
		if !math.IsNaN(e) && e > thresholdM {
			labels[i] = 1
		}
	}
	return labels
}

// SafetyMetrics is one row of the evaluation table.
type SafetyMetrics struct {
	Model string
	Score string
	AUC   float64
	// Flipped records that the raw AUC was below 0.5 and the score was
	// negated before ranking, so "higher is more dangerous" holds.
	Flipped bool
	// Ranks maps focus site IDs to their 1-based danger rank under the
	// oriented score; 0 means the site was absent.
	Ranks map[string]int
}

// Safety evaluates one score column: AUC with orientation flip and the
// danger ranks of the focus sites. Rows with a NaN score are dropped.
// ErrSingleClass is returned when the surviving labels are degenerate.
func Safety(siteIDs []string, y []int, scores []float64, model, scoreName string, focusSites []string) (*SafetyMetrics, error) {
	kept, yv, sv := dropMissing(y, scores)
	aucRaw, err := AUC(yv, sv)
	if err != nil {
		return nil, err
	}

	m := &SafetyMetrics{Model: model, Score: scoreName, AUC: aucRaw, Ranks: map[string]int{}}
	oriented := sv
	if aucRaw < 0.5 {
		m.Flipped = true
		m.AUC = 1 - aucRaw
		oriented = make([]float64, len(sv))
		for i, s := range sv {
			oriented[i] = -s
		}
	}

	// Danger ranking: highest oriented score first.
	order := make([]int, len(oriented))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return oriented[order[a]] > oriented[order[b]] })

	for _, focus := range focusSites {
		for rank, oi := range order {
			if siteIDs[kept[oi]] == focus {
				m.Ranks[focus] = rank + 1
				break
			}
		}
	}
	return m, nil
}

// ScoreColumn couples a dataset column with its model label.
type ScoreColumn struct {
	Model string
	Name  string
	Value func(*site.Record) float64
}

// EvaluationColumns is the score set the final results table reports.
func EvaluationColumns() []ScoreColumn {
	return []ScoreColumn{
		{Model: "Phase2 (Combined)", Name: "risk_proxy_5m", Value: func(r *site.Record) float64 { return r.RiskProxy }},
		{Model: "Phase2 (Horizon)", Name: "risk_horizon", Value: func(r *site.Record) float64 { return r.RiskHorizon }},
		{Model: "Phase2 (Overhead)", Name: "overhead_score", Value: func(r *site.Record) float64 { return r.OverheadScore }},
		{Model: "Benchmark (HDOP)", Name: "hdop_cut_a_median", Value: func(r *site.Record) float64 { return r.HDOPCutAMedian }},
	}
}

// SafetyTable labels the records at the high-error quantile and runs
// Safety for every evaluation column present. Columns whose labels or
// scores are degenerate are skipped.
func SafetyTable(records []site.Record, focusSites []string) (threshold float64, rows []SafetyMetrics) {
	errs := make([]float64, len(records))
	ids := make([]string, len(records))
	for i := range records {
		errs[i] = records[i].ErrP95M
		ids[i] = records[i].SiteID
	}
	threshold, labels := QuantileLabels(errs, HighErrorQuantile)

	for _, col := range EvaluationColumns() {
		scores := make([]float64, len(records))
		for i := range records {
			scores[i] = col.Value(&records[i])
		}
		m, err := Safety(ids, labels, scores, col.Model, col.Name, focusSites)
		if err != nil {
			continue
		}
		rows = append(rows, *m)
	}
	return threshold, rows
}
