// Package baseline derives per-site GNSS quality metrics from measurement
// logs: projected horizontal scatter percentiles, C/N0 statistics,
// satellite usage and geometry-derived HDOP medians. Sites first pass a
// QC gate chain; rejects are reported with reasons rather than dropped.
package baseline

import (
	"math"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/dop"
	"github.com/0319-2004/PacificPNT-Reproducible/geodesy"
	"github.com/0319-2004/PacificPNT-Reproducible/gnss"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
	"github.com/0319-2004/PacificPNT-Reproducible/stat"
)

// Options are the QC and metric parameters of a baseline run.
type Options struct {
	// MinEpochs is the QC minimum number of fix rows (default 240).
	MinEpochs int
	// MinDurationSeconds is the QC minimum log span (default 240 s).
	MinDurationSeconds float64
	// HDOPDiscard drops implausible per-epoch HDOP values at or above
	// this bound before taking medians (default 50).
	HDOPDiscard float64
}

// DefaultOptions match the published runs.
func DefaultOptions() Options {
	return Options{
		MinEpochs:          240,
		MinDurationSeconds: 240,
		HDOPDiscard:        50,
	}
}

// Analyzer computes baseline metrics for site logs.
type Analyzer struct {
	Proj *geodesy.PlaneRectangular
	Opts Options
}

// NewAnalyzer builds an analyzer projecting into the given zone.
func NewAnalyzer(proj *geodesy.PlaneRectangular, opts Options) *Analyzer {
	return &Analyzer{Proj: proj, Opts: opts}
}

func (a *Analyzer) gates() []Gate {
	return []Gate{
		ParseGate{},
		EpochGate{MinEpochs: a.Opts.MinEpochs},
		DurationGate{MinSeconds: a.Opts.MinDurationSeconds},
		UsedSatGate{},
	}
}

// Run consumes logs from the source channel and splits them into metrics
// for passing sites and QC failures.
func (a *Analyzer) Run(logs <-chan gnss.Log) ([]site.Metrics, []Failure) {
	var (
		metrics  []site.Metrics
		failures []Failure
	)
	for log := range logs {
		m, fail := a.Analyze(&log)
		if fail != nil {
			glog.Warningf("site %s rejected: %s", fail.SiteID, fail.Reason)
			failures = append(failures, *fail)
			continue
		}
		glog.Infof("site %s: err95=%.2fm err50=%.2fm", m.SiteID, m.ErrP95M, m.ErrP50M)
		metrics = append(metrics, m)
	}
	return metrics, failures
}

// Analyze runs QC and computes the metric set for one site log.
func (a *Analyzer) Analyze(log *gnss.Log) (site.Metrics, *Failure) {
	if reason, ok := CheckAll(log, a.gates()); !ok {
		return site.Metrics{}, &Failure{SiteID: log.SiteID, Reason: reason}
	}

	m := site.Metrics{
		SiteID:          log.SiteID,
		NumFixes:        len(log.Fixes),
		DurationSeconds: log.DurationSeconds(),
	}
	m.ErrP50M, m.ErrP95M = a.projectedError(log.Fixes)

	a.usedSatMetrics(log.Status, &m)
	a.hdopMetrics(log.Status, &m)
	return m, nil
}

// projectedError projects all fixes to plane rectangular metres and
// measures the scatter around the per-site median center.
func (a *Analyzer) projectedError(fixes []gnss.FixRecord) (p50, p95 float64) {
	var xs, ys []float64
	for _, f := range fixes {
		if math.IsNaN(f.LatitudeDeg) || math.IsNaN(f.LongitudeDeg) {
			continue
		}
		x, y := a.Proj.Forward(f.LatitudeDeg, f.LongitudeDeg)
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}

	medX := stat.Median(xs)
	medY := stat.Median(ys)
	dists := make([]float64, len(xs))
	for i := range xs {
		dists[i] = math.Hypot(xs[i]-medX, ys[i]-medY)
	}
	return stat.Percentile(dists, 50), stat.Percentile(dists, 95)
}

func (a *Analyzer) usedSatMetrics(status []gnss.StatusRecord, m *site.Metrics) {
	var cn0s, elevs []float64
	usedEpochs := map[int64]int{}
	used := 0
	for _, s := range status {
		if !s.UsedInFix {
			continue
		}
		used++
		usedEpochs[s.UnixTimeMillis]++
		cn0s = append(cn0s, s.Cn0DbHz)
		elevs = append(elevs, s.ElevationDeg)
	}

	if len(usedEpochs) > 0 {
		m.UsedSatMean = float64(used) / float64(len(usedEpochs))
	}
	m.Cn0Mean = stat.Mean(cn0s)
	m.Cn0Std = stat.StdDev(cn0s)
	m.ElevMean = stat.Mean(elevs)
	if len(status) > 0 {
		m.UsedRate = float64(used) / float64(len(status))
	}
}

// hdopMetrics computes per-epoch HDOP at both elevation cuts from the
// observed geometry and stores the per-site medians.
func (a *Analyzer) hdopMetrics(status []gnss.StatusRecord, m *site.Metrics) {
	epochs := map[int64][]dop.Sky{}
	for _, s := range status {
		epochs[s.UnixTimeMillis] = append(epochs[s.UnixTimeMillis], dop.Sky{
			AzimuthDeg:   s.AzimuthDeg,
			ElevationDeg: s.ElevationDeg,
		})
	}

	var cutA, cutB []float64
	for _, sats := range epochs {
		if h := dop.HDOP(dop.FilterElevation(sats, dop.CutAElevationDeg)); !math.IsNaN(h) && h < a.Opts.HDOPDiscard {
			cutA = append(cutA, h)
		}
		if h := dop.HDOP(dop.FilterElevation(sats, dop.CutBElevationDeg)); !math.IsNaN(h) && h < a.Opts.HDOPDiscard {
			cutB = append(cutB, h)
		}
	}
	m.HDOPCutAMedian = stat.Median(cutA)
	m.HDOPCutBMedian = stat.Median(cutB)
}
