package dop

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/gnss"
	"github.com/0319-2004/PacificPNT-Reproducible/stat"
)

// SimResult is the per-site outcome of a DOP simulation.
type SimResult struct {
	SiteID         string
	HDOPCutAMedian float64
	HDOPCutBMedian float64
	ValidEpochs    int
}

// Simulate computes per-epoch HDOP from the observed satellite geometry
// in a site log and reduces to medians at both elevation cuts.
func Simulate(log *gnss.Log) SimResult {
	epochs := map[int64][]Sky{}
	for _, s := range log.Status {
		epochs[s.UnixTimeMillis] = append(epochs[s.UnixTimeMillis], Sky{
			AzimuthDeg:   s.AzimuthDeg,
			ElevationDeg: s.ElevationDeg,
		})
	}

	var cutA, cutB []float64
	for _, sats := range epochs {
		if h := HDOP(FilterElevation(sats, CutAElevationDeg)); !math.IsNaN(h) {
			cutA = append(cutA, h)
		}
		if h := HDOP(FilterElevation(sats, CutBElevationDeg)); !math.IsNaN(h) {
			cutB = append(cutB, h)
		}
	}

	res := SimResult{
		SiteID:         log.SiteID,
		HDOPCutAMedian: stat.Median(cutA),
		HDOPCutBMedian: stat.Median(cutB),
		ValidEpochs:    len(epochs),
	}
	glog.Infof("dop sim %s: epochs=%d cutA=%.3f cutB=%.3f", res.SiteID, res.ValidEpochs, res.HDOPCutAMedian, res.HDOPCutBMedian)
	return res
}

func ftoa(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteResultsCSV writes simulation results to path.
func WriteResultsCSV(path string, results []SimResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"site_id", "hdop_cut_a_median", "hdop_cut_b_median", "valid_epochs"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{r.SiteID, ftoa(r.HDOPCutAMedian), ftoa(r.HDOPCutBMedian), strconv.Itoa(r.ValidEpochs)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadResultsCSV reads results written by WriteResultsCSV.
func ReadResultsCSV(path string) ([]SimResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dop: empty results file %q", path)
	}
	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["site_id"]; !ok {
		return nil, fmt.Errorf("dop: results file missing site_id column")
	}

	parse := func(row []string, name string) float64 {
		i, ok := col[name]
		if !ok || i >= len(row) || strings.TrimSpace(row[i]) == "" {
			return math.NaN()
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}

	var out []SimResult
	for _, row := range rows[1:] {
		if len(row) <= col["site_id"] {
			continue
		}
		r := SimResult{
			SiteID:         strings.TrimSpace(row[col["site_id"]]),
			HDOPCutAMedian: parse(row, "hdop_cut_a_median"),
			HDOPCutBMedian: parse(row, "hdop_cut_b_median"),
		}
		if i, ok := col["valid_epochs"]; ok && i < len(row) {
			if n, err := strconv.Atoi(strings.TrimSpace(row[i])); err == nil {
				r.ValidEpochs = n
			}
		}
		if r.SiteID != "" {
			out = append(out, r)
		}
	}
	return out, nil
}
