package site

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Intermediate stage files: the baseline stage writes Metrics, the risk
// stage writes RiskScores, and the dataset stage joins the two.

var metricsColumns = []string{
	"site_id",
	"err_p50_m",
	"err_p95_m",
	"n_fix",
	"duration",
	"used_sat_mean",
	"cn0_mean",
	"cn0_std",
	"elev_mean",
	"used_rate",
	"hdop_cut_a_median",
	"hdop_cut_b_median",
}

var riskColumns = []string{
	"site_id",
	"class",
	"center_x_6677",
	"center_y_6677",
	"risk_proxy_5m",
	"svf_proxy_5m",
	"risk_horizon",
	"overhead_flag",
	"overhead_score",
}

// WriteMetricsCSV writes the baseline metrics of the surviving sites.
func WriteMetricsCSV(path string, metrics []Metrics) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(metricsColumns); err != nil {
		return err
	}
	for i := range metrics {
		m := &metrics[i]
		row := []string{
			m.SiteID,
			ftoa(m.ErrP50M),
			ftoa(m.ErrP95M),
			fmt.Sprintf("%d", m.NumFixes),
			ftoa(m.DurationSeconds),
			ftoa(m.UsedSatMean),
			ftoa(m.Cn0Mean),
			ftoa(m.Cn0Std),
			ftoa(m.ElevMean),
			ftoa(m.UsedRate),
			ftoa(m.HDOPCutAMedian),
			ftoa(m.HDOPCutBMedian),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadMetricsCSV reads a baseline metrics file.
func ReadMetricsCSV(path string) ([]Metrics, error) {
	rows, cols, err := readTable(path, metricsColumns[0])
	if err != nil {
		return nil, err
	}
	var out []Metrics
	for _, row := range rows {
		get := func(name string) string { return fieldOf(row, cols, name) }
		out = append(out, Metrics{
			SiteID:          get("site_id"),
			ErrP50M:         atof(get("err_p50_m")),
			ErrP95M:         atof(get("err_p95_m")),
			NumFixes:        atoi(get("n_fix")),
			DurationSeconds: atof(get("duration")),
			UsedSatMean:     atof(get("used_sat_mean")),
			Cn0Mean:         atof(get("cn0_mean")),
			Cn0Std:          atof(get("cn0_std")),
			ElevMean:        atof(get("elev_mean")),
			UsedRate:        atof(get("used_rate")),
			HDOPCutAMedian:  atof(get("hdop_cut_a_median")),
			HDOPCutBMedian:  atof(get("hdop_cut_b_median")),
		})
	}
	return out, nil
}

// WriteRiskCSV writes the geometric risk scores per site.
func WriteRiskCSV(path string, risks []RiskScores) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(riskColumns); err != nil {
		return err
	}
	for i := range risks {
		r := &risks[i]
		row := []string{
			r.SiteID,
			r.Class,
			ftoa(r.CenterX),
			ftoa(r.CenterY),
			ftoa(r.RiskProxy),
			ftoa(r.SVFProxy),
			ftoa(r.RiskHorizon),
			fmt.Sprintf("%d", r.OverheadFlag),
			ftoa(r.OverheadScore),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadRiskCSV reads a risk scores file.
func ReadRiskCSV(path string) ([]RiskScores, error) {
	rows, cols, err := readTable(path, riskColumns[0])
	if err != nil {
		return nil, err
	}
	var out []RiskScores
	for _, row := range rows {
		get := func(name string) string { return fieldOf(row, cols, name) }
		out = append(out, RiskScores{
			SiteID:        get("site_id"),
			Class:         get("class"),
			CenterX:       atof(get("center_x_6677")),
			CenterY:       atof(get("center_y_6677")),
			RiskProxy:     atof(get("risk_proxy_5m")),
			SVFProxy:      atof(get("svf_proxy_5m")),
			RiskHorizon:   atof(get("risk_horizon")),
			OverheadFlag:  atoi(get("overhead_flag")),
			OverheadScore: atof(get("overhead_score")),
		})
	}
	return out, nil
}

// readTable loads a CSV with a header row and returns the data rows
// plus a column index. keyColumn must be present.
func readTable(path, keyColumn string) (rows [][]string, cols map[string]int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s: empty CSV", path)
	}
	cols = map[string]int{}
	for i, name := range all[0] {
		cols[name] = i
	}
	if _, ok := cols[keyColumn]; !ok {
		return nil, nil, fmt.Errorf("%s: missing column %q", path, keyColumn)
	}
	return all[1:], cols, nil
}

func fieldOf(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
