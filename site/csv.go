package site

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Header is the canonical final-dataset column order.
func Header() []string {
	return []string{
		"site_id", "class", "center_x_6677", "center_y_6677",
		"err_p50_m", "err_p95_m", "n_fix", "duration", "used_sat_mean",
		"cn0_mean", "cn0_std", "elev_mean", "used_rate",
		"hdop_cut_a_median", "hdop_cut_b_median",
		"risk_proxy_5m", "svf_proxy_5m", "risk_horizon",
		"overhead_flag", "overhead_score", "high_error",
	}
}

func ftoa(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func atof(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func atoi(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

// Row renders the record in Header order. Missing values (NaN) become
// empty cells.
func (r *Record) Row() []string {
	return []string{
		r.SiteID, r.Class, ftoa(r.CenterX), ftoa(r.CenterY),
		ftoa(r.ErrP50M), ftoa(r.ErrP95M), strconv.Itoa(r.NumFixes),
		ftoa(r.DurationSeconds), ftoa(r.UsedSatMean),
		ftoa(r.Cn0Mean), ftoa(r.Cn0Std), ftoa(r.ElevMean), ftoa(r.UsedRate),
		ftoa(r.HDOPCutAMedian), ftoa(r.HDOPCutBMedian),
		ftoa(r.RiskProxy), ftoa(r.SVFProxy), ftoa(r.RiskHorizon),
		strconv.Itoa(r.OverheadFlag), ftoa(r.OverheadScore),
		strconv.Itoa(r.HighError),
	}
}

// WriteCSV writes records with the canonical header.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(records[i].Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path, creating parent-relative files only.
func WriteCSVFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteCSV(f, records)
}

// ReadCSV reads a dataset written by WriteCSV or by an earlier stage with
// a column subset. Unknown columns are ignored; absent columns read as
// missing (NaN / zero).
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("site: empty dataset")
	}
	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["site_id"]; !ok {
		return nil, fmt.Errorf("site: dataset missing site_id column")
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []Record
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		rec := Record{
			SiteID:          strings.TrimSpace(get(row, "site_id")),
			Class:           strings.TrimSpace(get(row, "class")),
			CenterX:         atof(get(row, "center_x_6677")),
			CenterY:         atof(get(row, "center_y_6677")),
			ErrP50M:         atof(get(row, "err_p50_m")),
			ErrP95M:         atof(get(row, "err_p95_m")),
			NumFixes:        atoi(get(row, "n_fix")),
			DurationSeconds: atof(get(row, "duration")),
			UsedSatMean:     atof(get(row, "used_sat_mean")),
			Cn0Mean:         atof(get(row, "cn0_mean")),
			Cn0Std:          atof(get(row, "cn0_std")),
			ElevMean:        atof(get(row, "elev_mean")),
			UsedRate:        atof(get(row, "used_rate")),
			HDOPCutAMedian:  atof(get(row, "hdop_cut_a_median")),
			HDOPCutBMedian:  atof(get(row, "hdop_cut_b_median")),
			RiskProxy:       atof(get(row, "risk_proxy_5m")),
			SVFProxy:        atof(get(row, "svf_proxy_5m")),
			RiskHorizon:     atof(get(row, "risk_horizon")),
			OverheadFlag:    atoi(get(row, "overhead_flag")),
			OverheadScore:   atof(get(row, "overhead_score")),
			HighError:       atoi(get(row, "high_error")),
		}
		if rec.SiteID == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadCSVFile reads a dataset from path.
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadDefinitions reads a site-definition table
// (site_id, class, center_x_6677, center_y_6677).
func ReadDefinitions(path string) ([]Definition, error) {
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
		return nil, fmt.Errorf("site: empty definition file %q", path)
	}
	col := map[string]int{}
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"site_id", "center_x_6677", "center_y_6677"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("site: definition file missing %q column", required)
		}
	}

	var defs []Definition
	for _, row := range rows[1:] {
		if len(row) <= col["site_id"] {
			continue
		}
		d := Definition{
			SiteID:  strings.TrimSpace(row[col["site_id"]]),
			CenterX: atof(row[col["center_x_6677"]]),
			CenterY: atof(row[col["center_y_6677"]]),
		}
		if ci, ok := col["class"]; ok && ci < len(row) {
			d.Class = strings.TrimSpace(row[ci])
		}
		if d.SiteID == "" {
			continue
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// WriteDefinitions writes a site-definition table.
func WriteDefinitions(path string, defs []Definition) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"site_id", "class", "center_x_6677", "center_y_6677"}); err != nil {
		return err
	}
	for _, d := range defs {
		if err := cw.Write([]string{d.SiteID, d.Class, ftoa(d.CenterX), ftoa(d.CenterY)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
