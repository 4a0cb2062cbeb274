// Package site defines the per-site records the pipeline stages exchange:
// site definitions from the selection phase, measured baseline metrics,
// geometric risk scores and the joined final dataset.
package site

// Definition is one measurement site from the site-definition table.
type Definition struct {
	SiteID string
	Class  string
	// Plane rectangular (EPSG:6677) site center in metres.
	CenterX float64
	CenterY float64
}

// Metrics is the measured baseline quality of one site that passed QC.
type Metrics struct {
	SiteID string

	ErrP50M float64
	ErrP95M float64

	NumFixes        int
	DurationSeconds float64
	UsedSatMean     float64
	Cn0Mean         float64
	Cn0Std          float64
	ElevMean        float64
	UsedRate        float64

	HDOPCutAMedian float64
	HDOPCutBMedian float64
}

// RiskScores is the geometric obstruction scoring of one site.
type RiskScores struct {
	SiteID string
	Class  string

	CenterX float64
	CenterY float64

	// RiskProxy scores buildings and viaducts together (the site-selection
	// proxy); SVFProxy is its sky-view complement.
	RiskProxy float64
	SVFProxy  float64

	// RiskHorizon scores buildings only.
	RiskHorizon float64

	OverheadFlag  int
	OverheadScore float64
}

// Record is one row of the joined final dataset.
type Record struct {
	SiteID string
	Class  string

	CenterX float64
	CenterY float64

	ErrP50M         float64
	ErrP95M         float64
	NumFixes        int
	DurationSeconds float64
	UsedSatMean     float64
	Cn0Mean         float64
	Cn0Std          float64
	ElevMean        float64
	UsedRate        float64
	HDOPCutAMedian  float64
	HDOPCutBMedian  float64

	RiskProxy     float64
	SVFProxy      float64
	RiskHorizon   float64
	OverheadFlag  int
	OverheadScore float64

	// HighError is the ground-truth label, set during evaluation.
	HighError int
}

// HybridScore combines the building-only horizon score with the overhead
// flag: a site directly under infrastructure is maximum risk regardless
// of its horizon profile.
func (r *Record) HybridScore() float64 {
	if r.OverheadFlag == 1 {
		return 1.0
	}
	return r.RiskHorizon
}

// Join inner-joins metrics and risk scores on site ID. Metrics rows
// without a matching risk row (and vice versa) are dropped, mirroring the
// inner merge of the analysis scripts.
func Join(metrics []Metrics, risks []RiskScores) []Record {
	byID := make(map[string]RiskScores, len(risks))
	for _, r := range risks {
		byID[r.SiteID] = r
	}
	var out []Record
	for _, m := range metrics {
		r, ok := byID[m.SiteID]
		if !ok {
			continue
		}
		out = append(out, Record{
			SiteID:          m.SiteID,
			Class:           r.Class,
			CenterX:         r.CenterX,
			CenterY:         r.CenterY,
			ErrP50M:         m.ErrP50M,
			ErrP95M:         m.ErrP95M,
			NumFixes:        m.NumFixes,
			DurationSeconds: m.DurationSeconds,
			UsedSatMean:     m.UsedSatMean,
			Cn0Mean:         m.Cn0Mean,
			Cn0Std:          m.Cn0Std,
			ElevMean:        m.ElevMean,
			UsedRate:        m.UsedRate,
			HDOPCutAMedian:  m.HDOPCutAMedian,
			HDOPCutBMedian:  m.HDOPCutBMedian,
			RiskProxy:       r.RiskProxy,
			SVFProxy:        r.SVFProxy,
			RiskHorizon:     r.RiskHorizon,
			OverheadFlag:    r.OverheadFlag,
			OverheadScore:   r.OverheadScore,
		})
	}
	return out
}
