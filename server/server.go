// Package server exposes the study results over HTTP: the joined site
// dataset, the safety evaluation table, the rendered figures and the
// pipeline run history.
package server

import (
	"database/sql"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/eval"
	"github.com/0319-2004/PacificPNT-Reproducible/export"
	"github.com/0319-2004/PacificPNT-Reproducible/metrics"
	"github.com/0319-2004/PacificPNT-Reproducible/pipeline"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

// Server serves the results database read-only.
type Server struct {
	db         *sql.DB
	outputRoot string
	collector  *metrics.Collector

	engine *gin.Engine
}

// New wires the routes onto a gin engine. collector may be nil to
// disable the /metrics endpoint.
func New(db *sql.DB, outputRoot string, collector *metrics.Collector) *Server {
	s := &Server{
		db:         db,
		outputRoot: outputRoot,
		collector:  collector,
		engine:     gin.Default(),
	}

	s.engine.GET("/healthz", s.health)
	s.engine.GET("/api/v1/sites", s.sites)
	s.engine.GET("/api/v1/safety", s.safety)
	s.engine.GET("/api/v1/runs/:stage", s.runs)
	s.engine.Static("/figures", pipeline.Latest(outputRoot, pipeline.StageFigures, ""))
	if collector != nil {
		s.engine.GET("/metrics", gin.WrapH(collector.Handler()))
	}
	return s
}

// Run blocks serving on the given address.
func (s *Server) Run(addr string) error {
	glog.Infof("results server listening on %s", addr)
	return s.engine.Run(addr)
}

// Handler exposes the router, used by the HTTP tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) sites(c *gin.Context) {
	records, err := export.ReadRecords(c.Request.Context(), s.db)
	if err != nil {
		glog.Errorf("reading site records: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]siteJSON, 0, len(records))
	for i := range records {
		out = append(out, toSiteJSON(&records[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) safety(c *gin.Context) {
	records, err := export.ReadRecords(c.Request.Context(), s.db)
	if err != nil {
		glog.Errorf("reading site records: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	threshold, rows := eval.SafetyTable(records, eval.DefaultFocusSites)
	c.JSON(http.StatusOK, gin.H{
		"high_error_threshold_m": threshold,
		"models":                 rows,
	})
}

func (s *Server) runs(c *gin.Context) {
	stage := c.Param("stage")
	ids, err := pipeline.ListRuns(s.outputRoot, stage)
	if err != nil {
		glog.Errorf("listing runs for %q: %s", stage, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": stage, "runs": ids})
}

// siteJSON mirrors site.Record with NaN metrics mapped to null, which
// encoding/json cannot represent as float64.
type siteJSON struct {
	SiteID          string   `json:"site_id"`
	Class           string   `json:"class"`
	CenterX         *float64 `json:"center_x_6677"`
	CenterY         *float64 `json:"center_y_6677"`
	ErrP50M         *float64 `json:"err_p50_m"`
	ErrP95M         *float64 `json:"err_p95_m"`
	NumFixes        int      `json:"n_fix"`
	DurationSeconds *float64 `json:"duration"`
	UsedSatMean     *float64 `json:"used_sat_mean"`
	Cn0Mean         *float64 `json:"cn0_mean"`
	Cn0Std          *float64 `json:"cn0_std"`
	ElevMean        *float64 `json:"elev_mean"`
	UsedRate        *float64 `json:"used_rate"`
	HDOPCutAMedian  *float64 `json:"hdop_cut_a_median"`
	HDOPCutBMedian  *float64 `json:"hdop_cut_b_median"`
	RiskProxy       *float64 `json:"risk_proxy_5m"`
	SVFProxy        *float64 `json:"svf_proxy_5m"`
	RiskHorizon     *float64 `json:"risk_horizon"`
	OverheadFlag    int      `json:"overhead_flag"`
	OverheadScore   *float64 `json:"overhead_score"`
	HighError       int      `json:"high_error"`
}

func toSiteJSON(r *site.Record) siteJSON {
	return siteJSON{
		SiteID:          r.SiteID,
		Class:           r.Class,
		CenterX:         jsonFloat(r.CenterX),
		CenterY:         jsonFloat(r.CenterY),
		ErrP50M:         jsonFloat(r.ErrP50M),
		ErrP95M:         jsonFloat(r.ErrP95M),
		NumFixes:        r.NumFixes,
		DurationSeconds: jsonFloat(r.DurationSeconds),
		UsedSatMean:     jsonFloat(r.UsedSatMean),
		Cn0Mean:         jsonFloat(r.Cn0Mean),
		Cn0Std:          jsonFloat(r.Cn0Std),
		ElevMean:        jsonFloat(r.ElevMean),
		UsedRate:        jsonFloat(r.UsedRate),
		HDOPCutAMedian:  jsonFloat(r.HDOPCutAMedian),
		HDOPCutBMedian:  jsonFloat(r.HDOPCutBMedian),
		RiskProxy:       jsonFloat(r.RiskProxy),
		SVFProxy:        jsonFloat(r.SVFProxy),
		RiskHorizon:     jsonFloat(r.RiskHorizon),
		OverheadFlag:    r.OverheadFlag,
		OverheadScore:   jsonFloat(r.OverheadScore),
		HighError:       r.HighError,
	}
}

func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
