package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	// Blind import support for sqlite3 used by the sqlite exporter.
	_ "github.com/mattn/go-sqlite3"

	"github.com/0319-2004/PacificPNT-Reproducible/eval"
	"github.com/0319-2004/PacificPNT-Reproducible/export"
	"github.com/0319-2004/PacificPNT-Reproducible/pipeline"
	"github.com/0319-2004/PacificPNT-Reproducible/raster"
	"github.com/0319-2004/PacificPNT-Reproducible/render"
	"github.com/0319-2004/PacificPNT-Reproducible/server"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Join baseline metrics with risk scores and export the dataset",
	RunE:  runDataset,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Label high-error sites and compute the safety metrics table",
	RunE:  runEvaluate,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Bootstrap comparison of the hybrid model against the HDOP benchmark",
	RunE:  runValidate,
}

var figuresCmd = &cobra.Command{
	Use:   "figures",
	Short: "Render the ROC comparison, risk map and bootstrap figures",
	RunE:  runFigures,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the results database and figures over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(datasetCmd, evaluateCmd, validateCmd, figuresCmd, serveCmd)
}

// loadDataset reads the joined dataset, preferring the latest dataset
// run and falling back to a manually prepared file.
func loadDataset() ([]site.Record, error) {
	path, err := pipeline.Resolve(
		pipeline.Latest(cfg.Paths.OutputDir, pipeline.StageDataset, "final_dataset.csv"),
		"data/processed/final_dataset.csv",
	)
	if err != nil {
		return nil, err
	}
	return site.ReadCSVFile(path)
}

func runDataset(cmd *cobra.Command, args []string) error {
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageDataset)
	if err != nil {
		return err
	}

	metricsPath, err := pipeline.Resolve(
		pipeline.Latest(cfg.Paths.OutputDir, pipeline.StageBaseline, "baseline_metrics.csv"),
	)
	if err != nil {
		return err
	}
	riskPath, err := pipeline.Resolve(
		pipeline.Latest(cfg.Paths.OutputDir, pipeline.StageRisk, "risk_scores.csv"),
	)
	if err != nil {
		return err
	}

	siteMetrics, err := site.ReadMetricsCSV(metricsPath)
	if err != nil {
		return err
	}
	risks, err := site.ReadRiskCSV(riskPath)
	if err != nil {
		return err
	}
	records := site.Join(siteMetrics, risks)
	if len(records) == 0 {
		return fmt.Errorf("no sites survived the metrics/risk join")
	}

	if err := site.WriteCSVFile(run.Path("final_dataset.csv"), records); err != nil {
		return err
	}
	if err := exportRecords(cmd.Context(), records); err != nil {
		return err
	}
	collector.RecordsStored.Add(float64(len(records)))
	glog.Infof("dataset: %d joined records", len(records))
	return run.Finish()
}

// exportRecords streams the dataset into the configured database
// backends: always SQLite, plus MySQL when a DSN is configured.
func exportRecords(ctx context.Context, records []site.Record) error {
	exporters := map[string]export.Exporter{}

	db, err := sql.Open("sqlite3", cfg.Export.SQLiteFile)
	if err != nil {
		return fmt.Errorf("unable to open sqlite DB %q: %w", cfg.Export.SQLiteFile, err)
	}
	defer db.Close()
	exporters["sqlite"] = &export.SQL{DB: db}

	if dsn := cfg.Export.MySQLDSN(); dsn != "" {
		mcfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return fmt.Errorf("invalid MySQL DSN: %w", err)
		}
		mdb, err := sql.Open("mysql", mcfg.FormatDSN())
		if err != nil {
			return fmt.Errorf("unable to open MySQL DB: %w", err)
		}
		mdb.SetConnMaxLifetime(3 * time.Minute)
		mdb.SetMaxOpenConns(10)
		mdb.SetMaxIdleConns(10)
		defer mdb.Close()
		exporters["mysql"] = &export.MySQL{DB: mdb}
	}

	for name, exp := range exporters {
		ch := make(chan site.Record)
		go func() {
			for _, r := range records {
				ch <- r
			}
			close(ch)
		}()
		if err := exp.Write(ctx, ch); err != nil {
			return fmt.Errorf("%s export: %w", name, err)
		}
	}
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageEval)
	if err != nil {
		return err
	}
	records, err := loadDataset()
	if err != nil {
		return err
	}

	threshold, rows := eval.SafetyTable(records, cfg.Eval.FocusSites)
	if len(rows) == 0 {
		return fmt.Errorf("no score column produced a valid evaluation")
	}

	// Persist the ground-truth labels back into the dataset.
	errs := make([]float64, len(records))
	for i := range records {
		errs[i] = records[i].ErrP95M
	}
	_, labels := eval.QuantileLabels(errs, cfg.Eval.HighErrorQuantile)
	for i := range records {
		records[i].HighError = labels[i]
	}
	if err := site.WriteCSVFile(run.Path("final_dataset_labeled.csv"), records); err != nil {
		return err
	}
	if err := writeSafetyCSV(run.Path("safety_metrics.csv"), threshold, rows); err != nil {
		return err
	}

	for _, row := range rows {
		glog.Infof("%s / %s: AUC=%.3f flipped=%t ranks=%v", row.Model, row.Score, row.AUC, row.Flipped, row.Ranks)
	}
	return run.Finish()
}

func writeSafetyCSV(path string, threshold float64, rows []eval.SafetyMetrics) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"model", "score", "auc", "flipped", "threshold_m"}
	for _, focus := range cfg.Eval.FocusSites {
		header = append(header, "rank_"+focus)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		rec := []string{
			row.Model,
			row.Score,
			strconv.FormatFloat(row.AUC, 'f', 4, 64),
			strconv.FormatBool(row.Flipped),
			strconv.FormatFloat(threshold, 'f', 3, 64),
		}
		for _, focus := range cfg.Eval.FocusSites {
			rec = append(rec, strconv.Itoa(row.Ranks[focus]))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func runValidate(cmd *cobra.Command, args []string) error {
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageEval)
	if err != nil {
		return err
	}
	records, err := loadDataset()
	if err != nil {
		return err
	}

	y, hybrid, hdop := eval.ValidationScores(records)
	res, err := eval.BootstrapCompare(y, hybrid, hdop, cfg.Eval.BootstrapIterations, cfg.Eval.BootstrapSeed)
	if err != nil {
		return err
	}

	if err := writeBootstrapCSV(run.Path("bootstrap_summary.csv"), res); err != nil {
		return err
	}
	glog.Infof("validate: AUC hybrid %.3f [%.3f, %.3f] vs benchmark %.3f [%.3f, %.3f], p=%.4f",
		res.MeanAUCA, res.CIA[0], res.CIA[1], res.MeanAUCB, res.CIB[0], res.CIB[1], res.PValue)
	return run.Finish()
}

func writeBootstrapCSV(path string, res *eval.BootstrapResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := [][]string{
		{"metric", "value"},
		{"iterations", strconv.Itoa(res.Iterations)},
		{"skipped", strconv.Itoa(res.Skipped)},
		{"mean_auc_hybrid", strconv.FormatFloat(res.MeanAUCA, 'f', 4, 64)},
		{"mean_auc_benchmark", strconv.FormatFloat(res.MeanAUCB, 'f', 4, 64)},
		{"ci95_hybrid_low", strconv.FormatFloat(res.CIA[0], 'f', 4, 64)},
		{"ci95_hybrid_high", strconv.FormatFloat(res.CIA[1], 'f', 4, 64)},
		{"ci95_benchmark_low", strconv.FormatFloat(res.CIB[0], 'f', 4, 64)},
		{"ci95_benchmark_high", strconv.FormatFloat(res.CIB[1], 'f', 4, 64)},
		{"p_one_sided", strconv.FormatFloat(res.PValue, 'f', 6, 64)},
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func runFigures(cmd *cobra.Command, args []string) error {
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageFigures)
	if err != nil {
		return err
	}
	records, err := loadDataset()
	if err != nil {
		return err
	}

	if err := render.RenderROC(records, run.Path("roc_comparison.png"), render.ROCOptions{}); err != nil {
		return err
	}
	collector.FiguresDrawn.Inc()

	// Risk map: needs the raster stage output plus the site positions.
	riskPath, err := pipeline.Resolve(
		pipeline.Latest(cfg.Paths.OutputDir, pipeline.StageRaster, "risk_proxy.asc"),
	)
	if err == nil {
		grid, err := raster.ReadASCIIGrid(riskPath)
		if err != nil {
			return err
		}
		scores := make([]site.RiskScores, 0, len(records))
		for i := range records {
			r := &records[i]
			scores = append(scores, site.RiskScores{
				SiteID:       r.SiteID,
				CenterX:      r.CenterX,
				CenterY:      r.CenterY,
				RiskProxy:    r.RiskProxy,
				RiskHorizon:  r.RiskHorizon,
				OverheadFlag: r.OverheadFlag,
			})
		}
		highlight := ""
		if len(cfg.Eval.FocusSites) > 0 {
			highlight = cfg.Eval.FocusSites[0]
		}
		opts := render.RiskMapOptions{HighlightSite: highlight}
		if err := render.RenderRiskMap(grid, scores, run.Path("risk_map.png"), opts); err != nil {
			return err
		}
		collector.FiguresDrawn.Inc()

		// One map per risk model, markers colored by the model's score
		// over the building footprints.
		heightPath, err := pipeline.Resolve(
			pipeline.Latest(cfg.Paths.OutputDir, pipeline.StageRaster, "height_coarse.asc"),
		)
		backdrop := grid
		if err == nil {
			if backdrop, err = raster.ReadASCIIGrid(heightPath); err != nil {
				return err
			}
		}
		models := []struct {
			file  string
			score func(*site.RiskScores) float64
		}{
			{"risk_map_horizon.png", func(s *site.RiskScores) float64 { return s.RiskHorizon }},
			{"risk_map_hybrid.png", func(s *site.RiskScores) float64 {
				if s.OverheadFlag == 1 {
					return 1.0
				}
				return s.RiskHorizon
			}},
		}
		for _, m := range models {
			if err := render.RenderSiteScoreMap(backdrop, scores, m.score, run.Path(m.file), opts); err != nil {
				return err
			}
			collector.FiguresDrawn.Inc()
		}
	} else {
		glog.Warningf("skipping risk maps: %s", err)
	}

	y, hybrid, hdop := eval.ValidationScores(records)
	res, err := eval.BootstrapCompare(y, hybrid, hdop, cfg.Eval.BootstrapIterations, cfg.Eval.BootstrapSeed)
	if err != nil {
		glog.Warningf("skipping bootstrap histogram: %s", err)
	} else {
		if err := render.RenderBootstrapHistogram(res, run.Path("bootstrap_diff.png"), render.HistogramOptions{}); err != nil {
			return err
		}
		collector.FiguresDrawn.Inc()
	}

	return run.Finish()
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := sql.Open("sqlite3", cfg.Export.SQLiteFile)
	if err != nil {
		return fmt.Errorf("unable to open sqlite DB %q: %w", cfg.Export.SQLiteFile, err)
	}
	defer db.Close()

	s := server.New(db, cfg.Paths.OutputDir, collector)
	return s.Run(fmt.Sprintf(":%d", cfg.Server.Port))
}
