package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/0319-2004/PacificPNT-Reproducible/baseline"
	"github.com/0319-2004/PacificPNT-Reproducible/dop"
	"github.com/0319-2004/PacificPNT-Reproducible/gnss"
	"github.com/0319-2004/PacificPNT-Reproducible/pipeline"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

const skySimTimeFmt = "2006-01-02T15:04:05"

var (
	skipRawHeader bool

	skySimStart    string
	skySimDuration time.Duration
	skySimStep     time.Duration
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Insert canonical headers into raw GNSS Logger files",
	RunE:  runNormalize,
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Compute positioning-error and signal-quality metrics per site",
	RunE:  runBaseline,
}

var dopSimCmd = &cobra.Command{
	Use:   "dopsim",
	Short: "Compute HDOP medians from the logged satellite geometry",
	RunE:  runDOPSim,
}

var skySimCmd = &cobra.Command{
	Use:   "skysim",
	Short: "Predict open-sky HDOP medians from a TLE constellation",
	RunE:  runSkySim,
}

func init() {
	normalizeCmd.Flags().BoolVar(&skipRawHeader, "skip-raw-header", false, "Do not insert a Raw header (Raw records are unused downstream)")

	skySimCmd.Flags().StringVar(&skySimStart, "start", "", "Simulation window start, format "+skySimTimeFmt+" (default: now)")
	skySimCmd.Flags().DurationVar(&skySimDuration, "duration", 5*time.Minute, "Simulation window length")
	skySimCmd.Flags().DurationVar(&skySimStep, "step", 30*time.Second, "Time between simulated epochs")

	rootCmd.AddCommand(normalizeCmd, baselineCmd, dopSimCmd, skySimCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	if cfg.Paths.LogDir == "" {
		return fmt.Errorf("paths.log_dir is not configured")
	}
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageNormalize)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "*.txt"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt logs in %q", cfg.Paths.LogDir)
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		lines, err := gnss.Normalize(strings.Split(string(data), "\n"), gnss.NormalizeOptions{
			SkipRawHeader: skipRawHeader,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out := run.Path(filepath.Base(path))
		if err := os.WriteFile(out, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return err
		}
		glog.Infof("normalized %s", filepath.Base(path))
	}
	return run.Finish()
}

// logSource prefers the normalized mirror and falls back to the raw
// log directory.
func logSource() (*gnss.LogDir, error) {
	dir, err := pipeline.Resolve(
		pipeline.Latest(cfg.Paths.OutputDir, pipeline.StageNormalize, ""),
		cfg.Paths.LogDir,
	)
	if err != nil {
		return nil, err
	}
	return &gnss.LogDir{Dir: dir}, nil
}

func scanLogs(src *gnss.LogDir) <-chan gnss.Log {
	logs := make(chan gnss.Log)
	go func() {
		if err := src.Scan(logs); err != nil {
			glog.Errorf("scanning %s: %s", src.Dir, err)
		}
	}()
	return logs
}

func runBaseline(cmd *cobra.Command, args []string) error {
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageBaseline)
	if err != nil {
		return err
	}
	src, err := logSource()
	if err != nil {
		return err
	}

	analyzer := baseline.NewAnalyzer(projection(), baseline.Options{
		MinEpochs:          cfg.QC.MinEpochs,
		MinDurationSeconds: cfg.QC.MinDurationSeconds,
		HDOPDiscard:        cfg.QC.HDOPDiscard,
	})
	start := time.Now()
	rows, failures := analyzer.Run(scanLogs(src))
	collector.StageDuration.WithLabelValues(pipeline.StageBaseline).Observe(time.Since(start).Seconds())
	collector.SitesProcessed.Add(float64(len(rows) + len(failures)))
	for _, f := range failures {
		collector.QCFailures.WithLabelValues(f.Reason).Inc()
	}

	if err := site.WriteMetricsCSV(run.Path("baseline_metrics.csv"), rows); err != nil {
		return err
	}
	if err := writeFailuresCSV(run.Path("qc_failures.csv"), failures); err != nil {
		return err
	}
	glog.Infof("baseline: %d sites passed QC, %d rejected", len(rows), len(failures))
	return run.Finish()
}

func writeFailuresCSV(path string, failures []baseline.Failure) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"site_id", "reason"}); err != nil {
		return err
	}
	for _, fail := range failures {
		if err := w.Write([]string{fail.SiteID, fail.Reason}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func runDOPSim(cmd *cobra.Command, args []string) error {
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageDOP)
	if err != nil {
		return err
	}
	src, err := logSource()
	if err != nil {
		return err
	}

	var results []dop.SimResult
	for log := range scanLogs(src) {
		if log.ParseErr != "" {
			glog.Warningf("skipping %s: %s", log.SiteID, log.ParseErr)
			continue
		}
		results = append(results, dop.Simulate(&log))
	}
	if err := dop.WriteResultsCSV(run.Path("hdop_observed.csv"), results); err != nil {
		return err
	}
	glog.Infof("dopsim: %d sites", len(results))
	return run.Finish()
}

func runSkySim(cmd *cobra.Command, args []string) error {
	if cfg.Paths.TLE == "" {
		return fmt.Errorf("paths.tle is not configured")
	}
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageDOP)
	if err != nil {
		return err
	}

	constellation, err := dop.LoadTLE(cfg.Paths.TLE)
	if err != nil {
		return err
	}
	defs, err := siteDefinitions()
	if err != nil {
		return err
	}

	opts := dop.SkySimOptions{
		Start:    time.Now().UTC(),
		Duration: skySimDuration,
		Step:     skySimStep,
	}
	if skySimStart != "" {
		t, err := time.Parse(skySimTimeFmt, skySimStart)
		if err != nil {
			return fmt.Errorf("unable to parse --start (value: %q, format: %q): %w", skySimStart, skySimTimeFmt, err)
		}
		opts.Start = t
	}

	proj := projection()
	results := make([]dop.SimResult, 0, len(defs))
	for _, d := range defs {
		lat, lon := proj.Inverse(d.CenterX, d.CenterY)
		results = append(results, constellation.SimulateSite(d.SiteID, lat, lon, cfg.Risk.AntennaHeightM, opts))
	}
	if err := dop.WriteResultsCSV(run.Path("hdop_simulated.csv"), results); err != nil {
		return err
	}
	glog.Infof("skysim: %d sites over %d satellites", len(results), constellation.Len())
	return run.Finish()
}

// siteDefinitions prefers the configured site table and falls back to
// the raster stage's selection output.
func siteDefinitions() ([]site.Definition, error) {
	path, err := pipeline.Resolve(
		cfg.Paths.Sites,
		pipeline.Latest(cfg.Paths.OutputDir, pipeline.StageSites, "sites.csv"),
	)
	if err != nil {
		return nil, err
	}
	return site.ReadDefinitions(path)
}
