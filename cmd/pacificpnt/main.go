// Command pacificpnt runs the GNSS signal-degradation study pipeline:
// log normalization, baseline quality metrics, DOP simulation, the
// geometric risk models, the raster exposure phase, the joined dataset
// and its evaluation, and the figure rendering. A read-only results
// server exposes the outputs over HTTP.
package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/0319-2004/PacificPNT-Reproducible/config"
	"github.com/0319-2004/PacificPNT-Reproducible/geodesy"
	"github.com/0319-2004/PacificPNT-Reproducible/metrics"
)

var (
	cfgFile       string
	metricsListen string

	cfg       *config.Config
	collector *metrics.Collector
)

var rootCmd = &cobra.Command{
	Use:   "pacificpnt",
	Short: "GNSS signal-degradation risk pipeline",
	Long: `Processes static GNSS logging sessions against a 3D city model:
positioning-error baselines, geometric obstruction scores, a raster
exposure classification, and the evaluation of the risk models against
the observed errors.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		collector, err = metrics.NewCollector(nil)
		if err != nil {
			return err
		}
		if metricsListen != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", collector.Handler())
				if err := http.ListenAndServe(metricsListen, mux); err != nil {
					glog.Errorf("metrics listener: %s", err)
				}
			}()
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return config.Load("config.yaml")
	}
	return config.Defaults(), nil
}

// projection returns the configured plane rectangular system.
func projection() *geodesy.PlaneRectangular {
	return geodesy.NewPlaneRectangular(cfg.Projection.OriginLatDeg, cfg.Projection.OriginLonDeg)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file path (default: config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address while a stage runs")
}

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	flag.CommandLine.Parse(nil)

	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		glog.Error(err)
		os.Exit(1)
	}
}
