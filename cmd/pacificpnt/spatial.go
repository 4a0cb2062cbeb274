package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/0319-2004/PacificPNT-Reproducible/layer"
	"github.com/0319-2004/PacificPNT-Reproducible/pipeline"
	"github.com/0319-2004/PacificPNT-Reproducible/raster"
	"github.com/0319-2004/PacificPNT-Reproducible/risk"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

var (
	sitesPerClass   int
	siteSeparationM float64
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Score geometric obstruction risk per site from the city model",
	RunE:  runRisk,
}

var rasterizeCmd = &cobra.Command{
	Use:   "rasterize",
	Short: "Build the AOI exposure rasters and class statistics",
	RunE:  runRasterize,
}

var selectSitesCmd = &cobra.Command{
	Use:   "selectsites",
	Short: "Pick stratified candidate sites from the exposure classes",
	RunE:  runSelectSites,
}

func init() {
	selectSitesCmd.Flags().IntVar(&sitesPerClass, "per-class", 4, "Candidate sites per exposure class")
	selectSitesCmd.Flags().Float64Var(&siteSeparationM, "min-separation", 100, "Minimum distance between candidate sites in metres")

	rootCmd.AddCommand(riskCmd, rasterizeCmd, selectSitesCmd)
}

// cityLayers loads the building and viaduct layers. The viaduct layer
// may be absent, in which case overhead flags stay 0.
func cityLayers() (buildings, viaducts *layer.Layer, err error) {
	if cfg.Paths.Buildings == "" {
		return nil, nil, fmt.Errorf("paths.buildings is not configured")
	}
	proj := projection()
	buildings, err = layer.LoadGeoJSON(cfg.Paths.Buildings, "buildings", proj)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Paths.Viaducts != "" {
		viaducts, err = layer.LoadGeoJSON(cfg.Paths.Viaducts, "viaducts", proj)
		if err != nil {
			return nil, nil, err
		}
	} else {
		glog.Warning("paths.viaducts not configured, overhead flags will stay 0")
	}
	return buildings, viaducts, nil
}

func scorer() *risk.Scorer {
	return &risk.Scorer{
		SearchRadiusM:   cfg.Risk.SearchRadiusM,
		AntennaHeightM:  cfg.Risk.AntennaHeightM,
		DistanceScaleM:  cfg.Risk.DistanceScaleM,
		DefaultHeightM:  cfg.Risk.DefaultHeightM,
		OverheadBufferM: cfg.Risk.OverheadBufferM,
	}
}

func runRisk(cmd *cobra.Command, args []string) error {
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageRisk)
	if err != nil {
		return err
	}
	buildings, viaducts, err := cityLayers()
	if err != nil {
		return err
	}
	defs, err := siteDefinitions()
	if err != nil {
		return err
	}

	start := time.Now()
	scores := scorer().ScoreSites(defs, buildings, viaducts)
	collector.StageDuration.WithLabelValues(pipeline.StageRisk).Observe(time.Since(start).Seconds())

	if err := site.WriteRiskCSV(run.Path("risk_scores.csv"), scores); err != nil {
		return err
	}
	glog.Infof("risk: scored %d sites against %d buildings", len(scores), buildings.Len())
	return run.Finish()
}

func aoiExtent(buildings *layer.Layer) raster.Extent {
	if len(cfg.Raster.Extent) == 4 {
		e := cfg.Raster.Extent
		return raster.Extent{MinX: e[0], MinY: e[1], MaxX: e[2], MaxY: e[3]}
	}
	minX, minY, maxX, maxY := buildings.Bounds()
	return raster.Extent{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

func runRasterize(cmd *cobra.Command, args []string) error {
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageRaster)
	if err != nil {
		return err
	}
	buildings, _, err := cityLayers()
	if err != nil {
		return err
	}
	extent := aoiExtent(buildings)
	start := time.Now()

	heightsFine := raster.RasterizeHeights(buildings, extent, cfg.Raster.CellSizeFineM, cfg.Risk.DefaultHeightM)
	if err := raster.WriteASCIIGrid(run.Path("height_fine.asc"), heightsFine); err != nil {
		return err
	}

	heights := raster.RasterizeHeights(buildings, extent, cfg.Raster.CellSizeCoarseM, cfg.Risk.DefaultHeightM)
	localMax := heights.FocalMax(cfg.Raster.FocalRadiusM)
	riskGrid, err := raster.RiskProxy(localMax)
	if err != nil {
		return err
	}
	svfGrid := raster.SVFProxy(riskGrid)

	q30, q70, err := raster.Thresholds(riskGrid)
	if err != nil {
		return err
	}
	classGrid := raster.Classify(riskGrid, q30, q70)
	stats := raster.AOIStats(classGrid)
	collector.StageDuration.WithLabelValues(pipeline.StageRaster).Observe(time.Since(start).Seconds())

	for name, g := range map[string]*raster.Grid{
		"height_coarse.asc": heights,
		"risk_proxy.asc":    riskGrid,
		"svf_proxy.asc":     svfGrid,
		"classes.asc":       classGrid,
	} {
		if err := raster.WriteASCIIGrid(run.Path(name), g); err != nil {
			return err
		}
	}
	if err := writeClassStatsCSV(run.Path("class_stats.csv"), q30, q70, stats); err != nil {
		return err
	}
	glog.Infof("rasterize: thresholds q30=%.4f q70=%.4f", q30, q70)
	return run.Finish()
}

func writeClassStatsCSV(path string, q30, q70 float64, stats []raster.ClassStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"class", "label", "pixels", "area_m2", "share", "q30", "q70"}); err != nil {
		return err
	}
	for _, s := range stats {
		row := []string{
			strconv.Itoa(s.Class),
			s.Label,
			strconv.Itoa(s.Pixels),
			strconv.FormatFloat(s.AreaM2, 'f', 1, 64),
			strconv.FormatFloat(s.Share, 'f', 4, 64),
			strconv.FormatFloat(q30, 'f', 6, 64),
			strconv.FormatFloat(q70, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func runSelectSites(cmd *cobra.Command, args []string) error {
	run, err := pipeline.NewRun(cfg.Paths.OutputDir, pipeline.StageSites)
	if err != nil {
		return err
	}
	classPath, err := pipeline.Resolve(
		pipeline.Latest(cfg.Paths.OutputDir, pipeline.StageRaster, "classes.asc"),
	)
	if err != nil {
		return err
	}
	classGrid, err := raster.ReadASCIIGrid(classPath)
	if err != nil {
		return err
	}

	defs := raster.SelectSites(classGrid, sitesPerClass, siteSeparationM)
	if err := site.WriteDefinitions(run.Path("sites.csv"), defs); err != nil {
		return err
	}
	glog.Infof("selectsites: %d candidates", len(defs))
	return run.Finish()
}
