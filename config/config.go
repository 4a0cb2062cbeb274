// Package config loads the pipeline configuration from config.yaml.
//
// Config sections:
//   - paths      - input log directory, city model GeoJSON files, output root
//   - qc         - epoch and duration quality gates for the baseline stage
//   - projection - plane rectangular origin (defaults to zone IX)
//   - risk       - geometric scoring parameters
//   - raster     - AOI extent, cell sizes and focal radius
//   - eval       - ground-truth thresholds and bootstrap settings
//   - export     - sqlite file and optional MySQL DSN
//   - server     - results server port
//
// Load(path) applies defaults before unmarshalling, then validates.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/0319-2004/PacificPNT-Reproducible/baseline"
	"github.com/0319-2004/PacificPNT-Reproducible/eval"
	"github.com/0319-2004/PacificPNT-Reproducible/risk"
)

// Default values for the pipeline configuration.
const (
	DefaultOutputDir  = "output"
	DefaultSQLiteFile = "output/sites.db"
	DefaultServerPort = 8080

	DefaultCellSizeFineM   = 3.0
	DefaultCellSizeCoarseM = 5.0
	DefaultFocalRadiusM    = 30.0

	DefaultOriginLatDeg = 36.0
	DefaultOriginLonDeg = 139.0 + 50.0/60.0
)

// Config is the root of config.yaml.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	QC         QCConfig         `yaml:"qc"`
	Projection ProjectionConfig `yaml:"projection"`
	Risk       RiskConfig       `yaml:"risk"`
	Raster     RasterConfig     `yaml:"raster"`
	Eval       EvalConfig       `yaml:"eval"`
	Export     ExportConfig     `yaml:"export"`
	Server     ServerConfig     `yaml:"server"`
}

// PathsConfig names the pipeline inputs and the output root.
type PathsConfig struct {
	// LogDir holds the raw GNSS Logger text files, one or more per site.
	LogDir string `yaml:"log_dir"`

	// Buildings and Viaducts are city model GeoJSON files.
	Buildings string `yaml:"buildings"`
	Viaducts  string `yaml:"viaducts"`

	// Sites is the CSV with site IDs, classes and plane coordinates.
	Sites string `yaml:"sites"`

	// TLE optionally points to a constellation TLE file for the sky
	// simulation.
	TLE string `yaml:"tle"`

	// OutputDir is the root of the per-stage run directories.
	OutputDir string `yaml:"output_dir"`
}

// QCConfig holds the baseline quality gates.
type QCConfig struct {
	MinEpochs          int     `yaml:"min_epochs"`
	MinDurationSeconds float64 `yaml:"min_duration_seconds"`
	HDOPDiscard        float64 `yaml:"hdop_discard"`
}

// ProjectionConfig holds the plane rectangular origin in degrees.
type ProjectionConfig struct {
	OriginLatDeg float64 `yaml:"origin_lat_deg"`
	OriginLonDeg float64 `yaml:"origin_lon_deg"`
}

// RiskConfig holds the geometric scoring parameters in metres.
type RiskConfig struct {
	SearchRadiusM   float64 `yaml:"search_radius_m"`
	AntennaHeightM  float64 `yaml:"antenna_height_m"`
	DistanceScaleM  float64 `yaml:"distance_scale_m"`
	DefaultHeightM  float64 `yaml:"default_height_m"`
	OverheadBufferM float64 `yaml:"overhead_buffer_m"`
}

// RasterConfig holds the AOI extent and grid parameters.
type RasterConfig struct {
	// Extent is minx, miny, maxx, maxy in plane rectangular metres. An
	// empty extent falls back to the building layer bounds.
	Extent []float64 `yaml:"extent"`

	CellSizeFineM   float64 `yaml:"cell_size_fine_m"`
	CellSizeCoarseM float64 `yaml:"cell_size_coarse_m"`
	FocalRadiusM    float64 `yaml:"focal_radius_m"`
}

// EvalConfig holds the ground-truth and bootstrap settings.
type EvalConfig struct {
	HighErrorQuantile   float64  `yaml:"high_error_quantile"`
	StrictThresholdM    float64  `yaml:"strict_threshold_m"`
	FocusSites          []string `yaml:"focus_sites"`
	BootstrapIterations int      `yaml:"bootstrap_iterations"`
	BootstrapSeed       int64    `yaml:"bootstrap_seed"`
}

// ExportConfig selects the persistence backends.
type ExportConfig struct {
	// SQLiteFile is the results database written by the export stage and
	// read by the results server.
	SQLiteFile string `yaml:"sqlite_file"`

	// MySQLDSNEnv names an environment variable holding a MySQL DSN.
	// Empty disables the MySQL exporter.
	MySQLDSNEnv string `yaml:"mysql_dsn_env"`
}

// MySQLDSN returns the DSN resolved from the environment.
func (e ExportConfig) MySQLDSN() string {
	if e.MySQLDSNEnv == "" {
		return ""
	}
	return os.Getenv(e.MySQLDSNEnv)
}

// ServerConfig holds the results server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Load reads and parses the config file at path. Missing fields are
// filled with the study defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with the study parameters.
func Defaults() *Config {
	opts := baseline.DefaultOptions()
	return &Config{
		Paths: PathsConfig{
			OutputDir: DefaultOutputDir,
		},
		QC: QCConfig{
			MinEpochs:          opts.MinEpochs,
			MinDurationSeconds: opts.MinDurationSeconds,
			HDOPDiscard:        opts.HDOPDiscard,
		},
		Projection: ProjectionConfig{
			OriginLatDeg: DefaultOriginLatDeg,
			OriginLonDeg: DefaultOriginLonDeg,
		},
		Risk: RiskConfig{
			SearchRadiusM:   risk.DefaultSearchRadiusM,
			AntennaHeightM:  risk.DefaultAntennaHeightM,
			DistanceScaleM:  risk.DefaultDistanceScaleM,
			DefaultHeightM:  risk.DefaultObstacleHeightM,
			OverheadBufferM: risk.DefaultOverheadBufferM,
		},
		Raster: RasterConfig{
			CellSizeFineM:   DefaultCellSizeFineM,
			CellSizeCoarseM: DefaultCellSizeCoarseM,
			FocalRadiusM:    DefaultFocalRadiusM,
		},
		Eval: EvalConfig{
			HighErrorQuantile:   eval.HighErrorQuantile,
			StrictThresholdM:    eval.StrictErrorThresholdM,
			FocusSites:          eval.DefaultFocusSites,
			BootstrapIterations: eval.DefaultBootstrapIterations,
			BootstrapSeed:       eval.DefaultBootstrapSeed,
		},
		Export: ExportConfig{
			SQLiteFile: DefaultSQLiteFile,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.QC.MinEpochs < 0 {
		return fmt.Errorf("qc.min_epochs must not be negative")
	}
	if cfg.QC.MinDurationSeconds < 0 {
		return fmt.Errorf("qc.min_duration_seconds must not be negative")
	}
	if cfg.Risk.SearchRadiusM <= 0 {
		return fmt.Errorf("risk.search_radius_m must be positive")
	}
	if cfg.Raster.CellSizeFineM <= 0 || cfg.Raster.CellSizeCoarseM <= 0 {
		return fmt.Errorf("raster cell sizes must be positive")
	}
	if n := len(cfg.Raster.Extent); n != 0 && n != 4 {
		return fmt.Errorf("raster.extent wants 4 values (minx miny maxx maxy), got %d", n)
	}
	if q := cfg.Eval.HighErrorQuantile; q <= 0 || q >= 1 {
		return fmt.Errorf("eval.high_error_quantile %f is out of range (0, 1)", q)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range [1, 65535]", cfg.Server.Port)
	}
	return nil
}
