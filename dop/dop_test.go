package dop

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/0319-2004/PacificPNT-Reproducible/gnss"
)

// crossSky is one satellite per cardinal direction at 45 degrees
// elevation plus one at zenith. The east and north axes decouple from
// the vertical and clock terms, so its HDOP is exactly sqrt(2).
func crossSky() []Sky {
	return []Sky{
		{AzimuthDeg: 0, ElevationDeg: 45},
		{AzimuthDeg: 90, ElevationDeg: 45},
		{AzimuthDeg: 180, ElevationDeg: 45},
		{AzimuthDeg: 270, ElevationDeg: 45},
		{AzimuthDeg: 0, ElevationDeg: 90},
	}
}

func TestHDOPSymmetricConstellation(t *testing.T) {
	got := HDOP(crossSky())
	want := math.Sqrt(2)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("HDOP: got %.12f, want %.12f", got, want)
	}
}

func TestHDOPTooFewSatellites(t *testing.T) {
	if got := HDOP(crossSky()[:3]); !math.IsNaN(got) {
		t.Errorf("3 satellites: got %f, want NaN", got)
	}
	if got := HDOP(nil); !math.IsNaN(got) {
		t.Errorf("no satellites: got %f, want NaN", got)
	}
}

func TestHDOPSingularGeometry(t *testing.T) {
	// All satellites on the horizon leave the vertical unobservable.
	flat := []Sky{
		{AzimuthDeg: 0, ElevationDeg: 0},
		{AzimuthDeg: 90, ElevationDeg: 0},
		{AzimuthDeg: 180, ElevationDeg: 0},
		{AzimuthDeg: 270, ElevationDeg: 0},
	}
	if got := HDOP(flat); !math.IsNaN(got) {
		t.Errorf("singular geometry: got %f, want NaN", got)
	}

	// A shared elevation makes the vertical column a multiple of the
	// clock column.
	sameElev := crossSky()[:4]
	if got := HDOP(sameElev); !math.IsNaN(got) {
		t.Errorf("equal elevations: got %f, want NaN", got)
	}
}

func TestHDOPMoreSatellitesNeverWorse(t *testing.T) {
	base := HDOP(crossSky())
	richer := append(crossSky(),
		Sky{AzimuthDeg: 45, ElevationDeg: 30},
		Sky{AzimuthDeg: 225, ElevationDeg: 60},
	)
	if got := HDOP(richer); got > base+1e-9 {
		t.Errorf("more satellites raised HDOP: %.6f > %.6f", got, base)
	}
}

func TestFilterElevation(t *testing.T) {
	sats := []Sky{
		{AzimuthDeg: 0, ElevationDeg: 3},
		{AzimuthDeg: 90, ElevationDeg: 15},
		{AzimuthDeg: 180, ElevationDeg: 50},
	}
	if got := FilterElevation(sats, CutAElevationDeg); len(got) != 2 {
		t.Errorf("cut A: kept %d, want 2", len(got))
	}
	if got := FilterElevation(sats, CutBElevationDeg); len(got) != 2 {
		t.Errorf("cut B: kept %d, want 2", len(got))
	}
	if got := FilterElevation(sats, 60); len(got) != 0 {
		t.Errorf("cut 60: kept %d, want 0", len(got))
	}
}

func TestSimulate(t *testing.T) {
	log := &gnss.Log{SiteID: "A01"}
	for _, epoch := range []int64{1000, 2000} {
		for _, s := range crossSky() {
			log.Status = append(log.Status, gnss.StatusRecord{
				UnixTimeMillis: epoch,
				AzimuthDeg:     s.AzimuthDeg,
				ElevationDeg:   s.ElevationDeg,
			})
		}
	}

	res := Simulate(log)
	if res.SiteID != "A01" {
		t.Errorf("site: got %q", res.SiteID)
	}
	if res.ValidEpochs != 2 {
		t.Errorf("epochs: got %d, want 2", res.ValidEpochs)
	}
	want := math.Sqrt(2)
	if math.Abs(res.HDOPCutAMedian-want) > 1e-9 {
		t.Errorf("cut A median: got %.6f, want %.6f", res.HDOPCutAMedian, want)
	}
}

func TestResultsCSVRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	in := []SimResult{
		{SiteID: "A01", HDOPCutAMedian: 1.41, HDOPCutBMedian: 1.62, ValidEpochs: 300},
		{SiteID: "A02", HDOPCutAMedian: math.NaN(), HDOPCutBMedian: 2.0, ValidEpochs: 5},
	}
	if err := WriteResultsCSV(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := ReadResultsCSV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	if out[0].SiteID != "A01" || math.Abs(out[0].HDOPCutAMedian-1.41) > 1e-12 {
		t.Errorf("row 0: %+v", out[0])
	}
	if !math.IsNaN(out[1].HDOPCutAMedian) {
		t.Errorf("row 1 cut A: got %f, want NaN", out[1].HDOPCutAMedian)
	}
	if out[1].ValidEpochs != 5 {
		t.Errorf("row 1 epochs: got %d, want 5", out[1].ValidEpochs)
	}
}
