package dop

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Well-known SGP4 reference element set.
const issTLE = `ISS (ZARYA)
1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927
2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537
`

func writeTLE(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "constellation.tle")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTLE(t *testing.T) {
	c, err := LoadTLE(writeTLE(t, issTLE))
	if err != nil {
		t.Fatalf("LoadTLE: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("got %d satellites, want 1", c.Len())
	}
}

func TestLoadTLETwoLineFormat(t *testing.T) {
	// No name line: a placeholder name is assigned.
	noName := `1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927
2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537
`
	c, err := LoadTLE(writeTLE(t, noName))
	if err != nil {
		t.Fatalf("LoadTLE: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("got %d satellites, want 1", c.Len())
	}
}

func TestLoadTLEErrors(t *testing.T) {
	if _, err := LoadTLE(writeTLE(t, "just a comment\n")); err == nil {
		t.Error("no element sets: want error")
	}
	orphan := "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537\n"
	if _, err := LoadTLE(writeTLE(t, orphan)); err == nil {
		t.Error("line 2 without line 1: want error")
	}
}

func TestLookAngles(t *testing.T) {
	// Observer on the equator at the prime meridian; offsets in the
	// local frame map straight onto azimuth and elevation.
	const r = 6378137.0
	cases := []struct {
		name       string
		sx, sy, sz float64
		az, el     float64
	}{
		{"zenith", r + 1e6, 0, 0, 0, 90},
		{"north horizon", r, 0, 1e6, 0, 0},
		{"east horizon", r, 1e6, 0, 90, 0},
		{"south horizon", r, 0, -1e6, 180, 0},
		{"west horizon", r, -1e6, 0, 270, 0},
	}
	for _, c := range cases {
		az, el := lookAngles(0, 0, r, 0, 0, c.sx, c.sy, c.sz)
		if math.Abs(az-c.az) > 1e-6 && c.el != 90 {
			t.Errorf("%s: az = %f, want %f", c.name, az, c.az)
		}
		if math.Abs(el-c.el) > 1e-6 {
			t.Errorf("%s: el = %f, want %f", c.name, el, c.el)
		}
	}
}

func TestSimulateSiteEpochCount(t *testing.T) {
	c, err := LoadTLE(writeTLE(t, issTLE))
	if err != nil {
		t.Fatalf("LoadTLE: %v", err)
	}

	start := time.Date(2008, 9, 20, 12, 25, 40, 0, time.UTC)
	res := c.SimulateSite("A01", 36.0, 139.0+50.0/60.0, 1.5, SkySimOptions{
		Start:    start,
		Duration: 4 * time.Minute,
		Step:     time.Minute,
	})

	if res.SiteID != "A01" {
		t.Errorf("site: %q", res.SiteID)
	}
	if res.ValidEpochs != 5 {
		t.Errorf("epochs: got %d, want 5", res.ValidEpochs)
	}
	// A single satellite can never yield an HDOP.
	if !math.IsNaN(res.HDOPCutAMedian) || !math.IsNaN(res.HDOPCutBMedian) {
		t.Errorf("medians: %f / %f, want NaN", res.HDOPCutAMedian, res.HDOPCutBMedian)
	}
}
