package dop

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/0319-2004/PacificPNT-Reproducible/geodesy"
	"github.com/0319-2004/PacificPNT-Reproducible/stat"
)

// Constellation is a set of GNSS satellites propagated from TLEs with
// SGP4. It provides the obstruction-free benchmark sky: what the receiver
// geometry would look like with nothing but the elevation mask in the way.
type Constellation struct {
	names []string
	sats  []satellite.Satellite
}

// LoadTLE reads a two- or three-line-element file. Lines starting with
// "1 " and "2 " are paired; any preceding line is taken as the name.
func LoadTLE(path string) (*Constellation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := &Constellation{}
	var name, line1 string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "1 "):
			line1 = line
		case strings.HasPrefix(trimmed, "2 "):
			if line1 == "" {
				return nil, fmt.Errorf("dop: TLE line 2 without line 1 in %q", path)
			}
			c.sats = append(c.sats, satellite.TLEToSat(line1, line, satellite.GravityWGS72))
			if name == "" {
				name = fmt.Sprintf("SAT-%d", len(c.sats))
			}
			c.names = append(c.names, name)
			name, line1 = "", ""
		default:
			name = trimmed
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(c.sats) == 0 {
		return nil, fmt.Errorf("dop: no TLE sets found in %q", path)
	}
	glog.Infof("loaded %d TLE sets from %s", len(c.sats), path)
	return c, nil
}

// Len returns the number of satellites in the constellation.
func (c *Constellation) Len() int { return len(c.sats) }

// SkyAt returns the az/el of every satellite above the horizon as seen
// from the observer at time t.
func (c *Constellation) SkyAt(latDeg, lonDeg, altM float64, t time.Time) []Sky {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)

	ox, oy, oz := geodesy.ECEFFromLLA(latDeg, lonDeg, altM)

	var sky []Sky
	for i := range c.sats {
		posECI, _ := satellite.Propagate(c.sats[i], year, int(month), day, hour, min, sec)
		posECEF := satellite.ECIToECEF(posECI, gmst)

		// go-satellite works in kilometres.
		az, el := lookAngles(latDeg, lonDeg, ox, oy, oz,
			posECEF.X*1000, posECEF.Y*1000, posECEF.Z*1000)
		if el > 0 {
			sky = append(sky, Sky{AzimuthDeg: az, ElevationDeg: el})
		}
	}
	return sky
}

// lookAngles converts the observer→satellite ECEF vector to azimuth
// (clockwise from north) and elevation, both in degrees, via the local
// east-north-up frame.
func lookAngles(latDeg, lonDeg, ox, oy, oz, sx, sy, sz float64) (azDeg, elDeg float64) {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180

	dx, dy, dz := sx-ox, sy-oy, sz-oz

	east := -math.Sin(lon)*dx + math.Cos(lon)*dy
	north := -math.Sin(lat)*math.Cos(lon)*dx - math.Sin(lat)*math.Sin(lon)*dy + math.Cos(lat)*dz
	up := math.Cos(lat)*math.Cos(lon)*dx + math.Cos(lat)*math.Sin(lon)*dy + math.Sin(lat)*dz

	rng := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if rng == 0 {
		return 0, 90
	}
	az := math.Atan2(east, north) * 180 / math.Pi
	if az < 0 {
		az += 360
	}
	el := math.Asin(up/rng) * 180 / math.Pi
	return az, el
}

// SkySimOptions controls a TLE-driven site simulation window.
type SkySimOptions struct {
	Start time.Time
	// Duration of the simulated measurement window.
	Duration time.Duration
	// Step between simulated epochs.
	Step time.Duration
}

// SimulateSite predicts open-sky HDOP medians at a site over the window,
// applying the same elevation cuts as the log-driven simulation.
func (c *Constellation) SimulateSite(siteID string, latDeg, lonDeg, altM float64, opts SkySimOptions) SimResult {
	if opts.Step <= 0 {
		opts.Step = 30 * time.Second
	}
	if opts.Duration <= 0 {
		opts.Duration = 5 * time.Minute
	}

	var cutA, cutB []float64
	epochs := 0
	for t := opts.Start; !t.After(opts.Start.Add(opts.Duration)); t = t.Add(opts.Step) {
		sky := c.SkyAt(latDeg, lonDeg, altM, t)
		epochs++
		if h := HDOP(FilterElevation(sky, CutAElevationDeg)); !math.IsNaN(h) {
			cutA = append(cutA, h)
		}
		if h := HDOP(FilterElevation(sky, CutBElevationDeg)); !math.IsNaN(h) {
			cutB = append(cutB, h)
		}
	}

	return SimResult{
		SiteID:         siteID,
		HDOPCutAMedian: stat.Median(cutA),
		HDOPCutBMedian: stat.Median(cutB),
		ValidEpochs:    epochs,
	}
}
