package baseline

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0319-2004/PacificPNT-Reproducible/geodesy"
	"github.com/0319-2004/PacificPNT-Reproducible/gnss"
)

// goodLog builds a log with n one-second fix epochs at a constant
// position. Each epoch sees one satellite per cardinal direction at 45
// degrees elevation plus one at zenith, a geometry whose HDOP is
// exactly sqrt(2).
func goodLog(siteID string, n int) *gnss.Log {
	sky := []struct{ az, el float64 }{
		{0, 45}, {90, 45}, {180, 45}, {270, 45}, {0, 90},
	}
	l := &gnss.Log{SiteID: siteID}
	for i := 0; i < n; i++ {
		ms := int64(i) * 1000
		l.Fixes = append(l.Fixes, gnss.FixRecord{
			Provider:       "gps",
			LatitudeDeg:    36.0,
			LongitudeDeg:   139.0 + 50.0/60.0,
			UnixTimeMillis: ms,
		})
		for _, s := range sky {
			l.Status = append(l.Status, gnss.StatusRecord{
				UnixTimeMillis: ms,
				AzimuthDeg:     s.az,
				ElevationDeg:   s.el,
				Cn0DbHz:        40,
				UsedInFix:      true,
			})
		}
	}
	return l
}

func testAnalyzer(opts Options) *Analyzer {
	return NewAnalyzer(geodesy.ZoneIX(), opts)
}

func TestGateReasons(t *testing.T) {
	a := testAnalyzer(DefaultOptions())

	cases := []struct {
		name   string
		log    *gnss.Log
		prefix string
	}{
		{"parse error", &gnss.Log{SiteID: "A01", ParseErr: "record before header"}, "Parse Error:"},
		{"low epochs", goodLog("A02", 10), "Low Epochs"},
		{"no used satellites", noUsedSats(goodLog("A04", 300)), "No Used Satellites"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, fail := a.Analyze(c.log)
			require.NotNil(t, fail)
			assert.Equal(t, c.log.SiteID, fail.SiteID)
			assert.True(t, strings.HasPrefix(fail.Reason, c.prefix), "reason %q", fail.Reason)
		})
	}
}

func TestDurationGate(t *testing.T) {
	// Enough epochs, but all within one second.
	l := goodLog("A03", 300)
	for i := range l.Fixes {
		l.Fixes[i].UnixTimeMillis = int64(i)
	}
	a := testAnalyzer(DefaultOptions())
	_, fail := a.Analyze(l)
	require.NotNil(t, fail)
	assert.True(t, strings.HasPrefix(fail.Reason, "Short Duration"), "reason %q", fail.Reason)
}

func noUsedSats(l *gnss.Log) *gnss.Log {
	for i := range l.Status {
		l.Status[i].UsedInFix = false
	}
	return l
}

func TestAnalyze(t *testing.T) {
	l := goodLog("A01", 300)
	a := testAnalyzer(DefaultOptions())

	m, fail := a.Analyze(l)
	require.Nil(t, fail)

	assert.Equal(t, "A01", m.SiteID)
	assert.Equal(t, 300, m.NumFixes)
	assert.InDelta(t, 299.0, m.DurationSeconds, 1e-9)

	// Zero scatter around the median center.
	assert.Equal(t, 0.0, m.ErrP50M)
	assert.Equal(t, 0.0, m.ErrP95M)

	assert.InDelta(t, 5.0, m.UsedSatMean, 1e-12)
	assert.InDelta(t, 40.0, m.Cn0Mean, 1e-12)
	assert.InDelta(t, 54.0, m.ElevMean, 1e-12)
	assert.InDelta(t, 1.0, m.UsedRate, 1e-12)

	want := math.Sqrt(2)
	assert.InDelta(t, want, m.HDOPCutAMedian, 1e-9)
	assert.InDelta(t, want, m.HDOPCutBMedian, 1e-9)
}

func TestProjectedErrorScatter(t *testing.T) {
	l := goodLog("A01", 300)
	// One outlier fix about 11 m north of the median center.
	l.Fixes[0].LatitudeDeg += 0.0001

	a := testAnalyzer(DefaultOptions())
	m, fail := a.Analyze(l)
	require.Nil(t, fail)
	assert.Equal(t, 0.0, m.ErrP50M)
	assert.Greater(t, m.ErrP95M, 0.0)
	assert.Less(t, m.ErrP95M, 11.2)
}

func TestHDOPDiscard(t *testing.T) {
	// With a discard bound below sqrt(2) every epoch is dropped and the
	// medians stay NaN.
	l := goodLog("A01", 300)
	opts := DefaultOptions()
	opts.HDOPDiscard = 1.0

	m, fail := testAnalyzer(opts).Analyze(l)
	require.Nil(t, fail)
	assert.True(t, math.IsNaN(m.HDOPCutAMedian), "got %f, want NaN", m.HDOPCutAMedian)
	assert.True(t, math.IsNaN(m.HDOPCutBMedian), "got %f, want NaN", m.HDOPCutBMedian)
}

func TestRunSplitsFailures(t *testing.T) {
	logs := make(chan gnss.Log, 2)
	logs <- *goodLog("A01", 300)
	logs <- gnss.Log{SiteID: "A02", ParseErr: "boom"}
	close(logs)

	a := testAnalyzer(DefaultOptions())
	metrics, failures := a.Run(logs)
	require.Len(t, metrics, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, "A01", metrics[0].SiteID)
	assert.Equal(t, "A02", failures[0].SiteID)
}
