// Package gnss holds the record types and parsing for GNSS Logger text
// exports. A log file carries line-prefixed CSV records: "Fix" rows with
// the receiver position solution and "Status" rows with per-satellite
// tracking state. Header lines are "# Fix,..." / "# Status,..." comments.
package gnss

import "time"

// FixRecord is one position solution reported by the receiver.
type FixRecord struct {
	Provider       string
	UnixTimeMillis int64
	LatitudeDeg    float64
	LongitudeDeg   float64
	AccuracyM      float64
}

// Time returns the fix timestamp.
func (f FixRecord) Time() time.Time {
	return time.Unix(0, f.UnixTimeMillis*int64(time.Millisecond))
}

// StatusRecord is one per-satellite tracking report.
type StatusRecord struct {
	UnixTimeMillis    int64
	Svid              int
	ConstellationType int
	AzimuthDeg        float64
	ElevationDeg      float64
	Cn0DbHz           float64
	UsedInFix         bool
}

// Log is the parsed content of a single site's measurement log.
type Log struct {
	// SiteID is derived from the file name (everything up to the first "_").
	SiteID string
	Fixes  []FixRecord
	Status []StatusRecord

	// ParseErr carries a parse failure so it can surface as a QC failure
	// for the site instead of silently dropping the file.
	ParseErr string
}

// DurationSeconds is the span between the first and last fix epoch.
func (l *Log) DurationSeconds() float64 {
	if len(l.Fixes) == 0 {
		return 0
	}
	minT := l.Fixes[0].UnixTimeMillis
	maxT := minT
	for _, f := range l.Fixes[1:] {
		if f.UnixTimeMillis < minT {
			minT = f.UnixTimeMillis
		}
		if f.UnixTimeMillis > maxT {
			maxT = f.UnixTimeMillis
		}
	}
	return float64(maxT-minT) / 1000.0
}

// Source produces site logs, e.g. by scanning a directory of logger exports.
type Source interface {
	Name() string
	Scan(logs chan<- Log) error
}
