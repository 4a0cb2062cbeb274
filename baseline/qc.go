package baseline

import (
	"fmt"

	"github.com/0319-2004/PacificPNT-Reproducible/gnss"
)

// Failure records a site rejected by quality control and why.
type Failure struct {
	SiteID string
	Reason string
}

// Gate is one quality-control check over a parsed site log.
type Gate interface {
	// Check returns ok=false and a human-readable reason to reject the log.
	Check(*gnss.Log) (reason string, ok bool)
}

// CheckAll runs the gates in order and returns the first rejection.
func CheckAll(log *gnss.Log, gates []Gate) (string, bool) {
	for _, g := range gates {
		if reason, ok := g.Check(log); !ok {
			return reason, false
		}
	}
	return "", true
}

// ParseGate rejects logs that failed to parse at all.
type ParseGate struct{}

func (ParseGate) Check(l *gnss.Log) (string, bool) {
	if l.ParseErr != "" {
		return fmt.Sprintf("Parse Error: %s", l.ParseErr), false
	}
	return "", true
}

// EpochGate rejects logs with too few fix epochs.
type EpochGate struct {
	MinEpochs int
}

func (g EpochGate) Check(l *gnss.Log) (string, bool) {
	if len(l.Fixes) < g.MinEpochs {
		return fmt.Sprintf("Low Epochs (%d)", len(l.Fixes)), false
	}
	return "", true
}

// DurationGate rejects logs spanning too little measurement time.
type DurationGate struct {
	MinSeconds float64
}

func (g DurationGate) Check(l *gnss.Log) (string, bool) {
	d := l.DurationSeconds()
	if d < g.MinSeconds {
		return fmt.Sprintf("Short Duration (%.1fs)", d), false
	}
	return "", true
}

// UsedSatGate rejects logs where no satellite was ever used in a fix.
type UsedSatGate struct{}

func (UsedSatGate) Check(l *gnss.Log) (string, bool) {
	for _, s := range l.Status {
		if s.UsedInFix {
			return "", true
		}
	}
	return "No Used Satellites", false
}
