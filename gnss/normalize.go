package gnss

import (
	"fmt"
	"strings"
)

// Canonical column layouts for raw GNSS Logger exports that ship without
// header lines. Placeholder names keep the column count aligned with the
// logger build that produced the study's measurements.
var (
	fixColumns = []string{
		"Fix", "Provider", "Latitude", "Longitude", "AltMeters", "SpeedMps",
		"Accuracy", "BearingDeg", "UnixTimeMillis", "SpeedAccMps",
		"BearingAccDeg", "TimeNanos", "Col12", "Col13", "Col14", "Col15",
		"Col16",
	}
	statusColumns = []string{
		"Status", "UnixTimeMillis", "Svid", "ConstellationType", "Col4",
		"AzimuthDegrees", "CarrierFrequencyHz", "Cn0DbHz", "Col8",
		"ElevationDegrees", "UsedInFix", "HasAlmanacData", "HasEphemerisData",
		"Col13",
	}
	rawColumns = []string{
		"Raw", "TimeNanos", "FullBiasNanos", "BiasNanos",
		"BiasUncertaintyNanos", "DriftNanosPerSecond",
		"DriftUncertaintyNanosPerSecond", "HardwareClockDiscontinuityCount",
		"Svid", "TimeOffsetNanos", "State", "ReceivedSvTimeNanos",
		"ReceivedSvTimeUncertaintyNanos", "Cn0DbHz",
		"PseudorangeRateMetersPerSecond",
		"PseudorangeRateUncertaintyMetersPerSecond",
		"AccumulatedDeltaRangeState", "AccumulatedDeltaRangeMeters",
		"AccumulatedDeltaRangeUncertaintyMeters", "CarrierFrequencyHz",
		"CarrierCycles", "CarrierPhase", "CarrierPhaseUncertainty",
		"MultipathIndicator", "SnrInDb", "ConstellationType", "AgcDb",
		"BasebandCn0DbHz", "Col28", "Col29", "Col30", "Col31", "Col32",
		"Col33", "Col34", "Col35",
	}

	// Second-field tokens that identify an existing header line.
	headerTokens = map[string]map[string]bool{
		"Fix": {
			"Provider": true, "Latitude": true, "Longitude": true,
			"UnixTimeMillis": true, "TimeNanos": true,
		},
		"Status": {
			"UnixTimeMillis": true, "TimeNanos": true, "Svid": true,
			"Cn0DbHz": true, "ElevationDegrees": true, "UsedInFix": true,
		},
		"Raw": {
			"TimeNanos": true, "FullBiasNanos": true, "Svid": true,
			"Cn0DbHz": true,
		},
	}
)

// headerProbeLimit bounds how many leading records of each type the
// has-header heuristic inspects.
const headerProbeLimit = 200

// NormalizeOptions controls header normalization.
type NormalizeOptions struct {
	// SkipRawHeader disables Raw header insertion. Raw records are unused
	// downstream, so a deviating Raw column count can be tolerated this way.
	SkipRawHeader bool
}

func hasHeader(lines []string, recType string) bool {
	tokens := headerTokens[recType]
	limit := len(lines)
	if limit > headerProbeLimit {
		limit = headerProbeLimit
	}
	for _, ln := range lines[:limit] {
		row := strings.Split(strings.TrimPrefix(strings.TrimSpace(ln), "#"), ",")
		if len(row) < 2 {
			continue
		}
		if tokens[strings.TrimSpace(row[1])] {
			return true
		}
	}
	return false
}

// Normalize inserts canonical header lines for record types that lack them
// and returns the normalized lines. Column counts are checked against the
// canonical layouts before inserting; a mismatch is an error rather than a
// silent misalignment.
func Normalize(lines []string, opts NormalizeOptions) ([]string, error) {
	byType := map[string][]string{}
	for _, ln := range lines {
		t := strings.TrimSpace(ln)
		switch {
		case strings.HasPrefix(t, "Fix,"):
			byType["Fix"] = append(byType["Fix"], t)
		case strings.HasPrefix(t, "Status,"):
			byType["Status"] = append(byType["Status"], t)
		case strings.HasPrefix(t, "Raw,"):
			byType["Raw"] = append(byType["Raw"], t)
		}
	}

	need := map[string]bool{}
	layouts := map[string][]string{"Fix": fixColumns, "Status": statusColumns, "Raw": rawColumns}
	for recType, recs := range byType {
		if len(recs) == 0 || hasHeader(recs, recType) {
			continue
		}
		if recType == "Raw" && opts.SkipRawHeader {
			continue
		}
		got := len(strings.Split(recs[0], ","))
		want := len(layouts[recType])
		if got != want {
			return nil, fmt.Errorf("gnss: %s records have %d columns, canonical layout has %d", recType, got, want)
		}
		need[recType] = true
	}

	seen := map[string]bool{}
	out := make([]string, 0, len(lines)+3)
	for _, ln := range lines {
		t := strings.TrimSpace(ln)
		for recType := range layouts {
			if !seen[recType] && strings.HasPrefix(t, recType+",") {
				if need[recType] {
					// Emit the commented header form the parser consumes.
					out = append(out, "# "+strings.Join(layouts[recType], ","))
				}
				seen[recType] = true
			}
		}
		out = append(out, ln)
	}
	return out, nil
}
