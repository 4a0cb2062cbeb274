package gnss

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// headerMap maps a column name to its index within the record line,
// counting from the record-type field at index 0.
type headerMap map[string]int

func (h headerMap) lookup(row []string, names ...string) (string, bool) {
	for _, n := range names {
		idx, ok := h[n]
		if !ok || idx >= len(row) {
			continue
		}
		return strings.TrimSpace(row[idx]), true
	}
	return "", false
}

func parseHeaderLine(line string) headerMap {
	clean := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	cols := strings.Split(clean, ",")
	m := headerMap{}
	for i, c := range cols {
		m[strings.TrimSpace(c)] = i
	}
	return m
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Parse reads a GNSS Logger text export. Column positions come from the
// "# Fix" / "# Status" header lines, not from fixed indices; rows with
// unparseable mandatory fields are skipped. Parse fails if either header
// is missing while records of that type are present.
func Parse(r io.Reader) (*Log, error) {
	var (
		fixHeader    headerMap
		statusHeader headerMap
		log          Log
		badRows      int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "# Fix"):
			fixHeader = parseHeaderLine(line)
		case strings.HasPrefix(line, "# Status"):
			statusHeader = parseHeaderLine(line)
		case strings.HasPrefix(line, "Fix,"):
			if fixHeader == nil {
				return nil, fmt.Errorf("gnss: Fix record before Fix header")
			}
			row := strings.Split(line, ",")
			rec, ok := parseFixRow(fixHeader, row)
			if !ok {
				badRows++
				continue
			}
			log.Fixes = append(log.Fixes, rec)
		case strings.HasPrefix(line, "Status,"):
			if statusHeader == nil {
				return nil, fmt.Errorf("gnss: Status record before Status header")
			}
			row := strings.Split(line, ",")
			rec, ok := parseStatusRow(statusHeader, row)
			if !ok {
				badRows++
				continue
			}
			log.Status = append(log.Status, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("gnss: reading log: %w", err)
	}
	if badRows > 0 {
		glog.V(1).Infof("gnss: skipped %d unparseable rows", badRows)
	}
	return &log, nil
}

func parseFixRow(h headerMap, row []string) (FixRecord, bool) {
	var rec FixRecord
	if s, ok := h.lookup(row, "Provider"); ok {
		rec.Provider = s
	}
	// Some exports label the position columns with a "Degrees" suffix.
	latRaw, okLat := h.lookup(row, "LatitudeDegrees", "Latitude")
	lonRaw, okLon := h.lookup(row, "LongitudeDegrees", "Longitude")
	timeRaw, okTime := h.lookup(row, "UnixTimeMillis")
	if !okLat || !okLon || !okTime {
		return rec, false
	}
	lat, ok1 := parseFloat(latRaw)
	lon, ok2 := parseFloat(lonRaw)
	t, ok3 := parseInt(timeRaw)
	if !ok1 || !ok2 || !ok3 {
		return rec, false
	}
	rec.LatitudeDeg = lat
	rec.LongitudeDeg = lon
	rec.UnixTimeMillis = t
	if s, ok := h.lookup(row, "AccuracyMeters", "Accuracy"); ok {
		if v, okv := parseFloat(s); okv {
			rec.AccuracyM = v
		}
	}
	return rec, true
}

func parseStatusRow(h headerMap, row []string) (StatusRecord, bool) {
	var rec StatusRecord
	timeRaw, okTime := h.lookup(row, "UnixTimeMillis")
	elRaw, okEl := h.lookup(row, "ElevationDegrees")
	cn0Raw, okCn0 := h.lookup(row, "Cn0DbHz")
	if !okTime || !okEl || !okCn0 {
		return rec, false
	}
	t, ok1 := parseInt(timeRaw)
	el, ok2 := parseFloat(elRaw)
	cn0, ok3 := parseFloat(cn0Raw)
	if !ok1 || !ok2 || !ok3 {
		return rec, false
	}
	rec.UnixTimeMillis = t
	rec.ElevationDeg = el
	rec.Cn0DbHz = cn0
	if s, ok := h.lookup(row, "AzimuthDegrees"); ok {
		if v, okv := parseFloat(s); okv {
			rec.AzimuthDeg = v
		}
	}
	if s, ok := h.lookup(row, "Svid"); ok {
		if v, okv := parseInt(s); okv {
			rec.Svid = int(v)
		}
	}
	if s, ok := h.lookup(row, "ConstellationType"); ok {
		if v, okv := parseInt(s); okv {
			rec.ConstellationType = int(v)
		}
	}
	if s, ok := h.lookup(row, "UsedInFix"); ok {
		if v, okv := parseInt(s); okv {
			rec.UsedInFix = v == 1
		}
	}
	return rec, true
}
