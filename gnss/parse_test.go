package gnss

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `# Fix,Provider,Latitude,Longitude,Accuracy,UnixTimeMillis
Fix,gps,35.6812,139.7671,4.5,1700000000000
Fix,gps,35.6813,139.7672,3.9,1700000001000
Fix,gps,broken,139.7673,3.9,1700000002000
# Status,UnixTimeMillis,Svid,ConstellationType,AzimuthDegrees,Cn0DbHz,ElevationDegrees,UsedInFix
Status,1700000000000,5,1,120.0,38.5,45.0,1
Status,1700000000000,12,1,210.0,22.0,10.0,0
`

func TestParse(t *testing.T) {
	log, err := Parse(strings.NewReader(sampleLog))
	require.NoError(t, err)

	// The broken latitude row is dropped, not fatal.
	require.Len(t, log.Fixes, 2)
	assert.Equal(t, "gps", log.Fixes[0].Provider)
	assert.InDelta(t, 35.6812, log.Fixes[0].LatitudeDeg, 1e-9)
	assert.InDelta(t, 139.7671, log.Fixes[0].LongitudeDeg, 1e-9)
	assert.Equal(t, int64(1700000000000), log.Fixes[0].UnixTimeMillis)
	assert.InDelta(t, 4.5, log.Fixes[0].AccuracyM, 1e-9)

	require.Len(t, log.Status, 2)
	assert.Equal(t, 5, log.Status[0].Svid)
	assert.InDelta(t, 45.0, log.Status[0].ElevationDeg, 1e-9)
	assert.True(t, log.Status[0].UsedInFix)
	assert.False(t, log.Status[1].UsedInFix)
}

func TestParseHeaderDrivenColumns(t *testing.T) {
	// Same data, different column order: positions must come from the
	// header, not fixed indices.
	reordered := `# Fix,UnixTimeMillis,Longitude,Latitude,Provider
Fix,1700000000000,139.7671,35.6812,gps
`
	log, err := Parse(strings.NewReader(reordered))
	require.NoError(t, err)
	require.Len(t, log.Fixes, 1)
	assert.InDelta(t, 35.6812, log.Fixes[0].LatitudeDeg, 1e-9)
	assert.InDelta(t, 139.7671, log.Fixes[0].LongitudeDeg, 1e-9)
}

func TestParseDegreesSuffixSpelling(t *testing.T) {
	suffixed := `# Fix,Provider,LatitudeDegrees,LongitudeDegrees,AccuracyMeters,UnixTimeMillis
Fix,gps,35.0,139.0,5.0,1700000000000
`
	log, err := Parse(strings.NewReader(suffixed))
	require.NoError(t, err)
	require.Len(t, log.Fixes, 1)
	assert.InDelta(t, 35.0, log.Fixes[0].LatitudeDeg, 1e-9)
	assert.InDelta(t, 5.0, log.Fixes[0].AccuracyM, 1e-9)
}

func TestParseRecordBeforeHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("Fix,gps,35.0,139.0,5.0,1700000000000\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("Status,1700000000000,5,1,120.0,38.5,45.0,1\n"))
	assert.Error(t, err)
}

func TestDurationSeconds(t *testing.T) {
	log, err := Parse(strings.NewReader(sampleLog))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, log.DurationSeconds(), 1e-9)

	var empty Log
	assert.Equal(t, 0.0, empty.DurationSeconds())
}
