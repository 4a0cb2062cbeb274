package export

import (
	"bytes"
	"context"
	"database/sql"
	"math"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

func feed(records ...site.Record) <-chan site.Record {
	ch := make(chan site.Record, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	return ch
}

func TestCSVExport(t *testing.T) {
	var buf bytes.Buffer
	e := &CSV{Out: &buf}
	err := e.Write(context.Background(), feed(
		site.Record{SiteID: "A01", Class: "street", ErrP95M: 4.8, NumFixes: 300},
		site.Record{SiteID: "A02", Class: "open", ErrP95M: math.NaN()},
	))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(site.Header(), ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "A01,street,"))
	assert.NotContains(t, lines[2], "NaN")
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLRoundtrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	in := []site.Record{
		{
			SiteID: "A02", Class: "alley", CenterX: -5950.5, CenterY: 42100.25,
			ErrP50M: 2.4, ErrP95M: 9.6, NumFixes: 280, DurationSeconds: 301,
			UsedSatMean: 11.5, Cn0Mean: 33.1, Cn0Std: 5.5, ElevMean: 38, UsedRate: 0.81,
			HDOPCutAMedian: 2.1, HDOPCutBMedian: 3.4,
			RiskProxy: 0.8, SVFProxy: 0.2, RiskHorizon: 0.75,
			OverheadFlag: 1, OverheadScore: 1, HighError: 1,
		},
		{
			SiteID: "A01", Class: "open",
			HDOPCutAMedian: math.NaN(), HDOPCutBMedian: math.NaN(), ErrP95M: math.NaN(),
		},
	}

	e := &SQL{DB: db}
	require.NoError(t, e.Write(ctx, feed(in...)))

	out, err := ReadRecords(ctx, db)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Select orders by site ID, so A01 comes back first.
	assert.Equal(t, "A01", out[0].SiteID)
	assert.True(t, math.IsNaN(out[0].HDOPCutAMedian))
	assert.True(t, math.IsNaN(out[0].ErrP95M))
	assert.Equal(t, in[0], out[1])
}

func TestSQLWriteIdempotentTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	e := &SQL{DB: db}
	require.NoError(t, e.Write(ctx, feed(site.Record{SiteID: "A01"})))
	require.NoError(t, e.Write(ctx, feed(site.Record{SiteID: "A02"})))

	out, err := ReadRecords(ctx, db)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
