package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0319-2004/PacificPNT-Reproducible/export"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

func testServer(t *testing.T, records []site.Record) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ch := make(chan site.Record, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	e := &export.SQL{DB: db}
	require.NoError(t, e.Write(context.Background(), ch))

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dataset", "runs", "20250101-000000-aaaaaaaa"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "figures", "latest"), 0o755))

	return New(db, root, nil)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func testRecords() []site.Record {
	var out []site.Record
	for i := 0; i < 10; i++ {
		e := float64(i + 1)
		out = append(out, site.Record{
			SiteID:         string([]byte{'A', '0' + byte((i+1)/10), '0' + byte((i+1)%10)}),
			Class:          "street",
			ErrP95M:        e,
			RiskProxy:      e / 10,
			RiskHorizon:    e / 12,
			HDOPCutAMedian: 1 + e/5,
			NumFixes:       300,
		})
	}
	return out
}

func TestHealthz(t *testing.T) {
	w := get(t, testServer(t, nil), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestSites(t *testing.T) {
	records := testRecords()
	records[0].HDOPCutAMedian = math.NaN()
	w := get(t, testServer(t, records), "/api/v1/sites")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 10)

	assert.Equal(t, "A01", got[0]["site_id"])
	assert.Equal(t, "street", got[0]["class"])
	assert.Equal(t, float64(300), got[0]["n_fix"])
	// The stored NaN comes back as JSON null.
	assert.Nil(t, got[0]["hdop_cut_a_median"])
	assert.Equal(t, 1.0, got[0]["err_p95_m"])
}

func TestSafety(t *testing.T) {
	w := get(t, testServer(t, testRecords()), "/api/v1/safety")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Threshold float64           `json:"high_error_threshold_m"`
		Models    []json.RawMessage `json:"models"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.InDelta(t, 7.3, got.Threshold, 1e-9)
	assert.NotEmpty(t, got.Models)
}

func TestRuns(t *testing.T) {
	w := get(t, testServer(t, nil), "/api/v1/runs/dataset")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Stage string   `json:"stage"`
		Runs  []string `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "dataset", got.Stage)
	assert.Equal(t, []string{"20250101-000000-aaaaaaaa"}, got.Runs)
}

func TestRunsUnknownStage(t *testing.T) {
	w := get(t, testServer(t, nil), "/api/v1/runs/nonsense")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Runs []string `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got.Runs)
}
