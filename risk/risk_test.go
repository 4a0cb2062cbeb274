package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0319-2004/PacificPNT-Reproducible/layer"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

func square(minX, minY, side float64) layer.Polygon {
	return layer.Polygon{Outer: layer.Ring{
		{X: minX, Y: minY},
		{X: minX + side, Y: minY},
		{X: minX + side, Y: minY + side},
		{X: minX, Y: minY + side},
	}}
}

func buildLayer(t *testing.T, name string, footprints ...*layer.Footprint) *layer.Layer {
	t.Helper()
	l, err := layer.New(name, footprints)
	require.NoError(t, err)
	return l
}

func TestMaxScoreSingleObstacle(t *testing.T) {
	// A wall 10 m away whose top sits 10 m above the antenna subtends
	// exactly 45 degrees: angle score 0.5, distance score 0.5.
	buildings := buildLayer(t, "buildings",
		&layer.Footprint{Polygons: []layer.Polygon{square(10, -5, 10)}, HeightM: 11.5, HasHeight: true},
	)
	s := NewScorer()
	assert.InDelta(t, 0.25, s.MaxScore(0, 0, buildings), 1e-9)
}

func TestMaxScoreTakesDominantObstacle(t *testing.T) {
	near := &layer.Footprint{Polygons: []layer.Polygon{square(10, -5, 10)}, HeightM: 11.5, HasHeight: true}
	far := &layer.Footprint{Polygons: []layer.Polygon{square(40, -5, 5)}, HeightM: 8, HasHeight: true}
	s := NewScorer()

	both := s.MaxScore(0, 0, buildLayer(t, "buildings", near, far))
	nearOnly := s.MaxScore(0, 0, buildLayer(t, "buildings", near))
	assert.InDelta(t, nearOnly, both, 1e-12)
}

func TestMaxScoreInsideFootprint(t *testing.T) {
	// Distance floors at 0.1 m; the default 15 m height applies when the
	// footprint has no measured height. The score approaches but never
	// exceeds 1.
	buildings := buildLayer(t, "buildings",
		&layer.Footprint{Polygons: []layer.Polygon{square(-5, -5, 10)}},
	)
	s := NewScorer()
	got := s.MaxScore(0, 0, buildings)
	assert.Greater(t, got, 0.95)
	assert.LessOrEqual(t, got, 1.0)
}

func TestMaxScoreIgnoresLowObstacles(t *testing.T) {
	// An obstacle below the antenna height contributes nothing.
	buildings := buildLayer(t, "buildings",
		&layer.Footprint{Polygons: []layer.Polygon{square(5, -5, 10)}, HeightM: 1.0, HasHeight: true},
	)
	s := NewScorer()
	assert.Equal(t, 0.0, s.MaxScore(0, 0, buildings))
}

func TestMaxScoreRespectsSearchRadius(t *testing.T) {
	buildings := buildLayer(t, "buildings",
		&layer.Footprint{Polygons: []layer.Polygon{square(60, -5, 10)}, HeightM: 30, HasHeight: true},
	)
	s := NewScorer()
	assert.Equal(t, 0.0, s.MaxScore(0, 0, buildings))

	wide := NewScorer()
	wide.SearchRadiusM = 100
	assert.Greater(t, wide.MaxScore(0, 0, buildings), 0.0)
}

func TestOverhead(t *testing.T) {
	viaducts := buildLayer(t, "viaducts",
		&layer.Footprint{Polygons: []layer.Polygon{square(5, 5, 10)}, HeightM: 8, HasHeight: true},
	)
	s := NewScorer()

	// Directly under.
	flag, score := s.Overhead(viaducts, 10, 10)
	assert.Equal(t, 1, flag)
	assert.Equal(t, 1.0, score)

	// 1 m outside the footprint, inside the 2 m buffer.
	flag, _ = s.Overhead(viaducts, 4, 10)
	assert.Equal(t, 1, flag)

	// 5 m outside.
	flag, score = s.Overhead(viaducts, 0, 10)
	assert.Equal(t, 0, flag)
	assert.Equal(t, 0.0, score)

	flag, _ = s.Overhead(nil, 10, 10)
	assert.Equal(t, 0, flag)
}

func TestScoreSites(t *testing.T) {
	buildings := buildLayer(t, "buildings",
		&layer.Footprint{Polygons: []layer.Polygon{square(10, -5, 10)}, HeightM: 11.5, HasHeight: true},
	)
	viaducts := buildLayer(t, "viaducts",
		&layer.Footprint{Polygons: []layer.Polygon{square(-1, 95, 2)}, HeightM: 8, HasHeight: true},
	)
	defs := []site.Definition{
		{SiteID: "A01", Class: "street", CenterX: 0, CenterY: 0},
		{SiteID: "A02", Class: "open", CenterX: 0, CenterY: 96},
	}

	s := NewScorer()
	scores := s.ScoreSites(defs, buildings, viaducts)
	require.Len(t, scores, 2)

	assert.Equal(t, "A01", scores[0].SiteID)
	assert.Equal(t, "street", scores[0].Class)
	assert.InDelta(t, 0.25, scores[0].RiskHorizon, 1e-9)
	assert.InDelta(t, 1.0-scores[0].RiskProxy, scores[0].SVFProxy, 1e-12)
	assert.Equal(t, 0, scores[0].OverheadFlag)

	// A02 sits under the viaduct: flag raised, horizon score unaffected
	// by the viaduct layer.
	assert.Equal(t, 1, scores[1].OverheadFlag)
	assert.Equal(t, 1.0, scores[1].OverheadScore)
	assert.Equal(t, 0.0, scores[1].RiskHorizon)
	assert.Greater(t, scores[1].RiskProxy, 0.0)
}
