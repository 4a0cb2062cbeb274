// Package risk scores GNSS signal-degradation risk at a site from the
// surrounding city-model geometry. The MAX-score model takes the single
// most dominant obstacle: a tall building close to the antenna subtends a
// high elevation angle, which shrinks the visible sky and raises
// multipath exposure. Overhead infrastructure (viaducts) is handled as a
// binary condition because anything directly above the antenna defeats
// the horizon model entirely.
package risk

import (
	"math"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/layer"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

// Model defaults, matching the published evaluation.
const (
	DefaultSearchRadiusM   = 50.0
	DefaultAntennaHeightM  = 1.5
	DefaultDistanceScaleM  = 10.0
	DefaultObstacleHeightM = 15.0
	DefaultOverheadBufferM = 2.0
	minObstacleDistanceM   = 0.1
	maxObstructionAngleDeg = 90.0
)

// Scorer evaluates obstruction scores with a fixed parameter set.
type Scorer struct {
	// SearchRadiusM bounds the obstacle query around the site.
	SearchRadiusM float64
	// AntennaHeightM is the receiver height above ground.
	AntennaHeightM float64
	// DistanceScaleM controls the distance decay 1/(1+d/scale).
	DistanceScaleM float64
	// DefaultHeightM substitutes for footprints without a measured height.
	DefaultHeightM float64
	// OverheadBufferM widens the under-infrastructure test to absorb small
	// registration offsets between the site survey and the city model.
	OverheadBufferM float64
}

// NewScorer returns a Scorer with the published defaults.
func NewScorer() *Scorer {
	return &Scorer{
		SearchRadiusM:   DefaultSearchRadiusM,
		AntennaHeightM:  DefaultAntennaHeightM,
		DistanceScaleM:  DefaultDistanceScaleM,
		DefaultHeightM:  DefaultObstacleHeightM,
		OverheadBufferM: DefaultOverheadBufferM,
	}
}

// MaxScore returns the dominant-obstacle score at (x, y) over the given
// layers, in [0, 1]. Per obstacle: elevation angle from antenna height to
// obstacle top over its ground distance (floored at 0.1 m), scaled by
// angle/90 and the distance decay; the site score is the maximum.
func (s *Scorer) MaxScore(x, y float64, layers ...*layer.Layer) float64 {
	maxScore := 0.0
	for _, l := range layers {
		if l == nil {
			continue
		}
		for _, f := range l.Within(x, y, s.SearchRadiusM) {
			dist := f.Distance(x, y)
			if dist < minObstacleDistanceM {
				dist = minObstacleDistanceM
			}

			h := s.DefaultHeightM
			if f.HasHeight {
				h = f.HeightM
			}
			relH := h - s.AntennaHeightM
			if relH <= 0 {
				continue
			}

			elevAngle := math.Atan2(relH, dist) * 180 / math.Pi
			angleScore := elevAngle / maxObstructionAngleDeg
			distScore := 1.0 / (1.0 + dist/s.DistanceScaleM)

			if score := angleScore * distScore; score > maxScore {
				maxScore = score
			}
		}
	}
	return math.Min(math.Max(maxScore, 0.0), 1.0)
}

// Overhead reports whether (x, y), buffered by OverheadBufferM, touches
// any viaduct footprint. The score is binary.
func (s *Scorer) Overhead(viaducts *layer.Layer, x, y float64) (flag int, score float64) {
	if viaducts == nil || viaducts.Len() == 0 {
		return 0, 0.0
	}
	if viaducts.IntersectsBuffer(x, y, s.OverheadBufferM) {
		return 1, 1.0
	}
	return 0, 0.0
}

// ScoreSites computes the full score set for every site definition:
// the combined proxy (buildings + viaducts), its sky-view complement,
// the building-only horizon score and the overhead flag.
func (s *Scorer) ScoreSites(defs []site.Definition, buildings, viaducts *layer.Layer) []site.RiskScores {
	out := make([]site.RiskScores, 0, len(defs))
	for _, d := range defs {
		riskAll := s.MaxScore(d.CenterX, d.CenterY, buildings, viaducts)
		riskHorizon := s.MaxScore(d.CenterX, d.CenterY, buildings)
		oFlag, oScore := s.Overhead(viaducts, d.CenterX, d.CenterY)

		out = append(out, site.RiskScores{
			SiteID:        d.SiteID,
			Class:         d.Class,
			CenterX:       d.CenterX,
			CenterY:       d.CenterY,
			RiskProxy:     riskAll,
			SVFProxy:      1.0 - riskAll,
			RiskHorizon:   riskHorizon,
			OverheadFlag:  oFlag,
			OverheadScore: oScore,
		})
		glog.V(1).Infof("site %s: horizon=%.3f combined=%.3f overhead=%d", d.SiteID, riskHorizon, riskAll, oFlag)
	}
	return out
}
