package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/eval"
	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

// ROCOptions selects the size of the comparison figure.
type ROCOptions struct {
	Width  int
	Height int
}

func (o *ROCOptions) defaults() {
	if o.Width == 0 {
		o.Width = 640
	}
	if o.Height == 0 {
		o.Height = 560
	}
}

type rocSeries struct {
	name   string
	color  color.RGBA
	dash   int
	scores []float64
}

// RenderROC draws the ROC comparison of the hybrid model, the
// building-only model and the HDOP benchmark over the shared strict
// high-error ground truth (err_p95_m above the 5 m hazard bound).
// Curves keep their raw orientation, the HDOP benchmark is already
// negated.
func RenderROC(records []site.Record, path string, opts ROCOptions) error {
	opts.defaults()

	errs := make([]float64, len(records))
	for i := range records {
		errs[i] = records[i].ErrP95M
	}
	labels := eval.StrictLabels(errs, eval.StrictErrorThresholdM)

	series := []rocSeries{
		{name: "Hybrid (Overhead+Horizon)", color: hybridColor, dash: 0},
		{name: "Building-only (Horizon)", color: buildingColor, dash: 6},
		{name: "Benchmark (HDOP)", color: benchmarkColor, dash: 2},
	}
	for i := range records {
		series[0].scores = append(series[0].scores, records[i].HybridScore())
		series[1].scores = append(series[1].scores, records[i].RiskHorizon)
		series[2].scores = append(series[2].scores, -records[i].HDOPCutAMedian)
	}

	c := newCanvas(opts.Width, opts.Height)
	c.axes("False Positive Rate", "True Positive Rate")

	// Chance diagonal.
	x0, y0 := c.toPixel(0, 0)
	x1, y1 := c.toPixel(1, 1)
	c.line(x0, y0, x1, y1, chanceColor, 4)

	legendY := c.y0 + 10
	for _, s := range series {
		yv, sv := dropMissingScores(labels, s.scores)
		auc, err := eval.AUC(yv, sv)
		if err != nil {
			glog.Warningf("skipping ROC series %q: %s", s.name, err)
			continue
		}
		points, err := eval.ROCCurve(yv, sv)
		if err != nil {
			glog.Warningf("skipping ROC series %q: %s", s.name, err)
			continue
		}
		for i := 1; i < len(points); i++ {
			px0, py0 := c.toPixel(points[i-1].FPR, points[i-1].TPR)
			px1, py1 := c.toPixel(points[i].FPR, points[i].TPR)
			c.line(px0, py0, px1, py1, s.color, s.dash)
		}

		c.line(c.x0+10, legendY, c.x0+10+legendLineLen, legendY, s.color, s.dash)
		c.label(c.x0+10+legendLineLen+6, legendY+4, fmt.Sprintf("%s AUC=%.3f", s.name, auc), axisColor)
		legendY += legendRowHeight
	}

	return WriteImage(path, c.img)
}

func dropMissingScores(y []int, scores []float64) (yOut []int, sOut []float64) {
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		yOut = append(yOut, y[i])
		sOut = append(sOut, s)
	}
	return yOut, sOut
}
