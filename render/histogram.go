package render

import (
	"fmt"
	"math"

	"github.com/0319-2004/PacificPNT-Reproducible/eval"
)

// HistogramOptions selects the size and binning of the bootstrap figure.
type HistogramOptions struct {
	Width  int
	Height int
	Bins   int
}

func (o *HistogramOptions) defaults() {
	if o.Width == 0 {
		o.Width = 640
	}
	if o.Height == 0 {
		o.Height = 480
	}
	if o.Bins == 0 {
		o.Bins = 40
	}
}

// RenderBootstrapHistogram draws the distribution of per-resample AUC
// differences with a marker at zero and the one-sided p value.
func RenderBootstrapHistogram(res *eval.BootstrapResult, path string, opts HistogramOptions) error {
	opts.defaults()
	diffs := res.AUCDiffs
	if len(diffs) == 0 {
		return fmt.Errorf("render: bootstrap result holds no differences")
	}

	lo, hi := diffs[0], diffs[0]
	for _, d := range diffs {
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	// Keep zero inside the x range so the marker is always visible.
	lo = math.Min(lo, 0)
	hi = math.Max(hi, 0)
	if hi == lo {
		hi = lo + 1e-9
	}

	counts := make([]int, opts.Bins)
	span := hi - lo
	for _, d := range diffs {
		b := int(float64(opts.Bins) * (d - lo) / span)
		if b >= opts.Bins {
			b = opts.Bins - 1
		}
		counts[b]++
	}
	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}

	c := newCanvas(opts.Width, opts.Height)
	c.line(c.x0, c.y1, c.x1, c.y1, axisColor, 0)
	c.line(c.x0, c.y0, c.x0, c.y1, axisColor, 0)

	binW := float64(c.x1-c.x0) / float64(opts.Bins)
	for b, n := range counts {
		if n == 0 {
			continue
		}
		x0 := c.x0 + int(float64(b)*binW)
		x1 := c.x0 + int(float64(b+1)*binW) - 1
		barTop := c.y1 - int(float64(n)/float64(maxCount)*float64(c.y1-c.y0))
		c.fillRect(x0, barTop, x1, c.y1-1, buildingColor)
	}

	// Zero marker.
	zx := c.x0 + int(float64(c.x1-c.x0)*(0-lo)/span)
	c.line(zx, c.y0, zx, c.y1, hybridColor, 4)
	c.label(zx+5, c.y0+12, "0", hybridColor)

	for i := 0; i <= 4; i++ {
		v := lo + span*float64(i)/4
		px := c.x0 + (c.x1-c.x0)*i/4
		c.line(px, c.y1, px, c.y1+axisTickLen, axisColor, 0)
		c.label(px-15, c.y1+axisTickLen+12, fmt.Sprintf("%.3f", v), axisColor)
	}

	c.label(c.x0, c.y0-10, fmt.Sprintf("AUC difference (hybrid - benchmark), p=%.4f, n=%d", res.PValue, len(diffs)), axisColor)
	return WriteImage(path, c.img)
}
