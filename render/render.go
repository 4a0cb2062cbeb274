// Package render draws the study figures as raster images: the ROC
// comparison of the risk models, the spatial risk maps and the
// bootstrap difference histogram.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	// Colors defining the gradient of the risk maps. The higher the
	// index, the more exposed the cell.
	riskColors = map[int]color.RGBA{
		0: {49, 54, 149, 255},   // deep blue
		1: {116, 173, 209, 255}, // light blue
		2: {255, 255, 255, 255}, // white
		3: {253, 174, 97, 255},  // orange
		4: {165, 0, 38, 255},    // deep red
	}

	axisColor       = color.RGBA{0, 0, 0, 255}
	backgroundColor = color.RGBA{255, 255, 255, 255}
	nodataColor     = color.RGBA{220, 220, 220, 255}

	// Model palette following the usual ROC figure conventions.
	hybridColor    = color.RGBA{214, 39, 40, 255}  // red
	buildingColor  = color.RGBA{31, 119, 180, 255} // blue
	benchmarkColor = color.RGBA{127, 127, 127, 255}
	chanceColor    = color.RGBA{0, 0, 128, 255} // navy
	highlightColor = color.RGBA{0, 170, 0, 255} // green
)

const (
	plotMarginTop    = 40 // pixels
	plotMarginLeft   = 60 // pixels
	plotMarginBottom = 40 // pixels
	plotMarginRight  = 20 // pixels
	axisTickLen      = 5  // pixels
	legendLineLen    = 30 // pixels
	legendRowHeight  = 16 // pixels
)

// riskColor maps a risk value in [0,1] onto the gradient.
func riskColor(v float64) color.RGBA {
	if math.IsNaN(v) {
		return nodataColor
	}
	v = math.Min(math.Max(v, 0), 1)
	pos := v * float64(len(riskColors)-1)
	i := int(pos)
	if i >= len(riskColors)-1 {
		return riskColors[len(riskColors)-1]
	}
	fract := pos - float64(i)
	lo, hi := riskColors[i], riskColors[i+1]
	return color.RGBA{
		uint8(float64(lo.R) + fract*(float64(hi.R)-float64(lo.R))),
		uint8(float64(lo.G) + fract*(float64(hi.G)-float64(lo.G))),
		uint8(float64(lo.B) + fract*(float64(hi.B)-float64(lo.B))),
		255,
	}
}

// canvas is an RGBA image with a margin-framed plot area and helpers
// for the primitives the figures need.
type canvas struct {
	img *image.RGBA

	// Plot area in pixel coordinates.
	x0, y0, x1, y1 int
}

func newCanvas(width, height int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return &canvas{
		img: img,
		x0:  plotMarginLeft,
		y0:  plotMarginTop,
		x1:  width - plotMarginRight,
		y1:  height - plotMarginBottom,
	}
}

// toPixel maps unit plot coordinates (origin bottom left) to pixels.
func (c *canvas) toPixel(x, y float64) (int, int) {
	px := c.x0 + int(math.Round(x*float64(c.x1-c.x0)))
	py := c.y1 - int(math.Round(y*float64(c.y1-c.y0)))
	return px, py
}

func (c *canvas) set(x, y int, col color.RGBA) {
	if x < 0 || y < 0 || x >= c.img.Bounds().Max.X || y >= c.img.Bounds().Max.Y {
		return
	}
	c.img.SetRGBA(x, y, col)
}

// line draws a Bresenham segment. dash > 0 alternates dash pixels on
// and off, dash == 0 draws solid.
func (c *canvas) line(x0, y0, x1, y1 int, col color.RGBA, dash int) {
	dx := int(math.Abs(float64(x1 - x0)))
	dy := -int(math.Abs(float64(y1 - y0)))
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	step := 0
	for {
		if dash == 0 || (step/dash)%2 == 0 {
			c.set(x0, y0, col)
		}
		step++
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *canvas) fillRect(x0, y0, x1, y1 int, col color.RGBA) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c.set(x, y, col)
		}
	}
}

func (c *canvas) circle(cx, cy, r int, col color.RGBA, fill bool) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			d := math.Sqrt(float64(x*x + y*y))
			if fill && d <= float64(r) {
				c.set(cx+x, cy+y, col)
			} else if !fill && math.Abs(d-float64(r)) < 0.8 {
				c.set(cx+x, cy+y, col)
			}
		}
	}
}

func (c *canvas) label(x, y int, text string, col color.RGBA) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	d.DrawString(text)
}

// axes draws the plot frame with ticks every quarter and unit labels.
func (c *canvas) axes(xName, yName string) {
	c.line(c.x0, c.y1, c.x1, c.y1, axisColor, 0)
	c.line(c.x0, c.y0, c.x0, c.y1, axisColor, 0)
	for i := 0; i <= 4; i++ {
		f := float64(i) / 4
		px, py := c.toPixel(f, 0)
		c.line(px, py, px, py+axisTickLen, axisColor, 0)
		c.label(px-8, py+axisTickLen+12, fmt.Sprintf("%.2f", f), axisColor)
		px, py = c.toPixel(0, f)
		c.line(px-axisTickLen, py, px, py, axisColor, 0)
		c.label(px-axisTickLen-35, py+4, fmt.Sprintf("%.2f", f), axisColor)
	}
	c.label((c.x0+c.x1)/2-len(xName)*3, c.y1+30, xName, axisColor)
	c.label(5, c.y0-10, yName, axisColor)
}

// WriteImage encodes the image based on the path suffix; .png and .jpg
// are supported.
func WriteImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	switch {
	case strings.HasSuffix(path, ".png"):
		return png.Encode(f, img)
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return jpeg.Encode(f, img, &jpeg.Options{Quality: jpeg.DefaultQuality})
	default:
		return fmt.Errorf("unsupported image format: %q", path)
	}
}
