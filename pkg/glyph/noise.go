package glyph

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/golang/freetype/raster"
	"golang.org/x/image/math/fixed"
)

// Noise mark defaults.
const (
	DotWidth  = 3
	DotNumber = 30
)

// NoiseCurve draws a one pixel arc in c across im. The arc spans a random
// box reaching in from the left and right fifths of the image, from a start
// angle in [0, 20] to an end angle in [160, 200] degrees, measured
// clockwise from three o'clock.
func NoiseCurve(rng *rand.Rand, im *image.RGBA, c color.Color) {
	b := im.Bounds()
	w, h := b.Dx(), b.Dy()
	x1 := between(rng, 0, w/5)
	x2 := between(rng, w-w/5, w)
	y1 := between(rng, h/5, h-h/5)
	y2 := between(rng, y1, h-h/5)
	end := between(rng, 160, 200)
	start := between(rng, 0, 20)

	cx, cy := float64(x1+x2)/2, float64(y1+y2)/2
	rx, ry := float64(x2-x1)/2, float64(y2-y1)/2
	var path raster.Path
	for deg := start; deg <= end; deg++ {
		rad := float64(deg) * math.Pi / 180
		p := point(float64(b.Min.X)+cx+rx*math.Cos(rad), float64(b.Min.Y)+cy+ry*math.Sin(rad))
		if deg == start {
			path.Start(p)
		} else {
			path.Add1(p)
		}
	}
	stroke(im, path, 1, c)
}

// NoiseDots scatters number short strokes of the given width in c over im.
func NoiseDots(rng *rand.Rand, im *image.RGBA, c color.Color, width, number int) {
	b := im.Bounds()
	var path raster.Path
	for range number {
		x := float64(b.Min.X + between(rng, 0, b.Dx()))
		y := float64(b.Min.Y + between(rng, 0, b.Dy()))
		path.Start(point(x, y))
		path.Add1(point(x-1, y-1))
	}
	stroke(im, path, width, c)
}

func stroke(im *image.RGBA, path raster.Path, width int, c color.Color) {
	if len(path) == 0 {
		return
	}
	b := im.Bounds()
	r := raster.NewRasterizer(b.Max.X, b.Max.Y)
	r.UseNonZeroWinding = true
	r.AddStroke(path, fixed.I(width), raster.RoundCapper, raster.RoundJoiner)
	p := raster.NewRGBAPainter(im)
	p.SetColor(opaque(c))
	r.Rasterize(p)
}

// RandomColor returns an opaque colour with each channel uniform in
// [start, end].
func RandomColor(rng *rand.Rand, start, end int) color.NRGBA {
	return color.NRGBA{
		R: uint8(between(rng, start, end)),
		G: uint8(between(rng, start, end)),
		B: uint8(between(rng, start, end)),
		A: 255,
	}
}

// between returns an integer uniform in [lo, hi]; hi below lo yields lo.
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

func point(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{
		X: fixed.Int26_6(math.Round(x * 64)),
		Y: fixed.Int26_6(math.Round(y * 64)),
	}
}
