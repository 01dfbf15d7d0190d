// Package glyph renders individually distorted characters and the noise
// marks drawn over image CAPTCHAs.
//
// Every random choice is drawn from the *rand.Rand a Renderer is created
// with, so a fixed seed reproduces the same glyphs. A Renderer is not safe
// for concurrent use; callers serialise access.
//
// A glyph is produced in four steps:
//
//  1. the character is drawn on a transparent canvas with a little random
//     padding;
//  2. the canvas is cropped to the ink;
//  3. the result is rotated by up to 30 degrees either way, growing the
//     canvas to fit;
//  4. a random quadrilateral warp maps it back to the measured glyph size.
package glyph

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// Random ranges of a glyph's distortion.
const (
	OffsetDX   = 4
	OffsetDY   = 6
	RotateDeg  = 30
	WarpDXLow  = 0.1
	WarpDXHigh = 0.3
	WarpDYLow  = 0.2
	WarpDYHigh = 0.3
)

// Renderer draws distorted glyphs from a FontSet.
type Renderer struct {
	fonts *FontSet
	faces []font.Face
	rng   *rand.Rand
}

// NewRenderer creates a Renderer drawing from fonts with randomness from
// rng.
func NewRenderer(fonts *FontSet, rng *rand.Rand) *Renderer {
	return &Renderer{fonts: fonts, rng: rng}
}

// Draw renders ch in c with a random face and distortion. The glyph's RGB
// channels hold the colour scaled by ink coverage; see LumaMask.
func (r *Renderer) Draw(ch rune, c color.Color) (*image.RGBA, error) {
	if r.faces == nil {
		faces, err := r.fonts.Faces()
		if err != nil {
			return nil, err
		}
		r.faces = faces
	}
	face := r.faces[r.rng.IntN(len(r.faces))]

	s := string(ch)
	m := face.Metrics()
	w := 1 + font.MeasureString(face, s).Ceil()
	h := 1 + (m.Ascent + m.Descent).Ceil()

	dx := r.rng.IntN(OffsetDX + 1)
	dy := r.rng.IntN(OffsetDY + 1)
	im := image.NewRGBA(image.Rect(0, 0, w+dx, h+dy))
	d := font.Drawer{
		Dst:  im,
		Src:  image.NewUniform(opaque(c)),
		Face: face,
		Dot:  fixed.P(dx, dy+m.Ascent.Ceil()),
	}
	d.DrawString(s)

	im = Crop(im)
	im = Rotate(im, r.uniform(-RotateDeg, RotateDeg))

	dx2 := float64(w) * r.uniform(WarpDXLow, WarpDXHigh)
	dy2 := float64(h) * r.uniform(WarpDYLow, WarpDYHigh)
	x1 := int(r.uniform(-dx2, dx2))
	y1 := int(r.uniform(-dy2, dy2))
	x2 := int(r.uniform(-dx2, dx2))
	y2 := int(r.uniform(-dy2, dy2))
	w2 := w + abs(x1) + abs(x2)
	h2 := h + abs(y1) + abs(y2)

	im = Resize(im, w2, h2)
	return Quad(im, w, h, [8]float64{
		float64(x1), float64(y1),
		float64(-x1), float64(h2 - y2),
		float64(w2 + x2), float64(h2 + y2),
		float64(w2 - x2), float64(-y1),
	}), nil
}

func (r *Renderer) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.rng.Float64()
}

// Crop returns the smallest sub-image holding every pixel with non-zero
// alpha, copied to a fresh origin. An image without ink is returned
// unchanged.
func Crop(im *image.RGBA) *image.RGBA {
	b := im.Bounds()
	box := image.Rectangle{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if im.Pix[im.PixOffset(x, y)+3] == 0 {
				continue
			}
			box = box.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	if box.Empty() || box == b {
		return im
	}
	out := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Copy(out, image.Point{}, im, box, draw.Src, nil)
	return out
}

// Rotate turns im counter-clockwise by deg degrees around its centre with
// bilinear sampling. The canvas grows to hold the whole rotated image.
func Rotate(im *image.RGBA, deg float64) *image.RGBA {
	b := im.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	nw := int(math.Ceil(math.Abs(w*cos) + math.Abs(h*sin) - 1e-9))
	nh := int(math.Ceil(math.Abs(w*sin) + math.Abs(h*cos) - 1e-9))
	out := image.NewRGBA(image.Rect(0, 0, max(nw, 1), max(nh, 1)))

	cx, cy := w/2, h/2
	ncx, ncy := float64(nw)/2, float64(nh)/2
	s2d := f64.Aff3{
		cos, sin, ncx - (cos*cx + sin*cy),
		-sin, cos, ncy - (-sin*cx + cos*cy),
	}
	draw.BiLinear.Transform(out, s2d, im, b, draw.Src, nil)
	return out
}

// Resize scales im to w×h with bilinear sampling.
func Resize(im image.Image, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.BiLinear.Scale(out, out.Bounds(), im, im.Bounds(), draw.Src, nil)
	return out
}

// Quad maps the quadrilateral of im given by its upper-left, lower-left,
// lower-right and upper-right corners onto a w×h image, sampling the
// nearest source pixel. Points outside im are transparent.
func Quad(im *image.RGBA, w, h int, corners [8]float64) *image.RGBA {
	w, h = max(w, 1), max(h, 1)
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	x0, y0 := corners[0], corners[1]
	sw := [2]float64{corners[2], corners[3]}
	se := [2]float64{corners[4], corners[5]}
	ne := [2]float64{corners[6], corners[7]}
	fw, fh := float64(w), float64(h)
	ax := [4]float64{x0, (ne[0] - x0) / fw, (sw[0] - x0) / fh, (se[0] - sw[0] - ne[0] + x0) / (fw * fh)}
	ay := [4]float64{y0, (ne[1] - y0) / fw, (sw[1] - y0) / fh, (se[1] - sw[1] - ne[1] + y0) / (fw * fh)}

	b := im.Bounds()
	for y := range h {
		yo := float64(y) + 0.5
		for x := range w {
			xo := float64(x) + 0.5
			sx := int(math.Floor(ax[0] + ax[1]*xo + ax[2]*yo + ax[3]*xo*yo))
			sy := int(math.Floor(ay[0] + ay[1]*xo + ay[2]*yo + ay[3]*xo*yo))
			if !image.Pt(sx, sy).In(b) {
				continue
			}
			si, di := im.PixOffset(sx, sy), out.PixOffset(x, y)
			copy(out.Pix[di:di+4], im.Pix[si:si+4])
		}
	}
	return out
}

func opaque(c color.Color) color.RGBA {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.RGBA{R: nc.R, G: nc.G, B: nc.B, A: 255}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
