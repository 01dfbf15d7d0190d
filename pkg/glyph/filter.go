package glyph

import (
	"image"
)

// smoothKernel is the 3×3 smoothing kernel; its weights sum to 13.
var smoothKernel = [9]int{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// Smooth returns im convolved with a light smoothing kernel. The outermost
// rows and columns are copied through unchanged.
func Smooth(im *image.RGBA) *image.RGBA {
	b := im.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			di := out.PixOffset(x, y)
			if x == b.Min.X || y == b.Min.Y || x == b.Max.X-1 || y == b.Max.Y-1 {
				si := im.PixOffset(x, y)
				copy(out.Pix[di:di+4], im.Pix[si:si+4])
				continue
			}
			var sum [4]int
			for k, weight := range smoothKernel {
				si := im.PixOffset(x+k%3-1, y+k/3-1)
				for c := range sum {
					sum[c] += weight * int(im.Pix[si+c])
				}
			}
			for c, v := range sum {
				out.Pix[di+c] = uint8((v + 6) / 13)
			}
		}
	}
	return out
}

// LumaMask converts the RGB channels of im to ITU-R 601-2 luma, maps each
// value through table and returns the result as an alpha mask.
func LumaMask(im *image.RGBA, table *[256]uint8) *image.Alpha {
	b := im.Bounds()
	out := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := im.PixOffset(x, y)
			r, g, bl := int(im.Pix[si]), int(im.Pix[si+1]), int(im.Pix[si+2])
			l := (r*299 + g*587 + bl*114 + 500) / 1000
			out.Pix[out.PixOffset(x, y)] = table[l]
		}
	}
	return out
}

// Paste blends the RGB channels of src onto dst at pt through mask. The
// alpha channel of src is ignored.
func Paste(dst *image.RGBA, src *image.RGBA, pt image.Point, mask *image.Alpha) {
	sb := src.Bounds()
	r := sb.Sub(sb.Min).Add(pt).Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			sx, sy := x-pt.X+sb.Min.X, y-pt.Y+sb.Min.Y
			m := int(mask.AlphaAt(sx, sy).A)
			if m == 0 {
				continue
			}
			si, di := src.PixOffset(sx, sy), dst.PixOffset(x, y)
			for c := range 3 {
				s, d := int(src.Pix[si+c]), int(dst.Pix[di+c])
				dst.Pix[di+c] = uint8((s*m + d*(255-m) + 127) / 255)
			}
		}
	}
}
