package captcha

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/haivivi/captcha/go/pkg/glyph"
	"github.com/haivivi/captcha/go/pkg/storage"
)

// Image defaults and layout constants.
const (
	DefaultWidth    = 160
	DefaultHeight   = 60
	DefaultAlphabet = "0123456789"

	SpaceProbability = 0.5
	OffsetJitter     = 0.25
	LeadingOffset    = 0.1
)

// LookupTable maps glyph luma to paste opacity: int(i×1.97), clamped.
var LookupTable = func() (t [256]uint8) {
	for i := range t {
		t[i] = uint8(min(int(float64(i)*1.97), 255))
	}
	return t
}()

// Image output formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatGIF  = "gif"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
)

// ImageMIME returns the media type of an image format, or "" when the
// format is unknown.
func ImageMIME(format string) string {
	switch normalizeFormat(format) {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	}
	return ""
}

func normalizeFormat(format string) string {
	switch f := strings.ToLower(format); f {
	case "":
		return FormatPNG
	case "jpg":
		return FormatJPEG
	case "tif":
		return FormatTIFF
	default:
		return f
	}
}

// ImageOption configures an Image.
type ImageOption func(*Image)

// WithSize sets the output width and height.
func WithSize(width, height int) ImageOption {
	return func(im *Image) { im.width, im.height = width, height }
}

// WithFonts selects TrueType font files. See glyph.NewFontSet.
func WithFonts(files ...string) ImageOption {
	return func(im *Image) { im.fontFiles = files }
}

// WithFontSizes selects the font sizes in points.
func WithFontSizes(sizes ...float64) ImageOption {
	return func(im *Image) { im.fontSizes = sizes }
}

// WithFontSet shares an already built font set.
func WithFontSet(fs *glyph.FontSet) ImageOption {
	return func(im *Image) { im.fonts = fs }
}

// WithAlphabet sets the characters Random draws from.
func WithAlphabet(alphabet string) ImageOption {
	return func(im *Image) { im.alphabet = []rune(alphabet) }
}

// WithColors fixes the text and background colours instead of drawing
// them at random.
func WithColors(text, background color.Color) ImageOption {
	return func(im *Image) { im.text, im.background = text, background }
}

// WithImageRand sets the random source.
func WithImageRand(rng *rand.Rand) ImageOption {
	return func(im *Image) { im.rng = rng }
}

// WithImageLogger sets the logger. Defaults to slog.Default().
func WithImageLogger(l *slog.Logger) ImageOption {
	return func(im *Image) { im.logger = l }
}

// Image generates picture CAPTCHAs.
type Image struct {
	width, height int
	fontFiles     []string
	fontSizes     []float64
	fonts         *glyph.FontSet
	alphabet      []rune
	text          color.Color
	background    color.Color
	logger        *slog.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	renderer *glyph.Renderer
}

// NewImage creates an Image of DefaultWidth×DefaultHeight using the
// embedded font at glyph.DefaultSizes.
func NewImage(opts ...ImageOption) *Image {
	im := &Image{
		width:    DefaultWidth,
		height:   DefaultHeight,
		alphabet: []rune(DefaultAlphabet),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.rng == nil {
		im.rng = newRand()
	}
	if im.fonts == nil {
		im.fonts = glyph.NewFontSet(im.fontFiles, im.fontSizes)
	}
	im.renderer = glyph.NewRenderer(im.fonts, im.rng)
	return im
}

// Size returns the output width and height.
func (im *Image) Size() (int, int) { return im.width, im.height }

// Random returns n characters drawn with replacement from the alphabet.
func (im *Image) Random(n int) (string, error) {
	if n <= 0 || len(im.alphabet) == 0 {
		return "", fmt.Errorf("%w: %d characters from an alphabet of %d", ErrInvalidInput, n, len(im.alphabet))
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	out := make([]rune, n)
	for i := range out {
		out[i] = im.alphabet[im.rng.IntN(len(im.alphabet))]
	}
	return string(out), nil
}

// CaptchaImage lays out the glyphs of chars in text over background.
// Before each character a blank glyph is inserted with probability
// SpaceProbability. When the glyphs are wider than the configured width
// they are laid out on a wider canvas that is then scaled down.
func (im *Image) CaptchaImage(chars string, text, background color.Color) (*image.RGBA, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.captchaImage(chars, text, background)
}

func (im *Image) captchaImage(chars string, text, background color.Color) (*image.RGBA, error) {
	runes := []rune(chars)
	if len(runes) == 0 {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}

	var glyphs []*image.RGBA
	total := 0
	for _, ch := range runes {
		if im.rng.Float64() > SpaceProbability {
			g, err := im.renderer.Draw(' ', text)
			if err != nil {
				return nil, err
			}
			glyphs = append(glyphs, g)
			total += g.Bounds().Dx()
		}
		g, err := im.renderer.Draw(ch, text)
		if err != nil {
			return nil, err
		}
		glyphs = append(glyphs, g)
		total += g.Bounds().Dx()
	}

	width := max(total, im.width)
	canvas := image.NewRGBA(image.Rect(0, 0, width, im.height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(opaqueColor(background)), image.Point{}, draw.Src)

	average := total / len(runes)
	jitter := int(OffsetJitter * float64(average))
	offset := int(float64(average) * LeadingOffset)
	for _, g := range glyphs {
		w, h := g.Bounds().Dx(), g.Bounds().Dy()
		mask := glyph.LumaMask(g, &LookupTable)
		glyph.Paste(canvas, g, image.Pt(offset, (im.height-h)/2), mask)
		offset += w + between(im.rng, -jitter, 0)
	}

	if width > im.width {
		canvas = glyph.Resize(canvas, im.width, im.height)
	}
	return canvas, nil
}

// GenerateImage renders chars in a random dark colour on a random light
// background, then adds noise dots, a noise arc and a smoothing pass.
func (im *Image) GenerateImage(chars string) (*image.RGBA, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	background := im.background
	if background == nil {
		background = glyph.RandomColor(im.rng, 238, 255)
	}
	text := im.text
	if text == nil {
		c := glyph.RandomColor(im.rng, 10, 200)
		c.A = uint8(between(im.rng, 220, 255))
		text = c
	}

	canvas, err := im.captchaImage(chars, text, background)
	if err != nil {
		return nil, err
	}
	glyph.NoiseDots(im.rng, canvas, text, glyph.DotWidth, glyph.DotNumber)
	glyph.NoiseCurve(im.rng, canvas, text)
	return glyph.Smooth(canvas), nil
}

// Generate returns chars rendered and encoded in format (png when empty).
func (im *Image) Generate(chars, format string) ([]byte, error) {
	format = normalizeFormat(format)
	if ImageMIME(format) == "" {
		return nil, fmt.Errorf("%w: image format %q", ErrInvalidInput, format)
	}
	m, err := im.GenerateImage(chars)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, m)
	case FormatJPEG:
		err = jpeg.Encode(&buf, m, &jpeg.Options{Quality: 90})
	case FormatGIF:
		err = gif.Encode(&buf, m, nil)
	case FormatBMP:
		err = bmp.Encode(&buf, m)
	case FormatTIFF:
		err = tiff.Encode(&buf, m, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return nil, fmt.Errorf("captcha: encode %s: %w", format, err)
	}
	im.logger.Debug("captcha: image generated", "chars", len(chars), "format", format, "bytes", buf.Len())
	return buf.Bytes(), nil
}

// Write generates the image for chars and stores it at path.
func (im *Image) Write(ctx context.Context, store storage.FileStore, path, chars, format string) error {
	data, err := im.Generate(chars, format)
	if err != nil {
		return err
	}
	return storage.WriteFile(ctx, store, path, data)
}

func opaqueColor(c color.Color) color.NRGBA {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	nc.A = 255
	return nc
}
