package captcha

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/haivivi/captcha/go/pkg/glyph"
	"github.com/haivivi/captcha/go/pkg/storage"
)

func TestLookupTable(t *testing.T) {
	tests := map[int]uint8{0: 0, 1: 1, 2: 3, 100: 197, 129: 254, 130: 255, 255: 255}
	for in, want := range tests {
		if LookupTable[in] != want {
			t.Errorf("LookupTable[%d] = %d, want %d", in, LookupTable[in], want)
		}
	}
}

func TestImageGeneratePNG(t *testing.T) {
	im := NewImage(WithImageRand(seeded(1, 2)))
	data, err := im.Generate("1234", "")
	if err != nil {
		t.Fatal(err)
	}
	m, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not PNG: %v", err)
	}
	if got := m.Bounds().Size(); got != image.Pt(DefaultWidth, DefaultHeight) {
		t.Errorf("size = %v", got)
	}
}

func TestImageFormats(t *testing.T) {
	im := NewImage(WithImageRand(seeded(3, 4)), WithSize(120, 50))
	for _, format := range []string{"png", "jpeg", "jpg", "gif", "bmp", "tiff", "PNG"} {
		t.Run(format, func(t *testing.T) {
			data, err := im.Generate("42", format)
			if err != nil {
				t.Fatal(err)
			}
			m, name, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatal(err)
			}
			if want := normalizeFormat(format); name != want {
				t.Errorf("decoded as %q, want %q", name, want)
			}
			if m.Bounds().Dx() != 120 || m.Bounds().Dy() != 50 {
				t.Errorf("size = %v", m.Bounds().Size())
			}
		})
	}
	if _, err := im.Generate("42", "webp"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Generate(webp) error = %v, want ErrInvalidInput", err)
	}
}

func TestImageMIME(t *testing.T) {
	tests := map[string]string{"": "image/png", "jpg": "image/jpeg", "TIF": "image/tiff", "bmp": "image/bmp", "svg": ""}
	for in, want := range tests {
		if got := ImageMIME(in); got != want {
			t.Errorf("ImageMIME(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCaptchaImageLayout(t *testing.T) {
	bg := color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	im := NewImage(WithImageRand(seeded(5, 5)))
	m, err := im.CaptchaImage("8", color.NRGBA{R: 100, G: 100, B: 100, A: 255}, bg)
	if err != nil {
		t.Fatal(err)
	}
	if m.Bounds() != image.Rect(0, 0, DefaultWidth, DefaultHeight) {
		t.Fatalf("bounds = %v", m.Bounds())
	}
	if c := m.RGBAAt(DefaultWidth-1, 0); c.R != 250 || c.A != 255 {
		t.Errorf("background pixel = %v", c)
	}
	inked := 0
	for i := 0; i < len(m.Pix); i += 4 {
		if m.Pix[i] < 240 {
			inked++
		}
	}
	if inked == 0 {
		t.Error("no glyph pixels pasted")
	}
}

func TestCaptchaImageScalesDownLongText(t *testing.T) {
	im := NewImage(WithImageRand(seeded(6, 6)))
	m, err := im.CaptchaImage(strings.Repeat("W", 12), color.Black, color.White)
	if err != nil {
		t.Fatal(err)
	}
	if m.Bounds().Dx() != DefaultWidth || m.Bounds().Dy() != DefaultHeight {
		t.Errorf("bounds = %v", m.Bounds())
	}
}

func TestImageFixedColors(t *testing.T) {
	im := NewImage(WithImageRand(seeded(7, 7)), WithColors(color.Black, color.White))
	m, err := im.GenerateImage("1")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Opaque() {
		t.Error("image is not opaque")
	}
}

func TestImagesShareFontSet(t *testing.T) {
	fonts := glyph.NewFontSet(nil, nil)
	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			im := NewImage(WithFontSet(fonts), WithImageRand(seeded(uint64(i), 3)))
			for range 5 {
				if _, err := im.Generate("1234", "png"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestImageErrors(t *testing.T) {
	im := NewImage(WithImageRand(seeded(1, 1)))
	if _, err := im.Generate("", "png"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Generate(\"\") error = %v, want ErrInvalidInput", err)
	}
	if _, err := im.Random(0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Random(0) error = %v, want ErrInvalidInput", err)
	}
	if _, err := NewImage(WithAlphabet("")).Random(4); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Random with empty alphabet error = %v, want ErrInvalidInput", err)
	}
	bad := NewImage(WithFonts("/no/such/font.ttf"))
	if _, err := bad.Generate("1", "png"); !errors.Is(err, ErrFontNotFound) {
		t.Errorf("missing font error = %v, want ErrFontNotFound", err)
	}
}

func TestImageRandom(t *testing.T) {
	im := NewImage(WithImageRand(seeded(8, 8)), WithAlphabet("ABCdef"))
	s, err := im.Random(30)
	if err != nil {
		t.Fatal(err)
	}
	if len([]rune(s)) != 30 {
		t.Fatalf("Random(30) = %q", s)
	}
	for _, r := range s {
		if !strings.ContainsRune("ABCdef", r) {
			t.Fatalf("Random produced %q outside the alphabet", r)
		}
	}
}

func TestImageWrite(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	im := NewImage(WithImageRand(seeded(1, 1)))
	if err := im.Write(ctx, store, "1234.png", "1234", "png"); err != nil {
		t.Fatal(err)
	}
	data, err := storage.ReadFile(ctx, store, "1234.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("written file is not PNG: %v", err)
	}
}
