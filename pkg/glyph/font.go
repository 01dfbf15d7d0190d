package glyph

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

var (
	// ErrAssetNotFound is returned when a font file does not exist.
	ErrAssetNotFound = errors.New("glyph: asset not found")

	// ErrAssetUnreadable is returned when a font file cannot be read or
	// parsed.
	ErrAssetUnreadable = errors.New("glyph: asset unreadable")
)

// DefaultSizes are the font sizes, in points at 72 DPI, used when none are
// configured.
var DefaultSizes = []float64{42, 50, 56}

// FontSet is every combination of a list of TrueType fonts and a list of
// sizes. Fonts are parsed once, on first use, and the parsed fonts are
// shared; faces are not.
type FontSet struct {
	files []string
	sizes []float64

	mu    sync.Mutex
	fonts []*truetype.Font
}

// NewFontSet creates a FontSet from font file paths and sizes. No files
// selects the embedded Go Mono font; no sizes selects DefaultSizes.
func NewFontSet(files []string, sizes []float64) *FontSet {
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}
	return &FontSet{files: files, sizes: sizes}
}

// Faces returns new faces, one per (font, size) pair, fonts major. A face
// caches glyph lookups and must not be used from two goroutines at once,
// so each caller gets its own.
func (s *FontSet) Faces() ([]font.Face, error) {
	fonts, err := s.parsed()
	if err != nil {
		return nil, err
	}
	faces := make([]font.Face, 0, len(fonts)*len(s.sizes))
	for _, f := range fonts {
		for _, size := range s.sizes {
			faces = append(faces, truetype.NewFace(f, &truetype.Options{
				Size:    size,
				DPI:     72,
				Hinting: font.HintingFull,
			}))
		}
	}
	return faces, nil
}

func (s *FontSet) parsed() ([]*truetype.Font, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fonts != nil {
		return s.fonts, nil
	}
	fonts, err := s.parse()
	if err != nil {
		return nil, err
	}
	s.fonts = fonts
	return fonts, nil
}

func (s *FontSet) parse() ([]*truetype.Font, error) {
	if len(s.files) == 0 {
		f, err := truetype.Parse(gomono.TTF)
		if err != nil {
			return nil, fmt.Errorf("%w: builtin font: %w", ErrAssetUnreadable, err)
		}
		return []*truetype.Font{f}, nil
	}

	fonts := make([]*truetype.Font, 0, len(s.files))
	for _, name := range s.files {
		data, err := os.ReadFile(name)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrAssetUnreadable, name, err)
		}
		f, err := truetype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrAssetUnreadable, name, err)
		}
		fonts = append(fonts, f)
	}
	return fonts, nil
}
