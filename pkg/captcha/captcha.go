// Package captcha generates audio and image CAPTCHAs and tracks issued
// challenges.
//
// Audio speaks each character with a randomly distorted voice clip over a
// bed of reversed, voice-like noise, framed by beeps. Image lays out
// rotated and warped glyphs with random spacing, then adds noise dots, an
// arc and a smoothing pass. Challenger issues either kind under a random
// id, keeps the answer in a kv.Store and verifies responses.
//
// Audio, Image and Challenger each own a random source guarded by a mutex,
// so one instance may be shared between goroutines. Pass a seeded
// *rand.Rand to reproduce output.
package captcha

import (
	"errors"
	"math/rand/v2"

	"github.com/haivivi/captcha/go/pkg/glyph"
	"github.com/haivivi/captcha/go/pkg/voice"
)

var (
	// ErrInvalidInput is returned for empty text, non-positive lengths and
	// unknown output formats.
	ErrInvalidInput = errors.New("captcha: invalid input")

	// ErrUnknownCharacter is returned when a character has no voice clips.
	ErrUnknownCharacter = errors.New("captcha: unknown character")
)

// Asset errors from the voice and glyph packages, for errors.Is checks.
var (
	ErrInsufficientChoices = voice.ErrInsufficientChoices
	ErrVoiceNotFound       = voice.ErrAssetNotFound
	ErrVoiceUnreadable     = voice.ErrAssetUnreadable
	ErrFontNotFound        = glyph.ErrAssetNotFound
	ErrFontUnreadable      = glyph.ErrAssetUnreadable
)

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// between returns an integer uniform in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
