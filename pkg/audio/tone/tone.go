// Package tone synthesizes the short 8-bit clips CAPTCHA audio needs when no
// recorded assets are available: the prelude beep and DTMF-style digits.
package tone

import (
	"math"
	"time"

	"github.com/haivivi/captcha/go/pkg/audio/pcm"
)

// SampleRate is the rate every clip in this package is rendered at.
const SampleRate = 8000

// Beep frequency and length.
const (
	BeepFreq = 880.0
	BeepLen  = 150 * time.Millisecond
)

// dtmf holds the row/column frequency pair of each digit.
var dtmf = map[rune][2]float64{
	'1': {697, 1209}, '2': {697, 1336}, '3': {697, 1477},
	'4': {770, 1209}, '5': {770, 1336}, '6': {770, 1477},
	'7': {852, 1209}, '8': {852, 1336}, '9': {852, 1477},
	'0': {941, 1336},
}

// variants scale a digit's duration and level.
var variants = []struct {
	ms     int
	volume float64
}{
	{260, 0.70},
	{320, 0.60},
	{220, 0.80},
}

// Variants is the number of distinct clips Digit renders per digit.
var Variants = len(variants)

// Sine renders the sum of freqs as unsigned 8-bit samples. The mix is
// normalized by the number of partials and shaped by a short attack and
// release so clips do not click when spliced.
func Sine(freqs []float64, samples, sampleRate int, volume float64) []byte {
	out := make([]byte, max(samples, 0))
	if len(freqs) == 0 || sampleRate <= 0 {
		for i := range out {
			out[i] = pcm.Silence
		}
		return out
	}
	for i := range out {
		t := float64(i) / float64(sampleRate)
		var v float64
		for _, f := range freqs {
			v += math.Sin(2 * math.Pi * f * t)
		}
		v /= float64(len(freqs))
		v *= volume * envelope(i, len(out), sampleRate)
		out[i] = byte(math.Round(clamp(v, -1, 1)*127) + 128)
	}
	return out
}

// envelope is a linear 5ms attack, flat sustain and 20ms release.
func envelope(i, samples, sampleRate int) float64 {
	attack := sampleRate * 5 / 1000
	release := sampleRate * 20 / 1000
	switch {
	case i < attack:
		return float64(i) / float64(attack)
	case i >= samples-release:
		return float64(samples-i) / float64(release)
	default:
		return 1
	}
}

// Beep returns the prelude beep.
func Beep() []byte {
	return Sine([]float64{BeepFreq}, int(pcm.U8Mono8K.SamplesInDuration(BeepLen)), SampleRate, 0.8)
}

// Digit returns a clip for the digit d. Variant is taken modulo Variants.
// It reports false for anything but '0'..'9'.
func Digit(d rune, variant int) ([]byte, bool) {
	pair, ok := dtmf[d]
	if !ok {
		return nil, false
	}
	v := variants[((variant%Variants)+Variants)%Variants]
	samples := SampleRate * v.ms / 1000
	return Sine(pair[:], samples, SampleRate, v.volume), true
}

func clamp(value, lo, hi float64) float64 {
	return min(max(value, lo), hi)
}
