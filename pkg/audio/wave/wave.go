// Package wave transforms 8-bit unsigned PCM buffers: resampling by speed
// factor, amplitude scaling around the 128 midpoint, noise and silence
// generation, and mixing two waveforms into one.
//
// The functions never keep state. Those that need randomness take an
// explicit *rand.Rand so results are reproducible under a fixed seed.
package wave

import (
	"math/rand/v2"

	"github.com/haivivi/captcha/go/pkg/audio/pcm"
)

// ChangeSpeed resamples body by replicating or skipping samples. The
// output holds floor(len(body)*factor) samples; factors above 1 stretch
// (slow down), factors below 1 compress (speed up). A factor of 1 returns
// body itself.
func ChangeSpeed(body []byte, factor float64) []byte {
	if factor == 1 {
		return body
	}
	if factor <= 0 {
		return []byte{}
	}

	length := int(float64(len(body)) * factor)
	out := make([]byte, length)

	var step float64
	for _, v := range body {
		end := int(step + factor)
		for i := int(step); i < end && i < length; i++ {
			out[i] = v
		}
		step += factor
	}
	return out
}

// Noise returns length samples of white noise spread over level values
// centred on 128. Level is clamped to [1, 256].
func Noise(rng *rand.Rand, length, level int) []byte {
	level = min(max(level, 1), 256)
	adjust := 128 - level/2
	out := make([]byte, max(length, 0))
	for i := range out {
		out[i] = byte(rng.IntN(256)%level + adjust)
	}
	return out
}

// Silence returns length samples of silence.
func Silence(length int) []byte {
	out := make([]byte, max(length, 0))
	for i := range out {
		out[i] = pcm.Silence
	}
	return out
}

// ChangeSound scales the amplitude of body by level. Samples never cross
// the midpoint: values above 128 stay in [128, 255], values below in
// [0, 128]. A level of 1 returns body itself.
func ChangeSound(body []byte, level float64) []byte {
	if level == 1 {
		return body
	}

	out := make([]byte, len(body))
	for i, b := range body {
		v := float64(b)
		switch {
		case b > pcm.Silence:
			v = min(max((v-128)*level+128, 128), 255)
		case b < pcm.Silence:
			v = min(max(128-(128-v)*level, 0), 128)
		}
		out[i] = byte(v)
	}
	return out
}

// Mix blends two waveforms. The result is a copy of the longer input with
// the shorter one mixed over its beginning: when both samples are below
// the midpoint they are multiplied, otherwise screened.
func Mix(a, b []byte) []byte {
	if len(a) > len(b) {
		a, b = b, a
	}
	out := make([]byte, len(b))
	copy(out, b)
	for i, sv := range a {
		s, d := int(sv), int(out[i])
		var v int
		if s < 128 && d < 128 {
			v = s * d / 128
		} else {
			v = 2*(s+d) - s*d/128 - 256
		}
		out[i] = clampByte(v)
	}
	return out
}

// Reverse returns body in reverse sample order.
func Reverse(body []byte) []byte {
	n := len(body)
	out := make([]byte, n)
	for i, v := range body {
		out[n-1-i] = v
	}
	return out
}

// Overlay mixes clip into dst starting at pos, over a window one sample
// longer than clip. Where the window runs past the end of dst the buffer
// grows to hold the whole mix, so the returned slice may be longer than dst.
func Overlay(dst []byte, pos int, clip []byte) []byte {
	if pos < 0 {
		pos = 0
	}
	if pos > len(dst) {
		pos = len(dst)
	}
	end := min(pos+len(clip)+1, len(dst))
	mixed := Mix(clip, dst[pos:end])
	if len(mixed) == end-pos {
		copy(dst[pos:end], mixed)
		return dst
	}
	out := make([]byte, 0, pos+len(mixed))
	out = append(out, dst[:pos]...)
	out = append(out, mixed...)
	return out
}

func clampByte(v int) byte {
	return byte(min(max(v, 0), 255))
}
