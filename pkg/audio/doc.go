// Package audio groups the sound building blocks of audio CAPTCHAs.
//
//   - pcm: PCM formats and chunk concatenation
//   - wave: 8-bit waveform transforms (speed, level, noise, mixing)
//   - wav: RIFF/WAVE encoding and decoding
//   - resampler: 16-bit rate and channel conversion for voice clips
//   - tone: synthesised beeps and built-in digit voices
//
// Example usage:
//
//	import (
//	    "github.com/haivivi/captcha/go/pkg/audio/pcm"
//	    "github.com/haivivi/captcha/go/pkg/audio/wav"
//	)
//
//	body, _ := pcm.Concat(pcm.U8Mono8K.DataChunk(beep), pcm.U8Mono8K.SilenceChunk(time.Second))
//	file := wav.PatchHeader(body)
package audio
