// Package pcm provides types and utilities for working with PCM (Pulse Code Modulation) audio data.
//
// The package defines the 8-bit unsigned 8kHz mono format CAPTCHA audio is
// produced in, plus the 16-bit mono formats voice clips may be recorded in.
//
// Key types:
//   - Format: Represents audio format (sample rate, channels, bit depth)
//   - Chunk: Interface for audio data chunks
//   - DataChunk: Concrete implementation of Chunk for raw audio data
//   - SilenceChunk: Chunk that produces silence of a specified duration
//
// Example usage:
//
//	format := pcm.U8Mono8K
//
//	// 200ms of silence is 1600 bytes of 128
//	silence := format.SilenceChunk(200 * time.Millisecond)
//
//	body, err := pcm.Concat(format.DataChunk(beep), silence, format.DataChunk(beep))
package pcm
