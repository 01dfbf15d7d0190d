package pcm

import (
	"bytes"
	"io"
	"time"
)

const (
	// U8Mono8K represents audio/L8; rate=8000; channels=1 with unsigned
	// samples. This is the CAPTCHA output format.
	U8Mono8K Format = iota
	// L16Mono8K represents audio/L16; rate=8000; channels=1
	L16Mono8K
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
)

// Silence is the sample value of zero amplitude in 8-bit unsigned PCM.
const Silence byte = 128

// Chunk is a chunk of audio data.
type Chunk interface {
	Len() int64
	Format() Format
	WriteTo(w io.Writer) (int64, error)
}

// Format represents an audio format configuration.
type Format int

// FormatOf returns the mono format with the given sample rate and bit
// depth. Multi-channel layouts have no Format.
func FormatOf(sampleRate, channels, depth int) (Format, bool) {
	if channels != 1 {
		return 0, false
	}
	for _, f := range []Format{U8Mono8K, L16Mono8K, L16Mono16K, L16Mono24K, L16Mono48K} {
		if f.SampleRate() == sampleRate && f.Depth() == depth {
			return f, true
		}
	}
	return 0, false
}

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case U8Mono8K, L16Mono8K:
		return 8000
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio type")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	switch f {
	case U8Mono8K, L16Mono8K, L16Mono16K, L16Mono24K, L16Mono48K:
		return 1
	}
	panic("pcm: invalid audio type")
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	switch f {
	case U8Mono8K:
		return 8
	case L16Mono8K, L16Mono16K, L16Mono24K, L16Mono48K:
		return 16
	}
	panic("pcm: invalid audio type")
}

// BlockAlign returns the number of bytes of one sample frame.
func (f Format) BlockAlign() int {
	return f.Channels() * f.Depth() / 8
}

// SilenceByte returns the byte a silent stream of this format is made of.
// 8-bit PCM is unsigned and centred on 128, wider formats are signed.
func (f Format) SilenceByte() byte {
	if f.Depth() == 8 {
		return Silence
	}
	return 0
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes * 8 / int64(f.Channels()) / int64(f.Depth())
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.BlockAlign())
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.BlockAlign()
}

// SilenceChunk returns a silence chunk of the given duration.
func (f Format) SilenceChunk(duration time.Duration) Chunk {
	return &SilenceChunk{
		Duration: duration,
		len:      f.BytesInDuration(duration),
		fmt:      f,
	}
}

// DataChunk returns a chunk of audio data.
func (f Format) DataChunk(data []byte) Chunk {
	return &DataChunk{
		Data: data,
		fmt:  f,
	}
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case U8Mono8K:
		return "audio/L8; rate=8000; channels=1"
	case L16Mono8K:
		return "audio/L16; rate=8000; channels=1"
	case L16Mono16K:
		return "audio/L16; rate=16000; channels=1"
	case L16Mono24K:
		return "audio/L16; rate=24000; channels=1"
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	}
	panic("pcm: invalid audio type")
}

// Concat writes the chunks one after another into a single buffer.
func Concat(chunks ...Chunk) ([]byte, error) {
	var n int64
	for _, c := range chunks {
		n += c.Len()
	}
	buf := bytes.NewBuffer(make([]byte, 0, n))
	for _, c := range chunks {
		if _, err := c.WriteTo(buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DataChunk is a chunk of audio data.
type DataChunk struct {
	Data []byte
	fmt  Format
}

// Len returns the length of the audio data in bytes.
func (c *DataChunk) Len() int64 {
	return int64(len(c.Data))
}

// Format returns the audio format of this chunk.
func (c *DataChunk) Format() Format {
	return c.fmt
}

// WriteTo writes the audio data to the writer.
func (c *DataChunk) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Data)
	return int64(n), err
}

// SilenceChunk is a chunk of silence.
type SilenceChunk struct {
	Duration time.Duration
	len      int64
	fmt      Format
}

// Len returns the length of the silence in bytes.
func (c *SilenceChunk) Len() int64 {
	return c.len
}

// Format returns the audio format of this chunk.
func (c *SilenceChunk) Format() Format {
	return c.fmt
}

// WriteTo writes the format's silence byte to the writer.
func (c *SilenceChunk) WriteTo(w io.Writer) (int64, error) {
	block := bytes.Repeat([]byte{c.fmt.SilenceByte()}, 4096)
	tw := c.len
	wn := int64(0)
	for tw > 0 {
		silence := block
		if tw < int64(len(block)) {
			silence = block[:tw]
		}
		n, err := w.Write(silence)
		wn += int64(n)
		if err != nil {
			return wn, err
		}
		tw -= int64(n)
	}
	return wn, nil
}
