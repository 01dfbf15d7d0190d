// Package wav reads and writes canonical PCM RIFF/WAVE files.
//
// CAPTCHA audio is always written as mono 8-bit unsigned 8kHz; see
// PatchHeader. Decode accepts the 8-bit and 16-bit PCM layouts voice clips
// are commonly recorded in.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/haivivi/captcha/go/pkg/audio/pcm"
	"github.com/haivivi/captcha/go/pkg/audio/resampler"
)

// HeaderSize is the size of the canonical header, including the data chunk
// length field.
const HeaderSize = 44

// formatPCM is the WAVE_FORMAT_PCM format tag.
const formatPCM = 1

var (
	// ErrInvalid is returned when the input is not a RIFF/WAVE stream.
	ErrInvalid = errors.New("wav: invalid file")

	// ErrUnsupported is returned for well-formed files in a layout that
	// cannot be converted to CAPTCHA audio.
	ErrUnsupported = errors.New("wav: unsupported format")
)

// Header returns the 44-byte header for a payload of dataLen bytes in f.
// The RIFF size accounts for the pad byte that follows an odd payload.
func Header(f pcm.Format, dataLen int) []byte {
	padded := dataLen + dataLen%2
	h := make([]byte, HeaderSize)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(HeaderSize-8+padded))
	copy(h[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], formatPCM)
	binary.LittleEndian.PutUint16(h[22:], uint16(f.Channels()))
	binary.LittleEndian.PutUint32(h[24:], uint32(f.SampleRate()))
	binary.LittleEndian.PutUint32(h[28:], uint32(f.BytesRate()))
	binary.LittleEndian.PutUint16(h[32:], uint16(f.BlockAlign()))
	binary.LittleEndian.PutUint16(h[34:], uint16(f.Depth()))
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(dataLen))
	return h
}

// PatchHeader wraps an 8-bit unsigned 8kHz mono payload into a complete WAV
// file. A zero byte is appended when the payload length is odd so the file
// length is always even.
func PatchHeader(payload []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(payload)+1)
	out = append(out, Header(pcm.U8Mono8K, len(payload))...)
	out = append(out, payload...)
	if len(payload)%2 != 0 {
		out = append(out, 0)
	}
	return out
}

// Encode writes payload in format f as a WAV file to w.
func Encode(w io.Writer, f pcm.Format, payload []byte) (int64, error) {
	nn, err := w.Write(Header(f, len(payload)))
	n := int64(nn)
	if err != nil {
		return n, err
	}
	nn, err = w.Write(payload)
	n += int64(nn)
	if err != nil {
		return n, err
	}
	if len(payload)%2 != 0 {
		nn, err = w.Write([]byte{0})
		n += int64(nn)
	}
	return n, err
}

// Clip is a decoded PCM clip.
type Clip struct {
	SampleRate int
	Channels   int
	Depth      int
	Data       []byte
}

// Decode parses a WAV stream. LIST and other unknown chunks are skipped.
func Decode(r io.Reader) (*Clip, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: read riff header: %v", ErrInvalid, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE signature", ErrInvalid)
	}

	var (
		clip   Clip
		hasFmt bool
	)
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return nil, fmt.Errorf("%w: no data chunk", ErrInvalid)
		}
		id := string(ch[0:4])
		size := int64(binary.LittleEndian.Uint32(ch[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk of %d bytes", ErrInvalid, size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w: read fmt chunk: %v", ErrInvalid, err)
			}
			if tag := binary.LittleEndian.Uint16(body[0:]); tag != formatPCM {
				return nil, fmt.Errorf("%w: format tag %d", ErrUnsupported, tag)
			}
			clip.Channels = int(binary.LittleEndian.Uint16(body[2:]))
			clip.SampleRate = int(binary.LittleEndian.Uint32(body[4:]))
			clip.Depth = int(binary.LittleEndian.Uint16(body[14:]))
			hasFmt = true
		case "data":
			if !hasFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalid)
			}
			var buf bytes.Buffer
			// Streaming writers may leave the size past the end of the
			// stream; keep whatever is there.
			if _, err := io.CopyN(&buf, r, size); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: read data chunk: %v", ErrInvalid, err)
			}
			clip.Data = buf.Bytes()
			return &clip, clip.validate()
		default:
			size += size % 2
			if _, err := io.CopyN(io.Discard, r, size); err != nil {
				return nil, fmt.Errorf("%w: skip %q chunk: %v", ErrInvalid, id, err)
			}
			continue
		}
		if size%2 != 0 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return nil, fmt.Errorf("%w: chunk padding: %v", ErrInvalid, err)
			}
		}
	}
}

func (c *Clip) validate() error {
	switch {
	case c.Channels != 1 && c.Channels != 2:
		return fmt.Errorf("%w: %d channels", ErrUnsupported, c.Channels)
	case c.Depth != 8 && c.Depth != 16:
		return fmt.Errorf("%w: %d-bit samples", ErrUnsupported, c.Depth)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalid, c.SampleRate)
	case c.Depth == 8 && (c.Channels != 1 || c.SampleRate != pcm.U8Mono8K.SampleRate()):
		return fmt.Errorf("%w: 8-bit clips must be mono %dHz", ErrUnsupported, pcm.U8Mono8K.SampleRate())
	}
	return nil
}

// ToU8Mono8K converts the clip to 8-bit unsigned 8kHz mono samples.
func (c *Clip) ToU8Mono8K() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if c.Depth == 8 {
		out := make([]byte, len(c.Data))
		copy(out, c.Data)
		return out, nil
	}

	data := c.Data
	src := resampler.Format{SampleRate: c.SampleRate, Stereo: c.Channels == 2}
	dst := resampler.Format{SampleRate: pcm.U8Mono8K.SampleRate()}
	if src != dst {
		var err error
		data, err = resampler.Bytes(data, src, dst)
		if err != nil {
			return nil, fmt.Errorf("wav: resample %dHz/%dch: %w", c.SampleRate, c.Channels, err)
		}
	}

	out := make([]byte, len(data)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = byte(int(s>>8) + 128)
	}
	return out, nil
}
