package resampler

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler wraps an io.Reader and resamples audio from srcFmt to dstFmt.
// It supports sample rate conversion and channel conversion (mono↔stereo).
// The resampler must be closed with Close() to release resources.
type Resampler interface {
	io.ReadCloser
	CloseWithError(error) error
}

// Stream is a pure Go Resampler over 16-bit signed little-endian PCM.
type Stream struct {
	srcFmt Format
	src    io.Reader

	dstFmt  Format
	readBuf []byte

	mu            sync.Mutex
	closeErr      error
	resampler     resampling.Resampler
	leftover      []byte
	needsResample bool
}

var _ Resampler = (*Stream)(nil)

// New creates a new Resampler that resamples audio from srcFmt to dstFmt.
// The formats must use 16-bit signed integer samples.
func New(src io.Reader, srcFmt, dstFmt Format) (*Stream, error) {
	if srcFmt.SampleRate <= 0 || dstFmt.SampleRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid sample rate %d -> %d", srcFmt.SampleRate, dstFmt.SampleRate)
	}
	needsResample := srcFmt.SampleRate != dstFmt.SampleRate

	var resampler resampling.Resampler
	if needsResample {
		config := &resampling.Config{
			InputRate:  float64(srcFmt.SampleRate),
			OutputRate: float64(dstFmt.SampleRate),
			Channels:   dstFmt.channels(),
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		}
		var err error
		resampler, err = resampling.New(config)
		if err != nil {
			return nil, fmt.Errorf("resampler: create: %w", err)
		}
	}

	return &Stream{
		srcFmt:        srcFmt,
		src:           newFrameReader(src, srcFmt.frameBytes()),
		dstFmt:        dstFmt,
		resampler:     resampler,
		needsResample: needsResample,
	}, nil
}

// Bytes resamples a whole in-memory clip. Trailing partial samples are
// dropped.
func Bytes(data []byte, srcFmt, dstFmt Format) ([]byte, error) {
	data = data[:len(data)/srcFmt.frameBytes()*srcFmt.frameBytes()]
	if srcFmt == dstFmt {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	r, err := New(bytes.NewReader(data), srcFmt, dstFmt)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out[:len(out)/dstFmt.frameBytes()*dstFmt.frameBytes()], nil
}

// Read copies resampled audio data into p. It returns the number of bytes
// written and any encountered error. This method is not safe for concurrent
// use.
func (r *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < r.dstFmt.frameBytes() {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/r.dstFmt.frameBytes()*r.dstFmt.frameBytes()]

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}
	if r.closeErr != nil {
		return 0, r.closeErr
	}
	if !r.needsResample {
		return r.readPassthrough(p)
	}
	return r.readAndProcess(p)
}

// readAndProcess reads from source and processes through the resampler.
func (r *Stream) readAndProcess(p []byte) (int, error) {
	ratio := float64(r.srcFmt.SampleRate) / float64(r.dstFmt.SampleRate)
	srcBytesNeeded := int(float64(len(p))*ratio) + r.srcFmt.frameBytes()*4

	bytesRead, readErr := r.readSource(srcBytesNeeded)
	if bytesRead == 0 {
		if readErr != nil {
			return 0, readErr
		}
		return 0, io.EOF
	}

	numSamples := bytesRead / 2
	input := make([]float64, numSamples)
	for i := range numSamples {
		sample := int16(r.readBuf[i*2]) | int16(r.readBuf[i*2+1])<<8
		input[i] = float64(sample) / 32768.0
	}

	output, err := r.resampler.Process(input)
	if err != nil {
		return 0, fmt.Errorf("resampler: process: %w", err)
	}
	if len(output) == 0 {
		return 0, readErr
	}

	outputBytes := make([]byte, len(output)*2)
	for i, s := range output {
		var sample int16
		switch {
		case s >= 1.0:
			sample = 32767
		case s <= -1.0:
			sample = -32768
		default:
			sample = int16(s * 32767.0)
		}
		outputBytes[i*2] = byte(sample)
		outputBytes[i*2+1] = byte(sample >> 8)
	}
	outputBytes = outputBytes[:len(outputBytes)/r.dstFmt.frameBytes()*r.dstFmt.frameBytes()]

	n := copy(p, outputBytes)
	if len(outputBytes) > n {
		r.leftover = append(r.leftover, outputBytes[n:]...)
	}
	return n, readErr
}

// readPassthrough reads without sample rate conversion.
func (r *Stream) readPassthrough(p []byte) (int, error) {
	n, err := r.readSource(len(p))
	if n == 0 {
		return 0, err
	}
	copy(p, r.readBuf[:n])
	return n, err
}

// readSource fills readBuf with up to dstLen bytes in the destination
// channel layout.
func (r *Stream) readSource(dstLen int) (int, error) {
	if cap(r.readBuf) < dstLen*2 {
		r.readBuf = make([]byte, dstLen*2)
	}
	r.readBuf = r.readBuf[:cap(r.readBuf)]

	switch {
	case r.srcFmt.Stereo && !r.dstFmt.Stereo:
		rn, err := r.src.Read(r.readBuf[:dstLen*2])
		if rn == 0 {
			return 0, err
		}
		return stereoToMono(r.readBuf[:rn]), err
	case r.srcFmt.Stereo == r.dstFmt.Stereo:
		return r.src.Read(r.readBuf[:dstLen])
	default:
		rn, err := r.src.Read(r.readBuf[:dstLen/2])
		if rn == 0 {
			return 0, err
		}
		return monoToStereo(r.readBuf[:rn*2]), err
	}
}

// Close releases resources and marks the resampler as closed.
// Subsequent Read calls will return io.ErrClosedPipe.
func (r *Stream) Close() error {
	return r.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError releases resources with a custom error. Subsequent
// Read calls will return the provided error.
func (r *Stream) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	r.resampler = nil
	return nil
}

// stereoToMono converts stereo 16-bit samples to mono in-place by averaging L
// and R channels.
func stereoToMono(b []byte) int {
	numFrames := len(b) / 4
	for i := range numFrames {
		j := i * 4
		k := i * 2
		l := int16(b[j]) | int16(b[j+1])<<8
		r := int16(b[j+2]) | int16(b[j+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		b[k] = byte(m)
		b[k+1] = byte(m >> 8)
	}
	return numFrames * 2
}

// monoToStereo converts mono 16-bit samples to stereo in-place by duplicating
// each sample.
func monoToStereo(b []byte) int {
	stereoLen := len(b)
	numSamples := stereoLen / 4
	for i := numSamples - 1; i >= 0; i-- {
		s0, s1 := b[i*2], b[i*2+1]
		j := i * 4
		b[j], b[j+1] = s0, s1
		b[j+2], b[j+3] = s0, s1
	}
	return stereoLen
}
