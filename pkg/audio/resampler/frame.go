package resampler

import "io"

// Format is a 16-bit signed little-endian PCM layout.
type Format struct {
	SampleRate int
	Stereo     bool
}

func (f Format) channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

// frameBytes is the size of one sample across all channels.
func (f Format) frameBytes() int {
	return 2 * f.channels()
}

// frameReader returns reads in whole frames, carrying a partial frame over
// to the next call.
type frameReader struct {
	r     io.Reader
	size  int
	carry []byte
}

func newFrameReader(r io.Reader, size int) *frameReader {
	return &frameReader{r: r, size: size, carry: make([]byte, 0, size)}
}

func (fr *frameReader) Read(p []byte) (int, error) {
	if len(p) < fr.size {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/fr.size*fr.size]
	n := copy(p, fr.carry)
	fr.carry = fr.carry[:0]

	rn, err := fr.r.Read(p[n:])
	n += rn
	if tail := n % fr.size; tail != 0 {
		n -= tail
		if err == io.EOF {
			return n, io.ErrUnexpectedEOF
		}
		fr.carry = append(fr.carry, p[n:n+tail]...)
	}
	return n, err
}
