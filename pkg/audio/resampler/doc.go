// Package resampler converts 16-bit signed PCM between sample rates and
// channel layouts.
//
// Voice clips recorded at 16kHz, 24kHz or 48kHz, mono or stereo, are brought
// down to the 8kHz mono layout CAPTCHA audio is assembled in. Resampling is
// done in pure Go by github.com/tphakala/go-audio-resampling.
//
// Example usage:
//
//	src := resampler.Format{SampleRate: 16000, Stereo: true}
//	dst := resampler.Format{SampleRate: 8000}
//	out, err := resampler.Bytes(clip, src, dst)
//
// For streams, New wraps an io.Reader:
//
//	r, err := resampler.New(audioReader, src, dst)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	io.Copy(output, r)
package resampler
