package captcha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/haivivi/captcha/go/pkg/audio/pcm"
	"github.com/haivivi/captcha/go/pkg/audio/tone"
	"github.com/haivivi/captcha/go/pkg/audio/wav"
	"github.com/haivivi/captcha/go/pkg/audio/wave"
	"github.com/haivivi/captcha/go/pkg/storage"
	"github.com/haivivi/captcha/go/pkg/voice"
)

// PreludeGap is the silence between the opening beeps.
const PreludeGap = 200 * time.Millisecond

// Audio timing, in samples at 8kHz.
const (
	SampleRate   = 8000
	MaxNoiseGap  = SampleRate / 10
	MinVoiceGap  = SampleRate
	MaxVoiceGap  = SampleRate * 3
	NoiseLevel   = 4
	EndBeepSpeed = 1.4
)

var (
	beep    = tone.Beep()
	endBeep = wave.ChangeSpeed(beep, EndBeepSpeed)
)

// AudioOption configures an Audio.
type AudioOption func(*Audio)

// WithVoiceLibrary sets the voice clips characters are spoken with.
func WithVoiceLibrary(lib *voice.Library) AudioOption {
	return func(a *Audio) { a.lib = lib }
}

// WithVoiceDir reads voice clips from a directory; see voice.Dir.
func WithVoiceDir(dir string) AudioOption {
	return func(a *Audio) { a.voiceDir = dir }
}

// WithAudioRand sets the random source.
func WithAudioRand(rng *rand.Rand) AudioOption {
	return func(a *Audio) { a.rng = rng }
}

// WithAudioLogger sets the logger. Defaults to slog.Default().
func WithAudioLogger(l *slog.Logger) AudioOption {
	return func(a *Audio) { a.logger = l }
}

// Audio generates WAV CAPTCHAs.
type Audio struct {
	lib      *voice.Library
	voiceDir string
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAudio creates an Audio. Without WithVoiceLibrary or WithVoiceDir the
// built-in digit voices are used.
func NewAudio(opts ...AudioOption) *Audio {
	a := &Audio{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = newRand()
	}
	if a.lib == nil {
		src := voice.Builtin()
		if a.voiceDir != "" {
			src = voice.DirPath(a.voiceDir)
		}
		a.lib = voice.New(src, voice.WithLogger(a.logger))
	}
	return a
}

// Library returns the voice library.
func (a *Audio) Library() *voice.Library { return a.lib }

// Choices returns the characters that can be spoken.
func (a *Audio) Choices() ([]string, error) {
	return a.lib.Choices()
}

// Random returns n distinct speakable characters.
func (a *Audio) Random(n int) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	chars, err := a.lib.Random(a.rng, n)
	if err != nil {
		return "", err
	}
	return strings.Join(chars, ""), nil
}

// TwistPick returns a random clip of ch with its speed scaled by a factor
// in [0.9, 1.2] and its amplitude by one in [0.8, 1.2].
func (a *Audio) TwistPick(ch string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.twistPick(ch)
}

func (a *Audio) twistPick(ch string) ([]byte, error) {
	clip, err := a.lib.Pick(a.rng, ch)
	if errors.Is(err, voice.ErrAssetNotFound) {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnknownCharacter, ch, err)
	}
	if err != nil {
		return nil, err
	}
	clip = wave.ChangeSpeed(clip, uniform(a.rng, 0.9, 1.2))
	return wave.ChangeSound(clip, uniform(a.rng, 0.8, 1.2)), nil
}

// NoisePick returns a random clip of a random character, reversed, with
// its speed scaled by a factor in [0.8, 1.6] and its amplitude by one in
// [0.2, 0.6].
func (a *Audio) NoisePick() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.noisePick()
}

func (a *Audio) noisePick() ([]byte, error) {
	choices, err := a.lib.Choices()
	if err != nil {
		return nil, err
	}
	if len(choices) == 0 {
		return nil, fmt.Errorf("%w: voice library is empty", ErrInsufficientChoices)
	}
	clip, err := a.lib.Pick(a.rng, choices[a.rng.IntN(len(choices))])
	if err != nil {
		return nil, err
	}
	clip = wave.Reverse(clip)
	clip = wave.ChangeSpeed(clip, uniform(a.rng, 0.8, 1.6))
	return wave.ChangeSound(clip, uniform(a.rng, 0.2, 0.6)), nil
}

// BackgroundNoise returns at least length samples of low noise overlaid
// with NoisePick clips, each followed by a gap of up to MaxNoiseGap
// samples. The last clip may run past length.
func (a *Audio) BackgroundNoise(length int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.backgroundNoise(length)
}

func (a *Audio) backgroundNoise(length int) ([]byte, error) {
	noise := wave.Noise(a.rng, length, NoiseLevel)
	for pos := 0; pos < length; {
		clip, err := a.noisePick()
		if err != nil {
			return nil, err
		}
		noise = wave.Overlay(noise, pos, clip)
		pos += len(clip) + 1 + between(a.rng, 0, MaxNoiseGap)
	}
	return noise, nil
}

// WaveBody returns the PCM payload speaking chars: three beeps, the
// twisted clips over background noise, and a faster closing beep.
func (a *Audio) WaveBody(chars string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waveBody(chars)
}

func (a *Audio) waveBody(chars string) ([]byte, error) {
	if chars == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}

	var (
		clips  [][]byte
		gaps   []int
		maxLen int
		total  int
	)
	for _, ch := range chars {
		clip, err := a.twistPick(string(ch))
		if err != nil {
			return nil, err
		}
		gap := between(a.rng, MinVoiceGap, MaxVoiceGap)
		clips = append(clips, clip)
		gaps = append(gaps, gap)
		maxLen = max(maxLen, len(clip))
		total += gap
	}

	bg, err := a.backgroundNoise(maxLen*len(clips) + total)
	if err != nil {
		return nil, err
	}
	pos := gaps[0]
	for i, clip := range clips {
		bg = wave.Overlay(bg, pos, clip)
		pos += len(clip) + 1 + gaps[i]
	}

	return pcm.Concat(
		pcm.U8Mono8K.DataChunk(beep),
		pcm.U8Mono8K.SilenceChunk(PreludeGap),
		pcm.U8Mono8K.DataChunk(beep),
		pcm.U8Mono8K.SilenceChunk(PreludeGap),
		pcm.U8Mono8K.DataChunk(beep),
		pcm.U8Mono8K.DataChunk(bg),
		pcm.U8Mono8K.DataChunk(endBeep),
	)
}

// Generate returns a complete WAV file speaking chars. The voice library
// is loaded first if it has not been.
func (a *Audio) Generate(chars string) ([]byte, error) {
	if !a.lib.Loaded() {
		if err := a.lib.Load(); err != nil {
			return nil, err
		}
	}
	a.mu.Lock()
	body, err := a.waveBody(chars)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("captcha: audio generated", "chars", len(chars), "samples", len(body))
	return wav.PatchHeader(body), nil
}

// Write generates the audio for chars and stores it at path.
func (a *Audio) Write(ctx context.Context, store storage.FileStore, path, chars string) error {
	data, err := a.Generate(chars)
	if err != nil {
		return err
	}
	return storage.WriteFile(ctx, store, path, data)
}
