// Package voice manages the per-character voice clips CAPTCHA audio is
// assembled from.
//
// A Library wraps a Source and caches every clip it reads. Clips are
// loaded lazily on first use, or eagerly with Load; either way the cache
// is safe for concurrent use.
package voice

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
)

var (
	// ErrInsufficientChoices is returned when more distinct characters are
	// requested than the library holds.
	ErrInsufficientChoices = errors.New("voice: insufficient choices")

	// ErrAssetNotFound is returned when a voice directory or character
	// does not exist.
	ErrAssetNotFound = errors.New("voice: asset not found")

	// ErrAssetUnreadable is returned when a clip exists but cannot be read
	// or decoded.
	ErrAssetUnreadable = errors.New("voice: asset unreadable")

	// ErrInvalidInput is returned for non-positive counts.
	ErrInvalidInput = errors.New("voice: invalid input")
)

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger for cache events. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(lib *Library) { lib.logger = l }
}

// Library caches voice clips by character.
type Library struct {
	src    Source
	logger *slog.Logger

	mu      sync.Mutex
	choices []string
	cache   map[string][][]byte
	loaded  bool
}

// New creates a Library reading from src.
func New(src Source, opts ...Option) *Library {
	lib := &Library{
		src:    src,
		logger: slog.Default(),
		cache:  make(map[string][][]byte),
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Choices returns the characters the source can voice, in source order.
func (l *Library) Choices() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	choices, err := l.choicesLocked()
	if err != nil {
		return nil, err
	}
	return slices.Clone(choices), nil
}

func (l *Library) choicesLocked() ([]string, error) {
	if l.choices != nil {
		return l.choices, nil
	}
	choices, err := l.src.Choices()
	if err != nil {
		return nil, err
	}
	if choices == nil {
		choices = []string{}
	}
	l.choices = choices
	return choices, nil
}

// Random samples n distinct characters without replacement.
func (l *Library) Random(rng *rand.Rand, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidInput, n)
	}
	choices, err := l.Choices()
	if err != nil {
		return nil, err
	}
	if n > len(choices) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrInsufficientChoices, n, len(choices))
	}
	rng.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	return choices[:n], nil
}

// Load reads every character's clips, replacing anything cached.
func (l *Library) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.choices = nil
	choices, err := l.choicesLocked()
	if err != nil {
		return err
	}
	cache := make(map[string][][]byte, len(choices))
	total := 0
	for _, ch := range choices {
		clips, err := l.src.Clips(ch)
		if err != nil {
			return err
		}
		cache[ch] = clips
		total += len(clips)
	}
	l.cache = cache
	l.loaded = true
	l.logger.Debug("voice: library loaded", "characters", len(choices), "clips", total)
	return nil
}

// Loaded reports whether Load has completed.
func (l *Library) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Keys returns the characters currently cached, sorted.
func (l *Library) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.cache))
	for k := range l.cache {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clips returns the cached clips of ch, reading them from the source on
// first use. Only characters listed by Choices are read. The returned clips must not be modified.
func (l *Library) Clips(ch string) ([][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if clips, ok := l.cache[ch]; ok {
		return clips, nil
	}
	if l.loaded {
		return nil, fmt.Errorf("%w: character %q", ErrAssetNotFound, ch)
	}
	choices, err := l.choicesLocked()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(choices, ch) {
		return nil, fmt.Errorf("%w: character %q", ErrAssetNotFound, ch)
	}
	clips, err := l.src.Clips(ch)
	if err != nil {
		return nil, err
	}
	l.cache[ch] = clips
	l.logger.Debug("voice: character loaded", "char", ch, "clips", len(clips))
	return clips, nil
}

// Pick returns one clip of ch chosen uniformly at random.
func (l *Library) Pick(rng *rand.Rand, ch string) ([]byte, error) {
	clips, err := l.Clips(ch)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("%w: character %q has no clips", ErrAssetNotFound, ch)
	}
	return clips[rng.IntN(len(clips))], nil
}
