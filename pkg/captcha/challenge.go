package captcha

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/captcha/go/pkg/kv"
)

// Kind is the medium of a challenge.
type Kind string

// Challenge kinds.
const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// ParseKind parses "image" or "audio".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindImage, KindAudio:
		return k, nil
	}
	return "", fmt.Errorf("%w: challenge kind %q", ErrInvalidInput, s)
}

// Challenger defaults.
const (
	DefaultTTL    = 10 * time.Minute
	DefaultLength = 4
)

// keyPrefix is the first key segment of every stored answer.
const keyPrefix = "captcha"

// Challenge is an issued CAPTCHA. Data is the encoded media; the answer
// stays in the store.
type Challenge struct {
	ID      string    `json:"id" yaml:"id"`
	Kind    Kind      `json:"kind" yaml:"kind"`
	MIME    string    `json:"mime" yaml:"mime"`
	Expires time.Time `json:"expires" yaml:"expires"`
	Data    []byte    `json:"-" yaml:"-"`
}

// DataURI returns Data as a base64 data: URI.
func (c *Challenge) DataURI() string {
	return "data:" + c.MIME + ";base64," + base64.StdEncoding.EncodeToString(c.Data)
}

// record is the stored form of an answer.
type record struct {
	Answer   string    `msgpack:"answer"`
	Kind     Kind      `msgpack:"kind"`
	IssuedAt time.Time `msgpack:"issued_at"`
	Expires  time.Time `msgpack:"expires"`
}

// ChallengeOption configures a Challenger.
type ChallengeOption func(*Challenger)

// WithChallengeAudio sets the audio generator.
func WithChallengeAudio(a *Audio) ChallengeOption {
	return func(c *Challenger) { c.audio = a }
}

// WithChallengeImage sets the image generator.
func WithChallengeImage(im *Image) ChallengeOption {
	return func(c *Challenger) { c.image = im }
}

// WithImageFormat sets the encoding of image challenges.
func WithImageFormat(format string) ChallengeOption {
	return func(c *Challenger) { c.format = format }
}

// WithTTL sets how long an answer stays valid.
func WithTTL(ttl time.Duration) ChallengeOption {
	return func(c *Challenger) { c.ttl = ttl }
}

// WithLength sets the number of characters per challenge.
func WithLength(n int) ChallengeOption {
	return func(c *Challenger) { c.length = n }
}

// WithClock sets the time source for issue and expiry times.
func WithClock(now func() time.Time) ChallengeOption {
	return func(c *Challenger) { c.now = now }
}

// WithChallengeLogger sets the logger. Defaults to slog.Default().
func WithChallengeLogger(l *slog.Logger) ChallengeOption {
	return func(c *Challenger) { c.logger = l }
}

// Challenger issues challenges and verifies answers against a kv.Store.
// The store is not closed by the Challenger.
type Challenger struct {
	store  kv.Store
	audio  *Audio
	image  *Image
	format string
	ttl    time.Duration
	length int
	now    func() time.Time
	logger *slog.Logger
}

// NewChallenger creates a Challenger storing answers in store.
func NewChallenger(store kv.Store, opts ...ChallengeOption) *Challenger {
	c := &Challenger{
		store:  store,
		format: FormatPNG,
		ttl:    DefaultTTL,
		length: DefaultLength,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.audio == nil {
		c.audio = NewAudio(WithAudioLogger(c.logger))
	}
	if c.image == nil {
		c.image = NewImage(WithImageLogger(c.logger))
	}
	return c
}

func key(id string) kv.Key {
	return kv.Key{keyPrefix, id}
}

// Issue generates a challenge of kind and stores its answer.
func (c *Challenger) Issue(ctx context.Context, kind Kind) (*Challenge, error) {
	var (
		answer string
		data   []byte
		mime   string
		err    error
	)
	switch kind {
	case KindAudio:
		if answer, err = c.audio.Random(c.length); err != nil {
			return nil, err
		}
		data, err = c.audio.Generate(answer)
		mime = "audio/wav"
	case KindImage:
		if answer, err = c.image.Random(c.length); err != nil {
			return nil, err
		}
		data, err = c.image.Generate(answer, c.format)
		mime = ImageMIME(c.format)
	default:
		return nil, fmt.Errorf("%w: challenge kind %q", ErrInvalidInput, kind)
	}
	if err != nil {
		return nil, err
	}

	now := c.now()
	rec := record{Answer: answer, Kind: kind, IssuedAt: now}
	if c.ttl > 0 {
		rec.Expires = now.Add(c.ttl)
	}
	b, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("captcha: encode record: %w", err)
	}
	id := uuid.NewString()
	if err := c.store.Set(ctx, key(id), b, c.ttl); err != nil {
		return nil, fmt.Errorf("captcha: store answer: %w", err)
	}
	c.logger.Debug("captcha: challenge issued", "id", id, "kind", kind, "bytes", len(data))
	return &Challenge{ID: id, Kind: kind, MIME: mime, Expires: rec.Expires, Data: data}, nil
}

// Verify reports whether answer matches the challenge id, ignoring
// surrounding whitespace. With clear set the answer is taken out of the
// store whatever the outcome, so concurrent verifications of one id
// accept it at most once. Unknown and expired ids verify as false without error.
func (c *Challenger) Verify(ctx context.Context, id, answer string, clear bool) (bool, error) {
	load := c.store.Get
	if clear {
		load = c.store.Take
	}
	b, err := load(ctx, key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("captcha: load answer: %w", err)
	}

	var rec record
	if err := msgpack.Unmarshal(b, &rec); err != nil {
		return false, fmt.Errorf("captcha: decode record: %w", err)
	}
	if !rec.Expires.IsZero() && !c.now().Before(rec.Expires) {
		return false, nil
	}
	ok := rec.Answer == strings.TrimSpace(answer)
	c.logger.Debug("captcha: challenge verified", "id", id, "ok", ok)
	return ok, nil
}

// Pending returns the ids of stored, unexpired challenges.
func (c *Challenger) Pending(ctx context.Context) ([]string, error) {
	var ids []string
	now := c.now()
	for e, err := range c.store.List(ctx, kv.Key{keyPrefix}) {
		if err != nil {
			return nil, err
		}
		var rec record
		if err := msgpack.Unmarshal(e.Value, &rec); err != nil {
			continue
		}
		if !rec.Expires.IsZero() && !now.Before(rec.Expires) {
			continue
		}
		ids = append(ids, e.Key[len(e.Key)-1])
	}
	return ids, nil
}
