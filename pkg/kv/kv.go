// Package kv stores short-lived values under hierarchical keys. Keys are
// string slices (e.g. ["captcha", "<id>"]) encoded with a configurable
// separator (default ':').
//
// Memory keeps values in process; Badger persists them with BadgerDB. Both
// expire values written with a TTL.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("kv: not found")
)

// Key is a hierarchical path represented as a slice of string segments.
// For example, Key{"captcha", "3f0c"} encodes to "captcha:3f0c" using the
// default separator ':'.
//
// Segments must not contain the configured separator character.
type Key []string

// String returns the key as a human-readable string using ':' as separator.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the interface for a key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if the key is
	// absent or expired.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value. A
	// positive ttl expires the value after that long; zero keeps it.
	Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key Key) error

	// Take returns the value for a key and removes it in one step. Of
	// several concurrent Takes of the same key at most one succeeds; the
	// others return ErrNotFound.
	Take(ctx context.Context, key Key) ([]byte, error)

	// List iterates over all live entries whose key starts with prefix, in
	// lexicographic order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases any resources held by the store.
	Close() error
}

// DefaultSeparator is the default separator byte used to encode key segments.
const DefaultSeparator byte = ':'

// Options configures store behavior.
type Options struct {
	// Separator is the byte used to join key segments when encoding to storage.
	// Default is ':' if zero.
	Separator byte

	// Now is the clock Memory checks expiry against. Default time.Now.
	Now func() time.Time
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

func (o *Options) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Options) encode(k Key) []byte {
	return []byte(strings.Join(k, string(o.sep())))
}

func (o *Options) decode(b []byte) Key {
	return Key(strings.Split(string(b), string(o.sep())))
}

// prefixBytes is the encoded prefix followed by the separator, so "a:b"
// does not match "a:bc". An empty prefix matches everything.
func (o *Options) prefixBytes(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return append(o.encode(prefix), o.sep())
}
