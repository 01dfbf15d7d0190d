package kv

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store. It is safe for concurrent use. Expired
// values are dropped lazily when read or listed.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memEntry
	opts *Options
}

type memEntry struct {
	value   []byte
	expires time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// NewMemory creates a new in-memory Store.
// Pass nil for default options.
func NewMemory(opts *Options) *Memory {
	return &Memory{
		data: make(map[string]memEntry),
		opts: opts,
	}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	k := string(m.opts.encode(key))
	m.mu.RLock()
	e, ok := m.data[k]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if e.expired(m.opts.now()) {
		m.mu.Lock()
		if cur, ok := m.data[k]; ok && cur.expired(m.opts.now()) {
			delete(m.data, k)
		}
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return bytes.Clone(e.value), nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte, ttl time.Duration) error {
	e := memEntry{value: bytes.Clone(value)}
	if e.value == nil {
		e.value = []byte{}
	}
	if ttl > 0 {
		e.expires = m.opts.now().Add(ttl)
	}
	k := string(m.opts.encode(key))
	m.mu.Lock()
	m.data[k] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	k := string(m.opts.encode(key))
	m.mu.Lock()
	delete(m.data, k)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Take(_ context.Context, key Key) ([]byte, error) {
	k := string(m.opts.encode(key))
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[k]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.data, k)
	if e.expired(m.opts.now()) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p := string(m.opts.prefixBytes(prefix))
	now := m.opts.now()

	// Snapshot under the lock; the iterator runs without it.
	m.mu.Lock()
	var keys []string
	for k, e := range m.data {
		if e.expired(now) {
			delete(m.data, k)
			continue
		}
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: m.opts.decode([]byte(k)), Value: bytes.Clone(m.data[k].value)}
	}
	m.mu.Unlock()

	return func(yield func(Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
