package kv_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/haivivi/captcha/go/pkg/kv"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stores returns each Store implementation for the shared tests.
func stores(t *testing.T) map[string]kv.Store {
	t.Helper()
	mem := kv.NewMemory(nil)
	bdg, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() {
		mem.Close()
		bdg.Close()
	})
	return map[string]kv.Store{"memory": mem, "badger": bdg}
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := kv.Key{"captcha", "abc"}

			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := s.Set(ctx, key, []byte("hello"), 0); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil || string(got) != "hello" {
				t.Fatalf("Get = %q, %v", got, err)
			}

			if err := s.Set(ctx, key, []byte("world"), time.Hour); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, err = s.Get(ctx, key)
			if err != nil || string(got) != "world" {
				t.Fatalf("Get after overwrite = %q, %v", got, err)
			}

			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.Delete(ctx, kv.Key{"no", "such", "key"}); err != nil {
				t.Fatalf("Delete non-existent: %v", err)
			}
		})
	}
}

func TestTake(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := kv.Key{"captcha", "take"}
			if _, err := s.Take(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Take(missing) error = %v, want ErrNotFound", err)
			}
			if err := s.Set(ctx, key, []byte("v"), time.Hour); err != nil {
				t.Fatal(err)
			}
			got, err := s.Take(ctx, key)
			if err != nil || string(got) != "v" {
				t.Fatalf("Take = %q, %v", got, err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Errorf("Get after Take error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestTakeConcurrent(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for round := range 20 {
				key := kv.Key{"captcha", "race"}
				if err := s.Set(ctx, key, []byte{byte(round)}, 0); err != nil {
					t.Fatal(err)
				}
				var (
					wg   sync.WaitGroup
					mu   sync.Mutex
					wins int
				)
				for range 8 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := s.Take(ctx, key)
						if err == nil {
							mu.Lock()
							wins++
							mu.Unlock()
						} else if !errors.Is(err, kv.ErrNotFound) {
							t.Error(err)
						}
					}()
				}
				wg.Wait()
				if wins != 1 {
					t.Fatalf("round %d: %d Takes succeeded, want 1", round, wins)
				}
			}
		})
	}
}

func TestMemoryTakeExpired(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := kv.NewMemory(&kv.Options{Now: clk.Now})
	key := kv.Key{"captcha", "old"}
	if err := s.Set(ctx, key, []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Minute)
	if _, err := s.Take(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Take(expired) error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []kv.Key{{"captcha", "b"}, {"captcha", "a"}, {"captchas", "x"}, {"other", "c"}} {
				if err := s.Set(ctx, k, []byte(k.String()), 0); err != nil {
					t.Fatal(err)
				}
			}
			var got []string
			for e, err := range s.List(ctx, kv.Key{"captcha"}) {
				if err != nil {
					t.Fatal(err)
				}
				got = append(got, e.Key.String())
			}
			want := []string{"captcha:a", "captcha:b"}
			if !slices.Equal(got, want) {
				t.Errorf("List = %v, want %v", got, want)
			}

			n := 0
			for range s.List(ctx, nil) {
				n++
			}
			if n != 4 {
				t.Errorf("List(nil) yielded %d entries, want 4", n)
			}
		})
	}
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := kv.NewMemory(&kv.Options{Now: c.Now})

	if err := s.Set(ctx, kv.Key{"a"}, []byte("1"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, kv.Key{"b"}, []byte("2"), 0); err != nil {
		t.Fatal(err)
	}

	c.Advance(59 * time.Second)
	if _, err := s.Get(ctx, kv.Key{"a"}); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	c.Advance(time.Second)
	if _, err := s.Get(ctx, kv.Key{"a"}); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get after expiry = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, kv.Key{"b"}); err != nil {
		t.Fatalf("value without ttl expired: %v", err)
	}

	var keys []string
	for e := range s.List(ctx, nil) {
		keys = append(keys, e.Key.String())
	}
	if !slices.Equal(keys, []string{"b"}) {
		t.Errorf("List = %v, want [b]", keys)
	}
}

func TestMemoryCopies(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory(nil)
	val := []byte("abc")
	if err := s.Set(ctx, kv.Key{"k"}, val, 0); err != nil {
		t.Fatal(err)
	}
	val[0] = 'x'
	got, _ := s.Get(ctx, kv.Key{"k"})
	got[1] = 'y'
	again, _ := s.Get(ctx, kv.Key{"k"})
	if string(again) != "abc" {
		t.Errorf("stored value mutated to %q", again)
	}
}

func TestSeparator(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory(&kv.Options{Separator: '/'})
	if err := s.Set(ctx, kv.Key{"a", "b:c"}, []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	for e := range s.List(ctx, kv.Key{"a"}) {
		if !slices.Equal(e.Key, kv.Key{"a", "b:c"}) {
			t.Errorf("Key = %v", e.Key)
		}
	}
}

func TestBadgerRequiresDir(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Error("NewBadger without Dir should fail")
	}
}

func TestBadgerOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, kv.Key{"captcha", "x"}, []byte("1234"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, kv.Key{"captcha", "x"})
	if err != nil || string(got) != "1234" {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}
}
