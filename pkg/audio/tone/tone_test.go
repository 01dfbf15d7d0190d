package tone

import (
	"testing"

	"github.com/haivivi/captcha/go/pkg/audio/pcm"
)

func TestSineRange(t *testing.T) {
	data := Sine([]float64{440}, 800, SampleRate, 1)
	if len(data) != 800 {
		t.Fatalf("len = %d, want 800", len(data))
	}
	var lo, hi byte = 255, 0
	for _, v := range data {
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo > 10 || hi < 245 {
		t.Errorf("full-volume sine spans [%d, %d]", lo, hi)
	}
	if data[0] != pcm.Silence {
		t.Errorf("first sample = %d, want silence", data[0])
	}
}

func TestSineEmpty(t *testing.T) {
	for _, v := range Sine(nil, 10, SampleRate, 1) {
		if v != pcm.Silence {
			t.Fatalf("sample = %d, want silence", v)
		}
	}
	if got := Sine([]float64{440}, -1, SampleRate, 1); len(got) != 0 {
		t.Errorf("negative samples gave %d bytes", len(got))
	}
}

func TestBeep(t *testing.T) {
	if got := len(Beep()); got != 1200 {
		t.Errorf("len(Beep()) = %d, want 1200", got)
	}
}

func TestDigit(t *testing.T) {
	for _, d := range "0123456789" {
		seen := map[int]bool{}
		for v := range Variants {
			clip, ok := Digit(d, v)
			if !ok {
				t.Fatalf("Digit(%q) not found", d)
			}
			seen[len(clip)] = true
		}
		if len(seen) != Variants {
			t.Errorf("Digit(%q) variants share lengths: %v", d, seen)
		}
	}
	if _, ok := Digit('a', 0); ok {
		t.Error("Digit('a') should not exist")
	}
	a, _ := Digit('5', -1)
	b, _ := Digit('5', Variants-1)
	if len(a) != len(b) {
		t.Error("negative variant should wrap")
	}
}
