package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/haivivi/captcha/go/pkg/audio/pcm"
)

func TestPatchHeader(t *testing.T) {
	tests := []struct {
		name    string
		payload int
		total   int
	}{
		{"empty", 0, 44},
		{"even", 100, 144},
		{"odd", 101, 146},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bytes.Repeat([]byte{128}, tt.payload)
			got := PatchHeader(body)
			if len(got) != tt.total {
				t.Fatalf("len = %d, want %d", len(got), tt.total)
			}
			if len(got)%2 != 0 {
				t.Fatalf("file length %d is odd", len(got))
			}
			if string(got[0:4]) != "RIFF" || string(got[8:16]) != "WAVEfmt " || string(got[36:40]) != "data" {
				t.Fatalf("bad signatures: %q", got[:40])
			}
			if riff := binary.LittleEndian.Uint32(got[4:]); int(riff) != len(got)-8 {
				t.Errorf("RIFF size = %d, want %d", riff, len(got)-8)
			}
			if data := binary.LittleEndian.Uint32(got[40:]); int(data) != tt.payload {
				t.Errorf("data size = %d, want %d", data, tt.payload)
			}
		})
	}
}

func TestHeaderMatchesCanonicalU8(t *testing.T) {
	want := []byte("RIFF\x00\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00" +
		"@\x1f\x00\x00@\x1f\x00\x00\x01\x00\x08\x00data")
	got := Header(pcm.U8Mono8K, 0)
	binary.LittleEndian.PutUint32(got[4:], 0)
	if !bytes.Equal(got[:40], want) {
		t.Errorf("Header() = %q\nwant     %q", got[:40], want)
	}
}

func TestEncodeDecodeU8(t *testing.T) {
	payload := []byte{0, 64, 128, 192, 255}
	var buf bytes.Buffer
	n, err := Encode(&buf, pcm.U8Mono8K, payload)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(buf.Len()) || n != 50 {
		t.Fatalf("Encode wrote %d (buffer %d), want 50", n, buf.Len())
	}
	if !bytes.Equal(buf.Bytes(), PatchHeader(payload)) {
		t.Error("Encode(U8Mono8K) differs from PatchHeader")
	}

	clip, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if clip.SampleRate != 8000 || clip.Channels != 1 || clip.Depth != 8 {
		t.Fatalf("clip format = %d/%d/%d", clip.SampleRate, clip.Channels, clip.Depth)
	}
	got, err := clip.ToU8Mono8K()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("ToU8Mono8K() = %v, want %v", got, payload)
	}
}

func TestDecodeSkipsListChunk(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.WriteString("WAVE")
	buf.WriteString("LIST")
	binary.Write(&buf, binary.LittleEndian, uint32(3))
	buf.Write([]byte{'a', 'b', 'c', 0})
	full := Header(pcm.U8Mono8K, 2)
	buf.Write(full[12:])
	buf.Write([]byte{100, 150})

	clip, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(clip.Data, []byte{100, 150}) {
		t.Errorf("Data = %v", clip.Data)
	}
}

func TestDecode16BitTo8Bit(t *testing.T) {
	samples := []int16{0, 32767, -32768, 256}
	payload := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(s))
	}
	var buf bytes.Buffer
	if _, err := Encode(&buf, pcm.L16Mono8K, payload); err != nil {
		t.Fatal(err)
	}
	clip, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := clip.ToU8Mono8K()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{128, 255, 0, 129}
	if !bytes.Equal(got, want) {
		t.Errorf("ToU8Mono8K() = %v, want %v", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", []byte("RIFF"), ErrInvalid},
		{"not wave", []byte("RIFF\x00\x00\x00\x00AVI "), ErrInvalid},
		{"no data", Header(pcm.U8Mono8K, 0)[:36], ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeRejectsNonPCM(t *testing.T) {
	h := Header(pcm.L16Mono16K, 0)
	binary.LittleEndian.PutUint16(h[20:], 3) // IEEE float
	_, err := Decode(bytes.NewReader(h))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Decode() error = %v, want ErrUnsupported", err)
	}
}

func TestDecodeRejects8BitOtherRates(t *testing.T) {
	h := Header(pcm.U8Mono8K, 0)
	binary.LittleEndian.PutUint32(h[24:], 11025)
	_, err := Decode(bytes.NewReader(h))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Decode() error = %v, want ErrUnsupported", err)
	}
}
