package voice

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/haivivi/captcha/go/pkg/audio/tone"
	"github.com/haivivi/captcha/go/pkg/audio/wav"
)

// Source lists characters and produces their raw clips. Clips are 8-bit
// unsigned 8kHz mono PCM.
type Source interface {
	Choices() ([]string, error)
	Clips(ch string) ([][]byte, error)
}

// Dir returns a Source over a voice directory: every immediate
// subdirectory named by a single character holds that character's WAV
// clips.
func Dir(fsys fs.FS) Source {
	return dirSource{fsys: fsys}
}

// DirPath is Dir over the operating system directory at root.
func DirPath(root string) Source {
	return dirSource{fsys: os.DirFS(root), name: root}
}

type dirSource struct {
	fsys fs.FS
	name string
}

func (d dirSource) Choices() ([]string, error) {
	entries, err := fs.ReadDir(d.fsys, ".")
	if err != nil {
		return nil, d.wrap(".", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if utf8.RuneCountInString(name) != 1 || strings.HasPrefix(name, ".") {
			continue
		}
		if d.mode(name, e).IsDir() {
			out = append(out, name)
		}
	}
	return out, nil
}

func (d dirSource) Clips(ch string) ([][]byte, error) {
	entries, err := fs.ReadDir(d.fsys, ch)
	if err != nil {
		return nil, d.wrap(ch, err)
	}
	var clips [][]byte
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".wav") {
			continue
		}
		name := path.Join(ch, e.Name())
		if !d.mode(name, e).IsRegular() {
			continue
		}
		clip, err := d.readClip(name)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// mode returns the type of entry e at name, resolving symlinks. A dangling
// link reports as irregular.
func (d dirSource) mode(name string, e fs.DirEntry) fs.FileMode {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type()
	}
	fi, err := fs.Stat(d.fsys, name)
	if err != nil {
		return fs.ModeIrregular
	}
	return fi.Mode()
}

func (d dirSource) readClip(name string) ([]byte, error) {
	f, err := d.fsys.Open(name)
	if err != nil {
		return nil, d.wrap(name, err)
	}
	defer f.Close()

	clip, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetUnreadable, d.display(name), err)
	}
	data, err := clip.ToU8Mono8K()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetUnreadable, d.display(name), err)
	}
	return data, nil
}

func (d dirSource) wrap(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, d.display(name))
	}
	return fmt.Errorf("%w: %s: %w", ErrAssetUnreadable, d.display(name), err)
}

func (d dirSource) display(name string) string {
	if d.name == "" {
		return name
	}
	return path.Join(d.name, name)
}

// Builtin returns the synthesized digit voices '0' to '9', each with
// tone.Variants clips.
func Builtin() Source {
	return builtinSource{}
}

type builtinSource struct{}

func (builtinSource) Choices() ([]string, error) {
	out := make([]string, 10)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out, nil
}

func (builtinSource) Clips(ch string) ([][]byte, error) {
	r, size := utf8.DecodeRuneInString(ch)
	if size != len(ch) {
		return nil, fmt.Errorf("%w: builtin voice %q", ErrAssetNotFound, ch)
	}
	clips := make([][]byte, 0, tone.Variants)
	for v := range tone.Variants {
		clip, ok := tone.Digit(r, v)
		if !ok {
			return nil, fmt.Errorf("%w: builtin voice %q", ErrAssetNotFound, ch)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}
