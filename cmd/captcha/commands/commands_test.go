package commands

import (
	"bytes"
	"encoding/json"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// setupTestEnv returns a --config path in a fresh directory.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", s, err)
	}
}

func TestVersion(t *testing.T) {
	cfg := setupTestEnv(t)

	stdout, _, code := runCmd(t, "--config", cfg, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "captcha") {
		t.Fatalf("expected 'captcha', got: %s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	cfg := setupTestEnv(t)

	stdout, _, code := runCmd(t, "--config", cfg, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `"version"`) {
		t.Fatalf("expected JSON, got: %s", stdout)
	}
}

func TestAudioWritesFile(t *testing.T) {
	cfg := setupTestEnv(t)
	dest := t.TempDir()

	stdout, stderr, code := runCmd(t, "--config", cfg, "--format", "json", "audio", "1234", "--dest", dest)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var res artifact
	decodeJSON(t, stdout, &res)
	if res.Text != "1234" || res.Path != "1234.wav" || res.MIME != "audio/wav" || res.Duration == "" {
		t.Errorf("result = %+v", res)
	}

	data, err := os.ReadFile(filepath.Join(dest, "1234.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) || len(data) != res.Bytes {
		t.Errorf("file: %d bytes, prefix %q", len(data), data[:min(4, len(data))])
	}
}

func TestAudioStdoutReproducible(t *testing.T) {
	cfg := setupTestEnv(t)

	a, _, code := runCmd(t, "--config", cfg, "--seed", "7", "audio", "90", "--stdout")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	b, _, _ := runCmd(t, "--config", cfg, "--seed", "7", "audio", "90", "--stdout")
	if !strings.HasPrefix(a, "RIFF") {
		t.Fatalf("stdout is not a WAV file: %q", a[:min(8, len(a))])
	}
	if a != b {
		t.Error("same seed produced different audio")
	}
}

func TestAudioUnknownCharacter(t *testing.T) {
	cfg := setupTestEnv(t)
	_, _, code := runCmd(t, "--config", cfg, "audio", "12x", "--stdout")
	if code == 0 {
		t.Error("audio with an unspeakable character succeeded")
	}
}

func TestImageTypes(t *testing.T) {
	cfg := setupTestEnv(t)
	tests := []struct {
		args   []string
		file   string
		format string
	}{
		{[]string{"image", "42"}, "42.png", "png"},
		{[]string{"image", "42", "--type", "jpeg"}, "42.jpeg", "jpeg"},
		{[]string{"image", "42", "-o", "x.gif"}, "x.gif", "gif"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dest := t.TempDir()
			args := append([]string{"--config", cfg}, append(tt.args, "--dest", dest)...)
			if _, stderr, code := runCmd(t, args...); code != 0 {
				t.Fatalf("exit %d: %s", code, stderr)
			}
			f, err := os.Open(filepath.Join(dest, tt.file))
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			conf, format, err := image.DecodeConfig(f)
			if err != nil {
				t.Fatal(err)
			}
			if format != tt.format || conf.Width != 160 || conf.Height != 60 {
				t.Errorf("decoded %s %dx%d", format, conf.Width, conf.Height)
			}
		})
	}
}

func TestImageUnknownType(t *testing.T) {
	cfg := setupTestEnv(t)
	_, _, code := runCmd(t, "--config", cfg, "image", "42", "--type", "webp", "--stdout")
	if code == 0 {
		t.Error("image --type webp succeeded")
	}
}

func TestImageTablePanel(t *testing.T) {
	cfg := setupTestEnv(t)
	dest := t.TempDir()
	stdout, stderr, code := runCmd(t, "--config", cfg, "--format", "table", "image", "777", "--dest", dest)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"777", "image/png", "160x60"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("panel missing %q:\n%s", want, stdout)
		}
	}
}

func TestImageUsesContextSize(t *testing.T) {
	cfg := setupTestEnv(t)
	if _, stderr, code := runCmd(t, "--config", cfg, "config", "add-context", "wide", "width=240", "height=90", "--use"); code != 0 {
		t.Fatalf("add-context: %s", stderr)
	}
	stdout, _, code := runCmd(t, "--config", cfg, "image", "5", "--stdout")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	conf, _, err := image.DecodeConfig(strings.NewReader(stdout))
	if err != nil {
		t.Fatal(err)
	}
	if conf.Width != 240 || conf.Height != 90 {
		t.Errorf("size = %dx%d, want 240x90", conf.Width, conf.Height)
	}
}

func TestRandom(t *testing.T) {
	cfg := setupTestEnv(t)

	stdout, _, code := runCmd(t, "--config", cfg, "random", "--kind", "audio", "-n", "10")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	text := strings.TrimSpace(stdout)
	seen := map[rune]bool{}
	for _, r := range text {
		if r < '0' || r > '9' || seen[r] {
			t.Fatalf("random audio text %q is not distinct digits", text)
		}
		seen[r] = true
	}
	if len(seen) != 10 {
		t.Errorf("got %d characters, want 10", len(seen))
	}

	if _, _, code := runCmd(t, "--config", cfg, "random", "--kind", "audio", "-n", "11"); code == 0 {
		t.Error("11 distinct characters from 10 voices succeeded")
	}

	stdout, _, _ = runCmd(t, "--config", cfg, "random", "-n", "20")
	if n := len(strings.TrimSpace(stdout)); n != 20 {
		t.Errorf("image random length = %d, want 20", n)
	}
}

func TestConfigLifecycle(t *testing.T) {
	cfg := setupTestEnv(t)

	if _, stderr, code := runCmd(t, "--config", cfg, "config", "add-context", "dev", "store=memory", "--use"); code != 0 {
		t.Fatalf("add-context: %s", stderr)
	}
	if _, stderr, code := runCmd(t, "--config", cfg, "config", "add-context", "prod", "output=s3://bucket/cap", "s3.secret_key=0123456789abcdef"); code != 0 {
		t.Fatalf("add-context prod: %s", stderr)
	}

	stdout, _, _ := runCmd(t, "--config", cfg, "--format", "table", "config", "list")
	if !strings.Contains(stdout, "*") || !strings.Contains(stdout, "dev") || !strings.Contains(stdout, "s3://bucket/cap") {
		t.Errorf("list:\n%s", stdout)
	}

	if _, stderr, code := runCmd(t, "--config", cfg, "config", "set", "length", "6"); code != 0 {
		t.Fatalf("set: %s", stderr)
	}
	stdout, _, _ = runCmd(t, "--config", cfg, "config", "show")
	if !strings.Contains(stdout, "length: 6") {
		t.Errorf("show dev:\n%s", stdout)
	}

	stdout, _, _ = runCmd(t, "--config", cfg, "config", "show", "prod")
	if strings.Contains(stdout, "0123456789abcdef") || !strings.Contains(stdout, "0123********cdef") {
		t.Errorf("show prod did not mask the secret:\n%s", stdout)
	}

	if _, _, code := runCmd(t, "--config", cfg, "config", "set", "colour", "red"); code == 0 {
		t.Error("set of an unknown key succeeded")
	}
	if _, _, code := runCmd(t, "--config", cfg, "config", "use-context", "staging"); code == 0 {
		t.Error("use-context of a missing context succeeded")
	}

	if _, stderr, code := runCmd(t, "--config", cfg, "config", "delete-context", "dev"); code != 0 {
		t.Fatalf("delete-context: %s", stderr)
	}
	if _, _, code := runCmd(t, "--config", cfg, "config", "set", "length", "6"); code == 0 {
		t.Error("set without a current context succeeded")
	}
}

func TestChallengeFlow(t *testing.T) {
	cfg := setupTestEnv(t)
	store := t.TempDir()
	dest := t.TempDir()
	if _, stderr, code := runCmd(t, "--config", cfg, "config", "add-context", "test", "store="+store, "output="+dest, "--use"); code != 0 {
		t.Fatalf("add-context: %s", stderr)
	}

	// The challenger draws its answer first, so random with the same seed
	// predicts it.
	stdout, _, _ := runCmd(t, "--config", cfg, "--seed", "9", "random")
	answer := strings.TrimSpace(stdout)

	stdout, stderr, code := runCmd(t, "--config", cfg, "--seed", "9", "--format", "json", "challenge", "issue")
	if code != 0 {
		t.Fatalf("issue: %s", stderr)
	}
	var first issued
	decodeJSON(t, stdout, &first)
	if first.ID == "" || first.MIME != "image/png" || first.Path != first.ID+".png" || first.Expires.IsZero() {
		t.Errorf("issued = %+v", first)
	}
	if _, err := os.Stat(filepath.Join(dest, first.Path)); err != nil {
		t.Errorf("challenge media not written: %v", err)
	}

	stdout, stderr, code = runCmd(t, "--config", cfg, "--format", "json", "challenge", "issue", "--kind", "audio")
	if code != 0 {
		t.Fatalf("issue audio: %s", stderr)
	}
	var second issued
	decodeJSON(t, stdout, &second)
	if second.MIME != "audio/wav" || !strings.HasSuffix(second.Path, ".wav") {
		t.Errorf("issued audio = %+v", second)
	}

	stdout, _, _ = runCmd(t, "--config", cfg, "--format", "json", "challenge", "list")
	var pending []map[string]string
	decodeJSON(t, stdout, &pending)
	if len(pending) != 2 {
		t.Fatalf("pending = %v, want 2", pending)
	}

	// A wrong answer with --keep leaves the challenge in place.
	if _, _, code := runCmd(t, "--config", cfg, "challenge", "verify", first.ID, "nope", "--keep"); code == 0 {
		t.Error("wrong answer verified")
	}
	stdout, stderr, code = runCmd(t, "--config", cfg, "--format", "json", "challenge", "verify", first.ID, " "+answer+" ")
	if code != 0 {
		t.Fatalf("verify %q: %s", answer, stderr)
	}
	var v verified
	decodeJSON(t, stdout, &v)
	if !v.OK {
		t.Errorf("verify = %+v", v)
	}
	if _, _, code := runCmd(t, "--config", cfg, "challenge", "verify", first.ID, answer); code == 0 {
		t.Error("answer verified twice")
	}

	stdout, _, _ = runCmd(t, "--config", cfg, "--format", "json", "challenge", "list")
	pending = nil
	decodeJSON(t, stdout, &pending)
	if len(pending) != 1 || pending[0]["id"] != second.ID {
		t.Errorf("pending after verify = %v", pending)
	}
}

func TestChallengeDataURI(t *testing.T) {
	cfg := setupTestEnv(t)
	if _, stderr, code := runCmd(t, "--config", cfg, "config", "add-context", "mem", "store=memory", "--use"); code != 0 {
		t.Fatalf("add-context: %s", stderr)
	}
	stdout, stderr, code := runCmd(t, "--config", cfg, "--format", "json", "challenge", "issue", "--data-uri", "--type", "gif")
	if code != 0 {
		t.Fatalf("issue: %s", stderr)
	}
	var res issued
	decodeJSON(t, stdout, &res)
	if !strings.HasPrefix(res.DataURI, "data:image/gif;base64,") || res.Path != "" {
		t.Errorf("issued = %+v", res)
	}
}

func TestChallengeBadKind(t *testing.T) {
	cfg := setupTestEnv(t)
	if _, _, code := runCmd(t, "--config", cfg, "challenge", "issue", "--kind", "video"); code == 0 {
		t.Error("issue --kind video succeeded")
	}
}
