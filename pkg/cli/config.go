package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/captcha/go/pkg/storage"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".captcha"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// StoreMemory selects the in-process answer store.
const StoreMemory = "memory"

var (
	// ErrContextNotFound is returned for unknown context names.
	ErrContextNotFound = errors.New("cli: context not found")

	// ErrNoCurrentContext is returned when no context is selected.
	ErrNoCurrentContext = errors.New("cli: no current context set")

	// ErrUnknownKey is returned by Context.Set for unknown settings.
	ErrUnknownKey = errors.New("cli: unknown setting")
)

// Config represents the main configuration structure for a CLI app
type Config struct {
	// AppName is the application name
	AppName string `yaml:"-"`

	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one named set of generation and storage settings. Zero
// values fall back to the library defaults.
type Context struct {
	Name string `yaml:"name" json:"name"`

	// VoiceDir holds one subdirectory of WAV clips per character. Empty
	// selects the built-in digit voices.
	VoiceDir string `yaml:"voice_dir,omitempty" json:"voice_dir,omitempty"`

	// Fonts are TrueType files for image glyphs. Empty selects Go Mono.
	Fonts []string `yaml:"fonts,omitempty" json:"fonts,omitempty"`

	// FontSizes are glyph sizes in points.
	FontSizes []float64 `yaml:"font_sizes,omitempty" json:"font_sizes,omitempty"`

	Width    int    `yaml:"width,omitempty" json:"width,omitempty"`
	Height   int    `yaml:"height,omitempty" json:"height,omitempty"`
	Alphabet string `yaml:"alphabet,omitempty" json:"alphabet,omitempty"`

	// Length is the number of characters per challenge.
	Length int `yaml:"length,omitempty" json:"length,omitempty"`

	// Store is "memory" or a badger directory. Empty selects the app's
	// data directory.
	Store string `yaml:"store,omitempty" json:"store,omitempty"`

	// TTL is how long issued answers stay valid, e.g. "10m".
	TTL string `yaml:"ttl,omitempty" json:"ttl,omitempty"`

	// Output is a directory or "s3://bucket/prefix" artifacts are
	// written to.
	Output string `yaml:"output,omitempty" json:"output,omitempty"`

	S3 *storage.S3Config `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// LoadConfig loads or creates configuration for the specified app
func LoadConfig(appName string) (*Config, error) {
	return LoadConfigWithPath(appName, "")
}

// LoadConfigWithPath loads configuration from a custom path
func LoadConfigWithPath(appName, customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		paths, err := NewPaths(appName)
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = paths.ConfigFile()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			cfg.Contexts[name] = &Context{Name: name}
		}
	}

	cfg.AppName = appName
	cfg.configPath = configPath
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds or replaces a context
func (c *Config) AddContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	return ctx, nil
}

// GetCurrentContext returns the current context
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, ErrNoCurrentContext
	}
	return c.GetContext(c.CurrentContext)
}

// ResolveContext returns the named context, the current context when name
// is empty, or an empty context when neither exists.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name != "" {
		return c.GetContext(name)
	}
	ctx, err := c.GetCurrentContext()
	if errors.Is(err, ErrNoCurrentContext) {
		return &Context{}, nil
	}
	return ctx, err
}

// ListContexts returns all context names, sorted
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Keys lists the settings Set accepts.
var Keys = []string{
	"voice_dir", "fonts", "font_sizes", "width", "height", "alphabet",
	"length", "store", "ttl", "output",
	"s3.region", "s3.endpoint", "s3.access_key", "s3.secret_key", "s3.path_style",
}

// Set assigns a setting from its string form. List values are comma
// separated; an empty value clears the setting.
func (ctx *Context) Set(key, value string) error {
	var err error
	switch key {
	case "voice_dir":
		ctx.VoiceDir = value
	case "fonts":
		ctx.Fonts = splitList(value)
	case "font_sizes":
		ctx.FontSizes = nil
		for _, s := range splitList(value) {
			var f float64
			if f, err = strconv.ParseFloat(s, 64); err != nil {
				break
			}
			ctx.FontSizes = append(ctx.FontSizes, f)
		}
	case "width":
		ctx.Width, err = atoi(value)
	case "height":
		ctx.Height, err = atoi(value)
	case "alphabet":
		ctx.Alphabet = value
	case "length":
		ctx.Length, err = atoi(value)
	case "store":
		ctx.Store = value
	case "ttl":
		if value != "" {
			_, err = time.ParseDuration(value)
		}
		ctx.TTL = value
	case "output":
		ctx.Output = value
	default:
		field, ok := strings.CutPrefix(key, "s3.")
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		return ctx.setS3(field, value)
	}
	if err != nil {
		return fmt.Errorf("cli: %s: %w", key, err)
	}
	return nil
}

func (ctx *Context) setS3(field, value string) error {
	if ctx.S3 == nil {
		ctx.S3 = &storage.S3Config{}
	}
	switch field {
	case "region":
		ctx.S3.Region = value
	case "endpoint":
		ctx.S3.Endpoint = value
	case "access_key":
		ctx.S3.AccessKey = value
	case "secret_key":
		ctx.S3.SecretKey = value
	case "path_style":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cli: s3.path_style: %w", err)
		}
		ctx.S3.PathStyle = b
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, "s3."+field)
	}
	return nil
}

// TTLDuration parses TTL; an empty TTL yields def.
func (ctx *Context) TTLDuration(def time.Duration) (time.Duration, error) {
	if ctx.TTL == "" {
		return def, nil
	}
	d, err := time.ParseDuration(ctx.TTL)
	if err != nil {
		return 0, fmt.Errorf("cli: ttl: %w", err)
	}
	return d, nil
}

// S3Config returns the S3 settings, never nil.
func (ctx *Context) S3Config() storage.S3Config {
	if ctx.S3 == nil {
		return storage.S3Config{}
	}
	return *ctx.S3
}

// Masked returns a copy safe to print: the S3 secret key is masked.
func (ctx *Context) Masked() *Context {
	cp := *ctx
	if ctx.S3 != nil {
		s3 := *ctx.S3
		s3.SecretKey = MaskAPIKey(s3.SecretKey)
		cp.S3 = &s3
	}
	return &cp
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// MaskAPIKey masks a secret for display
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
