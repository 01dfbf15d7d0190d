package commands

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/haivivi/captcha/go/pkg/captcha"
	"github.com/haivivi/captcha/go/pkg/cli"
	"github.com/haivivi/captcha/go/pkg/kv"
	"github.com/haivivi/captcha/go/pkg/storage"
)

const appName = "captcha"

var (
	// Global flags
	cfgFile      string
	contextName  string
	formatOutput string
	verbose      bool
	seed         uint64

	// Global configuration
	globalConfig *cli.Config

	// configLoadErr defers config failures to the commands that need it.
	configLoadErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "captcha",
	Short: "Audio and image CAPTCHA generator",
	Long: `captcha - render audio and image CAPTCHAs and keep their answers.

Audio CAPTCHAs speak each character from a voice directory (one
subdirectory of WAV clips per character) over background babble. Image
CAPTCHAs draw rotated, warped glyphs with noise dots and a curve.

Configuration is stored in ~/.captcha/captcha/ and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Render with the built-in digit voices and Go Mono font
  captcha audio 8374 -o 8374.wav
  captcha image 8374 -o 8374.png

  # Keep answers in a store and check them later
  captcha challenge issue --kind image
  captcha challenge verify <id> 8374

  # Write artifacts to S3 from a context
  captcha config add-context prod --output s3://bucket/captcha
  captcha -c prod image`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.captcha/captcha/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "yaml", "output format: yaml, json, table or raw")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "random seed for reproducible output (0 picks one)")
}

func initConfig() {
	globalConfig, configLoadErr = cli.LoadConfigWithPath(appName, cfgFile)
}

// getConfig returns the global configuration
func getConfig() (*cli.Config, error) {
	if configLoadErr != nil {
		return nil, fmt.Errorf("config not available: %w", configLoadErr)
	}
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return globalConfig, nil
}

// getContext returns the context selected by -c, the current context, or
// an empty context when none is configured.
func getContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

func logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// newRand returns a generator seeded from --seed, or nil to let the
// generators seed themselves.
func newRand(salt uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, salt))
}

func newAudio(cmd *cobra.Command, ctx *cli.Context) *captcha.Audio {
	opts := []captcha.AudioOption{captcha.WithAudioLogger(logger(cmd))}
	if ctx.VoiceDir != "" {
		opts = append(opts, captcha.WithVoiceDir(ctx.VoiceDir))
	}
	if rng := newRand(1); rng != nil {
		opts = append(opts, captcha.WithAudioRand(rng))
	}
	return captcha.NewAudio(opts...)
}

func newImage(cmd *cobra.Command, ctx *cli.Context) *captcha.Image {
	opts := []captcha.ImageOption{captcha.WithImageLogger(logger(cmd))}
	if ctx.Width > 0 || ctx.Height > 0 {
		w, h := ctx.Width, ctx.Height
		if w <= 0 {
			w = captcha.DefaultWidth
		}
		if h <= 0 {
			h = captcha.DefaultHeight
		}
		opts = append(opts, captcha.WithSize(w, h))
	}
	if len(ctx.Fonts) > 0 {
		opts = append(opts, captcha.WithFonts(ctx.Fonts...))
	}
	if len(ctx.FontSizes) > 0 {
		opts = append(opts, captcha.WithFontSizes(ctx.FontSizes...))
	}
	if ctx.Alphabet != "" {
		opts = append(opts, captcha.WithAlphabet(ctx.Alphabet))
	}
	if rng := newRand(2); rng != nil {
		opts = append(opts, captcha.WithImageRand(rng))
	}
	return captcha.NewImage(opts...)
}

func length(ctx *cli.Context) int {
	if ctx.Length > 0 {
		return ctx.Length
	}
	return captcha.DefaultLength
}

// openStore opens the context's answer store. The caller closes it.
func openStore(cmd *cobra.Command, ctx *cli.Context) (kv.Store, error) {
	switch ctx.Store {
	case cli.StoreMemory:
		return kv.NewMemory(nil), nil
	case "":
		paths, err := cli.NewPaths(appName)
		if err != nil {
			return nil, err
		}
		if err := paths.EnsureDataDir(); err != nil {
			return nil, err
		}
		return kv.NewBadger(kv.BadgerOptions{Dir: paths.DataDir(), Logger: logger(cmd)})
	default:
		return kv.NewBadger(kv.BadgerOptions{Dir: ctx.Store, Logger: logger(cmd)})
	}
}

// openOutput returns the artifact store: target when set, else the
// context's output, else the working directory.
func openOutput(ctx *cli.Context, target string) (storage.FileStore, string, error) {
	if target == "" {
		target = ctx.Output
	}
	if target == "" {
		target = "."
	}
	fs, err := storage.Open(target, ctx.S3Config())
	return fs, target, err
}

// outputResult writes result to stdout in the --format format.
func outputResult(cmd *cobra.Command, result any) error {
	format, err := cli.ParseOutputFormat(formatOutput)
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		Writer: cmd.OutOrStdout(),
	})
}

func isTableOutput() bool {
	return formatOutput == string(cli.FormatTable)
}
