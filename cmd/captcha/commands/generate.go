package commands

import (
	"encoding/binary"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/captcha/go/pkg/audio/pcm"
	"github.com/haivivi/captcha/go/pkg/audio/wav"
	"github.com/haivivi/captcha/go/pkg/captcha"
	"github.com/haivivi/captcha/go/pkg/cli"
	"github.com/haivivi/captcha/go/pkg/storage"
)

var (
	genOut    string
	genDest   string
	genStdout bool
	genType   string
)

// artifact describes a rendered CAPTCHA.
type artifact struct {
	Text     string `json:"text" yaml:"text"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Target   string `json:"target,omitempty" yaml:"target,omitempty"`
	MIME     string `json:"mime" yaml:"mime"`
	Bytes    int    `json:"bytes" yaml:"bytes"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Width    int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height   int    `json:"height,omitempty" yaml:"height,omitempty"`
}

var audioCmd = &cobra.Command{
	Use:   "audio [text]",
	Short: "Render a WAV audio CAPTCHA",
	Long: `Render text as an 8kHz 8-bit mono WAV file.

Without text, a random string of distinct speakable characters is used.
The file is written to --dest (a directory or s3://bucket/prefix), the
context's output, or the working directory.

Examples:
  captcha audio 8374 -o 8374.wav
  captcha audio --stdout > challenge.wav
  captcha -c prod audio --dest s3://bucket/captcha`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		a := newAudio(cmd, ctx)

		text := ""
		if len(args) > 0 {
			text = args[0]
		} else if text, err = a.Random(length(ctx)); err != nil {
			return err
		}

		data, err := a.Generate(text)
		if err != nil {
			return err
		}
		res := artifact{
			Text:     text,
			MIME:     "audio/wav",
			Bytes:    len(data),
			Duration: cli.FormatDuration(pcm.U8Mono8K.Duration(int64(binary.LittleEndian.Uint32(data[40:wav.HeaderSize])))),
		}
		return emit(cmd, ctx, res, data, text+".wav")
	},
}

var imageCmd = &cobra.Command{
	Use:   "image [text]",
	Short: "Render an image CAPTCHA",
	Long: `Render text as a distorted image.

Without text, random characters from the context's alphabet are used.
The encoding follows --type, else the extension of -o, else png.
Supported: png, jpeg, gif, bmp, tiff.

Examples:
  captcha image 8374 -o 8374.png
  captcha image --type jpeg --stdout > challenge.jpg`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		im := newImage(cmd, ctx)

		text := ""
		if len(args) > 0 {
			text = args[0]
		} else if text, err = im.Random(length(ctx)); err != nil {
			return err
		}

		format := genType
		if format == "" && genOut != "" {
			format = strings.TrimPrefix(path.Ext(genOut), ".")
		}
		mime := captcha.ImageMIME(format)
		if mime == "" {
			return fmt.Errorf("%w: image format %q", captcha.ErrInvalidInput, format)
		}
		data, err := im.Generate(text, format)
		if err != nil {
			return err
		}
		w, h := im.Size()
		res := artifact{Text: text, MIME: mime, Bytes: len(data), Width: w, Height: h}
		ext := format
		if ext == "" {
			ext = captcha.FormatPNG
		}
		return emit(cmd, ctx, res, data, text+"."+ext)
	},
}

// emit writes data to stdout or the artifact store and reports res.
func emit(cmd *cobra.Command, ctx *cli.Context, res artifact, data []byte, defaultName string) error {
	if genStdout {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	name := genOut
	if name == "" {
		name = defaultName
	}
	store, target, err := openOutput(ctx, genDest)
	if err != nil {
		return err
	}
	if err := storage.WriteFile(cmd.Context(), store, name, data); err != nil {
		return err
	}
	res.Path, res.Target = name, target

	if isTableOutput() {
		fields := []cli.Field{
			{Label: "text", Value: res.Text},
			{Label: "path", Value: path.Join(res.Target, res.Path)},
			{Label: "type", Value: res.MIME},
			{Label: "size", Value: cli.FormatBytes(int64(res.Bytes))},
		}
		if res.Duration != "" {
			fields = append(fields, cli.Field{Label: "duration", Value: res.Duration})
		}
		if res.Width > 0 {
			fields = append(fields, cli.Field{Label: "pixels", Value: fmt.Sprintf("%dx%d", res.Width, res.Height)})
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.NewPanel("captcha", fields...).Render(48))
		return err
	}
	return outputResult(cmd, res)
}

func init() {
	for _, c := range []*cobra.Command{audioCmd, imageCmd} {
		c.Flags().StringVarP(&genOut, "out", "o", "", "artifact name within the destination (default <text>.<ext>)")
		c.Flags().StringVar(&genDest, "dest", "", "destination directory or s3://bucket/prefix")
		c.Flags().BoolVar(&genStdout, "stdout", false, "write the raw file to stdout")
	}
	imageCmd.Flags().StringVarP(&genType, "type", "t", "", "image encoding: png, jpeg, gif, bmp or tiff")

	rootCmd.AddCommand(audioCmd)
	rootCmd.AddCommand(imageCmd)
}
