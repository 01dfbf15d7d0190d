package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/captcha/go/pkg/captcha"
	"github.com/haivivi/captcha/go/pkg/cli"
	"github.com/haivivi/captcha/go/pkg/storage"
)

// errRejected makes verify exit non-zero for wrong, unknown or expired
// answers.
var errRejected = errors.New("answer rejected")

var (
	issueKind    string
	issueType    string
	issueDest    string
	issueDataURI bool
	verifyKeep   bool
)

type issued struct {
	ID      string    `json:"id" yaml:"id"`
	Kind    string    `json:"kind" yaml:"kind"`
	MIME    string    `json:"mime" yaml:"mime"`
	Expires time.Time `json:"expires,omitzero" yaml:"expires,omitempty"`
	Path    string    `json:"path,omitempty" yaml:"path,omitempty"`
	Target  string    `json:"target,omitempty" yaml:"target,omitempty"`
	DataURI string    `json:"data_uri,omitempty" yaml:"data_uri,omitempty"`
}

type verified struct {
	ID string `json:"id" yaml:"id"`
	OK bool   `json:"ok" yaml:"ok"`
}

var challengeCmd = &cobra.Command{
	Use:     "challenge",
	Aliases: []string{"ch"},
	Short:   "Issue and verify stored challenges",
	Long: `Issue challenges whose answers are kept in the context's store, then
verify responses against them.

The store is "memory", a badger directory, or by default
~/.captcha/captcha/data. Answers expire after the context's ttl (10m).

Examples:
  captcha challenge issue --kind audio
  captcha challenge verify 3f0c... 8374
  captcha challenge list`,
}

func newChallenger(cmd *cobra.Command, ctx *cli.Context) (*captcha.Challenger, func() error, error) {
	ttl, err := ctx.TTLDuration(captcha.DefaultTTL)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cmd, ctx)
	if err != nil {
		return nil, nil, err
	}
	ch := captcha.NewChallenger(store,
		captcha.WithChallengeAudio(newAudio(cmd, ctx)),
		captcha.WithChallengeImage(newImage(cmd, ctx)),
		captcha.WithImageFormat(issueType),
		captcha.WithTTL(ttl),
		captcha.WithLength(length(ctx)),
		captcha.WithChallengeLogger(logger(cmd)),
	)
	return ch, store.Close, nil
}

var challengeIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a challenge and store its answer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		kind, err := captcha.ParseKind(issueKind)
		if err != nil {
			return err
		}
		if kind == captcha.KindImage && captcha.ImageMIME(issueType) == "" {
			return fmt.Errorf("%w: image type %q", captcha.ErrInvalidInput, issueType)
		}
		ch, closeStore, err := newChallenger(cmd, ctx)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, closeStore()) }()

		c, err := ch.Issue(cmd.Context(), kind)
		if err != nil {
			return err
		}
		res := issued{ID: c.ID, Kind: string(c.Kind), MIME: c.MIME, Expires: c.Expires}
		if issueDataURI {
			res.DataURI = c.DataURI()
			return outputResult(cmd, res)
		}

		ext := "wav"
		if kind == captcha.KindImage {
			ext = issueType
		}
		store, target, err := openOutput(ctx, issueDest)
		if err != nil {
			return err
		}
		name := c.ID + "." + ext
		if err := storage.WriteFile(cmd.Context(), store, name, c.Data); err != nil {
			return err
		}
		res.Path, res.Target = name, target
		return outputResult(cmd, res)
	},
}

var challengeVerifyCmd = &cobra.Command{
	Use:   "verify <id> <answer>",
	Short: "Check an answer; exits non-zero when it is rejected",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		ch, closeStore, err := newChallenger(cmd, ctx)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, closeStore()) }()

		ok, err := ch.Verify(cmd.Context(), args[0], args[1], !verifyKeep)
		if err != nil {
			return err
		}
		if err := outputResult(cmd, verified{ID: args[0], OK: ok}); err != nil {
			return err
		}
		if !ok {
			return errRejected
		}
		return nil
	},
}

var challengeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List pending challenge ids",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		ch, closeStore, err := newChallenger(cmd, ctx)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, closeStore()) }()

		ids, err := ch.Pending(cmd.Context())
		if err != nil {
			return err
		}
		table := cli.Table{Header: []string{"id"}}
		for _, id := range ids {
			table.Rows = append(table.Rows, []string{id})
		}
		return outputResult(cmd, table)
	},
}

func init() {
	challengeIssueCmd.Flags().StringVarP(&issueKind, "kind", "k", string(captcha.KindImage), "image or audio")
	challengeIssueCmd.Flags().StringVarP(&issueType, "type", "t", captcha.FormatPNG, "image encoding: png, jpeg, gif, bmp or tiff")
	challengeIssueCmd.Flags().StringVar(&issueDest, "dest", "", "destination directory or s3://bucket/prefix")
	challengeIssueCmd.Flags().BoolVar(&issueDataURI, "data-uri", false, "embed the media as a data: URI instead of writing a file")
	challengeVerifyCmd.Flags().BoolVar(&verifyKeep, "keep", false, "keep the answer after checking")

	challengeCmd.AddCommand(challengeIssueCmd)
	challengeCmd.AddCommand(challengeVerifyCmd)
	challengeCmd.AddCommand(challengeListCmd)
	rootCmd.AddCommand(challengeCmd)
}
