package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/captcha/go/pkg/captcha"
)

var (
	randomKind   string
	randomLength int
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Print a random CAPTCHA text",
	Long: `Print a random text suitable for the given kind.

Audio texts use distinct characters from the voice directory; image texts
draw with replacement from the alphabet.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		kind, err := captcha.ParseKind(randomKind)
		if err != nil {
			return err
		}
		n := randomLength
		if n <= 0 {
			n = length(ctx)
		}

		var text string
		switch kind {
		case captcha.KindAudio:
			text, err = newAudio(cmd, ctx).Random(n)
		default:
			text, err = newImage(cmd, ctx).Random(n)
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	randomCmd.Flags().StringVarP(&randomKind, "kind", "k", string(captcha.KindImage), "image or audio")
	randomCmd.Flags().IntVarP(&randomLength, "length", "n", 0, "number of characters (default from context, else 4)")

	rootCmd.AddCommand(randomCmd)
}
