package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/captcha/go/pkg/cli"
)

var addContextUse bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage named contexts of generation and storage settings.

Settings: ` + strings.Join(cli.Keys, ", ") + `

Examples:
  captcha config add-context dev voice_dir=./voices store=memory --use
  captcha config set width 200
  captcha config -c prod set output s3://bucket/captcha
  captcha config list
  captcha config show prod`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name> [key=value...]",
	Short: "Create or replace a context",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		ctx := &cli.Context{}
		for _, kv := range args[1:] {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("expected key=value, got %q", kv)
			}
			if err := ctx.Set(key, value); err != nil {
				return err
			}
		}
		name := args[0]
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}
		if addContextUse {
			if err := cfg.UseContext(name); err != nil {
				return err
			}
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q saved", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Switched to context %q", args[0])
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q deleted", args[0])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 {
			cli.PrintInfo(cmd.OutOrStdout(), "No contexts configured. Create one with: captcha config add-context <name>")
			return nil
		}
		table := cli.Table{Header: []string{"current", "name", "voice_dir", "store", "output"}}
		for _, name := range names {
			c := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			table.Rows = append(table.Rows, []string{current, name, c.VoiceDir, c.Store, c.Output})
		}
		return outputResult(cmd, table)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a context (default: current); secrets are masked",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := contextName
		if len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			name = cfg.CurrentContext
		}
		if name == "" {
			return cli.ErrNoCurrentContext
		}
		ctx, err := cfg.GetContext(name)
		if err != nil {
			return err
		}
		return outputResult(cmd, ctx.Masked())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting of the -c or current context",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		name := contextName
		if name == "" {
			name = cfg.CurrentContext
		}
		if name == "" {
			return cli.ErrNoCurrentContext
		}
		ctx, err := cfg.GetContext(name)
		if err != nil {
			return err
		}
		if err := ctx.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "%s.%s updated", name, args[0])
		return nil
	},
}

func init() {
	configAddContextCmd.Flags().BoolVar(&addContextUse, "use", false, "make it the current context")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
