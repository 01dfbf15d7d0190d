// Package cli holds the configuration, output and styling helpers of the
// captcha command.
//
// Configuration lives in ~/.captcha/<app>/config.yaml and holds named
// contexts, kubectl style. A context bundles generation settings (voice
// directory, fonts, size, alphabet), the answer store and the artifact
// output target.
//
//	cfg, err := cli.LoadConfig("captcha")
//	ctx, err := cfg.ResolveContext("")
//	cli.Output(result, cli.OutputOptions{Format: cli.FormatJSON})
package cli
