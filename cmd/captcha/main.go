// Package main provides the captcha CLI tool.
//
// Usage:
//
//	captcha [flags] <command> [args]
//
// Commands:
//
//	audio      - Render a WAV audio CAPTCHA
//	image      - Render an image CAPTCHA
//	random     - Print a random CAPTCHA text
//	challenge  - Issue, verify and list stored challenges
//	config     - Configuration management (contexts)
//	version    - Show version information
//
// Configuration:
//
//	The CLI stores configuration in ~/.captcha/captcha/
//	Use 'captcha config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/captcha/go/cmd/captcha/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
