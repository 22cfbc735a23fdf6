// Package main is the webpilot command: a browsing assistant that drives
// remote Browserbase sessions through an LLM with tool calling.
package main

import (
	"fmt"
	"os"

	"github.com/entrhq/webpilot/pkg/logging"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = logging.Sync()
		os.Exit(1)
	}
	_ = logging.Sync()
}
