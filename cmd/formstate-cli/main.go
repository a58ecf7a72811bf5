// Formstate-cli fills form definitions from the terminal.
//
// A definition is a YAML document listing fields, their validation checks
// and disable/hide rules, optionally merged with the request body of an
// OpenAPI operation.
//
// Usage:
//
//	formstate-cli run form.yaml                    # interactive prompts
//	formstate-cli check form.yaml --values a.yaml # validate and submit a values file
//	formstate-cli version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
