package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Cancellation from a shutdown signal exits without noise.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "baler:", err)
		}
		os.Exit(1)
	}
}
