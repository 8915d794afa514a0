// Command bkmr is a terminal-resident knowledge manager for URLs, code
// snippets, shell scripts, markdown notes, and environment-variable bundles.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/bkmr/bkmr/cmd/bkmr/cmd"
	"github.com/bkmr/bkmr/internal/apperr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cmd.Execute(ctx)
	if err == nil {
		return
	}

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(os.Stderr, "interrupted")
		os.Exit(apperr.ExitUserCancelled)
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(apperr.ExitCode(err))
}
