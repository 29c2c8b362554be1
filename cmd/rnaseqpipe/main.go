package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"rnaseqpipe/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// printError writes the failure message followed by any captured tool
// stderr, which is carried alongside the error rather than folded into
// its string.
func printError(w io.Writer, err error) {
	details := services.Details(err)
	fmt.Fprintln(w, details.Message)
	if details.Stderr != "" {
		fmt.Fprintln(w, details.Stderr)
	}
}
