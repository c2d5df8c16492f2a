// Command lendingctl administers the lending ledger: catalog, members, borrowing rules,
// loans and a concurrent borrow simulation. Configuration comes from LENDING_* environment
// variables, output is JSON on stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediatheque-go/lending/core"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitRefused = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)

	return execute(ctx, a, args)
}

func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCommand(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)

	if closeErr := a.close(); closeErr != nil {
		_, _ = fmt.Fprintf(a.errOut, "lendingctl: closing: %v\n", closeErr)
	}

	return reportError(a.errOut, err)
}

// reportError prints err and returns the exit code: refusals by the lending rules exit
// with exitRefused and name their reason, everything else exits with exitFailure.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return exitOK
	}

	if reason, ok := core.ReasonOf(err); ok {
		_, _ = fmt.Fprintf(w, "lendingctl: refused (%s): %s\n", reason, reason.Description())
		return exitRefused
	}

	if errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintln(w, "lendingctl: interrupted")
		return exitFailure
	}

	_, _ = fmt.Fprintf(w, "lendingctl: %v\n", err)

	return exitFailure
}
