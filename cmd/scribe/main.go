// Command scribe turns per-speaker session recordings into one combined,
// speaker-labelled transcript.
//
// Usage:
//
//	scribe [--config config.yaml] <command> [args]
//
// Commands:
//
//	transcribe  transcribe recordings into persisted cue tracks
//	regenerate  re-apply the confidence filter to persisted raw results
//	combine     combine the speakers of a session into its documents
//	batch       transcribe a whole input tree and combine every session
//	archive     query archived combined sessions
//	version     print version information
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// exitError carries a process exit code without an extra message.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(os.Stderr, "scribe: %v\n", err)
		return 1
	}
	return 0
}
