// File: cmd/uiverify/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/uiverify/cmd"
	"github.com/xkilldash9x/uiverify/internal/observability"
	"github.com/xkilldash9x/uiverify/internal/verify"
)

const panicLogFile = "uiverify-panic.log"

// Function variables so tests can intercept process-level effects.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
	execute     = cmd.Execute
)

func main() {
	// The sentinel: anything that escapes the runner's own recovery lands here.
	defer handlePanic()

	// SIGINT/SIGTERM cancel the run; capture and release still happen.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	observability.Sync()
	osExit(code)
}

func run(ctx context.Context) int {
	return cmd.ExitCode(execute(ctx))
}

// handlePanic logs an unrecovered panic to a file and exits as aborted.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(verify.ExitAborted)
		return
	}

	fmt.Fprintf(os.Stderr, "\nuiverify crashed: %v\nDetails logged to %s\n", r, panicLogFile)
	osExit(verify.ExitAborted)
}
