package main

import (
	"fmt"
	"os"

	"github.com/andywolf/cde/internal/cli"
)

// Exit codes per the tool surface's realization notes: 0 success, 1
// operational failure, 130 user cancellation, 2 argument error.
const (
	exitSuccess           = 0
	exitOperationalFailure = 1
	exitCancelled         = 130
	exitArgumentError     = 2
)

func main() {
	err := cli.Execute()
	if err == nil {
		os.Exit(exitSuccess)
	}

	fmt.Fprintln(os.Stderr, err)

	switch {
	case cli.CancelledBySignal():
		os.Exit(exitCancelled)
	case !cli.OperationStarted():
		os.Exit(exitArgumentError)
	default:
		os.Exit(exitOperationalFailure)
	}
}
