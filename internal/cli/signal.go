package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// operationStarted is set by rootCmd's PersistentPreRunE, which cobra only
// reaches once Args validation has already passed. main.go reads it after
// Execute returns to tell an argument error (exit 2) from an operational
// failure (exit 1) without cobra exposing that distinction directly.
var operationStarted bool

// OperationStarted reports whether the most recent Execute call got past
// argument validation before failing.
func OperationStarted() bool {
	return operationStarted
}

// cancelledBySignal is set when rootContext's SIGINT/SIGTERM handler fires,
// so main.go can map that run to exit code 130 rather than a generic 1.
var cancelledBySignal bool

// CancelledBySignal reports whether the most recent run was interrupted by
// SIGINT/SIGTERM rather than failing on its own.
func CancelledBySignal() bool {
	return cancelledBySignal
}

// rootContext returns a context cancelled on SIGINT/SIGTERM, for the verbs
// that run a blocking call (execute, delegate's synchronous setup) and must
// honour cancellation per spec §6's 130 exit code.
func rootContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancelledBySignal = true
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
