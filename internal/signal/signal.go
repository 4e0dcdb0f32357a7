// Package signal cancels the command context on SIGINT/SIGTERM and lets
// critical sections, such as database migrations, defer that cancellation.
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	// mu protects the fields below.
	mu sync.Mutex
	// depth counts nested Block calls.
	depth int
	// deferred holds cancel funcs for signals received while blocked.
	deferred []context.CancelFunc
)

// WithSignalCancel returns a context that is cancelled when SIGINT or SIGTERM
// is received. The returned cancel function releases the signal handler.
func WithSignalCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			mu.Lock()
			if depth > 0 {
				deferred = append(deferred, cancel)
				mu.Unlock()
				return
			}
			mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Block defers signal-based cancellation until the matching Unblock.
// Calls nest.
func Block() {
	mu.Lock()
	defer mu.Unlock()
	depth++
}

// Unblock ends a Block. When the outermost block ends, cancellations that
// arrived in between are applied.
func Unblock() {
	mu.Lock()
	defer mu.Unlock()
	if depth > 0 {
		depth--
	}
	if depth == 0 {
		for _, cancel := range deferred {
			cancel()
		}
		deferred = nil
	}
}

// Guarded runs fn with signals blocked.
func Guarded(fn func() error) error {
	Block()
	defer Unblock()
	return fn()
}
