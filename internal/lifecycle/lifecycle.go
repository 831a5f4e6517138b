package lifecycle

import "sync/atomic"

var draining atomic.Bool

// SetShuttingDown marks the process as draining. Call once SIGTERM/SIGINT is
// received; the health handler answers 503 shutting-down from then on.
func SetShuttingDown(v bool) {
	draining.Store(v)
}

// IsShuttingDown reports whether the process is draining and should not
// receive new traffic.
func IsShuttingDown() bool {
	return draining.Load()
}
