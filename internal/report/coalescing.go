package report

import (
	"context"
	"sync"
	"time"

	"github.com/gkiss/odp-extremes-service/internal/models"
)

// inFlightBuild tracks a single report build that multiple callers may wait for.
type inFlightBuild struct {
	mu      sync.Mutex
	result  models.DailyExtremes
	err     error
	done    bool
	waiters []chan struct{}
}

// dateCoalescer collapses concurrent builds of the same date into one feed
// fetch. Later requests for an in-flight date wait for the first build
// instead of interleaving their own.
type dateCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightBuild
	timeout  time.Duration
}

func newDateCoalescer(timeout time.Duration) *dateCoalescer {
	return &dateCoalescer{
		inFlight: make(map[string]*inFlightBuild),
		timeout:  timeout,
	}
}

// GetOrDo returns the result of an in-flight build for key if one exists,
// else runs fn and registers it. Waiting respects ctx and the coalescer
// timeout. The build itself runs under a detached context bounded by the
// coalescer timeout: the result is shared by every waiter, so the first
// caller hanging up must not kill the build for the rest.
func (dc *dateCoalescer) GetOrDo(ctx context.Context, key string, fn func(ctx context.Context) (models.DailyExtremes, error)) (models.DailyExtremes, error) {
	dc.mu.Lock()
	build, exists := dc.inFlight[key]
	if !exists {
		build = &inFlightBuild{}
		dc.inFlight[key] = build
		dc.mu.Unlock()

		go func() {
			buildCtx, cancel := context.WithTimeout(context.Background(), dc.timeout)
			defer cancel()
			result, err := fn(buildCtx)

			build.mu.Lock()
			build.result = result
			build.err = err
			build.done = true
			waiters := build.waiters
			build.waiters = nil
			build.mu.Unlock()

			for _, notify := range waiters {
				close(notify)
			}

			dc.mu.Lock()
			delete(dc.inFlight, key)
			dc.mu.Unlock()
		}()

		return dc.wait(ctx, build)
	}
	dc.mu.Unlock()

	return dc.wait(ctx, build)
}

// wait blocks until the build completes, ctx is done, or the coalescer
// timeout elapses.
func (dc *dateCoalescer) wait(ctx context.Context, build *inFlightBuild) (models.DailyExtremes, error) {
	build.mu.Lock()
	if build.done {
		result, err := build.result, build.err
		build.mu.Unlock()
		return result, err
	}
	notify := make(chan struct{})
	build.waiters = append(build.waiters, notify)
	build.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, dc.timeout)
	defer cancel()
	select {
	case <-notify:
		build.mu.Lock()
		result, err := build.result, build.err
		build.mu.Unlock()
		return result, err
	case <-waitCtx.Done():
		return models.DailyExtremes{}, waitCtx.Err()
	}
}
