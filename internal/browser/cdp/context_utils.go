// internal/browser/cdp/context_utils.go
package cdp

import (
	"context"
	"time"
)

// CombineContext returns a context that carries the values of master (the
// chromedp target lives there) and is canceled as soon as either master or op
// is done. op usually holds the per-operation deadline.
func CombineContext(master, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(master)
	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// detachedContext keeps the parent's values but drops its deadline and
// cancellation.
type detachedContext struct {
	context.Context
}

func (detachedContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detachedContext) Done() <-chan struct{}       { return nil }
func (detachedContext) Err() error                  { return nil }

// Detach returns a context that inherits values from ctx but is never
// canceled by it. The browser process is parented on a detached context so
// that only an explicit Close tears it down.
func Detach(ctx context.Context) context.Context {
	return detachedContext{ctx}
}
