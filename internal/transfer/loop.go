package transfer

import (
	"context"
	"time"
)

// loop runs fn immediately, then on every tick or kick, until fn returns
// false or the loop is stopped. Stopping never cancels the ctx handed to fn:
// an iteration in flight completes and its result goes through the
// caller's guards.
type loop struct {
	cancel context.CancelFunc
}

func startLoop(interval time.Duration, kick <-chan struct{}, fn func(ctx context.Context) bool) *loop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{cancel: cancel}
	go l.run(ctx, interval, kick, fn)
	return l
}

func (l *loop) run(ctx context.Context, interval time.Duration, kick <-chan struct{}, fn func(ctx context.Context) bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	work := context.WithoutCancel(ctx)
	if !fn(work) {
		return
	}

	for {
		select {
		case <-ticker.C:
		case <-kick:
		case <-ctx.Done():
			return
		}
		if ctx.Err() != nil || !fn(work) {
			return
		}
	}
}

// stop ends the loop after the running iteration, if any. Calling it on a
// nil loop is a no-op.
func (l *loop) stop() {
	if l == nil {
		return
	}
	l.cancel()
}
