package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestLoopStopLetsRunningIterationFinish(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan error, 1)
	var runs atomic.Int32

	l := startLoop(time.Millisecond, nil, func(ctx context.Context) bool {
		if runs.Inc() > 1 {
			return true
		}
		close(entered)
		<-release
		finished <- ctx.Err()
		return true
	})

	<-entered
	l.stop()
	close(release)

	require.NoError(t, <-finished)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), runs.Load())
}
