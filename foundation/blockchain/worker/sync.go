package worker

import (
	"context"
	"time"

	"github.com/watoukuang/demochain/foundation/clock"
)

// pause waits for the duration of a simulated stage. It reports false if
// the round was cancelled first.
func (w *Worker) pause(ctx context.Context, d time.Duration) bool {
	return clock.SleepWithContext(ctx, d) == nil
}

// jitter spreads the simulated network sync so miners don't finish in
// lock step.
func (w *Worker) jitter(base, spread time.Duration) time.Duration {
	return clock.Jitter(base, spread)
}
