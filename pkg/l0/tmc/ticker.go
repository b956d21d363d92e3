package tmc

import (
	"context"
	"time"
)

// DefaultTickPeriod is the period of the idle tick.
const DefaultTickPeriod = time.Millisecond

// IdleTicker drives the idle tick of every channel in a Registry.
// It implements framework.Runnable.
type IdleTicker struct {
	Registry *Registry
	Period   time.Duration
}

// Run implements Runnable.
func (t *IdleTicker) Run(ctx context.Context) error {
	period := t.Period
	if period <= 0 {
		period = DefaultTickPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Registry.OnIdleTickAll()
		}
	}
}
