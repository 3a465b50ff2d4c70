// Package health aggregates dependency liveness checks.
package health

import (
	"context"
	"time"
)

// Pinger is implemented by dependencies that expose a liveness check.
type Pinger interface {
	HealthPing(ctx context.Context) error
}

// CheckTimeout bounds each dependency ping.
const CheckTimeout = 2 * time.Second

// Check pings every named dependency and reports "ok" or the failure text.
// The second return is false when any dependency is down.
func Check(ctx context.Context, deps map[string]Pinger) (map[string]string, bool) {
	out := make(map[string]string, len(deps))
	healthy := true
	for name, p := range deps {
		pingCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
		if err := p.HealthPing(pingCtx); err != nil {
			out[name] = err.Error()
			healthy = false
		} else {
			out[name] = "ok"
		}
		cancel()
	}
	return out, healthy
}
