package host

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// gate counts the in-flight readers of one generation and lets the
// reconfiguring goroutine wait for them to leave.
type gate struct {
	// inFlight is the number of readers currently holding a lease.
	inFlight atomic.Int64
	// draining is set once no new readers may enter.
	draining atomic.Bool
	// zero is closed the first time inFlight reaches zero while draining.
	zero     chan struct{}
	zeroOnce sync.Once
}

func newGate() *gate {
	return &gate{zero: make(chan struct{})}
}

// enter registers a reader. It reports false when the gate is already
// draining, in which case nothing was registered.
func (g *gate) enter() bool {
	g.inFlight.Add(1)
	if g.draining.Load() {
		g.leave()
		return false
	}
	return true
}

// leave unregisters a reader.
func (g *gate) leave() {
	if g.inFlight.Add(-1) == 0 && g.draining.Load() {
		g.zeroOnce.Do(func() { close(g.zero) })
	}
}

// seal stops new readers from entering without waiting for current ones.
func (g *gate) seal() {
	g.draining.Store(true)
	if g.inFlight.Load() == 0 {
		g.zeroOnce.Do(func() { close(g.zero) })
	}
}

// drain seals the gate and waits for every registered reader to leave. A
// negative timeout waits forever. It reports false when the wait ended
// before the last reader left.
func (g *gate) drain(ctx context.Context, timeout time.Duration) bool {
	g.seal()

	select {
	case <-g.zero:
		return true
	default:
	}
	if timeout == 0 {
		return false
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-g.zero:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
}

// pending returns the number of readers still registered.
func (g *gate) pending() int64 {
	return g.inFlight.Load()
}
