// Package host runs a hot-swappable tree of live routes.
//
// Readers call ObtainRoute on the hot path without taking any lock. While a
// generation is Active every lease is counted by the generation's gate; a
// reconfiguration first publishes the Reconfiguring state (new readers get
// ErrPending), then drains the gate, closes the old actions, starts the new
// ones and finally publishes the new generation as Active. Reconfigurations
// and DirectClose are serialized by a mutex.
//
// If the drain wait times out the cutover proceeds anyway and straggling
// readers may still be using actions while they are closed. Closers must
// therefore tolerate being called concurrently with in-flight use.
package host

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/routegrid/internal/build"
	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/guard"
	"github.com/specialistvlad/routegrid/internal/resolver"
)

// WaitForever disables the drain timeout of SetConfiguration.
const WaitForever time.Duration = -1

// State is the lifecycle state of a Host.
type State int32

const (
	// StateClosed means no configuration is live; every route is the empty route.
	StateClosed State = iota
	// StateActive means a generation is live and its actions are started.
	StateActive
	// StateReconfiguring means a new generation is being swapped in.
	StateReconfiguring
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateActive:
		return "active"
	case StateReconfiguring:
		return "reconfiguring"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// generation is one built configuration together with its reader gate.
type generation struct {
	id   uuid.UUID
	tree *build.Tree
	gate *gate
}

// pass tracks a reconfiguration that is in progress.
type pass struct {
	done chan struct{}
}

// snapshot is the immutable view published to readers.
type snapshot struct {
	state State
	// gen is the live generation when Active and the retiring one when
	// Reconfiguring. It is nil when Closed.
	gen *generation
	// pass is set while Reconfiguring.
	pass *pass
}

var closedSnapshot = &snapshot{state: StateClosed}

// Lease grants use of a route until Release is called.
type Lease struct {
	route   build.Route
	gen     uuid.UUID
	release func()
	once    sync.Once
}

// Route returns the leased route.
func (l *Lease) Route() build.Route { return l.route }

// Generation returns the id of the generation the route belongs to, or
// uuid.Nil for the empty route.
func (l *Lease) Generation() uuid.UUID { return l.gen }

// Release gives the route back. It is safe to call more than once.
func (l *Lease) Release() {
	if l.release != nil {
		l.once.Do(l.release)
	}
}

// Host owns the live route tree.
type Host struct {
	factory   build.Factory
	resolver  *resolver.Resolver
	builder   *build.Builder
	starter   ActionFunc
	closer    ActionFunc
	ready     ReadyFunc
	observers []Observer
	empty     *Lease

	// mu serializes SetConfiguration and DirectClose.
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
	applied atomic.Int64
}

// New creates a Closed host that builds its routes with factory.
func New(factory build.Factory, opts ...Option) *Host {
	h := &Host{
		factory:  factory,
		resolver: resolver.New(),
		builder:  build.NewBuilder(factory),
		starter:  noopAction,
		closer:   noopAction,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.empty = &Lease{route: factory.EmptyRoute()}
	h.current.Store(closedSnapshot)
	return h
}

// State returns the current lifecycle state.
func (h *Host) State() State {
	return h.current.Load().state
}

// Generation returns the id of the live generation, or uuid.Nil when Closed.
func (h *Host) Generation() uuid.UUID {
	if gen := h.current.Load().gen; gen != nil {
		return gen.id
	}
	return uuid.Nil
}

// AppliedCount returns how many configurations were applied successfully.
func (h *Host) AppliedCount() int64 {
	return h.applied.Load()
}

// ObtainRoute returns a lease on the most specific route matching name. It
// never blocks: while a reconfiguration is in progress it returns
// ErrPending. The caller must Release the lease once done with the route.
func (h *Host) ObtainRoute(name string) (*Lease, error) {
	for {
		snap := h.current.Load()
		switch snap.state {
		case StateReconfiguring:
			return nil, ErrPending
		case StateClosed:
			return h.empty, nil
		}

		gen := snap.gen
		if gen.tree.Empty() {
			return h.empty, nil
		}
		if !gen.gate.enter() {
			// The gate is sealed only after a newer snapshot was published.
			continue
		}
		node := gen.tree.Root.Match(name)
		return &Lease{route: node.Route, gen: gen.id, release: gen.gate.leave}, nil
	}
}

// SetConfiguration resolves and builds def, drains and closes the live
// generation and activates the new one. maxDrainWait bounds the drain wait
// only; WaitForever disables it.
//
// A *ResolutionError or an ErrBuild error leaves the live generation
// untouched. An ErrStart error leaves the host Closed because the previous
// generation was already closed.
func (h *Host) SetConfiguration(ctx context.Context, def *config.RouteDef, maxDrainWait time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, done := ctxlog.Scope(ctx, "set_configuration")
	defer done()
	logger := ctxlog.FromContext(ctx)

	resolved, diags := h.resolver.Resolve(ctx, def)
	if diags.HasErrors() {
		err := &ResolutionError{Diags: diags, Count: resolver.ErrorCount(diags)}
		h.emit(ctx, EventConfigFailed, uuid.Nil, map[string]any{"stage": "resolve", "errors": err.Count})
		return err
	}

	tree, err := h.builder.Build(ctx, resolved)
	if err != nil {
		h.emit(ctx, EventConfigFailed, uuid.Nil, map[string]any{"stage": "build", "error": err.Error()})
		return fmt.Errorf("%w: %w", ErrBuild, err)
	}

	next := &generation{id: newGenerationID(), tree: tree, gate: newGate()}
	logger = logger.With("generation", next.id)

	old := h.current.Load()
	p := &pass{done: make(chan struct{})}
	h.current.Store(&snapshot{state: StateReconfiguring, gen: old.gen, pass: p})
	defer close(p.done)

	if old.gen != nil {
		h.emit(ctx, EventConfigClosing, old.gen.id, nil)
		if !old.gen.gate.drain(ctx, maxDrainWait) {
			logger.Warn("Drain wait expired, closing actions that may still be in use.",
				"in_flight", old.gen.gate.pending(), "max_drain_wait", maxDrainWait)
			h.emit(ctx, EventDrainTimeout, old.gen.id, map[string]any{"in_flight": old.gen.gate.pending()})
		}
		h.closeAll(ctx, old.gen.id, old.gen.tree.Actions)
	}

	started, err := h.startAll(ctx, tree.Actions)
	if err != nil {
		logger.Error("Start failed, rolling back the new configuration.", "started", len(started), "error", err)
		h.closeAll(ctx, next.id, started)
		h.current.Store(closedSnapshot)
		h.emit(ctx, EventConfigFailed, next.id, map[string]any{"stage": "start", "error": err.Error()})
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	var applyOnce sync.Once
	apply := func() {
		applyOnce.Do(func() {
			h.current.Store(&snapshot{state: StateActive, gen: next})
			h.applied.Add(1)
			h.emit(ctx, EventConfigApplied, next.id, map[string]any{"actions": len(tree.Actions)})
		})
	}

	h.emit(ctx, EventConfigReady, next.id, map[string]any{"actions": len(tree.Actions)})
	if h.ready != nil {
		ready := Ready{Generation: next.id, Actions: slices.Clone(tree.Actions), Apply: apply}
		if err := guard.Call(func() error {
			h.ready(ctx, ready)
			return nil
		}); err != nil {
			logger.Error("Ready callback failed.", "error", err)
		}
	}
	apply()

	logger.Info("Configuration applied.", "actions", len(tree.Actions), "empty", tree.Empty())
	return nil
}

// WaitForAppliedPendingConfiguration blocks until the reconfiguration in
// progress, if any, has finished. A negative timeout waits forever. It
// reports false when the timeout expired or ctx was cancelled first.
func (h *Host) WaitForAppliedPendingConfiguration(ctx context.Context, timeout time.Duration) bool {
	p := h.current.Load().pass
	if p == nil {
		return true
	}

	var expired <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-p.done:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
}

// DirectClose closes every live action without waiting for readers and
// leaves the host Closed.
func (h *Host) DirectClose(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, done := ctxlog.Scope(ctx, "direct_close")
	defer done()

	old := h.current.Load()
	h.current.Store(closedSnapshot)
	if old.gen == nil {
		return
	}
	old.gen.gate.seal()
	h.closeAll(ctx, old.gen.id, old.gen.tree.Actions)
	h.emit(ctx, EventClosed, old.gen.id, map[string]any{"in_flight": old.gen.gate.pending()})
}

// startAll starts actions in creation order and returns the ones that
// started successfully.
func (h *Host) startAll(ctx context.Context, actions []build.Action) ([]build.Action, error) {
	for i, a := range actions {
		err := guard.Call(func() error { return h.starter(ctx, a) })
		if err != nil {
			return actions[:i], fmt.Errorf("action %q: %w", a.Config().Name, err)
		}
	}
	return actions, nil
}

// closeAll closes actions in reverse creation order, so composites close
// before their children. Errors are logged and do not stop the loop.
func (h *Host) closeAll(ctx context.Context, gen uuid.UUID, actions []build.Action) {
	logger := ctxlog.FromContext(ctx)
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		if err := guard.Call(func() error { return h.closer(ctx, a) }); err != nil {
			logger.Error("Failed to close action.", "action", a.Config().Name, "error", err)
			h.emit(ctx, EventActionCloseFailed, gen, map[string]any{"action": a.Config().Name, "error": err.Error()})
		}
	}
}

func newGenerationID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
