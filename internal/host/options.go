package host

import (
	"context"

	"github.com/google/uuid"
	"github.com/specialistvlad/routegrid/internal/build"
)

// ActionFunc starts or closes a single action.
type ActionFunc func(ctx context.Context, action build.Action) error

// Ready is handed to the ready callback of a reconfiguration pass.
type Ready struct {
	Generation uuid.UUID
	// Actions are the started actions of the new generation.
	Actions []build.Action
	// Apply activates the new generation right away. It is called
	// automatically once the callback returns and is safe to call more than
	// once.
	Apply func()
}

// ReadyFunc is called once every action of a new generation started.
type ReadyFunc func(ctx context.Context, ready Ready)

// Option configures a Host.
type Option func(*Host)

// WithStarter sets the callback invoked for each new action before the
// generation is activated.
func WithStarter(fn ActionFunc) Option {
	return func(h *Host) {
		h.starter = fn
	}
}

// WithCloser sets the callback invoked for each action of a retired
// generation.
func WithCloser(fn ActionFunc) Option {
	return func(h *Host) {
		h.closer = fn
	}
}

// WithObserver adds an observer. It may be given several times.
func WithObserver(obs Observer) Option {
	return func(h *Host) {
		if obs != nil {
			h.observers = append(h.observers, obs)
		}
	}
}

// WithReady sets the ready callback.
func WithReady(fn ReadyFunc) Option {
	return func(h *Host) {
		h.ready = fn
	}
}

func noopAction(context.Context, build.Action) error { return nil }
