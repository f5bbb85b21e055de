// Package build turns a resolved route tree into live actions and routes
// through a user-supplied Factory.
//
// Actions are memoized per ActionConfig for the duration of one build pass:
// a config referenced from several routes yields a single shared action
// unless the config is cloneable and the factory implements Cloner.
// Composite children are created before their composite; a route is created
// before its sub-routes and receives the already created ancestor routes.
package build

import (
	"context"

	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// Action is a live unit of work created from an ActionConfig.
type Action interface {
	Config() *config.ActionConfig
}

// Route is a live route wrapping an ordered list of actions.
type Route interface {
	Name() string
}

// Factory creates live actions and routes. A Factory is only driven by one
// build pass at a time.
type Factory interface {
	// Initialize is called at the start of every build pass.
	Initialize(ctx context.Context) error
	// Uninitialize ends a build pass. success is false when the pass failed
	// and every action created during it is being discarded.
	Uninitialize(ctx context.Context, success bool)

	CreateLeaf(ctx context.Context, cfg *config.ActionConfig) (Action, error)
	CreateSequence(ctx context.Context, cfg *config.ActionConfig, children []Action) (Action, error)
	CreateParallel(ctx context.Context, cfg *config.ActionConfig, children []Action) (Action, error)
	CreateRoute(ctx context.Context, actions []Action, name string, data cty.Value, ancestors []Route) (Route, error)

	// EmptyRoute returns the shared route representing "no actions configured".
	EmptyRoute() Route
}

// Cloner is implemented by factories that produce a fresh instance for each
// additional reference to a cloneable config.
type Cloner interface {
	CloneAction(ctx context.Context, cfg *config.ActionConfig, cached Action) (Action, error)
}
