package build

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/guard"
	"github.com/specialistvlad/routegrid/internal/resolver"
)

// errNilAction is returned when a factory reports success without a value.
var errNilAction = errors.New("factory returned a nil value")

// Node is one live route together with the resolved route it was built from.
type Node struct {
	Route     Route
	Resolved  *resolver.ResolvedRoute
	Predicate config.RoutePredicate
	Actions   []Action
	Children  []*Node
}

// Match descends from n through the first sub-route whose predicate accepts
// name, level by level, and returns the most specific match.
func (n *Node) Match(name string) *Node {
	cur := n
	for {
		var next *Node
		for _, child := range cur.Children {
			if child.Predicate(name) {
				next = child
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// Tree is the outcome of one build pass.
type Tree struct {
	// Root is nil when the configuration holds no actions at all.
	Root *Node
	// Actions lists every distinct action created during the pass, in
	// creation order.
	Actions []Action
}

// Empty reports whether the tree collapsed to the empty route.
func (t *Tree) Empty() bool {
	return t == nil || t.Root == nil
}

// Builder drives a Factory through build passes. It is not safe for
// concurrent use; the route host serializes passes.
type Builder struct {
	factory Factory
	cache   map[*config.ActionConfig]Action
	created []Action
}

// NewBuilder creates a builder for the given factory.
func NewBuilder(factory Factory) *Builder {
	return &Builder{factory: factory}
}

// Build creates the live tree for root. On failure the factory is
// uninitialized with success=false, nothing created is returned, and no
// action has been started.
func (b *Builder) Build(ctx context.Context, root *resolver.ResolvedRoute) (*Tree, error) {
	ctx, done := ctxlog.Scope(ctx, "build")
	defer done()
	logger := ctxlog.FromContext(ctx)

	b.reset()
	defer b.reset()

	if root.TotalActions() == 0 {
		logger.Info("Configuration has no actions, using the empty route.")
		return &Tree{}, nil
	}

	if err := guard.Call(func() error { return b.factory.Initialize(ctx) }); err != nil {
		return nil, fmt.Errorf("failed to initialize action factory: %w", err)
	}

	rootNode, err := b.buildRoute(ctx, root, nil)
	if err != nil {
		logger.Error("Build failed, discarding created actions.", "discarded", len(b.created), "error", err)
		b.uninitialize(ctx, false)
		return nil, err
	}
	b.uninitialize(ctx, true)

	logger.Debug("Build succeeded.", "actions", len(b.created))
	return &Tree{Root: rootNode, Actions: b.created}, nil
}

func (b *Builder) reset() {
	b.cache = make(map[*config.ActionConfig]Action)
	b.created = nil
}

func (b *Builder) uninitialize(ctx context.Context, success bool) {
	err := guard.Call(func() error {
		b.factory.Uninitialize(ctx, success)
		return nil
	})
	if err != nil {
		ctxlog.FromContext(ctx).Error("Action factory failed to uninitialize.", "error", err)
	}
}

func (b *Builder) buildRoute(ctx context.Context, rr *resolver.ResolvedRoute, ancestors []Route) (*Node, error) {
	actions := make([]Action, 0, len(rr.Actions))
	for _, ra := range rr.Actions {
		a, err := b.action(ctx, ra.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to create action %q: %w", ra.Path, err)
		}
		actions = append(actions, a)
	}

	var route Route
	err := guard.Call(func() (err error) {
		route, err = b.factory.CreateRoute(ctx, actions, rr.Name, rr.ConfigData, slices.Clone(ancestors))
		return err
	})
	if err == nil && route == nil {
		err = errNilAction
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create route %q: %w", rr.Path(), err)
	}

	node := &Node{
		Route:     route,
		Resolved:  rr,
		Predicate: rr.Predicate,
		Actions:   actions,
	}
	lineage := append(slices.Clone(ancestors), route)
	for _, child := range rr.Children {
		childNode, err := b.buildRoute(ctx, child, lineage)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

// action returns the memoized action for cfg, creating it on first use.
func (b *Builder) action(ctx context.Context, cfg *config.ActionConfig) (Action, error) {
	if cached, ok := b.cache[cfg]; ok {
		cloner, canClone := b.factory.(Cloner)
		if !cfg.Cloneable || !canClone {
			return cached, nil
		}
		var clone Action
		err := guard.Call(func() (err error) {
			clone, err = cloner.CloneAction(ctx, cfg, cached)
			return err
		})
		if err == nil && clone == nil {
			err = errNilAction
		}
		if err != nil {
			return nil, fmt.Errorf("failed to clone %q: %w", cfg.Name, err)
		}
		b.created = append(b.created, clone)
		return clone, nil
	}

	var a Action
	var err error
	switch cfg.Kind {
	case config.KindLeaf:
		err = guard.Call(func() (err error) {
			a, err = b.factory.CreateLeaf(ctx, cfg)
			return err
		})
	case config.KindSequence, config.KindParallel:
		children := make([]Action, 0, len(cfg.Children))
		for _, childCfg := range cfg.Children {
			child, err := b.action(ctx, childCfg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", cfg.Name, err)
			}
			children = append(children, child)
		}
		err = guard.Call(func() (err error) {
			if cfg.Kind == config.KindSequence {
				a, err = b.factory.CreateSequence(ctx, cfg, children)
			} else {
				a, err = b.factory.CreateParallel(ctx, cfg, children)
			}
			return err
		})
	default:
		err = fmt.Errorf("unsupported action kind %s", cfg.Kind)
	}
	if err == nil && a == nil {
		err = errNilAction
	}
	if err != nil {
		return nil, err
	}

	b.cache[cfg] = a
	b.created = append(b.created, a)
	return a, nil
}
