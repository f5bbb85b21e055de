// Package resolver turns the declarative meta-operations of a route tree
// into a concrete, ordered action list per route.
//
// Every route is resolved in two phases. The declare phase registers all
// Add, Declare and Override configs in the route's declaration table, so
// that the apply phase can reference names declared by later operations.
// The apply phase then replays the operations in order against the
// effective action list, which starts either empty or as a copy of the
// parent's list. Sub-routes are resolved last, with the route's final list
// and declaration table as their parent context.
//
// Resolution never stops at the first problem: every error is reported as an
// hcl.Diagnostic and logged, and the result is nil whenever at least one
// error was found.
package resolver

import (
	"context"
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
)

// Resolver resolves route definitions. It holds no state between calls and
// is safe for concurrent use.
type Resolver struct{}

// New creates a new Resolver.
func New() *Resolver {
	return &Resolver{}
}

// entry is one slot of an effective action list under construction.
type entry struct {
	name string
	cfg  *config.ActionConfig
}

// resolution holds the per-call bookkeeping.
type resolution struct {
	ctx     context.Context
	diags   hcl.Diagnostics
	checked map[*config.ActionConfig]bool
}

// Resolve resolves the whole tree rooted at root. The returned route is nil
// iff diags.HasErrors().
func (r *Resolver) Resolve(ctx context.Context, root *config.RouteDef) (*ResolvedRoute, hcl.Diagnostics) {
	ctx, done := ctxlog.Scope(ctx, "resolve")
	defer done()
	logger := ctxlog.FromContext(ctx)

	res := &resolution{
		ctx:     ctx,
		checked: make(map[*config.ActionConfig]bool),
	}
	if root == nil {
		res.errorf(nil, "Missing route", "No root route definition was provided.")
		return nil, res.diags
	}

	res.checkName(root.Name, "route", root.DeclRange)
	resolved := res.resolveRoute(root, nil, nil, nil, nil)

	if count := ErrorCount(res.diags); count > 0 {
		logger.Error("Route resolution failed.", "errors", count)
		return nil, res.diags
	}
	logger.Debug("Route resolution succeeded.", "routes", countRoutes(resolved), "actions", resolved.TotalActions())
	return resolved, res.diags
}

// ErrorCount returns the number of error-severity diagnostics.
func ErrorCount(diags hcl.Diagnostics) int {
	return len(diags.Errs())
}

func countRoutes(r *ResolvedRoute) int {
	n := 0
	r.Walk(func(*ResolvedRoute) { n++ })
	return n
}

func (res *resolution) resolveRoute(def *config.RouteDef, pred config.RoutePredicate, ancestors []string, parentScope *scope, seed []entry) *ResolvedRoute {
	fullPath := append(slices.Clone(ancestors), def.Name)
	logger := ctxlog.FromContext(res.ctx).With("route", fullPath)
	logger.Debug("Resolving route.", "ops", len(def.Ops), "inherited_actions", len(seed))

	own, subs := res.declare(def, parentScope)
	effective := res.apply(def, own, seed)

	resolved := &ResolvedRoute{
		Name:       def.Name,
		FullPath:   fullPath,
		ConfigData: def.ConfigData,
		Predicate:  pred,
		Actions:    make([]ResolvedAction, len(effective)),
	}
	for i, e := range effective {
		resolved.Actions[i] = ResolvedAction{
			Index:  i,
			Name:   e.name,
			Path:   resolved.Path() + PathSeparator + e.name,
			Config: e.cfg,
		}
	}

	seen := make(map[string]struct{}, len(subs))
	for _, sub := range subs {
		if !res.checkName(sub.Name, "sub-route", sub.DeclRange) {
			continue
		}
		if _, dup := seen[sub.Name]; dup {
			res.errorf(sub.DeclRange, "Duplicate sub-route",
				fmt.Sprintf("Route %q already declares a sub-route named %q.", resolved.Path(), sub.Name))
			continue
		}
		seen[sub.Name] = struct{}{}
		if sub.Predicate == nil {
			res.errorf(sub.DeclRange, "Missing route predicate",
				fmt.Sprintf("Sub-route %q of %q has no predicate.", sub.Name, resolved.Path()))
			continue
		}

		var visible *scope
		if sub.ImportParentDeclaredActionsAbove {
			visible = own
		}
		var childSeed []entry
		if sub.InheritsActions() {
			childSeed = effective
		}
		resolved.Children = append(resolved.Children, res.resolveRoute(&sub.RouteDef, sub.Predicate, fullPath, visible, childSeed))
	}
	return resolved
}

// declare runs the first phase: it fills the route's declaration table and
// collects the sub-routes in declaration order.
func (res *resolution) declare(def *config.RouteDef, parent *scope) (*scope, []*config.SubRouteDef) {
	own := newScope(parent)
	var subs []*config.SubRouteDef

	for _, op := range def.Ops {
		switch op.Kind {
		case config.OpAdd, config.OpDeclare:
			for _, cfg := range op.Actions {
				if !res.checkAction(cfg, op.DeclRange) {
					continue
				}
				if own.declaredHere(cfg.Name) {
					res.errorf(rangeOf(cfg, op.DeclRange), "Duplicate action declaration",
						fmt.Sprintf("Action %q is already declared in route %q; use override to replace it.", cfg.Name, def.Name))
					res.checked[cfg] = false
					continue
				}
				own.declare(cfg)
			}
		case config.OpOverride:
			for _, cfg := range op.Actions {
				if !res.checkAction(cfg, op.DeclRange) {
					continue
				}
				if _, ok := own.lookup(cfg.Name); !ok {
					res.errorf(rangeOf(cfg, op.DeclRange), "Override of undeclared action",
						fmt.Sprintf("Route %q overrides %q, which is not declared in this route or a visible ancestor.", def.Name, cfg.Name))
					continue
				}
				own.override(cfg)
			}
		case config.OpDeclareSubRoute:
			if op.SubRoute == nil {
				res.errorf(op.DeclRange, "Missing sub-route", fmt.Sprintf("Route %q declares an empty sub-route.", def.Name))
				continue
			}
			subs = append(subs, op.SubRoute)
		case config.OpRemove, config.OpInsert:
			// Handled by the apply phase.
		default:
			res.errorf(op.DeclRange, "Unknown operation", fmt.Sprintf("Route %q contains an unsupported operation %s.", def.Name, op.Kind))
		}
	}
	for _, sub := range def.SubRoutes {
		if sub != nil {
			subs = append(subs, sub)
		}
	}
	return own, subs
}

// apply runs the second phase against a copy of the inherited list.
func (res *resolution) apply(def *config.RouteDef, own *scope, seed []entry) []entry {
	effective := make([]entry, 0, len(seed))
	for _, e := range seed {
		if cfg, ok := own.overridden(e.name); ok {
			e.cfg = cfg
		}
		effective = append(effective, e)
	}

	for _, op := range def.Ops {
		switch op.Kind {
		case config.OpAdd:
			for _, cfg := range op.Actions {
				if !res.checked[cfg] {
					continue
				}
				effective = res.appendEntry(def, effective, entry{name: cfg.Name, cfg: cfg}, rangeOf(cfg, op.DeclRange))
			}
		case config.OpInsert:
			name := op.EffectiveName()
			if !res.checkName(name, "action", op.DeclRange) {
				continue
			}
			cfg, ok := own.lookup(op.DeclaredName)
			if !ok {
				res.errorf(op.DeclRange, "Unknown declared action",
					fmt.Sprintf("Route %q inserts %q, which is not declared in this route or a visible ancestor.", def.Name, op.DeclaredName))
				continue
			}
			effective = res.appendEntry(def, effective, entry{name: name, cfg: cfg}, op.DeclRange)
		case config.OpRemove:
			effective = slices.DeleteFunc(effective, func(e entry) bool {
				return slices.Contains(op.Names, e.name)
			})
		}
	}
	return effective
}

func (res *resolution) appendEntry(def *config.RouteDef, effective []entry, e entry, rng *hcl.Range) []entry {
	if slices.ContainsFunc(effective, func(x entry) bool { return x.name == e.name }) {
		res.errorf(rng, "Duplicate action",
			fmt.Sprintf("Route %q already uses an action named %q.", def.Name, e.name))
		return effective
	}
	return append(effective, e)
}

// checkAction validates a config once and memoizes the outcome.
func (res *resolution) checkAction(cfg *config.ActionConfig, opRange *hcl.Range) bool {
	if cfg == nil {
		res.errorf(opRange, "Missing action", "An operation lists an empty action configuration.")
		return false
	}
	if ok, seen := res.checked[cfg]; seen {
		return ok
	}
	ok := res.checkTree(cfg, opRange, make(map[*config.ActionConfig]struct{}))
	res.checked[cfg] = ok
	return ok
}

func (res *resolution) checkTree(cfg *config.ActionConfig, opRange *hcl.Range, stack map[*config.ActionConfig]struct{}) bool {
	rng := rangeOf(cfg, opRange)
	ok := res.checkName(cfg.Name, "action", rng)

	switch cfg.Kind {
	case config.KindLeaf:
		if cfg.Type == "" {
			res.errorf(rng, "Missing sink type", fmt.Sprintf("Action %q does not name a sink type.", cfg.Name))
			ok = false
		}
	case config.KindSequence, config.KindParallel:
		if _, loop := stack[cfg]; loop {
			res.errorf(rng, "Recursive composite", fmt.Sprintf("Composite action %q contains itself.", cfg.Name))
			return false
		}
		stack[cfg] = struct{}{}
		names := make(map[string]struct{}, len(cfg.Children))
		for _, child := range cfg.Children {
			if child == nil {
				res.errorf(rng, "Missing action", fmt.Sprintf("Composite action %q has an empty child.", cfg.Name))
				ok = false
				continue
			}
			if _, dup := names[child.Name]; dup {
				res.errorf(rangeOf(child, rng), "Duplicate action",
					fmt.Sprintf("Composite action %q already contains a child named %q.", cfg.Name, child.Name))
				ok = false
			}
			names[child.Name] = struct{}{}
			if !res.checkTree(child, rng, stack) {
				ok = false
			}
		}
		delete(stack, cfg)
	default:
		res.errorf(rng, "Unknown action kind", fmt.Sprintf("Action %q has unsupported kind %s.", cfg.Name, cfg.Kind))
		ok = false
	}
	return ok
}

func (res *resolution) checkName(name, what string, rng *hcl.Range) bool {
	if !hclsyntax.ValidIdentifier(name) {
		res.errorf(rng, "Invalid "+what+" name",
			fmt.Sprintf("%q is not a valid %s name: names must be non-empty identifiers of letters, digits, underscores and dashes.", name, what))
		return false
	}
	return true
}

func (res *resolution) errorf(rng *hcl.Range, summary, detail string) {
	ctxlog.FromContext(res.ctx).Error(summary, "detail", detail)
	res.diags = append(res.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  rng,
	})
}

func rangeOf(cfg *config.ActionConfig, fallback *hcl.Range) *hcl.Range {
	if cfg != nil && cfg.DeclRange != nil {
		return cfg.DeclRange
	}
	return fallback
}
